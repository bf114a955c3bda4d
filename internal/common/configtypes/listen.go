package configtypes

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ParseListenAddress splits a listen address into host and port.
// Accepted forms are ":8080", "8080", "localhost:8080" and "10.0.0.1:8080".
// An empty host means all interfaces.
func ParseListenAddress(listen string) (host string, port int, err error) {
	if listen == "" {
		return "", 0, fmt.Errorf("listen address is empty")
	}

	if !strings.Contains(listen, ":") {
		p, err := strconv.Atoi(listen)
		if err != nil {
			return "", 0, fmt.Errorf("invalid listen address format: %s", listen)
		}
		return "", p, nil
	}

	host, portStr, err := net.SplitHostPort(listen)
	if err != nil {
		return "", 0, fmt.Errorf("invalid listen address format: %s: %w", listen, err)
	}

	port, err = strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in listen address: %s", portStr)
	}

	return host, port, nil
}

// listenPort parses listen and checks the port range. field names the config key in errors.
func listenPort(field, listen string) (int, error) {
	if listen == "" {
		return 0, fmt.Errorf("%s must be specified", field)
	}
	_, port, err := ParseListenAddress(listen)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("%s port must be between 1 and 65535, got %d", field, port)
	}
	return port, nil
}

// NormalizeListen returns the address in host:port form, so "8080" becomes ":8080".
func NormalizeListen(listen string) (string, error) {
	host, port, err := ParseListenAddress(listen)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}
