package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/edgecomet/seoeditor/internal/common/configtypes"
	"github.com/edgecomet/seoeditor/pkg/types"
)

// Defaults applied after validation
const (
	DefaultServerTimeout    = 30 * time.Second
	DefaultScoreTTL         = 24 * time.Hour
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "seoeditor"
)

// DefaultContentDirs are scanned below site.root, in order, after the root itself.
var DefaultContentDirs = []string{"pages", "blog", "articles", "products"}

// unmarshalStrict rejects unknown fields so typos in the config file fail loudly.
func unmarshalStrict(data []byte, v interface{}) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(v); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "field") && strings.Contains(errStr, "not found") {
			return fmt.Errorf("unknown configuration field (check for typos): %w", err)
		}
		return err
	}
	return nil
}

// applyEditorDefaults fills in values left empty in the YAML file
func applyEditorDefaults(config *configtypes.EditorConfig) {
	if config.Server.Timeout == 0 {
		config.Server.Timeout = types.Duration(DefaultServerTimeout)
	}

	if config.Site.ContentDirs == nil {
		config.Site.ContentDirs = append([]string(nil), DefaultContentDirs...)
	}

	if config.Backup.Compression == "" {
		config.Backup.Compression = types.CompressionNone
	}

	if config.Redis.ScoreTTL == 0 {
		config.Redis.ScoreTTL = types.Duration(DefaultScoreTTL)
	}

	if config.Metrics.Path == "" {
		config.Metrics.Path = DefaultMetricsPath
	}
	if config.Metrics.Namespace == "" {
		config.Metrics.Namespace = DefaultMetricsNamespace
	}

	// If both outputs are disabled (zero values), enable console by default
	if !config.Log.Console.Enabled && !config.Log.File.Enabled {
		config.Log.Console.Enabled = true
	}
	if config.Log.Console.Format == "" {
		config.Log.Console.Format = configtypes.LogFormatConsole
	}
	if config.Log.File.Format == "" {
		config.Log.File.Format = configtypes.LogFormatText
	}
}

// ParseEditorConfig decodes, validates and defaults configuration from YAML bytes
func ParseEditorConfig(data []byte) (*configtypes.EditorConfig, error) {
	var config configtypes.EditorConfig
	if err := unmarshalStrict(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	applyEditorDefaults(&config)
	return &config, nil
}

// LoadEditorConfig loads seo-editor configuration from a YAML file
func LoadEditorConfig(path string, logger *zap.Logger) (*configtypes.EditorConfig, error) {
	logger.Info("Loading seo-editor configuration", zap.String("path", path))

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := ParseEditorConfig(data)
	if err != nil {
		return nil, err
	}

	logger.Info("seo-editor configuration loaded successfully",
		zap.String("site_root", config.Site.Root),
		zap.String("listen", config.Server.Listen),
		zap.Bool("redis_enabled", config.Redis.Enabled),
		zap.String("backup_compression", config.Backup.Compression))

	return config, nil
}
