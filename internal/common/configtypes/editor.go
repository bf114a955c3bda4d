package configtypes

import (
	"fmt"
	"time"

	"github.com/edgecomet/seoeditor/pkg/pattern"
	"github.com/edgecomet/seoeditor/pkg/types"
)

// Validate validates seo-editor configuration
func (c *EditorConfig) Validate() error {
	if c == nil {
		return nil
	}

	serverPort, err := listenPort("server.listen", c.Server.Listen)
	if err != nil {
		return err
	}
	if time.Duration(c.Server.Timeout) < 0 {
		return fmt.Errorf("server.timeout must be >= 0, got %v", time.Duration(c.Server.Timeout))
	}

	if c.Site.Root == "" {
		return fmt.Errorf("site.root must be specified")
	}
	for i, dir := range c.Site.ContentDirs {
		if dir == "" {
			return fmt.Errorf("site.content_dirs[%d] must not be empty", i)
		}
	}
	for i, p := range c.Site.Exclude {
		if _, err := pattern.Compile(p); err != nil {
			return fmt.Errorf("site.exclude[%d]: %w", i, err)
		}
	}

	switch c.Backup.Compression {
	case "", types.CompressionNone, types.CompressionSnappy, types.CompressionLZ4:
	default:
		return fmt.Errorf("backup.compression must be one of: none, snappy, lz4, got '%s'", c.Backup.Compression)
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr must be specified when redis is enabled")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("redis.db must be >= 0, got %d", c.Redis.DB)
		}
		if time.Duration(c.Redis.ScoreTTL) < 0 {
			return fmt.Errorf("redis.score_ttl must be >= 0")
		}
	}

	if c.Metrics.Enabled {
		metricsPort, err := listenPort("metrics.listen", c.Metrics.Listen)
		if err != nil {
			return err
		}
		if metricsPort == serverPort {
			return fmt.Errorf("metrics.listen port (%d) must differ from server.listen port (%d)", metricsPort, serverPort)
		}
	}

	return c.Log.Validate()
}

// Validate validates log outputs, levels and rotation parameters
func (l *LogConfig) Validate() error {
	validLogLevels := map[string]bool{
		LogLevelDebug: true,
		LogLevelInfo:  true,
		LogLevelWarn:  true,
		LogLevelError: true,
	}
	if l.Level != "" && !validLogLevels[l.Level] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error, got '%s'", l.Level)
	}
	if l.Console.Level != "" && !validLogLevels[l.Console.Level] {
		return fmt.Errorf("log.console.level must be one of: debug, info, warn, error, got '%s'", l.Console.Level)
	}
	if l.File.Level != "" && !validLogLevels[l.File.Level] {
		return fmt.Errorf("log.file.level must be one of: debug, info, warn, error, got '%s'", l.File.Level)
	}

	if l.Console.Enabled && l.Console.Format != "" &&
		l.Console.Format != LogFormatJSON && l.Console.Format != LogFormatConsole {
		return fmt.Errorf("log.console.format must be 'json' or 'console', got '%s'", l.Console.Format)
	}

	if l.File.Enabled {
		if l.File.Path == "" {
			return fmt.Errorf("log.file.path must be specified when file logging is enabled")
		}
		if l.File.Format != "" && l.File.Format != LogFormatJSON && l.File.Format != LogFormatText {
			return fmt.Errorf("log.file.format must be 'json' or 'text', got '%s'", l.File.Format)
		}
		if l.File.Rotation.MaxSize < 0 {
			return fmt.Errorf("log.file.rotation.max_size must be >= 0, got %d", l.File.Rotation.MaxSize)
		}
		if l.File.Rotation.MaxAge < 0 {
			return fmt.Errorf("log.file.rotation.max_age must be >= 0, got %d", l.File.Rotation.MaxAge)
		}
		if l.File.Rotation.MaxBackups < 0 {
			return fmt.Errorf("log.file.rotation.max_backups must be >= 0, got %d", l.File.Rotation.MaxBackups)
		}
	}

	return nil
}
