package configtypes

import (
	"github.com/edgecomet/seoeditor/pkg/types"
)

// Log level constants
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Log format constants
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
	LogFormatText    = "text"
)

// EditorConfig is the root configuration of the seo-editor service
type EditorConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Site    SiteConfig    `yaml:"site"`
	Backup  BackupConfig  `yaml:"backup"`
	Redis   RedisConfig   `yaml:"redis"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type ServerConfig struct {
	Listen  string         `yaml:"listen"`
	Timeout types.Duration `yaml:"timeout"`
	// APIKey protects the API when set. Accepted via X-API-Key or Authorization: Bearer.
	APIKey string `yaml:"api_key,omitempty"`
	// StrictStatus maps API errors to 4xx/5xx instead of answering 200 with an error body.
	StrictStatus bool `yaml:"strict_status"`
}

// SiteConfig locates the pages being edited
type SiteConfig struct {
	Root        string   `yaml:"root"`
	ContentDirs []string `yaml:"content_dirs,omitempty"`
	// PublicHost is used for og:url. Falls back to the request Host header.
	PublicHost string `yaml:"public_host,omitempty"`
	// Exclude hides matching pages from listing and editing (see pkg/pattern)
	Exclude []string `yaml:"exclude,omitempty"`
}

type BackupConfig struct {
	Enabled     *bool  `yaml:"enabled,omitempty"`     // default: true
	Compression string `yaml:"compression,omitempty"` // none, snappy, lz4
}

// IsEnabled reports whether a backup is written before each save
func (b BackupConfig) IsEnabled() bool {
	return b.Enabled == nil || *b.Enabled
}

type RedisConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Addr     string         `yaml:"addr"`
	Password string         `yaml:"password"`
	DB       int            `yaml:"db"`
	ScoreTTL types.Duration `yaml:"score_ttl"`
}

type LogConfig struct {
	Level   string           `yaml:"level"`
	Console ConsoleLogConfig `yaml:"console"`
	File    FileLogConfig    `yaml:"file"`
}

type ConsoleLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"`
	Level   string `yaml:"level,omitempty"`
}

type FileLogConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Path     string         `yaml:"path"`
	Format   string         `yaml:"format"`
	Level    string         `yaml:"level,omitempty"`
	Rotation RotationConfig `yaml:"rotation"`
}

type RotationConfig struct {
	MaxSize    int  `yaml:"max_size"`
	MaxAge     int  `yaml:"max_age"`
	MaxBackups int  `yaml:"max_backups"`
	Compress   bool `yaml:"compress"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Listen    string `yaml:"listen"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}
