// Package config provides configuration management for the LeapCheck CLI.
//
// Configuration is layered with koanf: built-in defaults, then the
// leapcheck.yaml file, then LEAPCHECK_ environment variables, then command
// line flags.
package config

// Config holds all CLI configuration options.
type Config struct {
	Rules            string         `koanf:"rules"`
	RequiredSentinel string         `koanf:"required_sentinel"`
	Source           SourceConfig   `koanf:"source"`
	Group            GroupConfig    `koanf:"group"`
	Severity         SeverityConfig `koanf:"severity"`
	FailOn           string         `koanf:"fail_on"`
	Workers          int            `koanf:"workers"`
	KeepBlankRows    bool           `koanf:"keep_blank_rows"`
	History          HistoryConfig  `koanf:"history"`
	Serve            ServeConfig    `koanf:"serve"`
	OutputFormat     string         `koanf:"output"`
	Verbose          bool           `koanf:"verbose"`
	ProjectRoot      string         `koanf:"-"`
}

// SourceConfig describes where rows are read from.
type SourceConfig struct {
	Type      string `koanf:"type"`
	Path      string `koanf:"path"`
	Sheet     string `koanf:"sheet"`
	HeaderRow int    `koanf:"header_row"`
	Encoding  string `koanf:"encoding"`
	Driver    string `koanf:"driver"`
	DSN       string `koanf:"dsn"`
	Query     string `koanf:"query"`
	Table     string `koanf:"table"`
}

// GroupConfig configures the consistency check.
type GroupConfig struct {
	Key    string   `koanf:"key"`
	Fields []string `koanf:"fields"`
}

// SeverityConfig maps finding kinds to severities.
type SeverityConfig struct {
	Empty           string `koanf:"empty"`
	NotInDictionary string `koanf:"not_in_dictionary"`
	GroupMismatch   string `koanf:"group_mismatch"`
}

// HistoryConfig controls run history persistence.
type HistoryConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// ServeConfig configures the HTTP API.
type ServeConfig struct {
	Addr        string `koanf:"addr"`
	MaxUploadMB int    `koanf:"max_upload_mb"`
}

// Default configuration values.
const (
	DefaultRulesFile   = "rules.md"
	DefaultSheet       = "采集点"
	DefaultHistoryFile = ".leapcheck/history.db"
	DefaultAddr        = ":8080"
	DefaultMaxUploadMB = 32
	DefaultFailOn      = "error"
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// DefaultGroupKey is the device-name column of collection workbooks.
const DefaultGroupKey = "设备名称\n（必填）"

// DefaultGroupFields are the columns every row of a device must agree on.
func DefaultGroupFields() []string {
	return []string{
		"基地\n（必选）",
		"车间\n（必选）",
		"工段\n（必选）",
		"工序/系统\n（必选）",
		"设备子类型\n（必选）",
	}
}
