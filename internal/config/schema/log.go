package schema

import corelog "soc-console/internal/core/log"

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug/info/warn/error
	Format string `yaml:"format" json:"format"` // text/json
	File   string `yaml:"file" json:"file"`     // log file path, stderr when empty
}

// Logger converts the schema into the logger's own config
func (c LogConfig) Logger() corelog.Config {
	return corelog.Config{Level: c.Level, Format: c.Format, File: c.File}
}
