// Package schema defines configuration structure types
package schema

// Root is the root configuration structure of the console
type Root struct {
	Server ServerConfig `yaml:"server" json:"server"`
	Log    LogConfig    `yaml:"log" json:"log"`
	State  StateConfig  `yaml:"state" json:"state"`
	Output OutputConfig `yaml:"output" json:"output"`
}

// OutputConfig contains terminal output settings
type OutputConfig struct {
	NoColor bool `yaml:"no_color" json:"no_color"`
}
