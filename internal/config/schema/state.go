package schema

// State backend types
const (
	StateTypeMemory   = "memory"
	StateTypeRedis    = "redis"
	StateTypeEmbedded = "embedded"
)

// StateConfig selects where console-local state (session flags) is kept
type StateConfig struct {
	Type      string      `yaml:"type" json:"type"`
	KeyPrefix string      `yaml:"key_prefix" json:"key_prefix"`
	Redis     RedisConfig `yaml:"redis" json:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password Secret `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}
