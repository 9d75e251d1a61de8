package schema

import (
	"net/url"
	"strings"
	"time"
)

// ServerConfig describes the backend the console talks to
type ServerConfig struct {
	// URL is the console base URL, e.g. https://manager.example/
	URL string `yaml:"url" json:"url"`

	// APITimeout bounds every request/response call
	APITimeout time.Duration `yaml:"api_timeout" json:"api_timeout"`

	// WebSocketTimeout is the liveness interval of the event channel
	WebSocketTimeout time.Duration `yaml:"websocket_timeout" json:"websocket_timeout"`

	// CacheExpiration bounds how long server info and grid members are cached
	CacheExpiration time.Duration `yaml:"cache_expiration" json:"cache_expiration"`

	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" json:"insecure_skip_verify"`
	Token              Secret `yaml:"token" json:"token"`
}

// BaseURL returns URL with a guaranteed trailing slash
func (c ServerConfig) BaseURL() string {
	if c.URL == "" || strings.HasSuffix(c.URL, "/") {
		return c.URL
	}
	return c.URL + "/"
}

// APIURL returns the request/response endpoint root
func (c ServerConfig) APIURL() string {
	return c.BaseURL() + "api/"
}

// WebSocketURL returns the event channel endpoint (http→ws, https→wss)
func (c ServerConfig) WebSocketURL() string {
	base := c.BaseURL()
	u, err := url.Parse(base)
	if err != nil {
		return base + "ws"
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	return u.String() + "ws"
}

// LoginURL returns the page an unauthorized user is sent to
func (c ServerConfig) LoginURL() string {
	return c.BaseURL() + "auth/self-service/login/browser"
}
