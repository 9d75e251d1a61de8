// Package validator provides configuration validation
package validator

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"soc-console/internal/config/schema"
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string // Field path (e.g., "server.api_timeout")
	Value   string // Current value (masked for secrets)
	Message string // Error message
	Hint    string // Fix suggestion
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult contains all validation errors
type ValidationResult struct {
	Errors []ValidationError
}

// IsValid returns true if there are no validation errors
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Error returns a formatted error message
func (r *ValidationResult) Error() string {
	if r.IsValid() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n\n")

	for i, err := range r.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Field))
		if err.Value != "" {
			sb.WriteString(fmt.Sprintf("     Current value: %s\n", err.Value))
		}
		sb.WriteString(fmt.Sprintf("     Error: %s\n", err.Message))
		if err.Hint != "" {
			sb.WriteString(fmt.Sprintf("     Hint: %s\n", err.Hint))
		}
	}

	return sb.String()
}

// AddError adds a validation error
func (r *ValidationResult) AddError(field, value, message, hint string) {
	r.Errors = append(r.Errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Hint:    hint,
	})
}

// ValidationRule is a function that validates configuration
type ValidationRule func(cfg *schema.Root, result *ValidationResult)

// Validator validates configuration
type Validator struct {
	rules []ValidationRule
}

// NewValidator creates a new Validator with default rules
func NewValidator() *Validator {
	v := &Validator{}
	v.AddRule(validateServer)
	v.AddRule(validateLog)
	v.AddRule(validateState)
	return v
}

// AddRule adds a validation rule
func (v *Validator) AddRule(rule ValidationRule) {
	v.rules = append(v.rules, rule)
}

// Validate validates the configuration
func (v *Validator) Validate(cfg *schema.Root) *ValidationResult {
	result := &ValidationResult{Errors: make([]ValidationError, 0)}
	for _, rule := range v.rules {
		rule(cfg, result)
	}
	return result
}

// ValidateConfig is a convenience function that creates a validator and validates
func ValidateConfig(cfg *schema.Root) *ValidationResult {
	return NewValidator().Validate(cfg)
}

// ============================================================================
// Validation Rules
// ============================================================================

func validateServer(cfg *schema.Root, result *ValidationResult) {
	if cfg.Server.URL == "" {
		result.AddError("server.url", "", "server URL is required",
			"set server.url in console.yaml or SOC_CONSOLE_SERVER_URL")
	} else if u, err := url.Parse(cfg.Server.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		result.AddError("server.url", cfg.Server.URL, "server URL must be an absolute http(s) URL",
			"e.g. https://manager.example/")
	}

	validatePositive("server.api_timeout", cfg.Server.APITimeout, result)
	validatePositive("server.websocket_timeout", cfg.Server.WebSocketTimeout, result)
	validatePositive("server.cache_expiration", cfg.Server.CacheExpiration, result)
}

func validateLog(cfg *schema.Root, result *ValidationResult) {
	switch strings.ToLower(cfg.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		result.AddError("log.level", cfg.Log.Level, "unknown log level", "one of debug, info, warn, error")
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "", "text", "json":
	default:
		result.AddError("log.format", cfg.Log.Format, "unknown log format", "one of text, json")
	}
}

func validateState(cfg *schema.Root, result *ValidationResult) {
	switch cfg.State.Type {
	case schema.StateTypeMemory, schema.StateTypeEmbedded:
	case schema.StateTypeRedis:
		if cfg.State.Redis.Addr == "" {
			result.AddError("state.redis.addr", "", "redis address is required when state.type is redis", "")
		}
		if cfg.State.Redis.DB < 0 {
			result.AddError("state.redis.db", fmt.Sprint(cfg.State.Redis.DB), "redis db must not be negative", "")
		}
	default:
		result.AddError("state.type", cfg.State.Type, "unknown state backend",
			"one of memory, redis, embedded")
	}
}

func validatePositive(field string, d time.Duration, result *ValidationResult) {
	if d <= 0 {
		result.AddError(field, d.String(), "must be positive", "")
	}
}
