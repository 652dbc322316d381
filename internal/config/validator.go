package config

import (
	"fmt"
	"strings"

	"github.com/vyrodovalexey/avaxform/internal/util"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, e[i].Error())
	}
	return sb.String()
}

// Is reports ErrConfigInvalid so callers can classify the failure.
func (e ValidationErrors) Is(target error) bool {
	return target == util.ErrConfigInvalid
}

// Validator validates gateway configuration and rule sets.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateConfig validates a gateway configuration.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// ValidateRuleSet validates every rule of a rule set.
func ValidateRuleSet(set *RuleSet) error {
	v := NewValidator()
	if set == nil {
		v.addError("", "rule set is nil")
		return v.errors
	}

	seen := make(map[string]int, len(set.Rules))
	for i := range set.Rules {
		path := fmt.Sprintf("rules[%d]", i)
		name := set.Rules[i].Name
		if name == "" {
			v.addError(path+".rule_name", "rule_name is required")
		} else if prev, dup := seen[name]; dup {
			v.addError(path+".rule_name", fmt.Sprintf("duplicate rule name %q (also rules[%d])", name, prev))
		} else {
			seen[name] = i
		}
		v.validateRule(&set.Rules[i], path)
	}
	return v.result()
}

// ValidateRule validates a single rule.
func ValidateRule(rule *TransformationRule) error {
	v := NewValidator()
	if rule == nil {
		v.addError("", "rule is nil")
		return v.errors
	}
	v.validateRule(rule, "rule")
	return v.result()
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = nil

	if cfg == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateServer(&cfg.Server)
	v.validateLogging(&cfg.Logging)
	v.validateTracing(&cfg.Tracing)
	v.validateSchemaRegistry(&cfg.SchemaRegistry)
	v.validateRetry(&cfg.Source.Retry, "source.retry")

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		v.addError("metrics.path", "path must start with '/'")
	}

	return v.result()
}

func (v *Validator) validateServer(s *ServerConfig) {
	if s.Port < 1 || s.Port > 65535 {
		v.addError("server.port", "port must be between 1 and 65535")
	}
	if s.MaxRequestBodySize < 0 {
		v.addError("server.maxRequestBodySize", "must not be negative")
	}
}

func (v *Validator) validateLogging(l *LoggingConfig) {
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		v.addError("logging.level", fmt.Sprintf("unknown level %q", l.Level))
	}
	switch l.Format {
	case "", "json", "console":
	default:
		v.addError("logging.format", fmt.Sprintf("unknown format %q", l.Format))
	}
}

func (v *Validator) validateTracing(t *TracingConfig) {
	if t.SamplingRate < 0 || t.SamplingRate > 1 {
		v.addError("tracing.samplingRate", "must be between 0 and 1")
	}
}

func (v *Validator) validateSchemaRegistry(r *SchemaRegistryConfig) {
	if r.Timeout < 0 {
		v.addError("schemaRegistry.timeout", "must not be negative")
	}
	if r.RateLimit.Enabled {
		if r.RateLimit.RequestsPerSecond <= 0 {
			v.addError("schemaRegistry.rateLimit.requestsPerSecond", "must be positive")
		}
		if r.RateLimit.Burst <= 0 {
			v.addError("schemaRegistry.rateLimit.burst", "must be positive")
		}
	}
	if r.CircuitBreaker.Enabled && r.CircuitBreaker.Threshold <= 0 {
		v.addError("schemaRegistry.circuitBreaker.threshold", "must be positive")
	}
	v.validateRetry(&r.Retry, "schemaRegistry.retry")
}

func (v *Validator) validateRetry(r *RetryConfig, path string) {
	if r.MaxRetries < 0 {
		v.addError(path+".maxRetries", "must not be negative")
	}
	if r.InitialBackoff < 0 || r.MaxBackoff < 0 {
		v.addError(path, "backoff must not be negative")
	}
}

func (v *Validator) validateRule(rule *TransformationRule, path string) {
	if !isKnownFormat(rule.SourceFormatOrDefault()) {
		v.addError(path+".source_format", fmt.Sprintf("unsupported format %q", rule.SourceFormat))
	}
	if !isKnownFormat(rule.TargetFormatOrDefault()) {
		v.addError(path+".target_format", fmt.Sprintf("unsupported format %q", rule.TargetFormat))
	}

	switch OnFailPolicy(strings.ToLower(strings.TrimSpace(rule.ValidationOnFail))) {
	case "", OnFailReject, OnFailFilter, OnFailWarn:
	default:
		v.addError(path+".validation_on_fail", fmt.Sprintf("unknown policy %q", rule.ValidationOnFail))
	}

	for i := range rule.ValidationConfig {
		vr := &rule.ValidationConfig[i]
		if vr.Field == "" && vr.SchemaURI == "" {
			v.addError(fmt.Sprintf("%s.validation_config[%d]", path, i), "field or schemaUri is required")
		}
	}

	for i := range rule.MappingConfig {
		if strings.TrimSpace(rule.MappingConfig[i].Target) == "" {
			v.addError(fmt.Sprintf("%s.mapping_config[%d]", path, i), "target path is empty")
		}
	}
}

func isKnownFormat(f string) bool {
	switch f {
	case FormatJSON, FormatCSV, FormatXML:
		return true
	default:
		return false
	}
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) result() error {
	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}
