package config

import (
	"fmt"
	"strings"

	"github.com/conneroisu/techviz/internal/errors"
	"github.com/conneroisu/techviz/internal/logging"
	"github.com/conneroisu/techviz/internal/validation"
)

// MaxFrameRate caps simulation.frame_rate.
const MaxFrameRate = 240

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	if len(vr.Errors) > 0 {
		builder.WriteString("Validation errors:\n")
		for _, err := range vr.Errors {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", err.Field, err.Message))
			for _, suggestion := range err.Suggestions {
				builder.WriteString(fmt.Sprintf("    hint: %s\n", suggestion))
			}
		}
	}

	if len(vr.Warnings) > 0 {
		builder.WriteString("Validation warnings:\n")
		for _, warning := range vr.Warnings {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", warning.Field, warning.Message))
			for _, suggestion := range warning.Suggestions {
				builder.WriteString(fmt.Sprintf("    hint: %s\n", suggestion))
			}
		}
	}

	return builder.String()
}

func (vr *ValidationResult) fail(field string, value interface{}, message string, suggestions ...string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Value: value, Message: message, Suggestions: suggestions})
}

func (vr *ValidationResult) warn(field string, value interface{}, message string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Value: value, Message: message, Suggestions: suggestions})
}

// ValidateConfigWithDetails checks every section and collects all errors and
// warnings instead of stopping at the first.
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{}

	validateServerConfigDetails(&config.Server, result)
	validateSimulationConfigDetails(&config.Simulation, result)
	validateLayoutConfigDetails(&config.Layout, result)
	validateLoggingConfigDetails(&config.Logging, result)
	validateTracingConfigDetails(&config.Tracing, result)

	result.Valid = !result.HasErrors()
	return result
}

// validateConfig folds a detailed result into a single error.
func validateConfig(config *Config) error {
	result := ValidateConfigWithDetails(config)
	if !result.HasErrors() {
		return nil
	}

	errs := make([]error, len(result.Errors))
	for i, e := range result.Errors {
		errs[i] = errors.NewConfigError(errors.ErrCodeConfigInvalid, e.Message).
			WithContext("field", e.Field).
			WithContext("value", e.Value)
	}
	return errors.CombineErrors(errs...)
}

func validateServerConfigDetails(config *ServerConfig, result *ValidationResult) {
	if config.Port < 0 || config.Port > 65535 {
		result.fail("server.port", config.Port,
			fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			"Use a port between 1024-65535 for non-privileged access",
			"Port 0 allows the system to assign an available port")
	} else if config.Port > 0 && config.Port < 1024 {
		result.warn("server.port", config.Port, "port below 1024 requires elevated privileges")
	}

	if err := validation.ValidateHost(config.Host); err != nil {
		result.fail("server.host", config.Host, err.Error(), "Use a hostname or IP address such as localhost or 0.0.0.0")
	}
	if config.Host == "0.0.0.0" && len(config.AllowedOrigins) == 0 {
		result.warn("server.host", config.Host,
			"listening on all interfaces with no allowed origins; only loopback browsers can connect",
			"Set server.allowed_origins to the site that embeds the visualization")
	}

	for _, origin := range config.AllowedOrigins {
		if err := validation.ValidateOriginEntry(origin); err != nil {
			result.fail("server.allowed_origins", origin, err.Error(), "Origins look like https://docs.example.com")
		}
		if origin == "*" {
			result.warn("server.allowed_origins", origin, "every origin may open a websocket")
		}
	}

	if config.ShutdownTimeout < 0 {
		result.fail("server.shutdown_timeout", config.ShutdownTimeout, "shutdown timeout must not be negative")
	}
}

func validateSimulationConfigDetails(config *SimulationConfig, result *ValidationResult) {
	if !(config.Width > 0) || !(config.Height > 0) {
		result.fail("simulation.width", fmt.Sprintf("%gx%g", config.Width, config.Height),
			"canvas width and height must be positive")
	}
	if config.FrameRate < 1 || config.FrameRate > MaxFrameRate {
		result.fail("simulation.frame_rate", config.FrameRate,
			fmt.Sprintf("frame rate must be between 1 and %d", MaxFrameRate),
			"60 matches most displays")
	}
	if config.PacketCount < 0 {
		result.fail("simulation.packet_count", config.PacketCount, "packet count must not be negative")
	}
	if config.PacketStep < 0 || config.PacketStep > 1 {
		result.fail("simulation.packet_step", config.PacketStep, "packet step must be between 0 and 1")
	}

	nonNegative := []struct {
		field string
		value float64
	}{
		{"simulation.max_connection_distance", config.MaxConnectionDistance},
		{"simulation.stand_off", config.StandOff},
		{"simulation.min_clearance", config.MinClearance},
		{"simulation.edge_padding", config.EdgePadding},
		{"simulation.drift_speed", config.DriftSpeed},
		{"simulation.pointer_radius", config.PointerRadius},
		{"simulation.pointer_strength", config.PointerStrength},
	}
	for _, nn := range nonNegative {
		if nn.value < 0 {
			result.fail(nn.field, nn.value, "value must not be negative")
		}
	}

	if config.MaxConnectionDistance == 0 {
		result.warn("simulation.max_connection_distance", 0.0, "no connections will be drawn")
	}
	if config.PacketStep == 0 {
		result.warn("simulation.packet_step", 0.0, "packets will not move")
	}
}

func validateLayoutConfigDetails(config *LayoutConfig, result *ValidationResult) {
	if config.Path == "" {
		if config.Watch {
			result.warn("layout.watch", true, "watch has no effect without layout.path")
		}
		return
	}
	if err := validation.ValidateLayoutPath(config.Path); err != nil {
		result.fail("layout.path", config.Path, err.Error(),
			"Layouts are YAML (.yml, .yaml) or TOML (.toml) files")
	}
	if config.Debounce < 0 {
		result.fail("layout.debounce", config.Debounce, "debounce must not be negative")
	}
}

func validateLoggingConfigDetails(config *LoggingConfig, result *ValidationResult) {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		result.fail("logging.level", config.Level, err.Error(), "Use debug, info, warn or error")
	}
	switch config.Format {
	case "", "text", "json":
	default:
		result.fail("logging.format", config.Format, "unknown log format", "Use text or json")
	}
	if config.Dir != "" {
		if err := validation.ValidatePath(config.Dir); err != nil {
			result.fail("logging.dir", config.Dir, err.Error())
		}
	}
}

func validateTracingConfigDetails(config *TracingConfig, result *ValidationResult) {
	if config.SampleRate < 0 || config.SampleRate > 1 {
		result.fail("tracing.sample_rate", config.SampleRate, "sample rate must be between 0 and 1")
	}
	if strings.Contains(config.Endpoint, "://") {
		result.fail("tracing.endpoint", config.Endpoint, "endpoint is host:port, not a URL",
			"For a local collector use localhost:4317")
	}
}
