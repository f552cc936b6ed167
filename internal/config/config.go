// Package config loads techviz settings with Viper from the .techviz.yml
// file, TECHVIZ_ environment variables and command-line flags.
//
// Load applies defaults for anything left unset and validates the result:
// server address, canvas geometry, frame rate, packet pool and the layout
// file path.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/techviz/internal/engine"
	"github.com/conneroisu/techviz/internal/errors"
	"github.com/conneroisu/techviz/internal/logging"
	"github.com/conneroisu/techviz/internal/observability"
	"github.com/conneroisu/techviz/internal/packets"
	"github.com/conneroisu/techviz/internal/routing"
	"github.com/conneroisu/techviz/internal/topology"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Simulation SimulationConfig `mapstructure:"simulation" yaml:"simulation"`
	Layout     LayoutConfig     `mapstructure:"layout" yaml:"layout"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Tracing    TracingConfig    `mapstructure:"tracing" yaml:"tracing"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host" yaml:"host"`
	Port           int      `mapstructure:"port" yaml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	// ShutdownTimeout bounds graceful shutdown of HTTP and websocket clients.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// SimulationConfig mirrors the engine and simulator tuning knobs.
type SimulationConfig struct {
	Width                 float64 `mapstructure:"width" yaml:"width"`
	Height                float64 `mapstructure:"height" yaml:"height"`
	Seed                  int64   `mapstructure:"seed" yaml:"seed"`
	FrameRate             int     `mapstructure:"frame_rate" yaml:"frame_rate"`
	PacketCount           int     `mapstructure:"packet_count" yaml:"packet_count"`
	PacketStep            float64 `mapstructure:"packet_step" yaml:"packet_step"`
	MaxConnectionDistance float64 `mapstructure:"max_connection_distance" yaml:"max_connection_distance"`
	StandOff              float64 `mapstructure:"stand_off" yaml:"stand_off"`
	MinClearance          float64 `mapstructure:"min_clearance" yaml:"min_clearance"`
	EdgePadding           float64 `mapstructure:"edge_padding" yaml:"edge_padding"`
	DriftSpeed            float64 `mapstructure:"drift_speed" yaml:"drift_speed"`
	PointerRadius         float64 `mapstructure:"pointer_radius" yaml:"pointer_radius"`
	PointerStrength       float64 `mapstructure:"pointer_strength" yaml:"pointer_strength"`
}

type LayoutConfig struct {
	// Path is a YAML or TOML layout file. Empty means the built-in layout.
	Path     string        `mapstructure:"path" yaml:"path"`
	Watch    bool          `mapstructure:"watch" yaml:"watch"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	// Dir additionally writes a daily log file there when set.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint"`
	SampleRate  float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
	Environment string  `mapstructure:"environment" yaml:"environment"`
}

// SetDefaults registers every default on the global Viper instance.
func SetDefaults() {
	SetDefaultsOn(viper.GetViper())
}

// SetDefaultsOn registers every default on v.
func SetDefaultsOn(v *viper.Viper) {
	topo := topology.DefaultOptions()

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("simulation.width", topo.Width)
	v.SetDefault("simulation.height", topo.Height)
	v.SetDefault("simulation.seed", 0)
	v.SetDefault("simulation.frame_rate", engine.DefaultFrameRate)
	v.SetDefault("simulation.packet_count", packets.DefaultCount)
	v.SetDefault("simulation.packet_step", packets.DefaultStep)
	v.SetDefault("simulation.max_connection_distance", routing.DefaultMaxConnectionDistance)
	v.SetDefault("simulation.stand_off", routing.DefaultStandOff)
	v.SetDefault("simulation.min_clearance", topo.MinClearance)
	v.SetDefault("simulation.edge_padding", topo.EdgePadding)
	v.SetDefault("simulation.drift_speed", topo.DriftSpeed)
	v.SetDefault("simulation.pointer_radius", topo.PointerRadius)
	v.SetDefault("simulation.pointer_strength", topo.PointerStrength)

	v.SetDefault("layout.path", "")
	v.SetDefault("layout.watch", false)
	v.SetDefault("layout.debounce", 300*time.Millisecond)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.dir", "")

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sample_rate", 0.01)
	v.SetDefault("tracing.environment", "development")
}

// Load reads the global Viper instance into a validated Config.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads v into a validated Config. Defaults are registered first so
// unset keys fall back to them.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaultsOn(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "failed to decode configuration")
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Default returns the configuration produced by an empty Viper instance.
func Default() *Config {
	cfg, err := LoadFrom(viper.New())
	if err != nil {
		panic(fmt.Sprintf("config: defaults do not validate: %v", err))
	}
	return cfg
}

// Addr returns host:port for the HTTP listener.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// EngineOptions converts the simulation settings into engine options.
func (c *Config) EngineOptions() engine.Options {
	s := c.Simulation
	opts := engine.DefaultOptions()
	opts.Topology.Width = s.Width
	opts.Topology.Height = s.Height
	opts.Topology.MinClearance = s.MinClearance
	opts.Topology.EdgePadding = s.EdgePadding
	opts.Topology.DriftSpeed = s.DriftSpeed
	opts.Topology.PointerRadius = s.PointerRadius
	opts.Topology.PointerStrength = s.PointerStrength
	opts.MaxConnectionDistance = s.MaxConnectionDistance
	opts.StandOff = s.StandOff
	opts.PacketCount = s.PacketCount
	opts.PacketStep = s.PacketStep
	opts.FrameRate = s.FrameRate
	opts.Seed = s.Seed
	return opts
}

// TracingOptions converts the tracing settings for observability.InitTracing.
func (c *Config) TracingOptions(serviceVersion string) *observability.TracingConfig {
	tc := observability.DefaultTracingConfig()
	tc.ServiceVersion = serviceVersion
	tc.OTLPEndpoint = c.Tracing.Endpoint
	tc.SampleRate = c.Tracing.SampleRate
	tc.Environment = c.Tracing.Environment
	return tc
}

// LoggerConfig converts the logging settings. An unknown level was already
// rejected by validation.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	lc := logging.DefaultConfig()
	lc.Level, _ = logging.ParseLevel(c.Logging.Level)
	lc.Format = c.Logging.Format
	return lc
}

// LoadLayout returns the configured layout, or the built-in one when no path
// is set.
func (c *Config) LoadLayout() (topology.Layout, error) {
	if c.Layout.Path == "" {
		return topology.DefaultLayout(), nil
	}
	return topology.LoadLayout(c.Layout.Path)
}
