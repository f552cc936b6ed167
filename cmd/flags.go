package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/techviz/internal/config"
	"github.com/conneroisu/techviz/internal/engine"
	"github.com/conneroisu/techviz/internal/validation"
)

// OutputFormat is a flag value restricted to table, json and yaml.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

var outputFormats = []OutputFormat{FormatTable, FormatJSON, FormatYAML}

func (f *OutputFormat) String() string { return string(*f) }

// Set rejects unknown formats so typos fail at flag parsing.
func (f *OutputFormat) Set(value string) error {
	v := OutputFormat(strings.ToLower(value))
	for _, known := range outputFormats {
		if v == known {
			*f = v
			return nil
		}
	}
	names := make([]string, len(outputFormats))
	for i, known := range outputFormats {
		names[i] = string(known)
	}
	return fmt.Errorf("invalid output format %q, must be one of: %s", value, strings.Join(names, ", "))
}

func (f *OutputFormat) Type() string { return "format" }

func addOutputFlag(fs *pflag.FlagSet, target *OutputFormat) {
	*target = FormatTable
	fs.VarP(target, "output", "o", "Output format (table|json|yaml)")
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format OutputFormat, v interface{}) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("format %q is not structured", format)
	}
}

// SimulationFlags are the headless run settings shared by render and
// simulate. Unset flags fall back to the loaded configuration.
type SimulationFlags struct {
	Ticks  int
	Seed   int64
	Width  float64
	Height float64
	Layout string
}

func addSimulationFlags(fs *pflag.FlagSet, f *SimulationFlags, defaultTicks int) {
	fs.IntVarP(&f.Ticks, "ticks", "t", defaultTicks, "Number of frames to simulate")
	fs.Int64VarP(&f.Seed, "seed", "s", 0, "Random seed (0 picks one from the clock)")
	fs.Float64Var(&f.Width, "width", 0, "Canvas width (default from config)")
	fs.Float64Var(&f.Height, "height", 0, "Canvas height (default from config)")
	fs.StringVar(&f.Layout, "layout", "", "Layout file (YAML or TOML)")
}

// apply copies every flag the user set onto cfg.
func (f *SimulationFlags) apply(fs *pflag.FlagSet, cfg *config.Config) error {
	if f.Ticks < 0 {
		return fmt.Errorf("ticks must not be negative, got %d", f.Ticks)
	}
	if fs.Changed("seed") {
		cfg.Simulation.Seed = f.Seed
	}
	if fs.Changed("width") {
		if f.Width <= 0 {
			return fmt.Errorf("width must be positive, got %g", f.Width)
		}
		cfg.Simulation.Width = f.Width
	}
	if fs.Changed("height") {
		if f.Height <= 0 {
			return fmt.Errorf("height must be positive, got %g", f.Height)
		}
		cfg.Simulation.Height = f.Height
	}
	if fs.Changed("layout") {
		if err := validation.ValidateLayoutPath(f.Layout); err != nil {
			return err
		}
		cfg.Layout.Path = f.Layout
	}
	return nil
}

// newHeadlessEngine builds an engine that is only ever advanced with Step.
func newHeadlessEngine(cfg *config.Config) (*engine.Engine, error) {
	layout, err := cfg.LoadLayout()
	if err != nil {
		return nil, fmt.Errorf("load layout: %w", err)
	}
	return engine.New(layout, cfg.EngineOptions())
}

// bindFlags binds flags to Viper keys so they override file and env values.
func bindFlags(fs *pflag.FlagSet, bindings map[string]string) {
	for flagName, key := range bindings {
		if flag := fs.Lookup(flagName); flag != nil {
			_ = viper.BindPFlag(key, flag)
		}
	}
}
