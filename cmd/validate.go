package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/techviz/internal/config"
	"github.com/conneroisu/techviz/internal/engine"
	vizerrors "github.com/conneroisu/techviz/internal/errors"
	"github.com/conneroisu/techviz/internal/topology"
	"github.com/conneroisu/techviz/internal/ui"
	"github.com/conneroisu/techviz/internal/validation"
)

// errValidationFailed is returned after the problems have been printed.
var errValidationFailed = errors.New("validation failed")

var validateCmd = &cobra.Command{
	Use:   "validate [layout]",
	Short: "Validate the configuration and a layout file",
	Long: `Check the effective configuration (file, environment and defaults) and,
when given, a layout file. The layout is parsed, validated and placed once
on the configured canvas so grid fallbacks and overlaps are reported.

Examples:
  techviz validate                  # Configuration only
  techviz validate layouts/shop.yml # Configuration and layout`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()

	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintf(w, "%s configuration: %v\n", ui.StatusIcon(false), err)
		return errValidationFailed
	}
	result := config.ValidateConfigWithDetails(&cfg)
	fmt.Fprintf(w, "%s configuration\n", ui.StatusIcon(!result.HasErrors()))
	if result.HasErrors() || result.HasWarnings() {
		fmt.Fprint(w, result.String())
	}
	failed := result.HasErrors()

	if len(args) == 1 {
		if !validateLayout(w, args[0], &cfg) {
			failed = true
		}
	}

	if failed {
		return errValidationFailed
	}
	return nil
}

// validateLayout reports on one layout file and returns whether it is usable.
func validateLayout(w io.Writer, path string, cfg *config.Config) bool {
	if err := validation.ValidateLayoutPath(path); err != nil {
		printLayoutError(w, path, err)
		return false
	}
	layout, err := topology.LoadLayout(path)
	if err != nil {
		printLayoutError(w, path, err)
		return false
	}

	name := layout.Name
	if name == "" {
		name = path
	}
	fmt.Fprintf(w, "%s layout %q: %d components\n", ui.StatusIcon(true), name, len(layout.Components))

	eng, err := engine.New(layout, cfg.EngineOptions())
	if err != nil {
		fmt.Fprintf(w, "%s %s: %v\n", ui.StatusIcon(false), path, err)
		return false
	}
	eng.Step(context.Background())
	sim := eng.Simulator()
	if grid := sim.GridPlacements(); grid > 0 {
		fmt.Fprintf(w, "  %s %d component(s) did not fit their zone or the canvas and were placed on the grid\n",
			ui.WarnIcon(), grid)
	}
	if overlaps := sim.Overlaps(); overlaps > 0 {
		fmt.Fprintf(w, "  %s %d pair(s) overlap after the first frame\n", ui.WarnIcon(), overlaps)
	}
	return true
}

func printLayoutError(w io.Writer, path string, err error) {
	fmt.Fprintf(w, "%s %s: %v\n", ui.StatusIcon(false), path, err)
	if hint := layoutHint(err); hint != "" {
		fmt.Fprintf(w, "  %s\n", ui.Subtle.Sprint("hint: "+hint))
	}
}

// layoutHint suggests a fix for a layout that failed to load.
func layoutHint(err error) string {
	switch {
	case vizerrors.IsSecurityError(err):
		return "layouts cannot be read from system directories"
	case vizerrors.IsType(err, vizerrors.ErrorTypeIO):
		return "check that the file exists and is readable"
	case vizerrors.IsValidationError(err):
		ctx := vizerrors.GetErrorContext(err)
		if i, ok := ctx["index"].(int); ok {
			if label, _ := ctx["label"].(string); label != "" {
				return fmt.Sprintf("fix component #%d (%s); 'techviz kinds' lists the kinds", i+1, label)
			}
			return fmt.Sprintf("fix component #%d; every component needs a label", i+1)
		}
		return "layouts are YAML or TOML with a name and a components list"
	}
	return ""
}
