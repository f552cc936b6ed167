package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/conneroisu/techviz/internal/config"
	"github.com/conneroisu/techviz/internal/render"
	"github.com/conneroisu/techviz/internal/validation"
)

var (
	renderFlags    SimulationFlags
	renderOut      string
	renderNoLabels bool
	renderNoBg     bool
)

var renderCmd = &cobra.Command{
	Use:     "render",
	Aliases: []string{"r"},
	Short:   "Render a still frame as SVG",
	Long: `Run the simulation headless for a number of ticks and write the last
frame as a standalone SVG document.

Examples:
  techviz render > scene.svg                      # 120 ticks to stdout
  techviz render --ticks 600 --seed 7 --out a.svg # Reproducible frame
  techviz render --width 1280 --height 720 --no-labels`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	addSimulationFlags(renderCmd.Flags(), &renderFlags, 120)
	renderCmd.Flags().StringVar(&renderOut, "out", "-", "Output file, - for stdout")
	renderCmd.Flags().BoolVar(&renderNoLabels, "no-labels", false, "Omit component labels")
	renderCmd.Flags().BoolVar(&renderNoBg, "transparent", false, "Omit the background rectangle")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := renderFlags.apply(cmd.Flags(), cfg); err != nil {
		return err
	}

	eng, err := newHeadlessEngine(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	frame := eng.Latest()
	for i := 0; i < renderFlags.Ticks; i++ {
		frame = eng.Step(ctx)
	}

	opts := render.DefaultSceneOptions()
	opts.ShowLabels = !renderNoLabels
	if renderNoBg {
		opts.Background = ""
	}

	var w io.Writer = cmd.OutOrStdout()
	if renderOut != "-" {
		if err := validation.ValidatePath(renderOut); err != nil {
			return err
		}
		f, err := os.Create(renderOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", renderOut, err)
		}
		defer f.Close()
		w = f
	}

	if err := render.Scene(frame, opts).Render(ctx, w); err != nil {
		return fmt.Errorf("render scene: %w", err)
	}
	if renderOut != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote tick %d (%d nodes, %d edges, %d packets) to %s\n",
			frame.Tick, len(frame.Nodes), len(frame.Edges), len(frame.Packets), renderOut)
	}
	return nil
}
