package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/conneroisu/techviz/internal/config"
	"github.com/conneroisu/techviz/internal/engine"
	"github.com/conneroisu/techviz/internal/ui"
)

var (
	simulateFlags  SimulationFlags
	simulateFormat OutputFormat
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the simulation headless and report statistics",
	Long: `Advance the simulation without a browser and summarise what happened:
how each component was placed, clearance overlaps, connections per frame
and packet flows.

Examples:
  techviz simulate                         # 600 ticks, table output
  techviz simulate --ticks 3000 --seed 42  # Reproducible long run
  techviz simulate -o json                 # Machine-readable report`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	addSimulationFlags(simulateCmd.Flags(), &simulateFlags, 600)
	addOutputFlag(simulateCmd.Flags(), &simulateFormat)
}

// SimulationReport summarises a headless run.
type SimulationReport struct {
	Layout         string         `json:"layout" yaml:"layout"`
	Seed           int64          `json:"seed" yaml:"seed"`
	Ticks          uint64         `json:"ticks" yaml:"ticks"`
	Nodes          int            `json:"nodes" yaml:"nodes"`
	Placements     map[string]int `json:"placements" yaml:"placements"`
	MaxOverlaps    int            `json:"max_overlaps" yaml:"max_overlaps"`
	OverlapFrames  int            `json:"overlap_frames" yaml:"overlap_frames"`
	MinEdges       int            `json:"min_edges" yaml:"min_edges"`
	MaxEdges       int            `json:"max_edges" yaml:"max_edges"`
	MeanEdges      float64        `json:"mean_edges" yaml:"mean_edges"`
	EdgeStyles     map[string]int `json:"edge_styles" yaml:"edge_styles"`
	Packets        int            `json:"packets" yaml:"packets"`
	PacketFlows    map[string]int `json:"packet_flows" yaml:"packet_flows"`
	PacketsOnEdges int            `json:"packets_on_edges" yaml:"packets_on_edges"`
}

// simulate steps eng ticks times and collects the report. Edge styles and
// packet flows are counted over every frame.
func simulate(ctx context.Context, eng *engine.Engine, seed int64, ticks int) SimulationReport {
	report := SimulationReport{
		Layout:      eng.Layout().Name,
		Seed:        seed,
		Placements:  map[string]int{},
		EdgeStyles:  map[string]int{},
		PacketFlows: map[string]int{},
		MinEdges:    -1,
	}

	for _, n := range eng.Simulator().Nodes() {
		report.Placements[string(n.Placement)]++
	}
	report.Nodes = len(eng.Simulator().Nodes())

	totalEdges := 0
	var frame engine.Frame
	for i := 0; i < ticks; i++ {
		frame = eng.Step(ctx)

		if overlaps := eng.Simulator().Overlaps(); overlaps > 0 {
			report.OverlapFrames++
			if overlaps > report.MaxOverlaps {
				report.MaxOverlaps = overlaps
			}
		}

		edges := len(frame.Edges)
		totalEdges += edges
		if report.MinEdges < 0 || edges < report.MinEdges {
			report.MinEdges = edges
		}
		if edges > report.MaxEdges {
			report.MaxEdges = edges
		}
		linked := make(map[[2]int]bool, edges)
		for _, e := range frame.Edges {
			report.EdgeStyles[e.Style.Name]++
			linked[pairKey(e.From, e.To)] = true
		}
		for _, p := range frame.Packets {
			report.PacketFlows[string(p.Flow)]++
			if linked[pairKey(p.From, p.To)] {
				report.PacketsOnEdges++
			}
		}
	}

	report.Ticks = frame.Tick
	report.Packets = len(frame.Packets)
	if report.MinEdges < 0 {
		report.MinEdges = 0
	}
	if ticks > 0 {
		report.MeanEdges = float64(totalEdges) / float64(ticks)
	}
	return report
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := simulateFlags.apply(cmd.Flags(), cfg); err != nil {
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
	report := simulate(ctx, eng, cfg.Simulation.Seed, simulateFlags.Ticks)

	if simulateFormat == FormatTable {
		printSimulationReport(cmd.OutOrStdout(), report)
		return nil
	}
	return writeStructured(cmd.OutOrStdout(), simulateFormat, report)
}

func printSimulationReport(w io.Writer, r SimulationReport) {
	ui.Banner(w, fmt.Sprintf("%s, %d ticks", r.Layout, r.Ticks))

	ui.Table(w, []string{"METRIC", "VALUE"}, [][]string{
		{"nodes", strconv.Itoa(r.Nodes)},
		{"edges per frame", fmt.Sprintf("%d..%d (mean %.1f)", r.MinEdges, r.MaxEdges, r.MeanEdges)},
		{"overlap frames", strconv.Itoa(r.OverlapFrames)},
		{"max overlaps", strconv.Itoa(r.MaxOverlaps)},
		{"live packets", strconv.Itoa(r.Packets)},
		{"packet-frames on drawn edges", strconv.Itoa(r.PacketsOnEdges)},
	})
	fmt.Fprintln(w)

	ui.Table(w, []string{"PLACEMENT", "NODES"}, countRows(r.Placements))
	fmt.Fprintln(w)
	ui.Table(w, []string{"EDGE STYLE", "EDGE-FRAMES"}, countRows(r.EdgeStyles))
	fmt.Fprintln(w)
	ui.Table(w, []string{"FLOW", "PACKET-FRAMES"}, countRows(r.PacketFlows))

	fmt.Fprintln(w)
	if r.Placements["grid"] > 0 {
		fmt.Fprintf(w, "%s %d component(s) fell back to the grid\n", ui.WarnIcon(), r.Placements["grid"])
	}
	fmt.Fprintf(w, "%s clearance held on %d of %d frames\n",
		ui.StatusIcon(r.OverlapFrames == 0), int(r.Ticks)-r.OverlapFrames, r.Ticks)
}

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

func countRows(counts map[string]int) [][]string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = []string{k, strconv.Itoa(counts[k])}
	}
	return rows
}
