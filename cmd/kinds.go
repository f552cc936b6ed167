package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/techviz/internal/render"
	"github.com/conneroisu/techviz/internal/topology"
	"github.com/conneroisu/techviz/internal/ui"
)

var kindsFormat OutputFormat

var kindsCmd = &cobra.Command{
	Use:     "kinds",
	Aliases: []string{"k"},
	Short:   "List component kinds and their connection rules",
	Long: `List every component kind with its geometry, colour, style family and
the kinds it may connect to.

Examples:
  techviz kinds           # Table
  techviz kinds -o yaml   # Kind table and policy as YAML`,
	Args: cobra.NoArgs,
	RunE: runKinds,
}

func init() {
	rootCmd.AddCommand(kindsCmd)
	addOutputFlag(kindsCmd.Flags(), &kindsFormat)
}

// KindEntry is one row of the kind table.
type KindEntry struct {
	Kind      topology.Kind     `json:"kind" yaml:"kind"`
	Title     string            `json:"title" yaml:"title"`
	Spec      topology.KindSpec `json:"spec" yaml:"spec"`
	ConnectTo []topology.Kind   `json:"connects_to" yaml:"connects_to"`
}

func kindEntries(policy topology.AdjacencyPolicy) []KindEntry {
	entries := make([]KindEntry, 0, len(topology.AllKinds))
	for _, k := range topology.AllKinds {
		targets := append([]topology.Kind(nil), policy[k]...)
		sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
		entries = append(entries, KindEntry{
			Kind:      k,
			Title:     render.KindTitle(k),
			Spec:      k.Spec(),
			ConnectTo: targets,
		})
	}
	return entries
}

func runKinds(cmd *cobra.Command, args []string) error {
	policy := topology.DefaultPolicy()
	if err := topology.ValidateKinds(policy); err != nil {
		return err
	}
	entries := kindEntries(policy)

	if kindsFormat != FormatTable {
		return writeStructured(cmd.OutOrStdout(), kindsFormat, entries)
	}
	printKinds(cmd.OutOrStdout(), entries)
	return nil
}

func printKinds(w io.Writer, entries []KindEntry) {
	ui.Banner(w, fmt.Sprintf("%d component kinds", len(entries)))

	rows := make([][]string, len(entries))
	for i, e := range entries {
		targets := make([]string, len(e.ConnectTo))
		for j, t := range e.ConnectTo {
			targets[j] = string(t)
		}
		rows[i] = []string{
			string(e.Kind),
			e.Title,
			string(e.Spec.Shape),
			fmt.Sprintf("%gx%g", e.Spec.Width, e.Spec.Height),
			string(e.Spec.Family),
			strings.Join(targets, ", "),
			ui.Swatch(e.Spec.Color),
		}
	}
	ui.Table(w, []string{"KIND", "TITLE", "SHAPE", "SIZE", "FAMILY", "CONNECTS TO", "COLOR"}, rows)
}
