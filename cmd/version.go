package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/techviz/internal/version"
)

var (
	versionFormat   OutputFormat
	versionShort    bool
	versionDetailed bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display the techviz version, commit, build time, Go version and platform.

Examples:
  techviz version             # One line
  techviz version --detailed  # Every known build field
  techviz version -o json     # Machine-readable`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	addOutputFlag(versionCmd.Flags(), &versionFormat)
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show the version only")
	versionCmd.Flags().BoolVar(&versionDetailed, "detailed", false, "Show detailed build information")
}

func runVersion(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	if versionFormat != FormatTable {
		return writeStructured(w, versionFormat, version.GetBuildInfo())
	}

	switch {
	case versionShort:
		fmt.Fprintln(w, version.GetVersion())
	case versionDetailed:
		fmt.Fprintln(w, version.GetDetailedVersion())
	default:
		info := version.GetBuildInfo()
		fmt.Fprintf(w, "techviz %s %s\n", version.GetShortVersion(), info.Platform)
	}
	return nil
}
