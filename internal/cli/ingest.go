package cli

import (
	"github.com/spf13/cobra"

	"omni-ingest/internal/app"
)

var (
	ingestYear   string
	ingestDryRun bool
	ingestForce  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Parse year files once and persist the samples",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.IngestOptions{
			Year:   resolveYear(ingestYear),
			DryRun: ingestDryRun,
			Force:  ingestForce,
		}
		return getApp().Ingest(cmd.Context(), opts)
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestYear, "year", "", "Restrict to one 4-digit year (defaults to config)")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "Parse without writing to storage")
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "Re-ingest files even when unchanged")
}

// resolveYear falls back to the configured year filter when the flag is
// not given.
func resolveYear(flag string) string {
	if flag != "" {
		return flag
	}
	return getApp().Config.Data.Year
}
