package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"omni-ingest/internal/app"
)

var (
	showLimit   int
	showIngests bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent stored samples or ingest audit entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Limit:   showLimit,
			Ingests: showIngests,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of rows to display")
	showCmd.Flags().BoolVar(&showIngests, "ingests", false, "Show ingest audit entries instead of samples")
}
