package cli

import (
	"github.com/spf13/cobra"

	"omni-ingest/internal/app"
)

var (
	validateYear   string
	validateStrict bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse year files and report per-file statistics without storing",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ValidateOptions{
			Year:   resolveYear(validateYear),
			Strict: validateStrict,
		}
		return getApp().Validate(cmd.Context(), opts)
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateYear, "year", "", "Restrict to one 4-digit year (defaults to config)")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Fail when any malformed row is found")
}
