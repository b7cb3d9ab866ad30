package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"pulsewatch/internal/app"
)

var (
	showLimit   int
	showSession string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent sessions or one session's frames",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Limit:     showLimit,
			SessionID: showSession,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of rows to display")
	showCmd.Flags().StringVar(&showSession, "session", "", "Show frames of this session instead of the session list")
}
