package cli

import (
	"time"

	"github.com/spf13/cobra"

	"pulsewatch/internal/app"
)

var (
	runDuration  time.Duration
	runCalibrate bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a monitoring session from the configured sample source",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.RunOptions{
			Duration:  runDuration,
			Calibrate: runCalibrate,
		}
		return getApp().Run(cmd.Context(), opts)
	},
}

func init() {
	runCmd.Flags().DurationVar(&runDuration, "duration", 0, "Stop the session after this long (0 = until interrupted)")
	runCmd.Flags().BoolVar(&runCalibrate, "calibrate", false, "Collect SpO2 calibration values at session start")
}
