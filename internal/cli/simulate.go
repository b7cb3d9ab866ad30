package cli

import (
	"time"

	"github.com/spf13/cobra"

	"pulsewatch/internal/app"
)

var (
	simulateDuration   time.Duration
	simulateHeartRate  float64
	simulateBreathRate float64
	simulateNoise      float64
	simulateCalibrate  bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Feed a synthetic waveform through the pipeline and print converged vitals",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SimulateOptions{
			Duration:   simulateDuration,
			HeartRate:  simulateHeartRate,
			BreathRate: simulateBreathRate,
			Noise:      simulateNoise,
			Calibrate:  simulateCalibrate,
		}
		return getApp().Simulate(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().DurationVar(&simulateDuration, "duration", 30*time.Second, "Simulated session length")
	simulateCmd.Flags().Float64Var(&simulateHeartRate, "heart-rate", 0, "Synthetic heart rate in BPM (0 = config default)")
	simulateCmd.Flags().Float64Var(&simulateBreathRate, "breath-rate", 0, "Synthetic breath rate per minute (0 = config default)")
	simulateCmd.Flags().Float64Var(&simulateNoise, "noise", -1, "Synthetic noise level (negative = config default)")
	simulateCmd.Flags().BoolVar(&simulateCalibrate, "calibrate", false, "Run the SpO2 calibration flow during the simulation")
}
