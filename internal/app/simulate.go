package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"pulsewatch/internal/capture"
	"pulsewatch/internal/monitor"
)

// Simulate feeds a synthetic waveform through the pipeline as fast as it
// will go (no frame pacing, timestamps are synthesized) and prints the
// converged vitals. Useful for verifying tuning changes without a camera.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	if opts.Duration <= 0 {
		return fmt.Errorf("--duration must be greater than zero")
	}

	srcOpts := a.Config.Capture.Synthetic
	srcOpts.FrameRate = a.Config.Capture.FrameRate
	if opts.HeartRate > 0 {
		srcOpts.HeartRate = opts.HeartRate
	}
	if opts.BreathRate > 0 {
		srcOpts.BreathRate = opts.BreathRate
	}
	if opts.Noise >= 0 {
		srcOpts.Noise = opts.Noise
	}

	source := capture.NewSynthetic(srcOpts, a.Logger)
	mon := monitor.New(a.Config.Pipeline, a.Logger)
	mon.StartSession()

	frames := int(opts.Duration.Seconds() * a.Config.Capture.FrameRate)
	calibrationFrames := int(calibrationWindow.Seconds() * a.Config.Capture.FrameRate)
	calibrated := false
	collected := 0

	var last monitor.VitalsSnapshot
	for i := 0; i < frames; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		sample, err := source.Next(ctx)
		if err != nil {
			return err
		}
		last = mon.ProcessFrame(sample)

		if opts.Calibrate && !calibrated && last.SpO2 > 0 {
			mon.AddCalibrationValue(last.SpO2)
			collected++
			if collected >= calibrationFrames {
				calibrated = mon.Calibrate()
			}
		}
	}

	reading := mon.StopSession()

	fmt.Fprintf(os.Stdout, "simulated %d frames at %.0f fps (%.1fs)\n\n",
		frames, a.Config.Capture.FrameRate, opts.Duration.Seconds())

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Metric\tValue")
	fmt.Fprintf(writer, "BPM\t%.1f\n", last.BPM)
	fmt.Fprintf(writer, "Confidence\t%.2f\n", last.Confidence)
	fmt.Fprintf(writer, "SpO2\t%.1f%%\n", last.SpO2)
	fmt.Fprintf(writer, "Respiration rate\t%.1f\n", last.Respiration.Rate)
	fmt.Fprintf(writer, "Respiration depth\t%.1f\n", last.Respiration.Depth)
	fmt.Fprintf(writer, "Respiration regularity\t%.1f\n", last.Respiration.Regularity)
	fmt.Fprintf(writer, "Arrhythmia label\t%s\n", last.ArrhythmiaLabel)
	writer.Flush()

	fmt.Fprintln(os.Stdout)
	printFinalReading(reading)
	return nil
}

func printFinalReading(reading monitor.FinalReading) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Final reading\t")
	fmt.Fprintf(writer, "Session\t%s\n", reading.SessionID)
	fmt.Fprintf(writer, "Frames\t%d\n", reading.Frames)
	if !reading.StartedAt.IsZero() {
		fmt.Fprintf(writer, "Started\t%s\n", reading.StartedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(writer, "Average BPM\t%.1f\n", reading.AverageBPM)
	fmt.Fprintf(writer, "Average SpO2\t%.1f%%\n", reading.AverageSpO2)
	fmt.Fprintf(writer, "Heart rate\t%s\n", reading.Assessment.HeartRate.Label)
	fmt.Fprintf(writer, "SpO2\t%s\n", reading.Assessment.SpO2.Label)
	fmt.Fprintf(writer, "Blood pressure\t%s / %s\n", reading.Assessment.Systolic.Label, reading.Assessment.Diastolic.Label)
	writer.Flush()
}
