package capture

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"pulsewatch/internal/signal"
)

// SyntheticOptions parameterise the generated waveform.
type SyntheticOptions struct {
	FrameRate float64 `mapstructure:"frame_rate"`
	HeartRate float64 `mapstructure:"heart_rate"`
	// BreathRate modulates the pulse amplitude, breaths per minute.
	BreathRate float64 `mapstructure:"breath_rate"`
	// Brightness is the DC level of the simulated channel average.
	Brightness float64 `mapstructure:"brightness"`
	// Perfusion scales the pulsatile component relative to Brightness.
	Perfusion float64 `mapstructure:"perfusion"`
	Noise     float64 `mapstructure:"noise"`
	// Start anchors the synthetic timestamps; zero means time.Now().
	Start time.Time
}

// DefaultSyntheticOptions returns a clean resting-adult waveform at 30 Hz.
func DefaultSyntheticOptions() SyntheticOptions {
	return SyntheticOptions{
		FrameRate:  30,
		HeartRate:  72,
		BreathRate: 14,
		Brightness: 180,
		Perfusion:  0.03,
		Noise:      0.002,
	}
}

// Synthetic generates a PPG-like brightness waveform: a systolic peak and a
// smaller dicrotic bump per cardiac cycle, slow respiratory amplitude
// modulation, baseline wander, and deterministic noise. Not clinical; just
// shaped enough to exercise every stage of the pipeline.
type Synthetic struct {
	opts   SyntheticOptions
	logger zerolog.Logger

	frame    int
	phase    float64
	breathAt float64
	wanderAt float64
}

// NewSynthetic builds a synthetic sample source.
func NewSynthetic(opts SyntheticOptions, logger zerolog.Logger) *Synthetic {
	if opts.FrameRate <= 0 {
		opts.FrameRate = 30
	}
	if opts.Start.IsZero() {
		opts.Start = time.Now().UTC()
	}
	return &Synthetic{
		opts:   opts,
		logger: logger.With().Str("component", "synthetic_source").Logger(),
	}
}

// Next returns the next frame's sample. It never blocks and never ends.
func (s *Synthetic) Next(ctx context.Context) (signal.Sample, error) {
	if err := ctx.Err(); err != nil {
		return signal.Sample{}, err
	}

	ts := s.opts.Start.Add(time.Duration(float64(s.frame) / s.opts.FrameRate * float64(time.Second)))
	s.frame++

	cycleHz := s.opts.HeartRate / 60
	s.phase += cycleHz / s.opts.FrameRate
	if s.phase >= 1 {
		s.phase -= 1
	}
	s.breathAt += (s.opts.BreathRate / 60) / s.opts.FrameRate
	s.wanderAt += 0.05 / s.opts.FrameRate

	// Systolic peak plus dicrotic bump, as gaussians over the cycle phase.
	pulse := gauss(s.phase, 0.25, 0.055) + 0.35*gauss(s.phase, 0.55, 0.09)

	respiratory := 1 + 0.25*math.Sin(2*math.Pi*s.breathAt)
	wander := 1 + 0.004*math.Sin(2*math.Pi*s.wanderAt)
	noise := s.opts.Noise * (2*fract(math.Sin(float64(s.frame)*12.9898)*43758.5453) - 1)

	amplitude := s.opts.Brightness * wander * (1 + s.opts.Perfusion*pulse*respiratory + noise)

	return signal.Sample{Timestamp: ts, Amplitude: amplitude}, nil
}

func gauss(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return math.Exp(-0.5 * z * z)
}

func fract(x float64) float64 {
	return x - math.Floor(x)
}

var _ SampleSource = (*Synthetic)(nil)
