package heartbeat

import (
	"time"

	"github.com/rs/zerolog"

	"pulsewatch/internal/signal"
)

// State identifies the detector lifecycle phase.
type State int

const (
	// StateWarmup covers the first seconds after construction; detections
	// run but confirmed peaks are suppressed from the output.
	StateWarmup State = iota
	// StateActive is normal detection.
	StateActive
	// StateLowSignal is entered after a run of frames with no pulsatile
	// deviation, typically a lifted or repositioned finger.
	StateLowSignal
)

func (s State) String() string {
	switch s {
	case StateWarmup:
		return "warmup"
	case StateActive:
		return "active"
	case StateLowSignal:
		return "low_signal"
	default:
		return "unknown"
	}
}

// Config exposes the detector tunables. The ranges were settled empirically
// against 30 Hz fingertip footage; treat them as a set, not independently.
type Config struct {
	WindowSize          int           `mapstructure:"window_size"`
	MinSamples          int           `mapstructure:"min_samples"`
	WarmupDuration      time.Duration `mapstructure:"warmup_duration"`
	DerivativeThreshold float64       `mapstructure:"derivative_threshold"`
	AmplitudeThreshold  float64       `mapstructure:"amplitude_threshold"`
	MinConfidence       float64       `mapstructure:"min_confidence"`
	RefractoryPeriod    time.Duration `mapstructure:"refractory_period"`
	MinBPM              float64       `mapstructure:"min_bpm"`
	MaxBPM              float64       `mapstructure:"max_bpm"`
	BPMHistorySize      int           `mapstructure:"bpm_history_size"`
	BPMSmoothingAlpha   float64       `mapstructure:"bpm_smoothing_alpha"`
	TemplateSize        int           `mapstructure:"template_size"`
	TemplateCount       int           `mapstructure:"template_count"`
	MinTemplates        int           `mapstructure:"min_templates"`
	TemplateSimilarity  float64       `mapstructure:"template_similarity"`
	TemplateLearning    float64       `mapstructure:"template_learning"`
	TimingJitter        time.Duration `mapstructure:"timing_jitter"`
	IntervalHistorySize int           `mapstructure:"interval_history_size"`
	LowSignalThreshold  float64       `mapstructure:"low_signal_threshold"`
	LowSignalFrames     int           `mapstructure:"low_signal_frames"`
	BeatHistorySize     int           `mapstructure:"beat_history_size"`
}

// DefaultConfig returns the tuning used for 30 Hz camera PPG.
func DefaultConfig() Config {
	return Config{
		WindowSize:          90,
		MinSamples:          30,
		WarmupDuration:      3 * time.Second,
		DerivativeThreshold: -0.0004,
		AmplitudeThreshold:  0.002,
		MinConfidence:       0.35,
		RefractoryPeriod:    400 * time.Millisecond,
		MinBPM:              40,
		MaxBPM:              200,
		BPMHistorySize:      10,
		BPMSmoothingAlpha:   0.2,
		TemplateSize:        15,
		TemplateCount:       4,
		MinTemplates:        2,
		TemplateSimilarity:  0.70,
		TemplateLearning:    0.2,
		TimingJitter:        80 * time.Millisecond,
		IntervalHistorySize: 8,
		LowSignalThreshold:  0.0005,
		LowSignalFrames:     20,
		BeatHistorySize:     20,
	}
}

// ConfirmedBeat records one multi-stage-confirmed cardiac peak.
type ConfirmedBeat struct {
	Time       time.Time
	Confidence float64
}

// Result is the per-frame detector output.
type Result struct {
	BPM        float64
	Confidence float64
	IsPeak     bool
}

type frame struct {
	t time.Time
	v float64
}

// Engine consumes conditioned samples, detects confirmed cardiac peaks, and
// maintains a smoothed BPM estimate. A raw peak must pass the confirmation
// buffer check (two downward steps after the peak), then either a waveform
// template match or a timing-plausibility check, and the refractory interval,
// before it counts as a beat.
type Engine struct {
	cfg    Config
	logger zerolog.Logger

	state     State
	startedAt time.Time

	history   *signal.RollingBuffer[frame]
	intervals *signal.RollingBuffer[float64] // confirmed inter-beat intervals, ms
	bpmHist   *signal.RollingBuffer[float64]
	beats     *signal.RollingBuffer[ConfirmedBeat]
	templates [][]float64

	lastBeat       time.Time
	lastConfidence float64
	smoothedBPM    float64
	bpmPrimed      bool
	lowSignalRun   int
}

// New constructs a heartbeat engine.
func New(cfg Config, logger zerolog.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		logger:    logger.With().Str("component", "heartbeat").Logger(),
		state:     StateWarmup,
		history:   signal.NewRollingBuffer[frame](cfg.WindowSize),
		intervals: signal.NewRollingBuffer[float64](cfg.IntervalHistorySize),
		bpmHist:   signal.NewRollingBuffer[float64](cfg.BPMHistorySize),
		beats:     signal.NewRollingBuffer[ConfirmedBeat](cfg.BeatHistorySize),
		templates: make([][]float64, 0, cfg.TemplateCount),
	}
}

// State reports the current lifecycle phase.
func (e *Engine) State() State {
	return e.state
}

// Beats returns the confirmed beat history, oldest first.
func (e *Engine) Beats() []ConfirmedBeat {
	return e.beats.Values()
}

// Process consumes one conditioned sample together with the conditioner's
// baseline. It never fails; with fewer than MinSamples buffered it reports
// zero BPM and zero confidence.
func (e *Engine) Process(t time.Time, value, baseline float64) Result {
	if e.startedAt.IsZero() {
		e.startedAt = t
	}

	e.history.Push(frame{t: t, v: value})

	scale := baseline
	if scale < 1e-6 && scale > -1e-6 {
		scale = 1e-6
	}
	deviation := (value - baseline) / scale
	if deviation < 0 {
		deviation = -deviation
	}
	e.trackSignalLevel(deviation)

	if e.state == StateWarmup && t.Sub(e.startedAt) >= e.cfg.WarmupDuration {
		e.state = StateActive
	}

	if e.history.Len() < e.cfg.MinSamples {
		return Result{}
	}

	confirmed, confidence := e.detect(t, baseline, scale)
	if confirmed {
		e.lastConfidence = confidence
	}

	return Result{
		BPM:        e.outputBPM(),
		Confidence: e.lastConfidence,
		IsPeak:     confirmed && e.state == StateActive,
	}
}

// trackSignalLevel counts consecutive frames without pulsatile deviation and
// flips the engine into (and out of) the low-signal state.
func (e *Engine) trackSignalLevel(deviation float64) {
	if deviation < e.cfg.LowSignalThreshold {
		e.lowSignalRun++
		if e.lowSignalRun >= e.cfg.LowSignalFrames && e.state != StateLowSignal {
			e.state = StateLowSignal
			e.resetDetectionState()
			e.logger.Debug().Int("frames", e.lowSignalRun).Msg("signal lost; detection state reset")
		}
		return
	}
	e.lowSignalRun = 0
	if e.state == StateLowSignal {
		e.state = StateActive
		e.logger.Debug().Msg("signal recovered")
	}
}

// detect runs raw peak detection, confirmation, and validation for the
// current frame. Returns whether a beat was confirmed and its confidence.
func (e *Engine) detect(t time.Time, baseline, scale float64) (bool, float64) {
	n := e.history.Len()
	if n < 3 {
		return false, 0
	}

	last := e.history.At(n - 1)
	mid := e.history.At(n - 2)
	first := e.history.At(n - 3)

	// Confirmation buffer: the candidate peak sits two frames back and must
	// be followed by two consecutive downward steps.
	if !(first.v > mid.v && mid.v > last.v) {
		return false, 0
	}

	derivative := (last.v - first.v) / (2 * scale)
	peakAmplitude := (first.v - baseline) / scale

	if derivative >= e.cfg.DerivativeThreshold {
		return false, 0
	}
	if peakAmplitude <= e.cfg.AmplitudeThreshold {
		return false, 0
	}
	if last.v < baseline*0.98 {
		return false, 0
	}

	ampConfidence := signal.Clamp(peakAmplitude/(2*e.cfg.AmplitudeThreshold), 0, 1)
	derivConfidence := signal.Clamp(derivative/(2*e.cfg.DerivativeThreshold), 0, 1)
	confidence := (ampConfidence + derivConfidence) / 2
	if confidence < e.cfg.MinConfidence {
		return false, 0
	}

	peakTime := first.t
	if !e.lastBeat.IsZero() && peakTime.Sub(e.lastBeat) < e.cfg.RefractoryPeriod {
		return false, 0
	}

	if !e.validateWaveform() && !e.timingPlausible(peakTime) {
		return false, 0
	}

	e.confirm(peakTime, confidence)
	return true, confidence
}

// timingPlausible accepts a peak whose interval since the last confirmed
// beat falls within one standard deviation (plus a fixed jitter allowance)
// of the recent mean inter-beat interval. This tolerates genuine morphology
// changes, such as ectopic beats, without admitting arbitrary noise.
func (e *Engine) timingPlausible(peakTime time.Time) bool {
	if e.lastBeat.IsZero() || e.intervals.Len() < 3 {
		return false
	}
	interval := float64(peakTime.Sub(e.lastBeat).Milliseconds())
	mean := signal.Mean(e.intervals.Values())
	sd := signal.StdDev(e.intervals.Values())
	allowance := sd + float64(e.cfg.TimingJitter.Milliseconds())
	diff := interval - mean
	if diff < 0 {
		diff = -diff
	}
	return diff <= allowance
}

// confirm records a validated beat and updates the BPM estimate.
func (e *Engine) confirm(peakTime time.Time, confidence float64) {
	if !e.lastBeat.IsZero() {
		intervalMs := float64(peakTime.Sub(e.lastBeat).Milliseconds())
		if intervalMs > 0 {
			e.intervals.Push(intervalMs)
			instantaneous := 60000 / intervalMs
			if instantaneous >= e.cfg.MinBPM && instantaneous <= e.cfg.MaxBPM {
				e.bpmHist.Push(instantaneous)
			}
		}
	}
	e.lastBeat = peakTime
	e.beats.Push(ConfirmedBeat{Time: peakTime, Confidence: confidence})
}

// outputBPM reports the trimmed mean of the BPM history smoothed with a slow
// EMA so the displayed value does not jitter beat to beat.
func (e *Engine) outputBPM() float64 {
	if e.bpmHist.Len() == 0 {
		if e.bpmPrimed {
			return e.smoothedBPM
		}
		return 0
	}
	trimmed := signal.TrimmedMean(e.bpmHist.Values())
	if !e.bpmPrimed {
		e.smoothedBPM = trimmed
		e.bpmPrimed = true
	} else {
		a := e.cfg.BPMSmoothingAlpha
		e.smoothedBPM = a*trimmed + (1-a)*e.smoothedBPM
	}
	return e.smoothedBPM
}

// resetDetectionState clears the transient detection state (candidate
// timing, last-peak time) after signal loss while preserving the long-term
// BPM history, so a repositioned finger recovers quickly without discarding
// an otherwise-valid rate estimate.
func (e *Engine) resetDetectionState() {
	e.lastBeat = time.Time{}
	e.intervals.Reset()
	e.lastConfidence = 0
}

// Reset restores the engine to its just-constructed state.
func (e *Engine) Reset() {
	e.state = StateWarmup
	e.startedAt = time.Time{}
	e.history.Reset()
	e.intervals.Reset()
	e.bpmHist.Reset()
	e.beats.Reset()
	e.templates = e.templates[:0]
	e.lastBeat = time.Time{}
	e.lastConfidence = 0
	e.smoothedBPM = 0
	e.bpmPrimed = false
	e.lowSignalRun = 0
}
