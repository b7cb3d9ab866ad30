package spo2

import (
	"github.com/rs/zerolog"

	"pulsewatch/internal/signal"
)

// Config exposes the oxygen-saturation tunables. RatioA/RatioB are the
// empirical linear equation parameters, calibrated so raw outputs land in a
// realistic 90-100% band.
type Config struct {
	MinSamples            int     `mapstructure:"min_samples"`
	VarianceMin           float64 `mapstructure:"variance_min"`
	VarianceMax           float64 `mapstructure:"variance_max"`
	PerfusionMin          float64 `mapstructure:"perfusion_min"`
	PerfusionMax          float64 `mapstructure:"perfusion_max"`
	RatioScale            float64 `mapstructure:"ratio_scale"`
	RatioOffset           float64 `mapstructure:"ratio_offset"`
	RatioA                float64 `mapstructure:"ratio_a"`
	RatioB                float64 `mapstructure:"ratio_b"`
	MinPercent            float64 `mapstructure:"min_percent"`
	MaxPercent            float64 `mapstructure:"max_percent"`
	CalibrationTarget     float64 `mapstructure:"calibration_target"`
	MinCalibrationSamples int     `mapstructure:"min_calibration_samples"`
	CalibrationCapacity   int     `mapstructure:"calibration_capacity"`
	StabilityWindow       int     `mapstructure:"stability_window"`
	AnomalyZScore         float64 `mapstructure:"anomaly_z_score"`
	EWMAAlpha             float64 `mapstructure:"ewma_alpha"`
	HistorySize           int     `mapstructure:"history_size"`
}

// DefaultConfig returns the tuning used for 30 Hz camera PPG.
func DefaultConfig() Config {
	return Config{
		MinSamples:            30,
		VarianceMin:           1e-10,
		VarianceMax:           0.05,
		PerfusionMin:          0.0002,
		PerfusionMax:          0.25,
		RatioScale:            4.0,
		RatioOffset:           0.4,
		RatioA:                104.0,
		RatioB:                14.0,
		MinPercent:            90,
		MaxPercent:            100,
		CalibrationTarget:     97,
		MinCalibrationSamples: 3,
		CalibrationCapacity:   20,
		StabilityWindow:       5,
		AnomalyZScore:         3.0,
		EWMAAlpha:             0.3,
		HistorySize:           10,
	}
}

// Engine converts a window of conditioned samples into a stabilized
// oxygen-saturation percentage. A signal-quality gate, a perfusion-index
// plausibility band, and a multi-stage stabilization pipeline keep the
// displayed number from jumping on noise or motion artifact; any stage short
// of data falls back to the previous stabilized value.
type Engine struct {
	cfg    Config
	logger zerolog.Logger

	calibration *signal.RollingBuffer[float64]
	offset      float64
	calibrated  bool

	rawHistory    *signal.RollingBuffer[float64]
	recentDisplay *signal.RollingBuffer[float64]
	lastGood      float64
	displayed     float64
	hasDisplayed  bool
}

// New constructs an SpO2 engine.
func New(cfg Config, logger zerolog.Logger) *Engine {
	return &Engine{
		cfg:           cfg,
		logger:        logger.With().Str("component", "spo2").Logger(),
		calibration:   signal.NewRollingBuffer[float64](cfg.CalibrationCapacity),
		rawHistory:    signal.NewRollingBuffer[float64](cfg.HistorySize),
		recentDisplay: signal.NewRollingBuffer[float64](cfg.StabilityWindow),
	}
}

// CalculateRaw computes an uncalibrated, unstabilized percentage from the
// window. Returns the last good raw value when the window is too short, the
// signal quality is outside the acceptable band, or the perfusion index is
// physiologically implausible.
func (e *Engine) CalculateRaw(window []float64) float64 {
	if len(window) < e.cfg.MinSamples {
		return e.lastGood
	}

	variance := signal.NormalizedVariance(window)
	if variance < e.cfg.VarianceMin || variance > e.cfg.VarianceMax {
		return e.lastGood
	}

	ac, dc, ok := acdc(window)
	if !ok || dc <= 0 {
		return e.lastGood
	}

	pi := ac / dc
	if pi < e.cfg.PerfusionMin || pi > e.cfg.PerfusionMax {
		return e.lastGood
	}

	ratio := e.cfg.RatioOffset + e.cfg.RatioScale*pi
	raw := e.cfg.RatioA - e.cfg.RatioB*ratio
	raw = signal.Clamp(raw, e.cfg.MinPercent, e.cfg.MaxPercent)

	e.lastGood = raw
	return raw
}

// Calculate runs the full pipeline: raw computation, calibration offset, and
// stabilization. The result is always clamped to [MinPercent, MaxPercent].
func (e *Engine) Calculate(window []float64) float64 {
	raw := e.CalculateRaw(window)
	if raw == 0 {
		// No estimate has ever been produced this session.
		return 0
	}

	value := raw
	if e.calibrated {
		value = signal.Clamp(raw+e.offset, e.cfg.MinPercent, e.cfg.MaxPercent)
	}

	return e.stabilize(value)
}

// stabilize median-filters the recent values, discards the two extremes,
// averages the remaining three, suppresses z-score outliers in favor of the
// last displayed value, and blends against the previous display with an
// EWMA. A single filter stage leaves visible jitter in a medically-labeled
// number; noise rejection and motion-artifact rejection stay separable.
func (e *Engine) stabilize(value float64) float64 {
	if e.hasDisplayed && e.cfg.AnomalyZScore > 0 && e.rawHistory.Len() >= 3 {
		z := signal.ZScore(value, e.rawHistory.Values())
		if z > e.cfg.AnomalyZScore || z < -e.cfg.AnomalyZScore {
			e.logger.Debug().Float64("value", value).Float64("z", z).Msg("anomalous reading suppressed")
			value = e.displayed
		}
	}
	e.rawHistory.Push(value)
	e.recentDisplay.Push(value)

	candidate := value
	if e.recentDisplay.Len() >= e.cfg.StabilityWindow {
		candidate = signal.TrimmedMean(e.recentDisplay.Values())
	}

	if !e.hasDisplayed {
		e.displayed = candidate
		e.hasDisplayed = true
	} else {
		a := e.cfg.EWMAAlpha
		e.displayed = a*candidate + (1-a)*e.displayed
	}

	e.displayed = signal.Clamp(e.displayed, e.cfg.MinPercent, e.cfg.MaxPercent)
	return e.displayed
}

// LastGood returns the most recent raw estimate that passed the quality
// gates, or 0 when the session has never produced one.
func (e *Engine) LastGood() float64 {
	return e.lastGood
}

// Reset restores the engine to its just-constructed state, including the
// calibration buffer and offset.
func (e *Engine) Reset() {
	e.calibration.Reset()
	e.offset = 0
	e.calibrated = false
	e.rawHistory.Reset()
	e.recentDisplay.Reset()
	e.lastGood = 0
	e.displayed = 0
	e.hasDisplayed = false
}

// acdc extracts the pulsatile (AC) and steady (DC) components of the window.
// When the window carries a reliable peak/valley structure, AC is the spread
// between average peak and average valley; otherwise a detrended trimmed
// estimate stands in.
func acdc(window []float64) (ac, dc float64, ok bool) {
	peaks, valleys := localExtrema(window)
	dc = signal.IQRTrimmedMean(window)

	if len(peaks) >= 2 && len(valleys) >= 2 {
		ac = signal.Mean(peaks) - signal.Mean(valleys)
		if ac > 0 {
			return ac, dc, true
		}
	}

	detrended := signal.Detrend(window)
	sd := signal.StdDev(detrended)
	if sd <= 0 {
		return 0, 0, false
	}
	// Peak-to-peak of a sinusoid is ~2*sqrt(2) times its RMS.
	ac = 2.828 * sd
	return ac, dc, true
}

// localExtrema collects interior local maxima and minima.
func localExtrema(window []float64) (peaks, valleys []float64) {
	for i := 1; i < len(window)-1; i++ {
		if window[i] > window[i-1] && window[i] > window[i+1] {
			peaks = append(peaks, window[i])
		}
		if window[i] < window[i-1] && window[i] < window[i+1] {
			valleys = append(valleys, window[i])
		}
	}
	return peaks, valleys
}
