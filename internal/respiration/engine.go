package respiration

import (
	"time"

	"github.com/rs/zerolog"

	"pulsewatch/internal/signal"
)

// Config exposes the breath-detection tunables.
type Config struct {
	AmplitudeCapacity int           `mapstructure:"amplitude_capacity"`
	ShortWindow       int           `mapstructure:"short_window"`
	BaselineWarmup    int           `mapstructure:"baseline_warmup"`
	BaselineBlend     float64       `mapstructure:"baseline_blend"`
	SigmoidGain       float64       `mapstructure:"sigmoid_gain"`
	DeviationCenter   float64       `mapstructure:"deviation_center"`
	BreathThreshold   float64       `mapstructure:"breath_threshold"`
	MinBreathInterval time.Duration `mapstructure:"min_breath_interval"`
	IntervalCapacity  int           `mapstructure:"interval_capacity"`
	RateHistorySize   int           `mapstructure:"rate_history_size"`
	MinRate           float64       `mapstructure:"min_rate"`
	MaxRate           float64       `mapstructure:"max_rate"`
}

// DefaultConfig returns the tuning used for per-beat pulse amplitudes.
func DefaultConfig() Config {
	return Config{
		AmplitudeCapacity: 30,
		ShortWindow:       3,
		BaselineWarmup:    10,
		BaselineBlend:     0.95,
		SigmoidGain:       12.0,
		DeviationCenter:   0.08,
		BreathThreshold:   0.6,
		MinBreathInterval: 1500 * time.Millisecond,
		IntervalCapacity:  10,
		RateHistorySize:   8,
		MinRate:           4,
		MaxRate:           40,
	}
}

// Measurement is the respiration output: breaths per minute, a normalized
// depth, and a 0-100 regularity score.
type Measurement struct {
	Rate       float64
	Depth      float64
	Regularity float64
}

// Engine derives breath rate, depth, and regularity from the slow amplitude
// modulation that breathing imposes on consecutive pulse amplitudes.
type Engine struct {
	cfg    Config
	logger zerolog.Logger

	amplitudes *signal.RollingBuffer[float64]
	intervals  *signal.RollingBuffer[float64] // seconds between breath events
	rates      *signal.RollingBuffer[float64]

	baseline   float64
	count      int
	lastBreath time.Time
	last       Measurement
}

// New constructs a respiration engine.
func New(cfg Config, logger zerolog.Logger) *Engine {
	return &Engine{
		cfg:        cfg,
		logger:     logger.With().Str("component", "respiration").Logger(),
		amplitudes: signal.NewRollingBuffer[float64](cfg.AmplitudeCapacity),
		intervals:  signal.NewRollingBuffer[float64](cfg.IntervalCapacity),
		rates:      signal.NewRollingBuffer[float64](cfg.RateHistorySize),
	}
}

// ProcessSignal consumes one pulse amplitude (typically per confirmed beat)
// and returns the current measurement. Outputs stay at their previous values
// until enough breaths have been observed.
func (e *Engine) ProcessSignal(t time.Time, amplitude float64) Measurement {
	if amplitude <= 0 {
		return e.last
	}

	e.count++
	e.amplitudes.Push(amplitude)
	e.updateBaseline(amplitude)

	if e.baseline <= 0 || e.amplitudes.Len() < e.cfg.ShortWindow {
		return e.last
	}

	short := signal.Mean(e.amplitudes.Tail(e.cfg.ShortWindow))
	deviation := (short - e.baseline) / e.baseline
	if deviation < 0 {
		deviation = -deviation
	}
	score := signal.Sigmoid(e.cfg.SigmoidGain * (deviation - e.cfg.DeviationCenter))

	if score > e.cfg.BreathThreshold && e.breathIntervalElapsed(t) {
		e.recordBreath(t)
	}

	e.last = Measurement{
		Rate:       e.rate(),
		Depth:      e.depth(),
		Regularity: e.regularity(),
	}
	return e.last
}

// updateBaseline adapts fast while the buffer fills, then settles into a
// slow exponential blend.
func (e *Engine) updateBaseline(amplitude float64) {
	if e.count == 1 {
		e.baseline = amplitude
		return
	}
	if e.count <= e.cfg.BaselineWarmup {
		n := float64(e.count)
		e.baseline = e.baseline*(n-1)/n + amplitude/n
		return
	}
	f := e.cfg.BaselineBlend
	e.baseline = e.baseline*f + amplitude*(1-f)
}

func (e *Engine) breathIntervalElapsed(t time.Time) bool {
	return e.lastBreath.IsZero() || t.Sub(e.lastBreath) >= e.cfg.MinBreathInterval
}

func (e *Engine) recordBreath(t time.Time) {
	if !e.lastBreath.IsZero() {
		interval := t.Sub(e.lastBreath).Seconds()
		if interval > 0 {
			e.intervals.Push(interval)
			rate := 60 / interval
			if rate >= e.cfg.MinRate && rate <= e.cfg.MaxRate {
				e.rates.Push(rate)
			}
		}
	}
	e.lastBreath = t
}

func (e *Engine) rate() float64 {
	if e.rates.Len() == 0 {
		return 0
	}
	return signal.TrimmedMean(e.rates.Values())
}

// depth reports the peak-to-trough spread of recent amplitudes normalized
// against the baseline, clamped to [0, 100].
func (e *Engine) depth() float64 {
	values := e.amplitudes.Values()
	if len(values) < 2 || e.baseline <= 0 {
		return 0
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return signal.Clamp((max-min)/e.baseline*100, 0, 100)
}

// regularity is 100 minus the normalized standard deviation of recent breath
// intervals, clamped to [0, 100].
func (e *Engine) regularity() float64 {
	if e.intervals.Len() < 2 {
		return 0
	}
	mean := signal.Mean(e.intervals.Values())
	if mean <= 0 {
		return 0
	}
	sd := signal.StdDev(e.intervals.Values())
	return signal.Clamp(100-(sd/mean)*100, 0, 100)
}

// Current returns the most recent measurement without consuming a sample.
func (e *Engine) Current() Measurement {
	return e.last
}

// HasValidData reports whether at least two breath intervals have been
// detected this session.
func (e *Engine) HasValidData() bool {
	return e.intervals.Len() >= 2
}

// Reset restores the engine to its just-constructed state.
func (e *Engine) Reset() {
	e.amplitudes.Reset()
	e.intervals.Reset()
	e.rates.Reset()
	e.baseline = 0
	e.count = 0
	e.lastBreath = time.Time{}
	e.last = Measurement{}
}
