package risk

import (
	"time"

	"github.com/rs/zerolog"

	"pulsewatch/internal/signal"
)

// Config exposes the classifier tunables. Blood pressure is smoothed far
// more aggressively than heart rate: the derived BP values move slowly by
// nature and a jumpy BP label reads as broken.
type Config struct {
	StabilityWindow   time.Duration `mapstructure:"stability_window"`
	MeasurementWindow time.Duration `mapstructure:"measurement_window"`
	MinStableSamples  int           `mapstructure:"min_stable_samples"`
	QuorumFraction    float64       `mapstructure:"quorum_fraction"`
	MedianWindow      int           `mapstructure:"median_window"`
	HeartRateAlpha    float64       `mapstructure:"heart_rate_alpha"`
	SpO2Alpha         float64       `mapstructure:"spo2_alpha"`
	BPAlpha           float64       `mapstructure:"bp_alpha"`
	SegmentCapacity   int           `mapstructure:"segment_capacity"`
}

// DefaultConfig returns the tuning used for per-frame classification.
func DefaultConfig() Config {
	return Config{
		StabilityWindow:   4 * time.Second,
		MeasurementWindow: 40 * time.Second,
		MinStableSamples:  3,
		QuorumFraction:    2.0 / 3.0,
		MedianWindow:      5,
		HeartRateAlpha:    0.3,
		SpO2Alpha:         0.25,
		BPAlpha:           0.08,
		SegmentCapacity:   256,
	}
}

// StabilityCheck is one time-stamped smoothed observation in a per-vital
// history window.
type StabilityCheck struct {
	Value     float64
	Timestamp time.Time
}

// Assessment bundles the per-vital segments emitted for one frame or for
// the end-of-session final reading.
type Assessment struct {
	HeartRate Segment
	SpO2      Segment
	Systolic  Segment
	Diastolic Segment
}

// vitalTracker carries the smoothing stage, the time-windowed stability
// history, the session-average accumulators, and the segment history for
// one vital.
type vitalTracker struct {
	alpha    float64
	median   *signal.RollingBuffer[float64]
	smoothed float64
	primed   bool
	history  []StabilityCheck
	sum      float64
	n        int
	segments *signal.RollingBuffer[Segment]
	ranges   []Range
}

func newVitalTracker(alpha float64, medianWindow, segmentCapacity int, ranges []Range) *vitalTracker {
	return &vitalTracker{
		alpha:    alpha,
		median:   signal.NewRollingBuffer[float64](medianWindow),
		segments: signal.NewRollingBuffer[Segment](segmentCapacity),
		ranges:   ranges,
	}
}

// observe smooths one raw value (median filter then EWMA), appends a
// StabilityCheck, and lazily prunes entries older than the measurement
// window.
func (v *vitalTracker) observe(t time.Time, raw float64, cfg Config) {
	v.median.Push(raw)
	filtered := signal.Median(v.median.Values())
	if !v.primed {
		v.smoothed = filtered
		v.primed = true
	} else {
		v.smoothed = v.alpha*filtered + (1-v.alpha)*v.smoothed
	}

	v.history = append(v.history, StabilityCheck{Value: v.smoothed, Timestamp: t})
	cutoff := t.Add(-cfg.MeasurementWindow)
	trimmed := v.history[:0]
	for _, c := range v.history {
		if !c.Timestamp.Before(cutoff) {
			trimmed = append(trimmed, c)
		}
	}
	v.history = trimmed

	v.sum += v.smoothed
	v.n++
}

// classify tests the stability window against the ordered ranges; the first
// stable range wins. Non-evaluating labels append to the segment history.
func (v *vitalTracker) classify(t time.Time, cfg Config) Segment {
	for _, r := range v.ranges {
		if v.isStable(t, r, cfg) {
			v.segments.Push(r.Segment)
			return r.Segment
		}
	}
	return Evaluating
}

// isStable requires at least MinStableSamples recent checks inside the
// stability window with a quorum fraction of them inside the range.
func (v *vitalTracker) isStable(t time.Time, r Range, cfg Config) bool {
	cutoff := t.Add(-cfg.StabilityWindow)
	total := 0
	inside := 0
	for i := len(v.history) - 1; i >= 0; i-- {
		if v.history[i].Timestamp.Before(cutoff) {
			break
		}
		total++
		if r.Contains(v.history[i].Value) {
			inside++
		}
	}
	if total < cfg.MinStableSamples {
		return false
	}
	return float64(inside) >= cfg.QuorumFraction*float64(total)
}

// finalSegment reclassifies the full-session average; when no averaging data
// exists it falls back to a majority vote over the recorded segments. The
// two tiers exist because a global average discards transient episodes that
// matter for a final report.
func (v *vitalTracker) finalSegment() Segment {
	if v.n > 0 {
		return classifyValue(v.sum/float64(v.n), v.ranges)
	}
	return v.majoritySegment()
}

func (v *vitalTracker) majoritySegment() Segment {
	if v.segments.Len() == 0 {
		return Evaluating
	}
	counts := make(map[string]int)
	byLabel := make(map[string]Segment)
	for _, s := range v.segments.Values() {
		counts[s.Label]++
		byLabel[s.Label] = s
	}
	best := Evaluating
	bestCount := 0
	for label, count := range counts {
		if count > bestCount {
			bestCount = count
			best = byLabel[label]
		}
	}
	return best
}

func (v *vitalTracker) reset() {
	v.median.Reset()
	v.smoothed = 0
	v.primed = false
	v.history = v.history[:0]
	v.sum = 0
	v.n = 0
	v.segments.Reset()
}

// Classifier maintains per-vital smoothing, stability histories, and segment
// histories, and emits a stable categorical label only after a quorum of
// recent samples agree. All state is instance-owned; sessions construct one
// classifier and reset it between runs.
type Classifier struct {
	cfg    Config
	logger zerolog.Logger

	heartRate *vitalTracker
	spo2      *vitalTracker
	systolic  *vitalTracker
	diastolic *vitalTracker
}

// New constructs a classifier.
func New(cfg Config, logger zerolog.Logger) *Classifier {
	return &Classifier{
		cfg:       cfg,
		logger:    logger.With().Str("component", "risk").Logger(),
		heartRate: newVitalTracker(cfg.HeartRateAlpha, cfg.MedianWindow, cfg.SegmentCapacity, HeartRateRanges()),
		spo2:      newVitalTracker(cfg.SpO2Alpha, cfg.MedianWindow, cfg.SegmentCapacity, SpO2Ranges()),
		systolic:  newVitalTracker(cfg.BPAlpha, cfg.MedianWindow, cfg.SegmentCapacity, SystolicRanges()),
		diastolic: newVitalTracker(cfg.BPAlpha, cfg.MedianWindow, cfg.SegmentCapacity, DiastolicRanges()),
	}
}

// Observe ingests one frame of vitals. Zero values mean "no estimate yet"
// and are skipped rather than classified. Returns the current live segments.
func (c *Classifier) Observe(t time.Time, heartRate, spo2, systolic, diastolic float64) Assessment {
	out := Assessment{
		HeartRate: Evaluating,
		SpO2:      Evaluating,
		Systolic:  Evaluating,
		Diastolic: Evaluating,
	}
	if heartRate > 0 {
		c.heartRate.observe(t, heartRate, c.cfg)
		out.HeartRate = c.heartRate.classify(t, c.cfg)
	}
	if spo2 > 0 {
		c.spo2.observe(t, spo2, c.cfg)
		out.SpO2 = c.spo2.classify(t, c.cfg)
	}
	if systolic > 0 && diastolic > 0 && systolic > diastolic {
		c.systolic.observe(t, systolic, c.cfg)
		c.diastolic.observe(t, diastolic, c.cfg)
		out.Systolic = c.systolic.classify(t, c.cfg)
		out.Diastolic = c.diastolic.classify(t, c.cfg)
	}
	return out
}

// FinalReading produces the end-of-session assessment: each vital is
// reclassified from its session average, falling back to the most frequent
// recorded label when averaging data is unavailable.
func (c *Classifier) FinalReading() Assessment {
	return Assessment{
		HeartRate: c.heartRate.finalSegment(),
		SpO2:      c.spo2.finalSegment(),
		Systolic:  c.systolic.finalSegment(),
		Diastolic: c.diastolic.finalSegment(),
	}
}

// ResetHistory clears all histories and smoothing state between sessions.
func (c *Classifier) ResetHistory() {
	c.heartRate.reset()
	c.spo2.reset()
	c.systolic.reset()
	c.diastolic.reset()
}
