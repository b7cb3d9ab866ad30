package signal

// ConditionerConfig exposes the conditioning stage tunables.
type ConditionerConfig struct {
	MedianWindow     int     `mapstructure:"median_window"`
	AverageWindow    int     `mapstructure:"average_window"`
	EMAAlpha         float64 `mapstructure:"ema_alpha"`
	BaselineTracking float64 `mapstructure:"baseline_tracking"`
	BaselineWarmup   int     `mapstructure:"baseline_warmup"`
}

// DefaultConditionerConfig returns the tuning used for 30 Hz camera input.
func DefaultConditionerConfig() ConditionerConfig {
	return ConditionerConfig{
		MedianWindow:     3,
		AverageWindow:    3,
		EMAAlpha:         0.4,
		BaselineTracking: 0.95,
		BaselineWarmup:   30,
	}
}

// Conditioner cleans one raw brightness sample per frame: a short median
// filter removes single-sample spikes, a moving average suppresses
// high-frequency camera noise, and an exponential moving average produces
// the final smoothed value. It also tracks a slow baseline that downstream
// peak detection uses to normalize amplitude.
type Conditioner struct {
	cfg ConditionerConfig

	rawWindow    *RollingBuffer[float64]
	medianWindow *RollingBuffer[float64]

	smoothed float64
	baseline float64
	count    int
}

// NewConditioner constructs a conditioner from config.
func NewConditioner(cfg ConditionerConfig) *Conditioner {
	if cfg.MedianWindow <= 0 {
		cfg.MedianWindow = 3
	}
	if cfg.AverageWindow <= 0 {
		cfg.AverageWindow = 3
	}
	return &Conditioner{
		cfg:          cfg,
		rawWindow:    NewRollingBuffer[float64](cfg.MedianWindow),
		medianWindow: NewRollingBuffer[float64](cfg.AverageWindow),
	}
}

// Condition runs one raw sample through the three filter stages and returns
// the smoothed value. Never fails; cold-start values equal the input.
func (c *Conditioner) Condition(raw float64) float64 {
	c.count++

	c.rawWindow.Push(raw)
	med := Median(c.rawWindow.Values())

	c.medianWindow.Push(med)
	avg := Mean(c.medianWindow.Values())

	if c.count == 1 {
		c.smoothed = avg
		c.baseline = avg
		return c.smoothed
	}
	c.smoothed = c.cfg.EMAAlpha*avg + (1-c.cfg.EMAAlpha)*c.smoothed

	// The baseline runs as a plain mean while the signal settles, then
	// switches to a slow exponential blend so it keeps tracking drift.
	if c.count <= c.cfg.BaselineWarmup {
		n := float64(c.count)
		c.baseline = c.baseline*(n-1)/n + c.smoothed/n
	} else {
		f := c.cfg.BaselineTracking
		c.baseline = c.baseline*f + c.smoothed*(1-f)
	}

	return c.smoothed
}

// Smoothed returns the most recent conditioned value.
func (c *Conditioner) Smoothed() float64 {
	return c.smoothed
}

// Baseline returns the slow-moving baseline estimate.
func (c *Conditioner) Baseline() float64 {
	return c.baseline
}

// Count reports how many samples have been conditioned since construction
// or the last Reset.
func (c *Conditioner) Count() int {
	return c.count
}

// Reset restores the conditioner to its cold-start state.
func (c *Conditioner) Reset() {
	c.rawWindow.Reset()
	c.medianWindow.Reset()
	c.smoothed = 0
	c.baseline = 0
	c.count = 0
}
