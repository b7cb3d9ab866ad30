package monitor

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pulsewatch/internal/heartbeat"
	"pulsewatch/internal/respiration"
	"pulsewatch/internal/risk"
	"pulsewatch/internal/signal"
	"pulsewatch/internal/spo2"
)

// Options bundle the per-engine tuning for one monitor.
type Options struct {
	Conditioner signal.ConditionerConfig `mapstructure:"signal"`
	Heartbeat   heartbeat.Config         `mapstructure:"heartbeat"`
	SpO2        spo2.Config              `mapstructure:"spo2"`
	Respiration respiration.Config       `mapstructure:"respiration"`
	Risk        risk.Config              `mapstructure:"risk"`

	// SpO2Window is the conditioned-sample window handed to the SpO2
	// engine each frame.
	SpO2Window int `mapstructure:"spo2_window"`
}

// DefaultOptions returns the tuning used for 30 Hz camera PPG.
func DefaultOptions() Options {
	return Options{
		Conditioner: signal.DefaultConditionerConfig(),
		Heartbeat:   heartbeat.DefaultConfig(),
		SpO2:        spo2.DefaultConfig(),
		Respiration: respiration.DefaultConfig(),
		Risk:        risk.DefaultConfig(),
		SpO2Window:  60,
	}
}

// Monitor owns one instance of each engine and drives the whole pipeline to
// completion for every frame. Execution is strictly single-threaded: one
// ProcessFrame call per captured frame, no I/O, no blocking.
type Monitor struct {
	opts   Options
	logger zerolog.Logger

	sessionID  uuid.UUID
	active     bool
	startedAt  time.Time
	lastFrame  time.Time
	frames     int
	bpmSum     float64
	bpmFrames  int
	spo2Sum    float64
	spo2Frames int

	conditioner *signal.Conditioner
	heartbeat   *heartbeat.Engine
	spo2        *spo2.Engine
	respiration *respiration.Engine
	risk        *risk.Classifier

	window *signal.RollingBuffer[float64]
}

// New constructs a monitor with fresh engines.
func New(opts Options, logger zerolog.Logger) *Monitor {
	log := logger.With().Str("component", "monitor").Logger()
	return &Monitor{
		opts:        opts,
		logger:      log,
		conditioner: signal.NewConditioner(opts.Conditioner),
		heartbeat:   heartbeat.New(opts.Heartbeat, log),
		spo2:        spo2.New(opts.SpO2, log),
		respiration: respiration.New(opts.Respiration, log),
		risk:        risk.New(opts.Risk, log),
		window:      signal.NewRollingBuffer[float64](opts.SpO2Window),
	}
}

// SessionID returns the identifier of the active (or last) session.
func (m *Monitor) SessionID() string {
	if m.sessionID == uuid.Nil {
		return ""
	}
	return m.sessionID.String()
}

// Active reports whether a session is running.
func (m *Monitor) Active() bool {
	return m.active
}

// StartSession resets all engines and begins a new session.
func (m *Monitor) StartSession() string {
	m.Reset()
	m.sessionID = uuid.New()
	m.active = true
	m.logger.Info().Str("session_id", m.sessionID.String()).Msg("session started")
	return m.sessionID.String()
}

// ProcessFrame conditions one raw sample and runs it through every engine.
// It never fails: short buffers and low signal quality produce placeholder
// fields, not errors.
func (m *Monitor) ProcessFrame(s signal.Sample) VitalsSnapshot {
	if m.startedAt.IsZero() {
		m.startedAt = s.Timestamp
	}
	m.lastFrame = s.Timestamp
	m.frames++

	filtered := m.conditioner.Condition(s.Amplitude)
	baseline := m.conditioner.Baseline()
	m.window.Push(filtered)

	beat := m.heartbeat.Process(s.Timestamp, filtered, baseline)

	if beat.IsPeak {
		// Breathing modulates the pulse amplitude; feed per-beat peak
		// deviation to the respiration engine.
		amplitude := filtered - baseline
		if amplitude > 0 {
			m.respiration.ProcessSignal(s.Timestamp, amplitude)
		}
	}

	spo2Value := m.spo2.Calculate(m.window.Values())

	systolic, diastolic := estimateBloodPressure(beat.BPM, filtered, baseline)

	assessment := m.risk.Observe(s.Timestamp, beat.BPM, spo2Value, systolic, diastolic)

	if beat.BPM > 0 {
		m.bpmSum += beat.BPM
		m.bpmFrames++
	}
	if spo2Value > 0 {
		m.spo2Sum += spo2Value
		m.spo2Frames++
	}

	return VitalsSnapshot{
		Timestamp:       s.Timestamp,
		FilteredValue:   filtered,
		IsPeak:          beat.IsPeak,
		BPM:             beat.BPM,
		Confidence:      beat.Confidence,
		SpO2:            spo2Value,
		Systolic:        systolic,
		Diastolic:       diastolic,
		Respiration:     m.respirationReading(),
		ArrhythmiaLabel: assessment.HeartRate.Label,
		Risk:            assessment,
	}
}

func (m *Monitor) respirationReading() respiration.Measurement {
	if !m.respiration.HasValidData() {
		return respiration.Measurement{}
	}
	return m.respiration.Current()
}

// AddCalibrationValue forwards one raw reading into the SpO2 calibration
// buffer. Invoked by the UI layer during an explicit calibration flow.
func (m *Monitor) AddCalibrationValue(v float64) {
	m.spo2.AddCalibrationValue(v)
}

// Calibrate finalizes the accumulated calibration buffer. Returns false
// (unchanged state) when too few values were collected.
func (m *Monitor) Calibrate() bool {
	return m.spo2.Calibrate()
}

// StopSession ends the session and produces the final reading.
func (m *Monitor) StopSession() FinalReading {
	reading := FinalReading{
		SessionID:  m.SessionID(),
		StartedAt:  m.startedAt,
		StoppedAt:  m.lastFrameTime(),
		Frames:     m.frames,
		Assessment: m.risk.FinalReading(),
	}
	if m.bpmFrames > 0 {
		reading.AverageBPM = m.bpmSum / float64(m.bpmFrames)
	}
	if m.spo2Frames > 0 {
		reading.AverageSpO2 = m.spo2Sum / float64(m.spo2Frames)
	}
	m.active = false
	m.logger.Info().
		Str("session_id", reading.SessionID).
		Int("frames", reading.Frames).
		Float64("avg_bpm", reading.AverageBPM).
		Float64("avg_spo2", reading.AverageSpO2).
		Str("heart_rate", reading.Assessment.HeartRate.Label).
		Msg("session stopped")
	return reading
}

func (m *Monitor) lastFrameTime() time.Time {
	if m.frames == 0 {
		return m.startedAt
	}
	return m.lastFrame
}

// Reset clears every engine and all session state. After Reset the monitor
// behaves identically to a newly constructed one.
func (m *Monitor) Reset() {
	m.conditioner.Reset()
	m.heartbeat.Reset()
	m.spo2.Reset()
	m.respiration.Reset()
	m.risk.ResetHistory()
	m.window.Reset()
	m.sessionID = uuid.Nil
	m.active = false
	m.startedAt = time.Time{}
	m.lastFrame = time.Time{}
	m.frames = 0
	m.bpmSum = 0
	m.bpmFrames = 0
	m.spo2Sum = 0
	m.spo2Frames = 0
}

// estimateBloodPressure derives blood-pressure-like values from the current
// rate and pulse strength. This is an empirical screen-level estimate, not a
// cuff measurement; it exists to feed the risk classifier's BP tables.
// Systolic is always kept above diastolic.
func estimateBloodPressure(bpm, filtered, baseline float64) (systolic, diastolic float64) {
	if bpm <= 0 {
		return 0, 0
	}
	perfusion := 0.0
	if baseline > 1e-6 {
		perfusion = (filtered - baseline) / baseline
	}
	systolic = 100 + 0.45*(bpm-60) + 120*perfusion
	diastolic = 65 + 0.25*(bpm-60) + 60*perfusion
	if systolic < diastolic+10 {
		systolic = diastolic + 10
	}
	return systolic, diastolic
}
