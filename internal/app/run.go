package app

import (
	"context"
	"errors"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"pulsewatch/internal/alerting"
	"pulsewatch/internal/capture"
	"pulsewatch/internal/framerate"
	"pulsewatch/internal/monitor"
	"pulsewatch/internal/storage"
)

// calibrationWindow is how long after warmup raw readings feed the
// calibration buffer when --calibrate is requested.
const calibrationWindow = 5 * time.Second

// Run executes a monitoring session: one frame per tick from the configured
// sample source, through the pipeline, into storage and alerting.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if opts.Duration > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, opts.Duration)
		defer timeoutCancel()
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if store != nil && a.Config.Database.AdvisoryLockKey != 0 {
		unlock, acquired, err := store.TryAdvisoryLock(ctx, a.Config.Database.AdvisoryLockKey)
		if err != nil {
			return err
		}
		if !acquired {
			return errors.New("another recorder holds the session lock")
		}
		defer unlock()
	}

	source := a.newSource()
	dispatcher := a.newDispatcher()
	mon := monitor.New(a.Config.Pipeline, a.Logger)

	loop := framerate.New(framerate.Options{
		Interval:     a.Config.Capture.FrameInterval(),
		StartupDelay: a.Config.Capture.StartupDelay,
	}, a.Logger)

	session := newSessionRunner(a, mon, source, store, dispatcher, opts.Calibrate)
	session.start(ctx)

	a.Logger.Info().Str("session_id", mon.SessionID()).Msg("monitoring session started")

	err = loop.Run(ctx, session.tick)
	reading := session.finish(context.WithoutCancel(ctx))
	printFinalReading(reading)

	if err != nil && !errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, io.EOF) {
		a.Logger.Error().Err(err).Msg("monitoring session terminated with error")
		return err
	}
	a.Logger.Info().Msg("monitoring session stopped")
	return nil
}

// sessionRunner carries the per-session state of the run loop: the pending
// storage batch, the calibration phase, and the last dispatched labels.
type sessionRunner struct {
	app        *App
	mon        *monitor.Monitor
	source     capture.SampleSource
	store      *storage.Store
	dispatcher *alerting.Dispatcher
	calibrate  bool

	pending     []storage.VitalsRecord
	calibrated  bool
	calibrateAt time.Time
}

func newSessionRunner(a *App, mon *monitor.Monitor, source capture.SampleSource, store *storage.Store, dispatcher *alerting.Dispatcher, calibrate bool) *sessionRunner {
	return &sessionRunner{
		app:        a,
		mon:        mon,
		source:     source,
		store:      store,
		dispatcher: dispatcher,
		calibrate:  calibrate,
		pending:    make([]storage.VitalsRecord, 0, a.Config.Database.BatchSize),
	}
}

func (r *sessionRunner) start(ctx context.Context) {
	sessionID := r.mon.StartSession()
	if r.store != nil {
		record := storage.SessionRecord{
			ID:        sessionID,
			StartedAt: time.Now().UTC(),
			Status:    "recording",
		}
		if err := r.store.CreateSession(ctx, record); err != nil {
			r.app.Logger.Error().Err(err).Msg("failed to create session record")
		}
	}
}

func (r *sessionRunner) tick(ctx context.Context, _ time.Time) error {
	sample, err := r.source.Next(ctx)
	if err != nil {
		return err
	}

	snapshot := r.mon.ProcessFrame(sample)
	r.maybeCalibrate(snapshot)

	if r.dispatcher != nil {
		id := r.mon.SessionID()
		r.dispatcher.Observe(ctx, id, "heart_rate", snapshot.Risk.HeartRate.Label, snapshot.Risk.HeartRate.Class, snapshot.BPM, snapshot.Timestamp)
		r.dispatcher.Observe(ctx, id, "spo2", snapshot.Risk.SpO2.Label, snapshot.Risk.SpO2.Class, snapshot.SpO2, snapshot.Timestamp)
		r.dispatcher.Observe(ctx, id, "blood_pressure", snapshot.Risk.Systolic.Label, snapshot.Risk.Systolic.Class, snapshot.Systolic, snapshot.Timestamp)
	}

	if r.store != nil {
		r.pending = append(r.pending, snapshotToRecord(r.mon.SessionID(), snapshot))
		if len(r.pending) >= r.app.Config.Database.BatchSize {
			r.flush(ctx)
		}
	}
	return nil
}

// maybeCalibrate feeds raw readings into the calibration buffer for a short
// window once the pipeline produces estimates, then applies the offset.
func (r *sessionRunner) maybeCalibrate(snapshot monitor.VitalsSnapshot) {
	if !r.calibrate || r.calibrated || snapshot.SpO2 <= 0 {
		return
	}
	if r.calibrateAt.IsZero() {
		r.calibrateAt = snapshot.Timestamp
	}
	r.mon.AddCalibrationValue(snapshot.SpO2)
	if snapshot.Timestamp.Sub(r.calibrateAt) >= calibrationWindow {
		if r.mon.Calibrate() {
			r.calibrated = true
			r.app.Logger.Info().Msg("spo2 calibration finalized")
		}
	}
}

func (r *sessionRunner) flush(ctx context.Context) {
	if r.store == nil || len(r.pending) == 0 {
		return
	}
	if err := r.store.InsertVitalsBatch(ctx, r.pending); err != nil {
		r.app.Logger.Error().Err(err).Int("records", len(r.pending)).Msg("failed to persist vitals batch")
	}
	r.pending = r.pending[:0]
}

func (r *sessionRunner) finish(ctx context.Context) monitor.FinalReading {
	r.flush(ctx)
	reading := r.mon.StopSession()
	if r.store != nil {
		stoppedAt := reading.StoppedAt
		record := storage.SessionRecord{
			ID:             reading.SessionID,
			StartedAt:      reading.StartedAt,
			StoppedAt:      &stoppedAt,
			Frames:         reading.Frames,
			AvgBPM:         decimal.NewFromFloat(reading.AverageBPM).Round(1),
			AvgSpO2:        decimal.NewFromFloat(reading.AverageSpO2).Round(1),
			HeartRateLabel: reading.Assessment.HeartRate.Label,
			SpO2Label:      reading.Assessment.SpO2.Label,
			BPLabel:        reading.Assessment.Systolic.Label,
			Status:         "complete",
		}
		if err := r.store.FinalizeSession(ctx, record); err != nil {
			r.app.Logger.Error().Err(err).Msg("failed to finalize session record")
		}
	}
	return reading
}

func snapshotToRecord(sessionID string, s monitor.VitalsSnapshot) storage.VitalsRecord {
	return storage.VitalsRecord{
		SessionID:       sessionID,
		FrameTS:         s.Timestamp,
		FilteredValue:   decimal.NewFromFloat(s.FilteredValue).Round(4),
		IsPeak:          s.IsPeak,
		BPM:             decimal.NewFromFloat(s.BPM).Round(1),
		Confidence:      decimal.NewFromFloat(s.Confidence).Round(3),
		SpO2:            decimal.NewFromFloat(s.SpO2).Round(1),
		RespRate:        decimal.NewFromFloat(s.Respiration.Rate).Round(1),
		RespDepth:       decimal.NewFromFloat(s.Respiration.Depth).Round(1),
		RespRegularity:  decimal.NewFromFloat(s.Respiration.Regularity).Round(1),
		ArrhythmiaLabel: s.ArrhythmiaLabel,
	}
}
