package spo2

import "pulsewatch/internal/signal"

// AddCalibrationValue appends one raw reading to the calibration buffer.
// Values are collected across frames during an explicit calibration phase
// and only take effect once Calibrate is called.
func (e *Engine) AddCalibrationValue(v float64) {
	e.calibration.Push(v)
}

// Calibrate derives an additive offset so the interquartile-trimmed mean of
// the collected values maps to the target healthy baseline. It is a no-op
// below MinCalibrationSamples and idempotent for the same buffer: the offset
// is recomputed from scratch, never accumulated.
func (e *Engine) Calibrate() bool {
	if e.calibration.Len() < e.cfg.MinCalibrationSamples {
		return false
	}
	trimmed := signal.IQRTrimmedMean(e.calibration.Values())
	e.offset = e.cfg.CalibrationTarget - trimmed
	e.calibrated = true
	e.logger.Info().
		Float64("trimmed_mean", trimmed).
		Float64("offset", e.offset).
		Int("samples", e.calibration.Len()).
		Msg("calibration applied")
	return true
}

// IsCalibrated reports whether a calibration offset is in effect.
func (e *Engine) IsCalibrated() bool {
	return e.calibrated
}

// Offset returns the additive calibration offset currently applied.
func (e *Engine) Offset() float64 {
	return e.offset
}

// CalibrationSampleCount reports how many calibration values are buffered.
func (e *Engine) CalibrationSampleCount() int {
	return e.calibration.Len()
}
