package monitor

import (
	"time"

	"pulsewatch/internal/respiration"
	"pulsewatch/internal/risk"
)

// VitalsSnapshot is the per-frame pipeline output, newly constructed every
// frame and never mutated after return. Placeholder/zero fields signal "not
// enough information yet", never an error.
type VitalsSnapshot struct {
	Timestamp     time.Time
	FilteredValue float64
	IsPeak        bool
	BPM           float64
	Confidence    float64
	SpO2          float64
	Systolic      float64
	Diastolic     float64
	Respiration   respiration.Measurement

	// ArrhythmiaLabel is the live heart-rate risk label; Risk carries the
	// full per-vital segments for consumers that need color classes.
	ArrhythmiaLabel string
	Risk            risk.Assessment
}

// FinalReading summarizes a completed session.
type FinalReading struct {
	SessionID   string
	StartedAt   time.Time
	StoppedAt   time.Time
	Frames      int
	AverageBPM  float64
	AverageSpO2 float64
	Assessment  risk.Assessment
}
