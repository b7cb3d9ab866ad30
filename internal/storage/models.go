package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionRecord represents one persisted monitoring session. Clinical values
// are stored as decimals so display layers render them with fixed precision.
type SessionRecord struct {
	ID             string
	StartedAt      time.Time
	StoppedAt      *time.Time
	Frames         int
	AvgBPM         decimal.Decimal
	AvgSpO2        decimal.Decimal
	HeartRateLabel string
	SpO2Label      string
	BPLabel        string
	Status         string
	CreatedAt      time.Time
}

// VitalsRecord is one finalized per-frame snapshot handed to storage by the
// pipeline. Raw buffers never leave the engines; only display-ready values
// are persisted.
type VitalsRecord struct {
	SessionID       string
	FrameTS         time.Time
	FilteredValue   decimal.Decimal
	IsPeak          bool
	BPM             decimal.Decimal
	Confidence      decimal.Decimal
	SpO2            decimal.Decimal
	RespRate        decimal.Decimal
	RespDepth       decimal.Decimal
	RespRegularity  decimal.Decimal
	ArrhythmiaLabel string
}
