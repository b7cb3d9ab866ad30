package capture

import (
	"context"

	"pulsewatch/internal/signal"
)

// SampleSource produces one reduced brightness sample per video frame. The
// real capture layer lives on the device; these implementations stand in for
// it when the pipeline is driven from the command line. Next returns io.EOF
// when the source is exhausted.
type SampleSource interface {
	Next(ctx context.Context) (signal.Sample, error)
}
