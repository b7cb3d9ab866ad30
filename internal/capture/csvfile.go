package capture

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"pulsewatch/internal/signal"
)

// CSVFile replays recorded samples from a CSV file with `timestamp_ms,
// amplitude` rows (an optional header row is skipped). Timestamps are
// milliseconds relative to the recording start.
type CSVFile struct {
	path   string
	logger zerolog.Logger

	file   *os.File
	reader *csv.Reader
	start  time.Time
	row    int
}

// NewCSVFile builds a replay source for the given path. The file is opened
// lazily on the first Next call.
func NewCSVFile(path string, logger zerolog.Logger) *CSVFile {
	return &CSVFile{
		path:   path,
		logger: logger.With().Str("component", "csv_source").Logger(),
		start:  time.Now().UTC(),
	}
}

// Next returns the next recorded sample, or io.EOF when the file ends.
func (c *CSVFile) Next(ctx context.Context) (signal.Sample, error) {
	if err := ctx.Err(); err != nil {
		return signal.Sample{}, err
	}
	if c.reader == nil {
		file, err := os.Open(c.path)
		if err != nil {
			return signal.Sample{}, fmt.Errorf("open sample file: %w", err)
		}
		c.file = file
		c.reader = csv.NewReader(file)
		c.reader.FieldsPerRecord = 2
	}

	for {
		record, err := c.reader.Read()
		if err == io.EOF {
			c.Close()
			return signal.Sample{}, io.EOF
		}
		if err != nil {
			return signal.Sample{}, fmt.Errorf("read sample row: %w", err)
		}
		c.row++

		offsetMs, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			if c.row == 1 {
				// Header row.
				continue
			}
			return signal.Sample{}, fmt.Errorf("row %d: parse timestamp: %w", c.row, err)
		}
		amplitude, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return signal.Sample{}, fmt.Errorf("row %d: parse amplitude: %w", c.row, err)
		}

		ts := c.start.Add(time.Duration(offsetMs * float64(time.Millisecond)))
		return signal.Sample{Timestamp: ts, Amplitude: amplitude}, nil
	}
}

// Close releases the underlying file. Safe to call more than once.
func (c *CSVFile) Close() {
	if c.file != nil {
		_ = c.file.Close()
		c.file = nil
	}
}

var _ SampleSource = (*CSVFile)(nil)
