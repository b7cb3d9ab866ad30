package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"pulsewatch/internal/storage"
)

// Export renders a stored session as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.SessionID == "" {
		return errors.New("--session must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	records, err := store.ListSessionSamples(ctx, opts.SessionID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		a.Logger.Info().Str("session_id", opts.SessionID).Msg("no samples found for session")
		return nil
	}

	downsampled := downsampleRecords(records, opts.MaxPoints)
	a.Logger.Info().Int("total", len(records)).Int("exported", len(downsampled)).Msg("exporting samples")

	if opts.CSVPath != "" {
		if err := writeRecordsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeRecordsPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleRecords(records []storage.VitalsRecord, max int) []storage.VitalsRecord {
	if max <= 0 || len(records) <= max {
		return records
	}

	result := make([]storage.VitalsRecord, 0, max)
	step := float64(len(records)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(records) {
			idx = len(records) - 1
		}
		result = append(result, records[idx])
	}
	return result
}

func writeRecordsCSV(path string, records []storage.VitalsRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"frame_ts", "filtered_value", "is_peak", "bpm", "confidence", "spo2", "resp_rate", "resp_depth", "resp_regularity", "arrhythmia_label"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range records {
		isPeak := "0"
		if r.IsPeak {
			isPeak = "1"
		}
		record := []string{
			r.FrameTS.Format(time.RFC3339Nano),
			r.FilteredValue.String(),
			isPeak,
			r.BPM.String(),
			r.Confidence.String(),
			r.SpO2.String(),
			r.RespRate.String(),
			r.RespDepth.String(),
			r.RespRegularity.String(),
			r.ArrhythmiaLabel,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeRecordsPNG(path string, records []storage.VitalsRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(records))
	filtered := make([]float64, len(records))
	bpm := make([]float64, len(records))
	spo2 := make([]float64, len(records))

	for i, r := range records {
		x[i] = r.FrameTS
		filtered[i] = r.FilteredValue.InexactFloat64()
		bpm[i] = r.BPM.InexactFloat64()
		spo2[i] = r.SpO2.InexactFloat64()
	}

	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.1f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Filtered signal",
			ValueFormatter: valueFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "BPM / SpO2",
			ValueFormatter: valueFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Filtered",
				XValues: x,
				YValues: filtered,
			},
			chart.TimeSeries{
				Name:    "BPM",
				XValues: x,
				YValues: bpm,
				YAxis:   chart.YAxisSecondary,
			},
			chart.TimeSeries{
				Name:    "SpO2 %",
				XValues: x,
				YValues: spo2,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
