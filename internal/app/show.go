package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"pulsewatch/internal/storage"
)

type sessionSampleLister interface {
	ListSessionSamples(ctx context.Context, sessionID string) ([]storage.VitalsRecord, error)
}

// Show prints recent sessions, or the frames of one session when a session
// id is given.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show sessions")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.SessionID != "" {
		return a.showSamples(ctx, store, opts)
	}

	sessions, err := store.ListRecentSessions(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stdout, "no sessions found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Session\tStarted (UTC)\tFrames\tAvg BPM\tAvg SpO2\tHeart rate\tSpO2\tBP\tStatus")

	for _, s := range sessions {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID,
			s.StartedAt.UTC().Format(time.RFC3339),
			s.Frames,
			formatDecimal(s.AvgBPM, 1),
			formatDecimal(s.AvgSpO2, 1),
			s.HeartRateLabel,
			s.SpO2Label,
			s.BPLabel,
			s.Status,
		)
	}

	writer.Flush()
	return nil
}

func (a *App) showSamples(ctx context.Context, store sessionSampleLister, opts ShowOptions) error {
	records, err := store.ListSessionSamples(ctx, opts.SessionID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no samples found")
		return nil
	}
	if opts.Limit > 0 && len(records) > opts.Limit {
		records = records[len(records)-opts.Limit:]
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tFiltered\tPeak\tBPM\tConf\tSpO2\tResp\tLabel")

	for _, r := range records {
		peak := ""
		if r.IsPeak {
			peak = "*"
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.FrameTS.UTC().Format("15:04:05.000"),
			formatDecimal(r.FilteredValue, 4),
			peak,
			formatDecimal(r.BPM, 1),
			formatDecimal(r.Confidence, 2),
			formatDecimal(r.SpO2, 1),
			formatDecimal(r.RespRate, 1),
			r.ArrhythmiaLabel,
		)
	}

	writer.Flush()
	return nil
}
