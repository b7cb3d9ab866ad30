package app

import (
	"context"
	"errors"
	"testing"

	"pulsewatch/internal/storage"
)

type fakeSampleLister struct {
	records []storage.VitalsRecord
	err     error
	gotID   string
}

func (f *fakeSampleLister) ListSessionSamples(ctx context.Context, sessionID string) ([]storage.VitalsRecord, error) {
	f.gotID = sessionID
	return f.records, f.err
}

func TestShowSamplesQueriesSession(t *testing.T) {
	a := testApp()
	lister := &fakeSampleLister{records: sampleRecords(5)}

	err := a.showSamples(context.Background(), lister, ShowOptions{SessionID: "abc", Limit: 3})
	if err != nil {
		t.Fatalf("showSamples: %v", err)
	}
	if lister.gotID != "abc" {
		t.Fatalf("queried session %q, want abc", lister.gotID)
	}
}

func TestShowSamplesEmpty(t *testing.T) {
	a := testApp()
	lister := &fakeSampleLister{}
	if err := a.showSamples(context.Background(), lister, ShowOptions{SessionID: "abc"}); err != nil {
		t.Fatalf("empty result should not error: %v", err)
	}
}

func TestShowSamplesPropagatesError(t *testing.T) {
	a := testApp()
	boom := errors.New("boom")
	lister := &fakeSampleLister{err: boom}
	if err := a.showSamples(context.Background(), lister, ShowOptions{SessionID: "abc"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}
