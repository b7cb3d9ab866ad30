package capture

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSyntheticDeterministic(t *testing.T) {
	opts := DefaultSyntheticOptions()
	opts.Start = time.Unix(0, 0)
	a := NewSynthetic(opts, zerolog.Nop())
	b := NewSynthetic(opts, zerolog.Nop())

	ctx := context.Background()
	for i := 0; i < 200; i++ {
		sa, errA := a.Next(ctx)
		sb, errB := b.Next(ctx)
		if errA != nil || errB != nil {
			t.Fatalf("frame %d: errors %v, %v", i, errA, errB)
		}
		if sa != sb {
			t.Fatalf("frame %d: %+v != %+v", i, sa, sb)
		}
	}
}

func TestSyntheticWaveformShape(t *testing.T) {
	opts := DefaultSyntheticOptions()
	opts.Start = time.Unix(0, 0)
	opts.Noise = 0
	src := NewSynthetic(opts, zerolog.Nop())

	ctx := context.Background()
	min, max := math.Inf(1), math.Inf(-1)
	var prev time.Time
	for i := 0; i < 300; i++ {
		s, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if i > 0 {
			gap := s.Timestamp.Sub(prev)
			want := time.Second / 30
			if gap < want-time.Millisecond || gap > want+time.Millisecond {
				t.Fatalf("frame %d: gap %v, want ~%v", i, gap, want)
			}
		}
		prev = s.Timestamp
		if s.Amplitude < min {
			min = s.Amplitude
		}
		if s.Amplitude > max {
			max = s.Amplitude
		}
	}

	// The waveform must be pulsatile around the configured brightness.
	if min < 170 || max > 195 {
		t.Fatalf("amplitude range [%v, %v] strayed from brightness 180", min, max)
	}
	if max-min < 1 {
		t.Fatalf("waveform span %v carries no pulse", max-min)
	}
}

func TestSyntheticHonorsContext(t *testing.T) {
	src := NewSynthetic(DefaultSyntheticOptions(), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestCSVFileReplaysRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.csv")
	content := "timestamp_ms,amplitude\n0,180.5\n33.3,181.2\n66.6,179.9\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewCSVFile(path, zerolog.Nop())
	defer src.Close()
	ctx := context.Background()

	want := []float64{180.5, 181.2, 179.9}
	for i, amp := range want {
		s, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("row %d: %v", i, err)
		}
		if s.Amplitude != amp {
			t.Fatalf("row %d: amplitude %v, want %v", i, s.Amplitude, amp)
		}
	}
	if _, err := src.Next(ctx); err != io.EOF {
		t.Fatalf("after last row err = %v, want io.EOF", err)
	}
}

func TestCSVFileRelativeTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.csv")
	if err := os.WriteFile(path, []byte("0,100\n1000,101\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewCSVFile(path, zerolog.Nop())
	defer src.Close()
	ctx := context.Background()

	s0, err := src.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	s1, err := src.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if gap := s1.Timestamp.Sub(s0.Timestamp); gap != time.Second {
		t.Fatalf("timestamp gap = %v, want 1s", gap)
	}
}

func TestCSVFileBadRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.csv")
	if err := os.WriteFile(path, []byte("0,180\nnot-a-number,181\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewCSVFile(path, zerolog.Nop())
	defer src.Close()
	ctx := context.Background()

	if _, err := src.Next(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := src.Next(ctx); err == nil {
		t.Fatal("malformed non-header row should fail")
	}
}

func TestCSVFileMissing(t *testing.T) {
	src := NewCSVFile(filepath.Join(t.TempDir(), "absent.csv"), zerolog.Nop())
	if _, err := src.Next(context.Background()); err == nil {
		t.Fatal("missing file should fail on first read")
	}
}
