package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "app:\n  name: pulsewatch\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Capture.FrameRate != 30 {
		t.Fatalf("frame rate = %v, want 30", cfg.Capture.FrameRate)
	}
	if cfg.Capture.Source != "synthetic" {
		t.Fatalf("source = %q, want synthetic", cfg.Capture.Source)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Fatalf("logging defaults = %+v", cfg.Logging)
	}
	if cfg.Alerting.Cooldown != 5*time.Minute {
		t.Fatalf("cooldown = %v, want 5m", cfg.Alerting.Cooldown)
	}
	if cfg.Database.BatchSize != 30 {
		t.Fatalf("batch size = %v, want 30", cfg.Database.BatchSize)
	}

	// Pipeline tunables come from the engine defaults, not viper.
	if cfg.Pipeline.Heartbeat.RefractoryPeriod != 400*time.Millisecond {
		t.Fatalf("refractory = %v, want 400ms", cfg.Pipeline.Heartbeat.RefractoryPeriod)
	}
	if cfg.Pipeline.SpO2.CalibrationTarget != 97 {
		t.Fatalf("calibration target = %v, want 97", cfg.Pipeline.SpO2.CalibrationTarget)
	}
	if cfg.Pipeline.SpO2Window != 60 {
		t.Fatalf("spo2 window = %v, want 60", cfg.Pipeline.SpO2Window)
	}
}

func TestLoadOverridesPipelineSelectively(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  heartbeat:
    min_bpm: 45
    refractory_period: 500ms
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.Heartbeat.MinBPM != 45 {
		t.Fatalf("min bpm = %v, want 45", cfg.Pipeline.Heartbeat.MinBPM)
	}
	if cfg.Pipeline.Heartbeat.RefractoryPeriod != 500*time.Millisecond {
		t.Fatalf("refractory = %v, want 500ms", cfg.Pipeline.Heartbeat.RefractoryPeriod)
	}
	// Untouched keys keep their engine defaults.
	if cfg.Pipeline.Heartbeat.MaxBPM != 200 {
		t.Fatalf("max bpm = %v, want 200", cfg.Pipeline.Heartbeat.MaxBPM)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"bad source", "capture:\n  source: webcam\n"},
		{"csv without path", "capture:\n  source: csv\n"},
		{"zero frame rate", "capture:\n  frame_rate: 0\n"},
		{"inverted bpm band", "pipeline:\n  heartbeat:\n    min_bpm: 250\n"},
		{"bad quorum", "pipeline:\n  risk:\n    quorum_fraction: 1.5\n"},
		{"telegram without token", "alerting:\n  telegram:\n    enabled: true\n    chat_id: c\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Fatalf("config %q accepted", tc.yaml)
			}
		})
	}
}

func TestFrameInterval(t *testing.T) {
	c := CaptureConfig{FrameRate: 30}
	want := time.Second / 30
	if got := c.FrameInterval(); got != want {
		t.Fatalf("interval = %v, want %v", got, want)
	}
}

func TestResolveMaxPoints(t *testing.T) {
	cfg := &Config{Export: ExportConfig{MaxDataPoints: 1000}}
	if got := cfg.ResolveMaxPoints(0); got != 1000 {
		t.Fatalf("default = %d, want 1000", got)
	}
	if got := cfg.ResolveMaxPoints(50); got != 50 {
		t.Fatalf("override = %d, want 50", got)
	}
}
