package risk

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestClassifyValueOrderedRanges(t *testing.T) {
	cases := []struct {
		name   string
		value  float64
		ranges []Range
		want   string
	}{
		{"tachycardia", 150, HeartRateRanges(), "tachycardia"},
		{"mild tachycardia", 120, HeartRateRanges(), "mild tachycardia"},
		{"normal heart rate", 72, HeartRateRanges(), "normal"},
		{"bradycardia", 45, HeartRateRanges(), "bradycardia"},
		{"out of range", 20, HeartRateRanges(), LabelEvaluating},
		{"normal spo2", 97, SpO2Ranges(), "normal"},
		{"mild hypoxemia", 92, SpO2Ranges(), "mild hypoxemia"},
		{"hypoxemia", 85, SpO2Ranges(), "hypoxemia"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyValue(tc.value, tc.ranges); got.Label != tc.want {
				t.Fatalf("classifyValue(%v) = %q, want %q", tc.value, got.Label, tc.want)
			}
		})
	}
}

func TestObserveRequiresQuorum(t *testing.T) {
	c := New(DefaultConfig(), zerolog.Nop())
	start := time.Unix(0, 0)

	// Fewer than MinStableSamples in the window means no label.
	a := c.Observe(start, 75, 0, 0, 0)
	if a.HeartRate.Label != LabelEvaluating {
		t.Fatalf("after 1 sample: %q, want evaluating", a.HeartRate.Label)
	}
	a = c.Observe(start.Add(time.Second), 75, 0, 0, 0)
	if a.HeartRate.Label != LabelEvaluating {
		t.Fatalf("after 2 samples: %q, want evaluating", a.HeartRate.Label)
	}

	a = c.Observe(start.Add(2*time.Second), 75, 0, 0, 0)
	if a.HeartRate.Label != "normal" {
		t.Fatalf("after 3 agreeing samples: %q, want normal", a.HeartRate.Label)
	}
	if a.HeartRate.Class != "normal" {
		t.Fatalf("class = %q, want normal", a.HeartRate.Class)
	}
}

func TestObserveStableTachycardia(t *testing.T) {
	c := New(DefaultConfig(), zerolog.Nop())
	start := time.Unix(0, 0)

	var a Assessment
	for i := 0; i < 10; i++ {
		a = c.Observe(start.Add(time.Duration(i)*500*time.Millisecond), 155, 0, 0, 0)
	}
	if a.HeartRate.Label != "tachycardia" || a.HeartRate.Class != "danger" {
		t.Fatalf("sustained 155 BPM classified as %+v", a.HeartRate)
	}
}

func TestObserveSkipsMissingVitals(t *testing.T) {
	c := New(DefaultConfig(), zerolog.Nop())
	start := time.Unix(0, 0)

	var a Assessment
	for i := 0; i < 5; i++ {
		a = c.Observe(start.Add(time.Duration(i)*time.Second), 0, 0, 0, 0)
	}
	if a != (Assessment{HeartRate: Evaluating, SpO2: Evaluating, Systolic: Evaluating, Diastolic: Evaluating}) {
		t.Fatalf("zero vitals produced %+v", a)
	}
}

func TestObserveRejectsImplausibleBloodPressure(t *testing.T) {
	c := New(DefaultConfig(), zerolog.Nop())
	start := time.Unix(0, 0)

	var a Assessment
	for i := 0; i < 5; i++ {
		// Systolic at or below diastolic is discarded outright.
		a = c.Observe(start.Add(time.Duration(i)*time.Second), 0, 0, 80, 110)
	}
	if a.Systolic.Label != LabelEvaluating || a.Diastolic.Label != LabelEvaluating {
		t.Fatalf("implausible BP classified: %+v", a)
	}
}

func TestQuorumToleratesMinorityOutliers(t *testing.T) {
	c := New(DefaultConfig(), zerolog.Nop())
	start := time.Unix(0, 0)

	// Eight normal samples and one brief spike inside the window; the spike
	// is a minority and the median filter absorbs most of it.
	var a Assessment
	for i := 0; i < 8; i++ {
		a = c.Observe(start.Add(time.Duration(i)*400*time.Millisecond), 72, 0, 0, 0)
	}
	a = c.Observe(start.Add(3200*time.Millisecond), 130, 0, 0, 0)
	if a.HeartRate.Label != "normal" {
		t.Fatalf("single outlier flipped label to %q", a.HeartRate.Label)
	}
}

func TestFinalReadingUsesSessionAverage(t *testing.T) {
	c := New(DefaultConfig(), zerolog.Nop())
	start := time.Unix(0, 0)

	for i := 0; i < 20; i++ {
		c.Observe(start.Add(time.Duration(i)*time.Second), 74, 97, 112, 72)
	}
	final := c.FinalReading()
	if final.HeartRate.Label != "normal" {
		t.Fatalf("final heart rate = %q, want normal", final.HeartRate.Label)
	}
	if final.SpO2.Label != "normal" {
		t.Fatalf("final spo2 = %q, want normal", final.SpO2.Label)
	}
	if final.Systolic.Label != "normal" || final.Diastolic.Label != "normal" {
		t.Fatalf("final BP = %+v", final)
	}
}

func TestFinalReadingWithoutDataIsEvaluating(t *testing.T) {
	c := New(DefaultConfig(), zerolog.Nop())
	final := c.FinalReading()
	if final.HeartRate.Label != LabelEvaluating || final.SpO2.Label != LabelEvaluating {
		t.Fatalf("empty session final = %+v", final)
	}
}

func TestMajoritySegmentFallback(t *testing.T) {
	v := newVitalTracker(0.3, 5, 16, HeartRateRanges())
	v.segments.Push(Segment{Class: "normal", Label: "normal"})
	v.segments.Push(Segment{Class: "danger", Label: "tachycardia"})
	v.segments.Push(Segment{Class: "normal", Label: "normal"})
	if got := v.majoritySegment(); got.Label != "normal" {
		t.Fatalf("majority = %q, want normal", got.Label)
	}
}

func TestResetHistoryRequiresFreshQuorum(t *testing.T) {
	c := New(DefaultConfig(), zerolog.Nop())
	start := time.Unix(0, 0)
	for i := 0; i < 10; i++ {
		c.Observe(start.Add(time.Duration(i)*time.Second), 74, 0, 0, 0)
	}
	c.ResetHistory()

	a := c.Observe(start.Add(time.Minute), 74, 0, 0, 0)
	if a.HeartRate.Label != LabelEvaluating {
		t.Fatalf("after reset one sample classified as %q", a.HeartRate.Label)
	}
	if c.heartRate.n != 1 {
		t.Fatalf("session accumulator count = %d after reset plus one sample", c.heartRate.n)
	}
}
