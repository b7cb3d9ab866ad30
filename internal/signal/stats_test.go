package signal

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestMedian(t *testing.T) {
	cases := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []float64{5}, 5},
		{"odd", []float64{3, 1, 2}, 2},
		{"even", []float64{4, 1, 3, 2}, 2.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Median(tc.values); got != tc.want {
				t.Fatalf("Median(%v) = %v, want %v", tc.values, got, tc.want)
			}
		})
	}
}

func TestTrimmedMeanDropsExtremes(t *testing.T) {
	got := TrimmedMean([]float64{1, 100, 2, 3})
	if !almostEqual(got, 2.5, 1e-9) {
		t.Fatalf("TrimmedMean = %v, want 2.5", got)
	}
	if got := TrimmedMean([]float64{4, 6}); !almostEqual(got, 5, 1e-9) {
		t.Fatalf("short input should fall back to mean, got %v", got)
	}
}

func TestIQRTrimmedMean(t *testing.T) {
	// 8 values: lo=2, hi=6, keeps [3 4 5 6].
	got := IQRTrimmedMean([]float64{1, 2, 3, 4, 5, 6, 7, 8})
	if !almostEqual(got, 4.5, 1e-9) {
		t.Fatalf("IQRTrimmedMean = %v, want 4.5", got)
	}
}

func TestNormalizedCrossCorrelation(t *testing.T) {
	a := []float64{0, 1, 2, 1, 0}
	if got := NormalizedCrossCorrelation(a, a); !almostEqual(got, 1, 1e-9) {
		t.Fatalf("self correlation = %v, want 1", got)
	}
	inverted := []float64{2, 1, 0, 1, 2}
	if got := NormalizedCrossCorrelation(a, inverted); !almostEqual(got, -1, 1e-9) {
		t.Fatalf("inverted correlation = %v, want -1", got)
	}
	if got := NormalizedCrossCorrelation(a, a[:3]); got != 0 {
		t.Fatalf("length mismatch should yield 0, got %v", got)
	}
	flat := []float64{3, 3, 3, 3, 3}
	if got := NormalizedCrossCorrelation(a, flat); got != 0 {
		t.Fatalf("flat segment should yield 0, got %v", got)
	}
}

func TestNormalize01(t *testing.T) {
	got := Normalize01([]float64{10, 20, 30})
	want := []float64{0, 0.5, 1}
	for i := range want {
		if !almostEqual(got[i], want[i], 1e-9) {
			t.Fatalf("Normalize01[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	for _, v := range Normalize01([]float64{7, 7, 7}) {
		if v != 0.5 {
			t.Fatalf("flat input should map to 0.5, got %v", v)
		}
	}
}

func TestDetrendRemovesRamp(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	for _, v := range Detrend(values) {
		if !almostEqual(v, 0, 1e-9) {
			t.Fatalf("detrended ramp should be flat, got %v", v)
		}
	}
}

func TestZScore(t *testing.T) {
	history := []float64{10, 10, 12, 12}
	got := ZScore(17, history)
	if got < 4 || got > 7 {
		t.Fatalf("z-score of an outlier = %v, expected well above 3", got)
	}
	if got := ZScore(5, []float64{5, 5, 5}); got != 0 {
		t.Fatalf("flat history should yield 0, got %v", got)
	}
}

func TestNormalizedVariance(t *testing.T) {
	if got := NormalizedVariance([]float64{1}); got != 0 {
		t.Fatalf("short input = %v, want 0", got)
	}
	got := NormalizedVariance([]float64{99, 101, 99, 101})
	if got <= 0 || got > 0.001 {
		t.Fatalf("small relative variance = %v, expected tiny positive value", got)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 3); got != 3 {
		t.Fatalf("Clamp above = %v, want 3", got)
	}
	if got := Clamp(-1, 0, 3); got != 0 {
		t.Fatalf("Clamp below = %v, want 0", got)
	}
	if got := Clamp(2, 0, 3); got != 2 {
		t.Fatalf("Clamp inside = %v, want 2", got)
	}
}
