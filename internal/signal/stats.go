package signal

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean, or 0 for an empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// StdDev returns the sample standard deviation, or 0 when fewer than two
// values are available.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// Median returns the middle value, or the mean of the two middle values for
// even-length input. Returns 0 for empty input.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// TrimmedMean drops the single minimum and maximum and averages the rest.
// Inputs shorter than 3 fall back to the plain mean.
func TrimmedMean(values []float64) float64 {
	if len(values) < 3 {
		return Mean(values)
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Mean(sorted[1:len(sorted)-1], nil)
}

// IQRTrimmedMean averages the values between the first and third quartile
// boundaries, discarding the outer quarters. Inputs shorter than 4 fall back
// to the plain mean.
func IQRTrimmedMean(values []float64) float64 {
	if len(values) < 4 {
		return Mean(values)
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	lo := len(sorted) / 4
	hi := len(sorted) - lo
	return stat.Mean(sorted[lo:hi], nil)
}

// NormalizedVariance returns variance scaled by the squared mean, a
// dimensionless measure of signal quality. Returns +Inf when the mean is
// (near) zero and the variance is not.
func NormalizedVariance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := stat.Mean(values, nil)
	variance := stat.Variance(values, nil)
	if math.Abs(mean) < 1e-12 {
		if variance == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return variance / (mean * mean)
}

// ZScore reports how many standard deviations v sits away from the mean of
// history. Returns 0 when history is too short or flat to judge.
func ZScore(v float64, history []float64) float64 {
	sd := StdDev(history)
	if sd < 1e-12 {
		return 0
	}
	return (v - Mean(history)) / sd
}

// NormalizedCrossCorrelation computes the zero-normalized cross-correlation
// of two equal-length segments, in [-1, 1]. Returns 0 when lengths differ or
// either segment is flat.
func NormalizedCrossCorrelation(a, b []float64) float64 {
	if len(a) != len(b) || len(a) < 2 {
		return 0
	}
	meanA := stat.Mean(a, nil)
	meanB := stat.Mean(b, nil)

	var num, denA, denB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		num += da * db
		denA += da * da
		denB += db * db
	}
	den := math.Sqrt(denA * denB)
	if den < 1e-12 {
		return 0
	}
	return num / den
}

// Normalize01 rescales values into [0, 1]. A flat segment maps to all 0.5.
func Normalize01(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	span := max - min
	if span < 1e-12 {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	for i, v := range values {
		out[i] = (v - min) / span
	}
	return out
}

// Detrend removes the least-squares linear trend from values.
func Detrend(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) < 2 {
		copy(out, values)
		return out
	}
	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}
	intercept, slope := stat.LinearRegression(xs, values, nil, false)
	for i, v := range values {
		out[i] = v - (intercept + slope*float64(i))
	}
	return out
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Sigmoid is the logistic function.
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
