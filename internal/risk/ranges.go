package risk

import "math"

// Segment is a categorical risk output: a display color class and a label.
type Segment struct {
	Class string
	Label string
}

// LabelEvaluating is emitted while no range has a stable quorum yet.
const LabelEvaluating = "evaluating"

// Evaluating is the placeholder segment.
var Evaluating = Segment{Class: "neutral", Label: LabelEvaluating}

// Range is one clinically-motivated value band. Ranges are tested in order;
// the first stable match wins.
type Range struct {
	Min     float64
	Max     float64
	Segment Segment
}

// Contains reports whether v falls inside the band (inclusive).
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// HeartRateRanges orders the heart-rate bands from most to least acute.
func HeartRateRanges() []Range {
	return []Range{
		{Min: 140, Max: math.Inf(1), Segment: Segment{Class: "danger", Label: "tachycardia"}},
		{Min: 110, Max: 139.999, Segment: Segment{Class: "warning", Label: "mild tachycardia"}},
		{Min: 50, Max: 110, Segment: Segment{Class: "normal", Label: "normal"}},
		{Min: 40, Max: 49.999, Segment: Segment{Class: "warning", Label: "bradycardia"}},
	}
}

// SpO2Ranges orders the oxygen-saturation bands.
func SpO2Ranges() []Range {
	return []Range{
		{Min: 95, Max: 100, Segment: Segment{Class: "normal", Label: "normal"}},
		{Min: 90, Max: 94.999, Segment: Segment{Class: "warning", Label: "mild hypoxemia"}},
		{Min: 0, Max: 89.999, Segment: Segment{Class: "danger", Label: "hypoxemia"}},
	}
}

// SystolicRanges orders the systolic blood-pressure bands.
func SystolicRanges() []Range {
	return []Range{
		{Min: 180, Max: math.Inf(1), Segment: Segment{Class: "danger", Label: "hypertensive crisis"}},
		{Min: 140, Max: 179.999, Segment: Segment{Class: "warning", Label: "hypertension"}},
		{Min: 120, Max: 139.999, Segment: Segment{Class: "warning", Label: "elevated"}},
		{Min: 90, Max: 119.999, Segment: Segment{Class: "normal", Label: "normal"}},
		{Min: 70, Max: 89.999, Segment: Segment{Class: "warning", Label: "hypotension"}},
	}
}

// DiastolicRanges orders the diastolic blood-pressure bands.
func DiastolicRanges() []Range {
	return []Range{
		{Min: 120, Max: math.Inf(1), Segment: Segment{Class: "danger", Label: "hypertensive crisis"}},
		{Min: 90, Max: 119.999, Segment: Segment{Class: "warning", Label: "hypertension"}},
		{Min: 60, Max: 89.999, Segment: Segment{Class: "normal", Label: "normal"}},
		{Min: 40, Max: 59.999, Segment: Segment{Class: "warning", Label: "hypotension"}},
	}
}

// classifyValue tests a single value against the ordered ranges without any
// stability requirement. Used for the end-of-session average reading.
func classifyValue(v float64, ranges []Range) Segment {
	for _, r := range ranges {
		if r.Contains(v) {
			return r.Segment
		}
	}
	return Evaluating
}
