package heartbeat

import "pulsewatch/internal/signal"

// validateWaveform compares the waveform segment around the candidate peak
// against the learned templates using normalized cross-correlation. The
// matched template is blended slowly toward the new waveform so morphology
// can drift without retraining from scratch. With fewer than MinTemplates
// learned, the segment is accepted unconditionally and seeds a template.
func (e *Engine) validateWaveform() bool {
	segment := e.extractSegment()
	if segment == nil {
		return false
	}

	if len(e.templates) < e.cfg.MinTemplates {
		e.addTemplate(segment)
		return true
	}

	bestIdx := -1
	bestSim := -1.0
	for i, tpl := range e.templates {
		sim := signal.NormalizedCrossCorrelation(segment, tpl)
		if sim > bestSim {
			bestSim = sim
			bestIdx = i
		}
	}

	if bestSim < e.cfg.TemplateSimilarity {
		return false
	}

	e.blendTemplate(bestIdx, segment)
	return true
}

// extractSegment returns the most recent TemplateSize conditioned values,
// normalized to [0, 1], covering the candidate peak near its end. Returns
// nil when the history is shorter than a full segment.
func (e *Engine) extractSegment() []float64 {
	size := e.cfg.TemplateSize
	if e.history.Len() < size {
		return nil
	}
	raw := make([]float64, size)
	start := e.history.Len() - size
	for i := 0; i < size; i++ {
		raw[i] = e.history.At(start + i).v
	}
	return signal.Normalize01(raw)
}

func (e *Engine) addTemplate(segment []float64) {
	if len(e.templates) >= e.cfg.TemplateCount {
		return
	}
	tpl := make([]float64, len(segment))
	copy(tpl, segment)
	e.templates = append(e.templates, tpl)
}

// blendTemplate adapts the matched template toward the new waveform with the
// configured learning weight (default 0.8 old / 0.2 new).
func (e *Engine) blendTemplate(idx int, segment []float64) {
	tpl := e.templates[idx]
	w := e.cfg.TemplateLearning
	for i := range tpl {
		tpl[i] = tpl[i]*(1-w) + segment[i]*w
	}
}

// TemplateCount reports how many waveform templates have been learned.
func (e *Engine) TemplateCount() int {
	return len(e.templates)
}
