package alerting

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Dispatcher gates notifications: a vital only alerts when its label enters
// the alertable set, and repeated alerts for the same vital honor a
// cooldown. The pipeline emits one label per frame, so dispatching raw would
// flood the channel within seconds.
type Dispatcher struct {
	notifier  Notifier
	alertable map[string]struct{}
	cooldown  time.Duration
	channels  []string
	logger    zerolog.Logger

	lastLabel map[string]string
	lastSent  map[string]time.Time
}

// NewDispatcher wraps a notifier with label-edge and cooldown gating.
// Alertable labels are matched by exact string.
func NewDispatcher(notifier Notifier, alertableLabels []string, cooldown time.Duration, channels []string, logger zerolog.Logger) *Dispatcher {
	alertable := make(map[string]struct{}, len(alertableLabels))
	for _, l := range alertableLabels {
		alertable[l] = struct{}{}
	}
	return &Dispatcher{
		notifier:  notifier,
		alertable: alertable,
		cooldown:  cooldown,
		channels:  channels,
		logger:    logger.With().Str("component", "alert_dispatcher").Logger(),
		lastLabel: make(map[string]string),
		lastSent:  make(map[string]time.Time),
	}
}

// Observe considers one vital's live label. It dispatches at most one
// notification per label transition per cooldown window and never blocks the
// frame path on delivery errors.
func (d *Dispatcher) Observe(ctx context.Context, sessionID, vital, label, class string, value float64, t time.Time) {
	if d.notifier == nil {
		return
	}

	prev := d.lastLabel[vital]
	d.lastLabel[vital] = label

	if _, ok := d.alertable[label]; !ok {
		return
	}
	if label == prev {
		return
	}
	if sent, ok := d.lastSent[vital]; ok && t.Sub(sent) < d.cooldown {
		return
	}

	note := Notification{
		SessionID: sessionID,
		Vital:     vital,
		Label:     label,
		Class:     class,
		Value:     value,
		Timestamp: t,
		Channels:  d.channels,
	}
	if err := d.notifier.Notify(ctx, note); err != nil {
		d.logger.Error().Err(err).Str("vital", vital).Str("label", label).Msg("failed to dispatch alert")
		return
	}
	d.lastSent[vital] = t
}
