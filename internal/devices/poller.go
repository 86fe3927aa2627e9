package devices

import (
	"context"
	"log/slog"
	"time"
)

// DefaultPollInterval matches the hardware's tolerance for hot-plug
// detection latency without hammering the HID and PC/SC stacks.
const DefaultPollInterval = 2 * time.Second

// Poller periodically re-enumerates devices and, when the connected set
// changed, reconciles the registry and notifies subscribers. Notifications
// carry the full latest enumeration.
type Poller struct {
	registry *Registry
	interval time.Duration
	notify   func([]Record)
}

func NewPoller(registry *Registry, interval time.Duration, notify func([]Record)) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{registry: registry, interval: interval, notify: notify}
}

// Run blocks until ctx is cancelled. Enumeration failures are logged and
// skipped; a transiently unavailable backend must not clear the selection.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var previous []Record
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		current, err := p.registry.Scan(ctx)
		if err != nil {
			slog.Debug("Device poll failed", "error", err)
			continue
		}
		if !devicesChanged(previous, current) {
			continue
		}
		previous = current
		slog.Info("Device set changed", "count", len(current))
		if p.notify != nil {
			p.notify(current)
		}
	}
}

// devicesChanged compares two enumerations by path, order-independent.
func devicesChanged(previous, current []Record) bool {
	if len(previous) != len(current) {
		return true
	}
	prev := make(map[string]struct{}, len(previous))
	for _, rec := range previous {
		prev[rec.Path] = struct{}{}
	}
	for _, rec := range current {
		if _, ok := prev[rec.Path]; !ok {
			return true
		}
	}
	return false
}
