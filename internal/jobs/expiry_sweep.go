// Package jobs holds background work that runs alongside the HTTP server.
package jobs

import (
	"context"
	"html"
	"log"
	"time"

	"shelflife/internal/events"
	"shelflife/internal/models"
)

// NearExpiryFinder selects products expiring within a number of days.
type NearExpiryFinder interface {
	GetNearExpiry(ctx context.Context, days int) []models.NearExpiryItem
}

// ExpirySweep periodically reports the products about to expire.
type ExpirySweep struct {
	finder   NearExpiryFinder
	sink     events.Sink
	days     int
	interval time.Duration
}

// NewExpirySweep creates a sweep over the given window, run every interval.
func NewExpirySweep(finder NearExpiryFinder, sink events.Sink, days int, interval time.Duration) *ExpirySweep {
	if sink == nil {
		sink = events.Nop{}
	}
	return &ExpirySweep{finder: finder, sink: sink, days: days, interval: interval}
}

// RunOnce computes the near-expiry set and emits a near_expiry.sweep event
// carrying its size and the product names.
func (s *ExpirySweep) RunOnce(ctx context.Context) []models.NearExpiryItem {
	items := s.finder.GetNearExpiry(ctx, s.days)

	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, html.UnescapeString(item.Name))
	}

	s.sink.Emit(ctx, events.Info(events.NearExpirySweep, map[string]any{
		"count":    len(items),
		"days":     s.days,
		"products": names,
	}))
	return items
}

// Run sweeps once immediately and then on every tick until ctx is done.
// A non-positive interval disables the job.
func (s *ExpirySweep) Run(ctx context.Context) {
	if s.interval <= 0 {
		log.Println("Expiry sweep disabled")
		return
	}

	log.Printf("Starting expiry sweep every %s (window %d days)", s.interval, s.days)
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Expiry sweep stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}
