package services

import (
	"context"
	"sort"
	"time"

	"shelflife/internal/dates"
	"shelflife/internal/events"
	"shelflife/internal/models"
)

// DefaultNearExpiryDays is the default near-expiry window.
const DefaultNearExpiryDays = 7

// SelectNearExpiry returns the products whose expiry falls between today and
// today+days inclusive, earliest first. Products whose stored expiry date
// does not parse are skipped and reported to sink.
func SelectNearExpiry(ctx context.Context, products []models.Product, now time.Time, days int, sink events.Sink) []models.NearExpiryItem {
	if sink == nil {
		sink = events.Nop{}
	}

	type candidate struct {
		item   models.NearExpiryItem
		expiry time.Time
	}
	selected := make([]candidate, 0, len(products))

	for _, p := range products {
		expiry, err := dates.Parse(p.ExpiryDate, now.Location())
		if err != nil {
			sink.Emit(ctx, events.Warn(events.NearExpiryInvalidDate, map[string]any{
				"product_id":  p.ID,
				"name":        p.Name,
				"expiry_date": p.ExpiryDate,
			}))
			continue
		}

		left := dates.DaysBetween(now, expiry)
		if left < 0 || left > days {
			continue
		}
		selected = append(selected, candidate{
			item: models.NearExpiryItem{
				ID:         p.ID,
				Name:       p.Name,
				ExpiryDate: p.ExpiryDate,
				DaysLeft:   left,
			},
			expiry: expiry,
		})
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].expiry.Before(selected[j].expiry)
	})

	items := make([]models.NearExpiryItem, len(selected))
	for i, c := range selected {
		items[i] = c.item
	}
	return items
}
