package metrics

import (
	"context"

	"shelflife/internal/events"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder turns inventory events into prometheus metrics.
type Recorder struct {
	created      prometheus.Counter
	deleted      prometheus.Counter
	rejected     *prometheus.CounterVec
	failures     *prometheus.CounterVec
	invalidDates prometheus.Counter
	nearExpiry   prometheus.Gauge
}

// NewRecorder creates the inventory metrics and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shelflife_products_created_total",
			Help: "Total number of products created.",
		}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shelflife_products_deleted_total",
			Help: "Total number of products deleted.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shelflife_product_rejections_total",
			Help: "Product submissions rejected by validation, by reason.",
		}, []string{"reason"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shelflife_store_failures_total",
			Help: "Store operations that failed and were rolled back, by operation.",
		}, []string{"operation"}),
		invalidDates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shelflife_invalid_stored_dates_total",
			Help: "Stored products skipped by the near-expiry scan because their expiry date did not parse.",
		}),
		nearExpiry: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shelflife_products_near_expiry",
			Help: "Products inside the near-expiry window at the last sweep.",
		}),
	}

	for _, c := range []prometheus.Collector{r.created, r.deleted, r.rejected, r.failures, r.invalidDates, r.nearExpiry} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Emit implements events.Sink.
func (r *Recorder) Emit(_ context.Context, e events.Event) {
	switch e.Name {
	case events.ProductCreated:
		r.created.Inc()
	case events.ProductDeleted:
		r.deleted.Inc()
	case events.ProductCreateRejected:
		reason, _ := e.Fields["reason"].(string)
		if reason == "" {
			reason = "unknown"
		}
		r.rejected.WithLabelValues(reason).Inc()
	case events.ProductCreateFailed:
		r.failures.WithLabelValues("create").Inc()
	case events.ProductDeleteFailed:
		r.failures.WithLabelValues("delete").Inc()
	case events.ProductGetFailed:
		r.failures.WithLabelValues("get").Inc()
	case events.NearExpiryInvalidDate:
		r.invalidDates.Inc()
	case events.NearExpirySweep:
		if count, ok := e.Fields["count"].(int); ok {
			r.nearExpiry.Set(float64(count))
		}
	}
}
