package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	AllocationRuns   prometheus.Counter
	AllocationSecs   prometheus.Histogram
	OrdersPromoted   prometheus.Counter
	PromotionSkips   *prometheus.CounterVec
	StatusChanges    *prometheus.CounterVec
	StatusFailures   *prometheus.CounterVec
	PreparedAdded    prometheus.Counter
	PreparedConsumed prometheus.Counter
	PreparedUnits    *prometheus.GaugeVec
	BoardRefreshes   *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	runs := prometheus.NewCounter(prometheus.CounterOpts{Name: "bakery_fifo_runs_total"})
	secs := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bakery_fifo_run_seconds",
		Buckets: prometheus.DefBuckets,
	})
	promoted := prometheus.NewCounter(prometheus.CounterOpts{Name: "bakery_fifo_promoted_total"})
	skips := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bakery_fifo_promotion_skips_total"}, []string{"reason"})
	changes := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bakery_order_status_changes_total"}, []string{"to"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bakery_order_status_failures_total"}, []string{"to"})
	added := prometheus.NewCounter(prometheus.CounterOpts{Name: "bakery_prepared_added_units_total"})
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "bakery_prepared_consumed_units_total"})
	units := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "bakery_prepared_units"}, []string{"product_id"})
	refreshes := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bakery_board_refreshes_total"}, []string{"result"})

	r.MustRegister(runs, secs, promoted, skips, changes, failures, added, consumed, units, refreshes)
	return &Registry{
		reg:              r,
		AllocationRuns:   runs,
		AllocationSecs:   secs,
		OrdersPromoted:   promoted,
		PromotionSkips:   skips,
		StatusChanges:    changes,
		StatusFailures:   failures,
		PreparedAdded:    added,
		PreparedConsumed: consumed,
		PreparedUnits:    units,
		BoardRefreshes:   refreshes,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }
