package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leozw/ssl-verifier/internal/core"
)

// Collector owns its registry so several collectors can coexist in one
// process and tests.
type Collector struct {
	registry *prometheus.Registry

	checksTotal       *prometheus.CounterVec
	checkDuration     prometheus.Histogram
	certDaysRemaining *prometheus.GaugeVec
	batchDomains      *prometheus.GaugeVec
	lastBatch         prometheus.Gauge
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,

		checksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sslverify_checks_total",
				Help: "Total number of domain verifications by outcome status",
			},
			[]string{"status"},
		),

		checkDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sslverify_check_duration_seconds",
				Help:    "Duration of a single domain verification in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
			},
		),

		certDaysRemaining: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sslverify_cert_days_remaining",
				Help: "Whole days until the certificate expires, negative once expired",
			},
			[]string{"domain"},
		),

		batchDomains: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sslverify_batch_domains",
				Help: "Number of domains per bucket in the last batch",
			},
			[]string{"bucket"},
		),

		lastBatch: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sslverify_last_batch_timestamp_seconds",
				Help: "Unix time of the last completed batch",
			},
		),
	}
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) RecordOutcome(o core.VerificationOutcome, duration time.Duration) {
	c.checksTotal.WithLabelValues(string(o.Status)).Inc()
	c.checkDuration.Observe(duration.Seconds())

	if o.Domain == "" {
		return
	}
	if o.Certificate.DaysRemaining != nil {
		c.certDaysRemaining.WithLabelValues(o.Domain).Set(float64(*o.Certificate.DaysRemaining))
	} else {
		c.certDaysRemaining.DeleteLabelValues(o.Domain)
	}
}

func (c *Collector) RecordBatch(b *core.BatchResult) {
	c.batchDomains.WithLabelValues("expired").Set(float64(len(b.Expired)))
	c.batchDomains.WithLabelValues("valid").Set(float64(len(b.Valid)))
	c.batchDomains.WithLabelValues("errored").Set(float64(len(b.Errored)))
	c.lastBatch.Set(float64(b.CheckedAt.Unix()))
}
