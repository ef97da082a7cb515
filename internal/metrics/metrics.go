// Package metrics exposes multifetch engine measurements as Prometheus
// metrics.
//
// Metrics:
//   - {namespace}_queue_depth: submitted requests not yet admitted
//   - {namespace}_active_transfers: transfers in flight
//   - {namespace}_received_bytes_total: body bytes delivered to callbacks
//   - {namespace}_transfers_total{code}: terminal results by outcome code
//   - {namespace}_transfer_duration_seconds{code}: time from admission to result
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ligustah/multifetch/pkg/multifetch"
)

// Observer implements multifetch.Observer on top of Prometheus collectors.
type Observer struct {
	queueDepth    prometheus.Gauge
	active        prometheus.Gauge
	receivedBytes prometheus.Counter
	transfers     *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

var _ multifetch.Observer = (*Observer)(nil)

// New creates an Observer and registers its collectors with reg.
// It panics if registration fails, like prometheus.MustRegister.
func New(namespace string, reg prometheus.Registerer) *Observer {
	o := &Observer{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Submitted requests waiting for admission.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_transfers",
			Help:      "Transfers currently in flight.",
		}),
		receivedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "received_bytes_total",
			Help:      "Response body bytes delivered to callbacks.",
		}),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "Finished transfers by result code.",
		}, []string{"code"}),
		// 10ms .. ~82s
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transfer_duration_seconds",
			Help:      "Time from admission to result.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2.5, 11),
		}, []string{"code"}),
	}

	reg.MustRegister(o.queueDepth, o.active, o.receivedBytes, o.transfers, o.duration)
	return o
}

func (o *Observer) QueueDepth(n int) {
	o.queueDepth.Set(float64(n))
}

func (o *Observer) ActiveTransfers(n int) {
	o.active.Set(float64(n))
}

func (o *Observer) BytesReceived(n int) {
	o.receivedBytes.Add(float64(n))
}

func (o *Observer) TransferFinished(res multifetch.Result, elapsed time.Duration) {
	code := res.Code.String()
	o.transfers.WithLabelValues(code).Inc()
	o.duration.WithLabelValues(code).Observe(elapsed.Seconds())
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
