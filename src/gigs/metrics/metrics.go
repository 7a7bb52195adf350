// Package metrics exports Prometheus collectors for the gig core. A *Core
// satisfies the Recorder interfaces of ledger and arbitration.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gigboard"

type Core struct {
	submissions  *prometheus.CounterVec
	declarations *prometheus.CounterVec
	declareTime  prometheus.Histogram
	chatMessages *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Core, error) {
	c := &Core{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Submission attempts by outcome.",
		}, []string{"outcome"}),
		declarations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "winner_declarations_total",
			Help:      "Winner declaration attempts by outcome.",
		}, []string{"outcome"}),
		declareTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "winner_declaration_seconds",
			Help:      "Time spent committing a winner declaration.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
		chatMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_events_total",
			Help:      "Chat messages posted and deleted.",
		}, []string{"kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "method", "status"}),
	}
	for _, col := range []prometheus.Collector{c.submissions, c.declarations, c.declareTime, c.chatMessages, c.httpRequests} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Core) SubmissionRecorded(outcome string) {
	c.submissions.WithLabelValues(outcome).Inc()
}

func (c *Core) WinnersDeclared(outcome string, took time.Duration) {
	c.declarations.WithLabelValues(outcome).Inc()
	c.declareTime.Observe(took.Seconds())
}

func (c *Core) ChatEvent(kind string) {
	c.chatMessages.WithLabelValues(kind).Inc()
}

func (c *Core) Request(route, method, status string) {
	c.httpRequests.WithLabelValues(route, method, status).Inc()
}
