package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

// PromSink exposes recorded metrics through a Prometheus registry. Each
// named metric is tracked as a gauge holding its latest value and a counter
// of how many times it was recorded. Log calls are ignored.
type PromSink struct {
	values       *prometheus.GaugeVec
	observations *prometheus.CounterVec
}

func NewPromSink(reg prometheus.Registerer) *PromSink {
	factory := promauto.With(reg)

	return &PromSink{
		values: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "prospector",
			Name:      "metric_value",
			Help:      "Latest value recorded for each named metric.",
		}, []string{"name"}),
		observations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prospector",
			Name:      "metric_observations_total",
			Help:      "Number of times each named metric was recorded.",
		}, []string{"name"}),
	}
}

func (s *PromSink) Debug(string, Fields) {}
func (s *PromSink) Info(string, Fields)  {}
func (s *PromSink) Error(string, Fields) {}

func (s *PromSink) Metric(name string, value float64) {
	s.values.WithLabelValues(name).Set(value)
	s.observations.WithLabelValues(name).Inc()
}

// NewStandard wires the production sink: structured logs through logrus and
// metrics through the given Prometheus registerer.
func NewStandard(logger logrus.FieldLogger, reg prometheus.Registerer) Sink {
	return MultiSink{NewLogSink(logger), NewPromSink(reg)}
}
