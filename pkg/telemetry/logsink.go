package telemetry

import (
	"github.com/sirupsen/logrus"
)

// LogSink writes sink traffic to a logrus logger. Metrics are emitted as
// debug lines so development runs can observe them without a scrape target.
type LogSink struct {
	logger logrus.FieldLogger
}

func NewLogSink(logger logrus.FieldLogger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Debug(msg string, fields Fields) {
	s.logger.WithFields(logrus.Fields(fields)).Debug(msg)
}

func (s *LogSink) Info(msg string, fields Fields) {
	s.logger.WithFields(logrus.Fields(fields)).Info(msg)
}

func (s *LogSink) Error(msg string, fields Fields) {
	s.logger.WithFields(logrus.Fields(fields)).Error(msg)
}

func (s *LogSink) Metric(name string, value float64) {
	s.logger.WithFields(logrus.Fields{
		"metric": name,
		"value":  value,
	}).Debug("metric recorded")
}
