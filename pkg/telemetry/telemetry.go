package telemetry

// Fields carries structured context attached to a log line.
type Fields map[string]interface{}

// Sink receives logs and metrics from the discovery components. Calls are
// fire and forget: implementations never block the caller and never return
// errors. Components emit through the sink and own no logging policy.
type Sink interface {
	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Error(msg string, fields Fields)
	Metric(name string, value float64)
}

// MultiSink fans every call out to each member sink in order.
type MultiSink []Sink

func (m MultiSink) Debug(msg string, fields Fields) {
	for _, s := range m {
		s.Debug(msg, fields)
	}
}

func (m MultiSink) Info(msg string, fields Fields) {
	for _, s := range m {
		s.Info(msg, fields)
	}
}

func (m MultiSink) Error(msg string, fields Fields) {
	for _, s := range m {
		s.Error(msg, fields)
	}
}

func (m MultiSink) Metric(name string, value float64) {
	for _, s := range m {
		s.Metric(name, value)
	}
}

// NopSink discards everything. Useful as a default and in tests.
type NopSink struct{}

func (NopSink) Debug(string, Fields)    {}
func (NopSink) Info(string, Fields)     {}
func (NopSink) Error(string, Fields)    {}
func (NopSink) Metric(string, float64)  {}
