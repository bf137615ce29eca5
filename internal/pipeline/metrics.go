package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeEmitted = "emitted"
	outcomeSkipped = "skipped"
	outcomeDropped = "dropped"
	outcomePaused  = "paused"
)

// Metrics holds the pipeline's Prometheus collectors
type Metrics struct {
	ticksTotal    *prometheus.CounterVec // Ticks by outcome: emitted, skipped, dropped, paused
	tickDuration  prometheus.Histogram   // Time spent in emitted ticks
	commandsTotal *prometheus.CounterVec // Commands by result: applied, rejected
	bins          prometheus.Gauge       // Bins in the last emitted frame
	peakPower     *prometheus.GaugeVec   // Last peak level by kind: live, held
	peakFrequency *prometheus.GaugeVec   // Last peak frequency by kind: live, held
}

// NewMetrics creates and registers the pipeline collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ticksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spectrum",
			Name:      "ticks_total",
			Help:      "Pipeline ticks by outcome",
		}, []string{"outcome"}),
		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "spectrum",
			Name:      "tick_duration_seconds",
			Help:      "Duration of pipeline ticks that emitted a frame",
			Buckets:   []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.04, 0.08, 0.16},
		}),
		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spectrum",
			Name:      "commands_total",
			Help:      "Configuration commands by result",
		}, []string{"result"}),
		bins: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "spectrum",
			Name:      "frame_bins",
			Help:      "Number of frequency bins in the last emitted frame",
		}),
		peakPower: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "spectrum",
			Name:      "peak_power_db",
			Help:      "Power of the last measured peak",
		}, []string{"kind"}),
		peakFrequency: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "spectrum",
			Name:      "peak_frequency_hz",
			Help:      "Frequency of the last measured peak",
		}, []string{"kind"}),
	}
}

func (m *Metrics) tick(outcome string) {
	if m == nil {
		return
	}
	m.ticksTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) command(applied bool) {
	if m == nil {
		return
	}
	if applied {
		m.commandsTotal.WithLabelValues("applied").Inc()
	} else {
		m.commandsTotal.WithLabelValues("rejected").Inc()
	}
}

func (m *Metrics) emission(e *Emission, seconds float64) {
	if m == nil {
		return
	}

	m.ticksTotal.WithLabelValues(outcomeEmitted).Inc()
	m.tickDuration.Observe(seconds)
	m.bins.Set(float64(e.Frame.Len()))

	if e.Peak != nil {
		m.peakPower.WithLabelValues("live").Set(e.Peak.Power)
		m.peakFrequency.WithLabelValues("live").Set(e.Peak.Frequency)
	}
	if e.HeldPeak != nil {
		m.peakPower.WithLabelValues("held").Set(e.HeldPeak.Power)
		m.peakFrequency.WithLabelValues("held").Set(e.HeldPeak.Frequency)
	}
}
