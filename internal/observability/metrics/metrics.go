package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking flow.
type BookingMetrics struct {
	availabilityFetchTotal *prometheus.CounterVec
	submitTotal            *prometheus.CounterVec
	submitLatency          prometheus.Histogram
	flowStepTotal          *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		availabilityFetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookflow",
			Subsystem: "availability",
			Name:      "fetch_total",
			Help:      "Total weekly availability fetches",
		}, []string{"staff", "status"}),
		submitTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookflow",
			Subsystem: "booking",
			Name:      "submit_total",
			Help:      "Total booking submissions",
		}, []string{"status"}),
		submitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bookflow",
			Subsystem: "booking",
			Name:      "submit_latency_seconds",
			Help:      "Latency of create-booking calls to the backend",
			Buckets:   prometheus.DefBuckets,
		}),
		flowStepTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookflow",
			Subsystem: "flow",
			Name:      "step_total",
			Help:      "Flow step transitions",
		}, []string{"step"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.availabilityFetchTotal, m.submitTotal, m.submitLatency, m.flowStepTotal)
	return m
}

func (m *BookingMetrics) ObserveAvailabilityFetch(staff, status string) {
	if m == nil {
		return
	}
	m.availabilityFetchTotal.WithLabelValues(staff, status).Inc()
}

func (m *BookingMetrics) ObserveSubmit(status string) {
	if m == nil {
		return
	}
	m.submitTotal.WithLabelValues(status).Inc()
}

func (m *BookingMetrics) ObserveSubmitLatency(seconds float64) {
	if m == nil {
		return
	}
	m.submitLatency.Observe(seconds)
}

func (m *BookingMetrics) ObserveFlowStep(step string) {
	if m == nil {
		return
	}
	m.flowStepTotal.WithLabelValues(step).Inc()
}
