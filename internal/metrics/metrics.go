package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transition sources
const (
	SourceAdmin     = "admin"
	SourceLifecycle = "lifecycle"
	SourceApplicant = "applicant"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	RequestsCreated prometheus.Counter
	Transitions     *prometheus.CounterVec
	StepsDiscarded  *prometheus.CounterVec
	Letters         prometheus.Counter
}

// New creates and registers all Prometheus metrics on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "travel_loan_requests_created_total",
			Help: "Total number of loan requests admitted",
		}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "travel_loan_request_transitions_total",
			Help: "Total number of lifecycle transitions applied",
		}, []string{"from", "to", "source"}),
		StepsDiscarded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "travel_loan_lifecycle_steps_discarded_total",
			Help: "Automatic lifecycle steps dropped because the request moved on",
		}, []string{"step"}),
		Letters: factory.NewCounter(prometheus.CounterOpts{
			Name: "travel_loan_letters_downloaded_total",
			Help: "Total number of introduction letters downloaded",
		}),
	}
}

func (m *Metrics) IncrementRequestsCreated() {
	m.RequestsCreated.Inc()
}

func (m *Metrics) ObserveTransition(from, to, source string) {
	m.Transitions.WithLabelValues(from, to, source).Inc()
}

func (m *Metrics) IncrementStepsDiscarded(step string) {
	m.StepsDiscarded.WithLabelValues(step).Inc()
}

func (m *Metrics) IncrementLettersDownloaded() {
	m.Letters.Inc()
}
