package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the counters the engine reports. Labels stay low-cardinality:
// result/stage/decision names only, never IDs.
type Metrics struct {
	ReservationsTotal *prometheus.CounterVec
	PipelineOutcomes  *prometheus.CounterVec
	ReaperExpired     prometheus.Counter
	ReaperSweeps      prometheus.Counter
	DeadLetters       *prometheus.CounterVec
	AnalyticsEvents   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ReservationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_reservations_total",
			Help: "Reserve calls by result.",
		}, []string{"result"}),
		PipelineOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_pipeline_outcomes_total",
			Help: "Pipeline stage processing decisions.",
		}, []string{"stage", "decision"}),
		ReaperExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "booking_reaper_expired_total",
			Help: "Holds expired by the reaper.",
		}),
		ReaperSweeps: factory.NewCounter(prometheus.CounterOpts{
			Name: "booking_reaper_sweeps_total",
			Help: "Reaper sweep iterations.",
		}),
		DeadLetters: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_dead_letters_total",
			Help: "Messages dead-lettered by stage.",
		}, []string{"stage"}),
		AnalyticsEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_analytics_events_total",
			Help: "Business events recorded by the analytics stage.",
		}, []string{"kind"}),
	}
}
