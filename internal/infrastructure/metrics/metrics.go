package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"socflow/internal/application/port/output"
	"socflow/internal/domain/entity"
)

var _ output.MetricsPort = (*Recorder)(nil)

// Recorder exports workflow metrics on its own registry so tests and multiple
// engines in one process do not collide.
type Recorder struct {
	registry *prometheus.Registry

	WorkflowsStarted  *prometheus.CounterVec
	WorkflowsFinished *prometheus.CounterVec
	SlotResolutions   *prometheus.CounterVec
	LookupCalls       *prometheus.CounterVec
	TurnDuration      *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		WorkflowsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socflow_workflows_started_total",
				Help: "Total number of workflows started",
			},
			[]string{"task_type"},
		),
		WorkflowsFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socflow_workflows_finished_total",
				Help: "Total number of workflows that left the store",
			},
			[]string{"task_type", "outcome"}, // outcome: completed/cancelled
		),
		SlotResolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socflow_slot_resolutions_total",
				Help: "Slot answers interpreted, by answer shape and result",
			},
			[]string{"shape", "ok"},
		),
		LookupCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socflow_lookup_calls_total",
				Help: "Lookup provider calls, by operation and result",
			},
			[]string{"op", "result"}, // result: hit/empty/error
		),
		TurnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "socflow_turn_duration_seconds",
				Help:    "Time spent processing one conversational turn",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
			},
			[]string{"kind"},
		),
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) WorkflowStarted(taskType entity.TaskType) {
	r.WorkflowsStarted.WithLabelValues(string(taskType)).Inc()
}

func (r *Recorder) WorkflowFinished(taskType entity.TaskType, outcome entity.LifecycleState) {
	r.WorkflowsFinished.WithLabelValues(string(taskType), string(outcome)).Inc()
}

func (r *Recorder) SlotResolved(shape entity.AnswerShape, ok bool) {
	r.SlotResolutions.WithLabelValues(string(shape), strconv.FormatBool(ok)).Inc()
}

func (r *Recorder) LookupCalled(op string, err error, results int) {
	result := "hit"
	switch {
	case err != nil:
		result = "error"
	case results == 0:
		result = "empty"
	}
	r.LookupCalls.WithLabelValues(op, result).Inc()
}

func (r *Recorder) TurnObserved(kind entity.TurnKind, d time.Duration) {
	r.TurnDuration.WithLabelValues(string(kind)).Observe(d.Seconds())
}

type nop struct{}

// Nop discards all metrics.
func Nop() output.MetricsPort {
	return nop{}
}

func (nop) WorkflowStarted(entity.TaskType)                         {}
func (nop) WorkflowFinished(entity.TaskType, entity.LifecycleState) {}
func (nop) SlotResolved(entity.AnswerShape, bool)                   {}
func (nop) LookupCalled(string, error, int)                         {}
func (nop) TurnObserved(entity.TurnKind, time.Duration)             {}
