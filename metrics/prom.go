package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records mission events in Prometheus metrics.
type PromSink struct {
	deployments *prometheus.CounterVec
	runs        prometheus.Counter
	steps       *prometheus.CounterVec
	sessions    prometheus.Gauge
}

// NewPromSink registers mission metrics on the provided Prometheus registerer.
// If reg is nil, the default registerer is used. If the collectors are already
// registered, the existing ones are reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	deployments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "marsrover_deployments_total",
		Help: "Total number of rover deployments by outcome",
	}, []string{"outcome"})
	runs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "marsrover_rovers_executed_total",
		Help: "Total number of rovers that executed their commands",
	})
	steps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "marsrover_commands_total",
		Help: "Total number of executed commands by result",
	}, []string{"result"})
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "marsrover_active_sessions",
		Help: "Number of mission sessions currently held in memory",
	})

	var err error
	if deployments, err = register(reg, deployments); err != nil {
		return nil, err
	}
	if runs, err = register(reg, runs); err != nil {
		return nil, err
	}
	if steps, err = register(reg, steps); err != nil {
		return nil, err
	}
	if sessions, err = register(reg, sessions); err != nil {
		return nil, err
	}

	return &PromSink{deployments: deployments, runs: runs, steps: steps, sessions: sessions}, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordDeployment increments the deployment counter for the outcome.
func (s *PromSink) RecordDeployment(outcome string) {
	s.deployments.WithLabelValues(outcome).Inc()
}

// RecordMissionRun counts executed rovers and their commands. Blocked moves
// are counted separately from applied ones.
func (s *PromSink) RecordMissionRun(rovers, steps, blocked int) {
	s.runs.Add(float64(rovers))
	s.steps.WithLabelValues("applied").Add(float64(steps - blocked))
	s.steps.WithLabelValues("blocked").Add(float64(blocked))
}

// SetActiveSessions updates the session gauge.
func (s *PromSink) SetActiveSessions(n int) {
	s.sessions.Set(float64(n))
}
