// Package metrics records mission activity for Prometheus.
package metrics

// Deployment outcomes used as label values
const (
	OutcomeDeployed = "deployed"
	OutcomeSkipped  = "skipped"
	OutcomeRejected = "rejected"
)

// Recorder receives mission events from the service layer.
type Recorder interface {
	RecordDeployment(outcome string)
	RecordMissionRun(rovers, steps, blocked int)
	SetActiveSessions(n int)
}

// NopRecorder implements Recorder with no-op methods.
type NopRecorder struct{}

func (NopRecorder) RecordDeployment(string)        {}
func (NopRecorder) RecordMissionRun(int, int, int) {}
func (NopRecorder) SetActiveSessions(int)          {}
