package domain

// RunStatus represents the lifecycle state of a discovery run
type RunStatus string

const (
	RunIdle             RunStatus = "idle"
	RunStarting         RunStatus = "starting"
	RunRunning          RunStatus = "running"
	RunPaused           RunStatus = "paused"
	RunCompleted        RunStatus = "completed"
	RunCompletedPartial RunStatus = "completed_partial"
	RunFailed           RunStatus = "failed"
	RunCancelled        RunStatus = "cancelled"
)

// Terminal reports whether the status is final; a terminal run is never
// mutated again
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunCompletedPartial, RunFailed, RunCancelled:
		return true
	}
	return false
}

// PhaseStatus represents the execution state of one phase
type PhaseStatus string

const (
	PhasePending   PhaseStatus = "pending"
	PhaseRunning   PhaseStatus = "running"
	PhaseCompleted PhaseStatus = "completed"
	PhaseFailed    PhaseStatus = "failed"
	PhaseSkipped   PhaseStatus = "skipped"
)

// QualityTier classifies a run's overall score
type QualityTier string

const (
	TierPreliminary  QualityTier = "preliminary"
	TierPromising    QualityTier = "promising"
	TierValidated    QualityTier = "validated"
	TierSignificant  QualityTier = "significant"
	TierBreakthrough QualityTier = "breakthrough"
)

// ChangeRequestStatus represents a change request's review state
type ChangeRequestStatus string

const (
	ChangePending   ChangeRequestStatus = "pending"
	ChangeReviewing ChangeRequestStatus = "reviewing"
	ChangeApplied   ChangeRequestStatus = "applied"
	ChangeRejected  ChangeRequestStatus = "rejected"
)
