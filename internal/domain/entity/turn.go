package entity

type TurnKind string

const (
	TurnQuestion         TurnKind = "question"
	TurnSummary          TurnKind = "summary"
	TurnReadyToExecute   TurnKind = "ready_to_execute"
	TurnNoActiveWorkflow TurnKind = "no_active_workflow"
	TurnCancelled        TurnKind = "cancelled"
	TurnExecuting        TurnKind = "executing"
	TurnPassthrough      TurnKind = "passthrough"
)

// OrgContext scopes lookups to the caller's organization.
type OrgContext struct {
	OrganizationID string
	UserID         string
}

type IntentMatch struct {
	Matched    bool
	TaskType   TaskType
	Confidence float64
}

type TurnResult struct {
	Kind       TurnKind
	Text       string
	Slot       string
	Reason     string
	Candidates []LookupCandidate
	Workflow   *WorkflowInstance
}
