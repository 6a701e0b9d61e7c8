package entity

import "errors"

var (
	ErrUnknownTaskType   = errors.New("unknown task type")
	ErrWorkflowActive    = errors.New("workflow already active for conversation")
	ErrWorkflowExists    = errors.New("workflow entry already exists")
	ErrNoActiveWorkflow  = errors.New("no active workflow for conversation")
	ErrInvalidTransition = errors.New("invalid workflow state transition")
	ErrSuperseded        = errors.New("workflow is no longer executing")
)
