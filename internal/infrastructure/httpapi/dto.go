package httpapi

import (
	"time"

	"socflow/internal/application/port/input"
	"socflow/internal/domain/entity"
)

type messageRequest struct {
	Message string `json:"message"`
}

type startRequest struct {
	TaskType string            `json:"task_type"`
	Initial  map[string]string `json:"initial,omitempty"`
}

type candidateDTO struct {
	Position int               `json:"position"`
	ID       string            `json:"id"`
	Label    string            `json:"label"`
	Fields   map[string]string `json:"fields,omitempty"`
}

type workflowDTO struct {
	ID             string            `json:"id"`
	ConversationID string            `json:"conversation_id"`
	TaskType       string            `json:"task_type"`
	State          string            `json:"state"`
	StageIndex     int               `json:"stage_index"`
	PendingSlot    string            `json:"pending_slot,omitempty"`
	Slots          map[string]string `json:"slots"`
	StartedAt      time.Time         `json:"started_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type turnDTO struct {
	Kind       string         `json:"kind"`
	Text       string         `json:"text,omitempty"`
	Slot       string         `json:"slot,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Candidates []candidateDTO `json:"candidates,omitempty"`
	Workflow   *workflowDTO   `json:"workflow,omitempty"`
}

type resultDTO struct {
	WorkflowID  string `json:"workflow_id"`
	TaskType    string `json:"task_type"`
	Stages      int    `json:"stages"`
	FinalAnswer string `json:"final_answer,omitempty"`
	Error       string `json:"error,omitempty"`
}

type errorDTO struct {
	Error string `json:"error"`
}

func toCandidateDTOs(cands []entity.LookupCandidate) []candidateDTO {
	if len(cands) == 0 {
		return nil
	}
	out := make([]candidateDTO, 0, len(cands))
	for _, c := range cands {
		dto := candidateDTO{Position: c.Position, ID: c.ID, Label: c.Label}
		if len(c.Fields) > 0 {
			dto.Fields = make(map[string]string, len(c.Fields))
			for _, f := range c.Fields {
				dto.Fields[f.Name] = f.Value
			}
		}
		out = append(out, dto)
	}
	return out
}

func toWorkflowDTO(wf *entity.WorkflowInstance) *workflowDTO {
	if wf == nil {
		return nil
	}
	dto := &workflowDTO{
		ID:             wf.ID,
		ConversationID: wf.ConversationID,
		TaskType:       string(wf.TaskType),
		State:          string(wf.State),
		StageIndex:     wf.StageIndex,
		PendingSlot:    wf.PendingSlot,
		Slots:          make(map[string]string, len(wf.Slots)),
		StartedAt:      wf.StartedAt,
		UpdatedAt:      wf.UpdatedAt,
	}
	for name, v := range wf.Slots {
		dto.Slots[name] = v.Text
	}
	return dto
}

func toTurnDTO(t *entity.TurnResult) turnDTO {
	return turnDTO{
		Kind:       string(t.Kind),
		Text:       t.Text,
		Slot:       t.Slot,
		Reason:     t.Reason,
		Candidates: toCandidateDTOs(t.Candidates),
		Workflow:   toWorkflowDTO(t.Workflow),
	}
}

func toResultDTO(wf *entity.WorkflowInstance, r *input.ExecuteResult, err error) resultDTO {
	dto := resultDTO{WorkflowID: wf.ID, TaskType: string(wf.TaskType)}
	if r != nil {
		dto.Stages = r.Stages
		dto.FinalAnswer = r.FinalAnswer
	}
	if err != nil {
		dto.Error = err.Error()
	}
	return dto
}
