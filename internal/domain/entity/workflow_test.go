package entity

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to LifecycleState
		want     bool
	}{
		{StateInitiated, StateGathering, true},
		{StateInitiated, StateConfirming, false},
		{StateGathering, StateGathering, true},
		{StateGathering, StateConfirming, true},
		{StateGathering, StateExecuting, false},
		{StateConfirming, StateExecuting, true},
		{StateConfirming, StateGathering, false},
		{StateExecuting, StateCompleted, true},
		{StateExecuting, StateCancelled, false},
		{StateCompleted, StateGathering, false},
		{StateCancelled, StateInitiated, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestWorkflowInstance_Transition(t *testing.T) {
	w := &WorkflowInstance{State: StateInitiated}

	if err := w.Transition(StateGathering); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.UpdatedAt.IsZero() {
		t.Error("UpdatedAt was not set")
	}

	err := w.Transition(StateCompleted)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if w.State != StateGathering {
		t.Errorf("state changed on rejected transition: %s", w.State)
	}
}

func TestWorkflowInstance_CloneIsDeep(t *testing.T) {
	orig := &WorkflowInstance{
		ID: "w1",
		Slots: map[string]SlotValue{
			"incidentId": CandidateValue(LookupCandidate{ID: "INC-1", Label: "Phish", Fields: []DisplayField{{Name: "severity", Value: "high"}}}),
		},
		Candidates: map[string][]LookupCandidate{
			"incidentId": {{ID: "INC-1", Fields: []DisplayField{{Name: "status", Value: "open"}}}},
		},
		Attempts: map[string]int{"reportType": 1},
	}

	c := orig.Clone()
	c.Slots["incidentId"].Candidate.Fields[0].Value = "low"
	c.Candidates["incidentId"][0].Fields[0].Value = "closed"
	c.Attempts["reportType"] = 5
	c.Slots["notes"] = TextValue("x")

	if got := orig.Slots["incidentId"].Candidate.Fields[0].Value; got != "high" {
		t.Errorf("slot candidate shared with clone: %s", got)
	}
	if got := orig.Candidates["incidentId"][0].Fields[0].Value; got != "open" {
		t.Errorf("candidate list shared with clone: %s", got)
	}
	if orig.Attempts["reportType"] != 1 || orig.HasSlot("notes") {
		t.Error("maps shared with clone")
	}

	var nilInst *WorkflowInstance
	if nilInst.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestSlotValue_String(t *testing.T) {
	if got := TextValue("technical").String(); got != "technical" {
		t.Errorf("got %q", got)
	}
	v := CandidateValue(LookupCandidate{ID: "INC-2024-0042", Label: "Ransomware on FS-01"})
	if got := v.String(); got != "INC-2024-0042 — Ransomware on FS-01" {
		t.Errorf("got %q", got)
	}
	if v.Text != "INC-2024-0042" {
		t.Errorf("candidate value text = %q", v.Text)
	}
}
