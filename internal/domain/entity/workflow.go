package entity

import (
	"fmt"
	"time"
)

type LifecycleState string

const (
	StateInitiated  LifecycleState = "initiated"
	StateGathering  LifecycleState = "gathering"
	StateConfirming LifecycleState = "confirming"
	StateExecuting  LifecycleState = "executing"
	StateCompleted  LifecycleState = "completed"
	StateCancelled  LifecycleState = "cancelled"
)

var validTransitions = map[LifecycleState][]LifecycleState{
	StateInitiated:  {StateGathering, StateCancelled},
	StateGathering:  {StateGathering, StateConfirming, StateCancelled},
	StateConfirming: {StateExecuting, StateCancelled},
	StateExecuting:  {StateCompleted},
	StateCompleted:  {},
	StateCancelled:  {},
}

func (s LifecycleState) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

func CanTransition(from, to LifecycleState) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type DisplayField struct {
	Name  string
	Value string
}

type LookupCandidate struct {
	ID       string
	Label    string
	Fields   []DisplayField
	Position int
}

// SlotValue holds either free text / a matched choice or a lookup candidate.
type SlotValue struct {
	Text      string
	Candidate *LookupCandidate
}

func TextValue(s string) SlotValue {
	return SlotValue{Text: s}
}

func CandidateValue(c LookupCandidate) SlotValue {
	return SlotValue{Text: c.ID, Candidate: &c}
}

func (v SlotValue) String() string {
	if v.Candidate != nil {
		return fmt.Sprintf("%s — %s", v.Candidate.ID, v.Candidate.Label)
	}
	return v.Text
}

type ResolvedAnswer struct {
	OK     bool
	Value  SlotValue
	Reason string
}

func Resolved(v SlotValue) ResolvedAnswer {
	return ResolvedAnswer{OK: true, Value: v}
}

func Unresolved(reason string) ResolvedAnswer {
	return ResolvedAnswer{Reason: reason}
}

type WorkflowInstance struct {
	ID             string
	ConversationID string
	TaskType       TaskType
	StageIndex     int
	Slots          map[string]SlotValue
	PendingSlot    string
	State          LifecycleState
	Candidates     map[string][]LookupCandidate
	Attempts       map[string]int
	StartedAt      time.Time
	UpdatedAt      time.Time
}

func (w *WorkflowInstance) HasSlot(name string) bool {
	_, ok := w.Slots[name]
	return ok
}

func (w *WorkflowInstance) SlotNames() []string {
	names := make([]string, 0, len(w.Slots))
	for name := range w.Slots {
		names = append(names, name)
	}
	return names
}

func (w *WorkflowInstance) Transition(to LifecycleState) error {
	if !CanTransition(w.State, to) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, w.State, to)
	}
	w.State = to
	w.UpdatedAt = time.Now()
	return nil
}

func (w *WorkflowInstance) Clone() *WorkflowInstance {
	if w == nil {
		return nil
	}

	c := *w
	c.Slots = make(map[string]SlotValue, len(w.Slots))
	for k, v := range w.Slots {
		if v.Candidate != nil {
			cand := cloneCandidate(*v.Candidate)
			v.Candidate = &cand
		}
		c.Slots[k] = v
	}

	c.Candidates = make(map[string][]LookupCandidate, len(w.Candidates))
	for k, list := range w.Candidates {
		cp := make([]LookupCandidate, len(list))
		for i, cand := range list {
			cp[i] = cloneCandidate(cand)
		}
		c.Candidates[k] = cp
	}

	c.Attempts = make(map[string]int, len(w.Attempts))
	for k, v := range w.Attempts {
		c.Attempts[k] = v
	}

	return &c
}

func cloneCandidate(c LookupCandidate) LookupCandidate {
	if c.Fields != nil {
		fields := make([]DisplayField, len(c.Fields))
		copy(fields, c.Fields)
		c.Fields = fields
	}
	return c
}
