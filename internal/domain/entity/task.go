package entity

import (
	"fmt"
	"slices"
	"strings"
)

type TaskType string

const (
	TaskIncidentReport  TaskType = "incident_report_generation"
	TaskMalwareAnalysis TaskType = "malware_analysis"
	TaskThreatHunt      TaskType = "threat_hunt"
	TaskIOCAnalysis     TaskType = "ioc_analysis"
	TaskPlaybook        TaskType = "playbook_generation"
)

func (t TaskType) String() string {
	return string(t)
}

type AnswerShape string

const (
	ShapeFreeText AnswerShape = "free-text"
	ShapeChoices  AnswerShape = "selection-from-choices"
	ShapeLookup   AnswerShape = "selection-from-lookup"
)

type Stage struct {
	Name        string
	Description string
}

// AnswerKind is the shape-specific part of a slot. FreeTextAnswer,
// ChoiceAnswer and LookupAnswer are its only implementations.
type AnswerKind interface {
	Shape() AnswerShape
	validate(slot, def string) error
}

type FreeTextAnswer struct{}

func (FreeTextAnswer) Shape() AnswerShape { return ShapeFreeText }

func (FreeTextAnswer) validate(string, string) error { return nil }

// ChoiceAnswer restricts the answer to a static list. Earlier options win
// ambiguous matches.
type ChoiceAnswer struct {
	Options []string
}

func (ChoiceAnswer) Shape() AnswerShape { return ShapeChoices }

func (c ChoiceAnswer) validate(slot, def string) error {
	if len(c.Options) == 0 {
		return fmt.Errorf("slot %s: choices slot needs at least one choice", slot)
	}
	for _, o := range c.Options {
		if strings.TrimSpace(o) == "" {
			return fmt.Errorf("slot %s: blank choice", slot)
		}
	}
	if def != "" && !slices.Contains(c.Options, def) {
		return fmt.Errorf("slot %s: default %q is not one of the choices", slot, def)
	}
	return nil
}

// LookupAnswer selects a record from the lookup provider; Key names the
// record set.
type LookupAnswer struct {
	Key string
}

func (LookupAnswer) Shape() AnswerShape { return ShapeLookup }

func (l LookupAnswer) validate(slot, _ string) error {
	if l.Key == "" {
		return fmt.Errorf("slot %s: lookup slot needs a lookup key", slot)
	}
	return nil
}

// ParseAnswerKind builds the variant for a declared shape name. Options are
// only accepted for choices and key only for lookups.
func ParseAnswerKind(shape string, options []string, key string) (AnswerKind, error) {
	switch AnswerShape(shape) {
	case ShapeFreeText:
		if len(options) > 0 || key != "" {
			return nil, fmt.Errorf("free-text slot cannot carry choices or a lookup key")
		}
		return FreeTextAnswer{}, nil
	case ShapeChoices:
		if key != "" {
			return nil, fmt.Errorf("choices slot cannot carry a lookup key")
		}
		return ChoiceAnswer{Options: options}, nil
	case ShapeLookup:
		if len(options) > 0 {
			return nil, fmt.Errorf("lookup slot cannot carry static choices")
		}
		return LookupAnswer{Key: key}, nil
	default:
		return nil, fmt.Errorf("unknown answer shape %q", shape)
	}
}

// SlotSpec describes one named piece of information a task needs.
type SlotSpec struct {
	Name     string
	Required bool
	Prompt   string
	Default  string
	Answer   AnswerKind
}

func (s SlotSpec) Shape() AnswerShape {
	if s.Answer == nil {
		return ""
	}
	return s.Answer.Shape()
}

func (s SlotSpec) HasDefault() bool {
	return s.Default != ""
}

func (s SlotSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("slot name is required")
	}
	if s.Prompt == "" {
		return fmt.Errorf("slot %s: prompt is required", s.Name)
	}
	if s.Answer == nil {
		return fmt.Errorf("slot %s: answer shape is required", s.Name)
	}
	return s.Answer.validate(s.Name, s.Default)
}

// PhraseMatcher succeeds when every group has at least one of its terms in the
// utterance.
type PhraseMatcher struct {
	Groups [][]string
}

type TaskDefinition struct {
	Type     TaskType
	Title    string
	Stages   []Stage
	Slots    []SlotSpec
	Matchers []PhraseMatcher
}

func (d TaskDefinition) Slot(name string) (SlotSpec, bool) {
	for _, s := range d.Slots {
		if s.Name == name {
			return s, true
		}
	}
	return SlotSpec{}, false
}

func (d TaskDefinition) Validate() error {
	if d.Type == "" {
		return fmt.Errorf("task type is required")
	}
	if len(d.Stages) == 0 {
		return fmt.Errorf("task %s: at least one stage is required", d.Type)
	}

	seen := make(map[string]bool, len(d.Slots))
	for _, s := range d.Slots {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("task %s: %w", d.Type, err)
		}
		if seen[s.Name] {
			return fmt.Errorf("task %s: duplicate slot %s", d.Type, s.Name)
		}
		seen[s.Name] = true
	}

	for i, m := range d.Matchers {
		if len(m.Groups) == 0 {
			return fmt.Errorf("task %s: matcher %d has no term groups", d.Type, i)
		}
		for _, g := range m.Groups {
			if len(g) == 0 {
				return fmt.Errorf("task %s: matcher %d has an empty term group", d.Type, i)
			}
			for _, term := range g {
				if strings.TrimSpace(term) == "" {
					return fmt.Errorf("task %s: matcher %d has a blank term", d.Type, i)
				}
			}
		}
	}

	return nil
}
