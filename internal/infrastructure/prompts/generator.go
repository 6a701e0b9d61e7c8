package prompts

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"socflow/internal/domain/entity"
)

const (
	markerDone    = "✓"
	markerCurrent = "▶"
	markerPending = "○"
)

var funcs = template.FuncMap{
	"join": strings.Join,
}

type CandidateView struct {
	Number int
	ID     string
	Label  string
	Fields string
}

type QuestionData struct {
	Prompt     string
	Reason     string
	Choices    []string
	Candidates []CandidateView
	Manual     bool
}

type SlotView struct {
	Name  string
	Value string
}

type StageView struct {
	Number      int
	Marker      string
	Name        string
	Description string
}

type WorkflowData struct {
	Title    string
	TaskType string
	Slots    []SlotView
	Stages   []StageView
}

type TaskView struct {
	Type  string
	Title string
}

type IntentData struct {
	Tasks []TaskView
}

// Formatter renders user-facing questions and summaries. Templates are parsed
// once at construction.
type Formatter struct {
	question  *template.Template
	summary   *template.Template
	execution *template.Template
	intent    *template.Template
}

func NewFormatter() (*Formatter, error) {
	return NewFormatterFromTemplates(QuestionTemplate, SummaryTemplate, ExecutionSystemPrompt, IntentPrompt)
}

func NewFormatterFromTemplates(question, summary, execution, intent string) (*Formatter, error) {
	q, err := template.New("question").Funcs(funcs).Parse(question)
	if err != nil {
		return nil, fmt.Errorf("parse question template: %w", err)
	}
	s, err := template.New("summary").Funcs(funcs).Parse(summary)
	if err != nil {
		return nil, fmt.Errorf("parse summary template: %w", err)
	}
	e, err := template.New("execution").Funcs(funcs).Parse(execution)
	if err != nil {
		return nil, fmt.Errorf("parse execution template: %w", err)
	}
	i, err := template.New("intent").Funcs(funcs).Parse(intent)
	if err != nil {
		return nil, fmt.Errorf("parse intent template: %w", err)
	}

	return &Formatter{question: q, summary: s, execution: e, intent: i}, nil
}

// Question renders the prompt for spec. For lookup slots an empty candidate
// list switches to manual identifier entry.
func (f *Formatter) Question(spec entity.SlotSpec, candidates []entity.LookupCandidate, reason string) (string, error) {
	data := QuestionData{
		Prompt: spec.Prompt,
		Reason: reason,
	}

	switch answer := spec.Answer.(type) {
	case entity.ChoiceAnswer:
		data.Choices = answer.Options
	case entity.LookupAnswer:
		if len(candidates) == 0 {
			data.Manual = true
		}
		for i, c := range candidates {
			data.Candidates = append(data.Candidates, CandidateView{
				Number: i + 1,
				ID:     c.ID,
				Label:  c.Label,
				Fields: formatFields(c.Fields),
			})
		}
	}

	return render(f.question, data)
}

func (f *Formatter) Summary(def entity.TaskDefinition, inst *entity.WorkflowInstance) (string, error) {
	return render(f.summary, workflowData(def, inst))
}

func (f *Formatter) ExecutionPrompt(def entity.TaskDefinition, inst *entity.WorkflowInstance) (string, error) {
	return render(f.execution, workflowData(def, inst))
}

func (f *Formatter) IntentPrompt(defs []entity.TaskDefinition) (string, error) {
	data := IntentData{Tasks: make([]TaskView, 0, len(defs))}
	for _, d := range defs {
		data.Tasks = append(data.Tasks, TaskView{Type: string(d.Type), Title: d.Title})
	}
	return render(f.intent, data)
}

func workflowData(def entity.TaskDefinition, inst *entity.WorkflowInstance) WorkflowData {
	data := WorkflowData{
		Title:    def.Title,
		TaskType: string(def.Type),
	}
	if data.Title == "" {
		data.Title = string(def.Type)
	}

	for _, s := range def.Slots {
		v, ok := inst.Slots[s.Name]
		if !ok || v.String() == "" {
			continue
		}
		data.Slots = append(data.Slots, SlotView{Name: s.Name, Value: v.String()})
	}

	for i, st := range def.Stages {
		marker := markerPending
		switch {
		case i < inst.StageIndex:
			marker = markerDone
		case i == inst.StageIndex:
			marker = markerCurrent
		}
		data.Stages = append(data.Stages, StageView{
			Number:      i + 1,
			Marker:      marker,
			Name:        st.Name,
			Description: st.Description,
		})
	}

	return data
}

func formatFields(fields []entity.DisplayField) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", f.Name, f.Value))
	}
	return strings.Join(parts, ", ")
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}
