package service

import "socflow/internal/domain/entity"

func testDefinitions() []entity.TaskDefinition {
	return []entity.TaskDefinition{
		{
			Type:   entity.TaskIncidentReport,
			Title:  "Incident report",
			Stages: []entity.Stage{{Name: "collect"}, {Name: "analyze"}, {Name: "draft"}, {Name: "review"}},
			Slots: []entity.SlotSpec{
				{Name: "incidentId", Required: true, Prompt: "Which incident?", Answer: entity.LookupAnswer{Key: "incidents"}},
				{Name: "reportType", Required: true, Prompt: "Which type?", Answer: entity.ChoiceAnswer{Options: []string{"executive", "technical", "forensic", "compliance"}}},
				{Name: "includeTimeline", Prompt: "Timeline?", Answer: entity.ChoiceAnswer{Options: []string{"yes", "no"}}, Default: "yes"},
				{Name: "additionalNotes", Prompt: "Notes?", Answer: entity.FreeTextAnswer{}},
			},
			Matchers: []entity.PhraseMatcher{
				{Groups: [][]string{{"generate", "create", "build"}, {"report"}}},
				{Groups: [][]string{{"incident report"}}},
			},
		},
		{
			Type:   entity.TaskMalwareAnalysis,
			Title:  "Malware analysis",
			Stages: []entity.Stage{{Name: "identify"}},
			Slots: []entity.SlotSpec{
				{Name: "sampleHash", Required: true, Prompt: "Hash?", Answer: entity.FreeTextAnswer{}},
			},
			Matchers: []entity.PhraseMatcher{
				{Groups: [][]string{{"analyze", "investigate"}, {"malware", "ransomware", "sample"}}},
			},
		},
		{
			Type:   entity.TaskPlaybook,
			Title:  "Response playbook",
			Stages: []entity.Stage{{Name: "plan"}},
			Matchers: []entity.PhraseMatcher{
				{Groups: [][]string{{"create", "build"}, {"playbook", "report"}}},
			},
		},
	}
}

func mustCatalog(defs ...entity.TaskDefinition) *TaskCatalog {
	c, err := NewTaskCatalog(defs...)
	if err != nil {
		panic(err)
	}
	return c
}
