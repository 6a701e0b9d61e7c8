package service

import (
	"testing"

	"socflow/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskCatalog_Lookups(t *testing.T) {
	c := mustCatalog(testDefinitions()...)

	assert.Equal(t, []entity.TaskType{entity.TaskIncidentReport, entity.TaskMalwareAnalysis, entity.TaskPlaybook}, c.Types())
	assert.True(t, c.Has(entity.TaskIncidentReport))

	stages := c.StagesFor(entity.TaskIncidentReport)
	require.Len(t, stages, 4)
	assert.Equal(t, "review", stages[3].Name)

	slots := c.SlotsFor(entity.TaskIncidentReport)
	assert.Len(t, slots, 4)
	assert.Equal(t, entity.ShapeLookup, slots["incidentId"].Shape())

	ordered := c.OrderedSlots(entity.TaskIncidentReport)
	assert.Equal(t, "incidentId", ordered[0].Name)
	assert.Equal(t, "additionalNotes", ordered[3].Name)
}

func TestTaskCatalog_UnknownTypeIsEmpty(t *testing.T) {
	c := mustCatalog(testDefinitions()...)
	unknown := entity.TaskType("make_coffee")

	assert.False(t, c.Has(unknown))
	assert.Empty(t, c.StagesFor(unknown))
	assert.Empty(t, c.SlotsFor(unknown))
	assert.NotNil(t, c.SlotsFor(unknown))
	assert.Empty(t, c.OrderedSlots(unknown))
	assert.Empty(t, c.MissingRequired(unknown, nil))

	_, ok := c.Definition(unknown)
	assert.False(t, ok)
}

func TestTaskCatalog_MissingRequired(t *testing.T) {
	c := mustCatalog(testDefinitions()...)

	missing := c.MissingRequired(entity.TaskIncidentReport, map[string]entity.SlotValue{})
	require.Len(t, missing, 2)
	assert.Equal(t, "incidentId", missing[0].Name)
	assert.Equal(t, "reportType", missing[1].Name)

	missing = c.MissingRequired(entity.TaskIncidentReport, map[string]entity.SlotValue{
		"incidentId":      entity.TextValue("INC-1"),
		"additionalNotes": entity.TextValue("none"),
	})
	require.Len(t, missing, 1)
	assert.Equal(t, "reportType", missing[0].Name)
}

func TestTaskCatalog_ReturnsCopies(t *testing.T) {
	c := mustCatalog(testDefinitions()...)

	stages := c.StagesFor(entity.TaskIncidentReport)
	stages[0].Name = "mutated"

	assert.Equal(t, "collect", c.StagesFor(entity.TaskIncidentReport)[0].Name)
}

func TestTaskCatalog_RejectsInvalidDefinitions(t *testing.T) {
	defs := testDefinitions()

	_, err := NewTaskCatalog(defs[0], defs[0])
	assert.ErrorContains(t, err, "already registered")

	bad := defs[1]
	bad.Slots = []entity.SlotSpec{{Name: "x", Prompt: "?", Answer: entity.ChoiceAnswer{}}}
	_, err = NewTaskCatalog(bad)
	assert.ErrorContains(t, err, "needs at least one choice")

	bad = defs[1]
	bad.Stages = nil
	_, err = NewTaskCatalog(bad)
	assert.ErrorContains(t, err, "at least one stage")
}
