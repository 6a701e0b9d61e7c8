package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socflow/internal/domain/entity"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []entity.TaskType{
		entity.TaskIncidentReport,
		entity.TaskMalwareAnalysis,
		entity.TaskThreatHunt,
		entity.TaskIOCAnalysis,
		entity.TaskPlaybook,
	}, c.Types())

	assert.Len(t, c.StagesFor(entity.TaskIncidentReport), 4)

	slots := c.SlotsFor(entity.TaskIncidentReport)
	require.Contains(t, slots, "incidentId")
	assert.Equal(t, entity.ShapeLookup, slots["incidentId"].Shape())
	assert.Equal(t, entity.LookupAnswer{Key: "incidents"}, slots["incidentId"].Answer)
	assert.Equal(t, entity.ChoiceAnswer{Options: []string{"executive", "technical", "forensic", "compliance"}}, slots["reportType"].Answer)
	assert.Equal(t, entity.FreeTextAnswer{}, slots["additionalNotes"].Answer)
	assert.Equal(t, "yes", slots["includeTimeline"].Default)
	assert.False(t, slots["additionalNotes"].Required)

	for _, tt := range c.Types() {
		assert.NotEmpty(t, c.StagesFor(tt), tt)
		assert.NotEmpty(t, c.MissingRequired(tt, nil), tt)
	}
}

func TestMustDefault(t *testing.T) {
	assert.NotPanics(t, func() { MustDefault() })
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("tasks: [oops"))
	assert.ErrorContains(t, err, "decode catalog")

	_, err = Parse([]byte("tasks: []"))
	assert.ErrorContains(t, err, "no tasks")
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := `
tasks:
  - type: phishing_triage
    title: Phishing triage
    stages:
      - name: inspect
    slots:
      - name: messageId
        required: true
        shape: free-text
        prompt: Which message?
    matchers:
      - [[triage], [phish]]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []entity.TaskType{"phishing_triage"}, c.Types())

	def, ok := c.Definition("phishing_triage")
	require.True(t, ok)
	require.Len(t, def.Matchers, 1)
	assert.Equal(t, [][]string{{"triage"}, {"phish"}}, def.Matchers[0].Groups)
}

func TestLoad_InvalidDefinition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := `
tasks:
  - type: broken
    stages:
      - name: only
    slots:
      - name: pick
        shape: selection-from-choices
        prompt: Pick one
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "needs at least one choice")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read catalog")
}

func TestParse_RejectsFieldsOfAnotherShape(t *testing.T) {
	data := `
tasks:
  - type: broken
    stages:
      - name: only
    slots:
      - name: notes
        shape: free-text
        choices: [a, b]
        prompt: Notes?
`
	_, err := Parse([]byte(data))
	assert.ErrorContains(t, err, "slot notes: free-text slot cannot carry choices")

	_, err = Parse([]byte(strings.Replace(data, "free-text", "voice", 1)))
	assert.ErrorContains(t, err, `unknown answer shape "voice"`)
}
