package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socflow/internal/domain/entity"
)

func TestStore_CreateGetRemove(t *testing.T) {
	ctx := context.Background()
	s := New()

	inst, err := s.Create(ctx, "c1", entity.TaskIncidentReport, map[string]entity.SlotValue{
		"reportType": entity.TextValue("technical"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, inst.ID)
	assert.Equal(t, "c1", inst.ConversationID)
	assert.Equal(t, entity.StateInitiated, inst.State)
	assert.Equal(t, 0, inst.StageIndex)
	assert.Equal(t, "technical", inst.Slots["reportType"].Text)
	assert.Equal(t, 1, s.Len())

	got, ok, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, inst.ID, got.ID)

	require.NoError(t, s.Remove(ctx, "c1"))
	require.NoError(t, s.Remove(ctx, "c1"))
	_, ok, err = s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStore_CreateRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Create(ctx, "c1", entity.TaskIncidentReport, nil)
	require.NoError(t, err)

	_, err = s.Create(ctx, "c1", entity.TaskMalwareAnalysis, nil)
	assert.ErrorIs(t, err, entity.ErrWorkflowExists)

	_, err = s.Create(ctx, "", entity.TaskMalwareAnalysis, nil)
	assert.Error(t, err)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Create(ctx, "c1", entity.TaskIncidentReport, nil)
	require.NoError(t, err)

	got, _, _ := s.Get(ctx, "c1")
	got.Slots["incidentId"] = entity.TextValue("INC-1")
	got.State = entity.StateGathering

	again, _, _ := s.Get(ctx, "c1")
	assert.Empty(t, again.Slots)
	assert.Equal(t, entity.StateInitiated, again.State)

	require.NoError(t, s.Put(ctx, "c1", got))
	again, _, _ = s.Get(ctx, "c1")
	assert.Equal(t, "INC-1", again.Slots["incidentId"].Text)
	assert.Equal(t, entity.StateGathering, again.State)
}

func TestStore_PutValidation(t *testing.T) {
	ctx := context.Background()
	s := New()

	inst, err := s.Create(ctx, "c1", entity.TaskIncidentReport, nil)
	require.NoError(t, err)

	assert.Error(t, s.Put(ctx, "c1", nil))
	assert.Error(t, s.Put(ctx, "c2", inst))

	inst.State = entity.StateCancelled
	assert.Error(t, s.Put(ctx, "c1", inst))
}

func TestStore_ConversationsAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := New()

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			inst, err := s.Create(ctx, id, entity.TaskThreatHunt, nil)
			if !assert.NoError(t, err) {
				return
			}
			inst.Slots["huntScope"] = entity.TextValue(id)
			assert.NoError(t, s.Put(ctx, id, inst))
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 8, s.Len())
	got, ok, err := s.Get(ctx, "c")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "c", got.Slots["huntScope"].Text)
}

func TestStore_SetStage(t *testing.T) {
	ctx := context.Background()
	s := New()

	inst, err := s.Create(ctx, "c1", entity.TaskIncidentReport, nil)
	require.NoError(t, err)

	live, err := s.SetStage(ctx, "c1", inst.ID, 1)
	require.NoError(t, err)
	assert.False(t, live, "not executing yet")

	inst.State = entity.StateExecuting
	require.NoError(t, s.Put(ctx, "c1", inst))

	live, err = s.SetStage(ctx, "c1", inst.ID, 2)
	require.NoError(t, err)
	assert.True(t, live)
	got, _, _ := s.Get(ctx, "c1")
	assert.Equal(t, 2, got.StageIndex)

	live, err = s.SetStage(ctx, "c1", "another-workflow", 3)
	require.NoError(t, err)
	assert.False(t, live)

	require.NoError(t, s.Remove(ctx, "c1"))
	live, err = s.SetStage(ctx, "c1", inst.ID, 3)
	require.NoError(t, err)
	assert.False(t, live)
}
