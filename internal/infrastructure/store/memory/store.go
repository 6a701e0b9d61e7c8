package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"socflow/internal/application/port/output"
	"socflow/internal/domain/entity"
)

var _ output.WorkflowStore = (*Store)(nil)

// Store keeps live workflows in process memory, keyed by conversation ID.
// Entries do not survive a restart.
type Store struct {
	mu        sync.RWMutex
	workflows map[string]*entity.WorkflowInstance
	now       func() time.Time
}

func New() *Store {
	return &Store{
		workflows: make(map[string]*entity.WorkflowInstance),
		now:       time.Now,
	}
}

func (s *Store) Create(ctx context.Context, conversationID string, taskType entity.TaskType, initial map[string]entity.SlotValue) (*entity.WorkflowInstance, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("conversation id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workflows[conversationID]; exists {
		return nil, fmt.Errorf("%w: %s", entity.ErrWorkflowExists, conversationID)
	}

	now := s.now()
	inst := &entity.WorkflowInstance{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		TaskType:       taskType,
		Slots:          make(map[string]entity.SlotValue, len(initial)),
		State:          entity.StateInitiated,
		Candidates:     make(map[string][]entity.LookupCandidate),
		Attempts:       make(map[string]int),
		StartedAt:      now,
		UpdatedAt:      now,
	}
	for k, v := range initial {
		inst.Slots[k] = v
	}

	s.workflows[conversationID] = inst
	return inst.Clone(), nil
}

func (s *Store) Get(ctx context.Context, conversationID string) (*entity.WorkflowInstance, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.workflows[conversationID]
	if !ok {
		return nil, false, nil
	}
	return inst.Clone(), true, nil
}

func (s *Store) Put(ctx context.Context, conversationID string, inst *entity.WorkflowInstance) error {
	if inst == nil {
		return fmt.Errorf("workflow instance is nil")
	}
	if inst.ConversationID != conversationID {
		return fmt.Errorf("workflow %s belongs to conversation %s, not %s", inst.ID, inst.ConversationID, conversationID)
	}
	if inst.State.Terminal() {
		return fmt.Errorf("workflow %s is %s and cannot be stored", inst.ID, inst.State)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.workflows[conversationID] = inst.Clone()
	return nil
}

func (s *Store) Remove(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.workflows, conversationID)
	return nil
}

func (s *Store) SetStage(ctx context.Context, conversationID, workflowID string, stageIndex int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.workflows[conversationID]
	if !ok || inst.ID != workflowID || inst.State != entity.StateExecuting {
		return false, nil
	}
	inst.StageIndex = stageIndex
	inst.UpdatedAt = s.now()
	return true, nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.workflows)
}
