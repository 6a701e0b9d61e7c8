package service

import (
	"fmt"

	"socflow/internal/domain/entity"
)

// TaskCatalog is the static registry of task definitions. Registration order
// is significant: intent ties are broken in favour of the earlier task.
type TaskCatalog struct {
	order []entity.TaskType
	tasks map[entity.TaskType]entity.TaskDefinition
}

func NewTaskCatalog(defs ...entity.TaskDefinition) (*TaskCatalog, error) {
	c := &TaskCatalog{
		tasks: make(map[entity.TaskType]entity.TaskDefinition, len(defs)),
	}
	for _, d := range defs {
		if err := c.Register(d); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *TaskCatalog) Register(def entity.TaskDefinition) error {
	if err := def.Validate(); err != nil {
		return fmt.Errorf("invalid task definition: %w", err)
	}
	if _, exists := c.tasks[def.Type]; exists {
		return fmt.Errorf("task %s already registered", def.Type)
	}
	c.tasks[def.Type] = def
	c.order = append(c.order, def.Type)
	return nil
}

func (c *TaskCatalog) Definition(taskType entity.TaskType) (entity.TaskDefinition, bool) {
	def, ok := c.tasks[taskType]
	return def, ok
}

func (c *TaskCatalog) Has(taskType entity.TaskType) bool {
	_, ok := c.tasks[taskType]
	return ok
}

func (c *TaskCatalog) StagesFor(taskType entity.TaskType) []entity.Stage {
	def, ok := c.tasks[taskType]
	if !ok {
		return nil
	}
	out := make([]entity.Stage, len(def.Stages))
	copy(out, def.Stages)
	return out
}

func (c *TaskCatalog) SlotsFor(taskType entity.TaskType) map[string]entity.SlotSpec {
	def, ok := c.tasks[taskType]
	if !ok {
		return map[string]entity.SlotSpec{}
	}
	out := make(map[string]entity.SlotSpec, len(def.Slots))
	for _, s := range def.Slots {
		out[s.Name] = s
	}
	return out
}

// OrderedSlots returns slots in catalog-declared order.
func (c *TaskCatalog) OrderedSlots(taskType entity.TaskType) []entity.SlotSpec {
	def, ok := c.tasks[taskType]
	if !ok {
		return nil
	}
	out := make([]entity.SlotSpec, len(def.Slots))
	copy(out, def.Slots)
	return out
}

// MissingRequired lists required slots not yet present in filled, in
// declared order.
func (c *TaskCatalog) MissingRequired(taskType entity.TaskType, filled map[string]entity.SlotValue) []entity.SlotSpec {
	var missing []entity.SlotSpec
	for _, s := range c.OrderedSlots(taskType) {
		if !s.Required {
			continue
		}
		if _, ok := filled[s.Name]; !ok {
			missing = append(missing, s)
		}
	}
	return missing
}

func (c *TaskCatalog) Types() []entity.TaskType {
	out := make([]entity.TaskType, len(c.order))
	copy(out, c.order)
	return out
}

func (c *TaskCatalog) Definitions() []entity.TaskDefinition {
	out := make([]entity.TaskDefinition, 0, len(c.order))
	for _, t := range c.order {
		out = append(out, c.tasks[t])
	}
	return out
}
