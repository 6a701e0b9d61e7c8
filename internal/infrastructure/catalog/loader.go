package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"socflow/internal/application/service"
	"socflow/internal/domain/entity"
)

//go:embed catalog.yaml
var DefaultCatalog []byte

type fileSpec struct {
	Tasks []taskSpec `yaml:"tasks"`
}

type taskSpec struct {
	Type     string       `yaml:"type"`
	Title    string       `yaml:"title"`
	Stages   []stageSpec  `yaml:"stages"`
	Slots    []slotSpec   `yaml:"slots"`
	Matchers [][][]string `yaml:"matchers"`
}

type stageSpec struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type slotSpec struct {
	Name     string   `yaml:"name"`
	Required bool     `yaml:"required"`
	Shape    string   `yaml:"shape"`
	Prompt   string   `yaml:"prompt"`
	Default  string   `yaml:"default"`
	Choices  []string `yaml:"choices"`
	Lookup   string   `yaml:"lookup"`
}

// Parse decodes a YAML catalog into task definitions, in file order.
func Parse(data []byte) ([]entity.TaskDefinition, error) {
	var f fileSpec
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(f.Tasks) == 0 {
		return nil, fmt.Errorf("catalog declares no tasks")
	}

	defs := make([]entity.TaskDefinition, 0, len(f.Tasks))
	for _, t := range f.Tasks {
		def := entity.TaskDefinition{
			Type:  entity.TaskType(t.Type),
			Title: t.Title,
		}
		for _, s := range t.Stages {
			def.Stages = append(def.Stages, entity.Stage{Name: s.Name, Description: s.Description})
		}
		for _, s := range t.Slots {
			answer, err := entity.ParseAnswerKind(s.Shape, s.Choices, s.Lookup)
			if err != nil {
				return nil, fmt.Errorf("task %s slot %s: %w", t.Type, s.Name, err)
			}
			def.Slots = append(def.Slots, entity.SlotSpec{
				Name:     s.Name,
				Required: s.Required,
				Prompt:   s.Prompt,
				Default:  s.Default,
				Answer:   answer,
			})
		}
		for _, groups := range t.Matchers {
			def.Matchers = append(def.Matchers, entity.PhraseMatcher{Groups: groups})
		}
		defs = append(defs, def)
	}

	return defs, nil
}

// Load builds a TaskCatalog from path, or from the embedded default catalog
// when path is empty.
func Load(path string) (*service.TaskCatalog, error) {
	data := DefaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		data = b
	}

	defs, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return service.NewTaskCatalog(defs...)
}

func MustDefault() *service.TaskCatalog {
	c, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}
