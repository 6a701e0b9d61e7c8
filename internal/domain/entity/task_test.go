package entity

import (
	"strings"
	"testing"
)

func TestSlotSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    SlotSpec
		wantErr string
	}{
		{"free text", SlotSpec{Name: "notes", Prompt: "?", Answer: FreeTextAnswer{}}, ""},
		{"choices", SlotSpec{Name: "kind", Prompt: "?", Answer: ChoiceAnswer{Options: []string{"a"}}}, ""},
		{"choices with default", SlotSpec{Name: "kind", Prompt: "?", Default: "b", Answer: ChoiceAnswer{Options: []string{"a", "b"}}}, ""},
		{"lookup", SlotSpec{Name: "id", Prompt: "?", Answer: LookupAnswer{Key: "incidents"}}, ""},
		{"no name", SlotSpec{Prompt: "?", Answer: FreeTextAnswer{}}, "name is required"},
		{"no prompt", SlotSpec{Name: "x", Answer: FreeTextAnswer{}}, "prompt is required"},
		{"no answer shape", SlotSpec{Name: "x", Prompt: "?"}, "answer shape is required"},
		{"empty choices", SlotSpec{Name: "x", Prompt: "?", Answer: ChoiceAnswer{}}, "at least one choice"},
		{"blank choice", SlotSpec{Name: "x", Prompt: "?", Answer: ChoiceAnswer{Options: []string{"a", " "}}}, "blank choice"},
		{"default outside choices", SlotSpec{Name: "x", Prompt: "?", Default: "c", Answer: ChoiceAnswer{Options: []string{"a", "b"}}}, "not one of the choices"},
		{"lookup without key", SlotSpec{Name: "x", Prompt: "?", Answer: LookupAnswer{}}, "needs a lookup key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseAnswerKind(t *testing.T) {
	tests := []struct {
		shape   string
		options []string
		key     string
		want    AnswerKind
		wantErr string
	}{
		{shape: "free-text", want: FreeTextAnswer{}},
		{shape: "selection-from-choices", options: []string{"yes", "no"}, want: ChoiceAnswer{Options: []string{"yes", "no"}}},
		{shape: "selection-from-lookup", key: "incidents", want: LookupAnswer{Key: "incidents"}},
		{shape: "free-text", options: []string{"a"}, wantErr: "free-text slot cannot carry"},
		{shape: "free-text", key: "incidents", wantErr: "free-text slot cannot carry"},
		{shape: "selection-from-choices", options: []string{"a"}, key: "incidents", wantErr: "cannot carry a lookup key"},
		{shape: "selection-from-lookup", options: []string{"a"}, key: "incidents", wantErr: "cannot carry static choices"},
		{shape: "voice", wantErr: "unknown answer shape"},
	}

	for _, tt := range tests {
		got, err := ParseAnswerKind(tt.shape, tt.options, tt.key)
		if tt.wantErr != "" {
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ParseAnswerKind(%s, %v, %q): expected error containing %q, got %v", tt.shape, tt.options, tt.key, tt.wantErr, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAnswerKind(%s): unexpected error: %v", tt.shape, err)
			continue
		}
		if got.Shape() != tt.want.Shape() {
			t.Errorf("ParseAnswerKind(%s) shape = %s, want %s", tt.shape, got.Shape(), tt.want.Shape())
		}
	}
}

func TestSlotSpec_Shape(t *testing.T) {
	if got := (SlotSpec{Answer: LookupAnswer{Key: "incidents"}}).Shape(); got != ShapeLookup {
		t.Errorf("Shape() = %s", got)
	}
	if got := (SlotSpec{}).Shape(); got != "" {
		t.Errorf("Shape() of a slot without an answer kind = %q", got)
	}
}

func TestTaskDefinition_Validate(t *testing.T) {
	base := TaskDefinition{
		Type:     TaskThreatHunt,
		Stages:   []Stage{{Name: "hunt"}},
		Slots:    []SlotSpec{{Name: "scope", Prompt: "?", Answer: FreeTextAnswer{}}},
		Matchers: []PhraseMatcher{{Groups: [][]string{{"hunt"}}}},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dup := base
	dup.Slots = append([]SlotSpec{}, base.Slots[0], base.Slots[0])
	if err := dup.Validate(); err == nil || !strings.Contains(err.Error(), "duplicate slot") {
		t.Errorf("expected duplicate slot error, got %v", err)
	}

	blank := base
	blank.Matchers = []PhraseMatcher{{Groups: [][]string{{" "}}}}
	if err := blank.Validate(); err == nil {
		t.Error("expected blank term error")
	}

	if _, ok := base.Slot("scope"); !ok {
		t.Error("Slot(scope) not found")
	}
	if _, ok := base.Slot("missing"); ok {
		t.Error("Slot(missing) found")
	}
}
