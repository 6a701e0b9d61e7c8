package entity

// IntentVerdict is the JSON reply expected from the language model when it is
// asked to pick a task type for an utterance the phrase matchers missed.
type IntentVerdict struct {
	TaskType   string  `json:"task_type"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

type IntentCriteria struct {
	Utterance string
	Tasks     []TaskDefinition
}
