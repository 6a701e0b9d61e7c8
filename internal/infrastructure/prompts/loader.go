package prompts

import (
	_ "embed"
)

//go:embed question.tmpl
var QuestionTemplate string

//go:embed summary.tmpl
var SummaryTemplate string

//go:embed system.txt
var ExecutionSystemPrompt string

//go:embed intent.txt
var IntentPrompt string
