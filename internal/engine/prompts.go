package engine

import (
	"strings"

	_ "embed"
)

//go:embed prompts/system.md
var systemPrompt string

//go:embed prompts/question.md
var questionPrompt string

//go:embed prompts/eval.md
var evalPrompt string

//go:embed prompts/followup.md
var followupPrompt string

//go:embed prompts/summary.md
var summaryPrompt string

// renderPrompt substitutes {{KEY}} placeholders in the template.
func renderPrompt(template string, vars map[string]string) string {
	for key, value := range vars {
		template = strings.ReplaceAll(template, "{{"+key+"}}", value)
	}
	return template
}
