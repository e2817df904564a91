package engine

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/skillprobe/interviewer/internal/llm"
)

// FollowupPrefix marks clarifying questions so main and follow-up asks can be
// told apart downstream.
const FollowupPrefix = "(Follow-up) "

// Followup produces at most one bounded clarifying question after a weak
// answer.
type Followup struct {
	gen    llm.Generator
	logger *zap.Logger
}

func NewFollowup(gen llm.Generator, log *zap.Logger) *Followup {
	if log == nil {
		log = zap.NewNop()
	}
	return &Followup{gen: gen, logger: log}
}

// Generate renders the follow-up prompt from the weak answer's evaluation and
// returns the clarifying question, normalized to end with a question mark.
func (f *Followup) Generate(ctx context.Context, question, answer, hint string, misconceptions []string) (string, error) {
	prompt := renderPrompt(followupPrompt, map[string]string{
		"QUESTION":       question,
		"ANSWER":         answer,
		"HINT":           hint,
		"MISCONCEPTIONS": strings.Join(misconceptions, ", "),
	})

	out, err := f.gen.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, nil)
	if err != nil {
		return "", err
	}

	out = strings.TrimSpace(out)
	if !strings.HasSuffix(out, "?") {
		out = strings.TrimRight(out, ".") + "?"
	}

	return FollowupPrefix + out, nil
}
