package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/skillprobe/interviewer/internal/llm"
	"github.com/skillprobe/interviewer/internal/seeds"
)

// stubGenerator routes replies by inspecting the rendered prompt, so the
// same stub can back a whole engine run. Zero-value reply fields fall back
// to sensible defaults.
type stubGenerator struct {
	questionReply string
	evalReply     string
	followupReply string
	summaryReply  string
	err           error

	questionCalls int
	evalCalls     int
	followupCalls int
	summaryCalls  int
}

func (s *stubGenerator) Chat(_ context.Context, msgs []llm.Message, _ llm.Options) (string, error) {
	if s.err != nil {
		return "", s.err
	}

	var joined strings.Builder
	for _, m := range msgs {
		joined.WriteString(m.Content)
		joined.WriteString("\n")
	}
	prompt := joined.String()

	switch {
	case strings.Contains(prompt, "final_grade"):
		s.summaryCalls++
		if s.summaryReply != "" {
			return s.summaryReply, nil
		}
		return `{"feedback": "Decent overall.", "strengths": ["clarity"], "recommendations": ["practice recursion"], "final_grade": 6.5, "signal": "borderline"}`, nil
	case strings.Contains(prompt, "Evaluator hint:"):
		s.followupCalls++
		if s.followupReply != "" {
			return s.followupReply, nil
		}
		return "Can you narrow that down", nil
	case strings.Contains(prompt, "accuracy"):
		s.evalCalls++
		if s.evalReply != "" {
			return s.evalReply, nil
		}
		return `{"accuracy": 8, "clarity": 7, "depth": 6, "followup_needed": false, "rationale": "Solid answer.", "hint": "", "misconceptions": []}`, nil
	default:
		s.questionCalls++
		if s.questionReply != "" {
			return s.questionReply, nil
		}
		return "What does the defer statement do", nil
	}
}

// scriptedReader replays canned answers; once exhausted it repeats the last
// one so runaway loops stay observable instead of deadlocking.
type scriptedReader struct {
	answers []string
	cursor  int
}

func (r *scriptedReader) ReadAnswer(context.Context) (string, error) {
	if len(r.answers) == 0 {
		return "", nil
	}
	if r.cursor >= len(r.answers) {
		return r.answers[len(r.answers)-1], nil
	}
	answer := r.answers[r.cursor]
	r.cursor++
	return answer, nil
}

func seedStore(t *testing.T, content string) *seeds.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return seeds.Load(path, zap.NewNop())
}
