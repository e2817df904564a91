package engine

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/skillprobe/interviewer/internal/interview"
)

func runEngine(t *testing.T, cfg Config, s *interview.Session) (*interview.Session, *bytes.Buffer) {
	t.Helper()

	out := &bytes.Buffer{}
	cfg.Out = out
	cfg.Logger = zap.NewNop()
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(1))
	}

	final, err := New(cfg).Run(context.Background(), s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return final, out
}

func TestRunHappyPath(t *testing.T) {
	gen := &stubGenerator{}
	reader := &scriptedReader{answers: []string{
		"A goroutine is a lightweight thread managed by the Go runtime.",
		"Defer schedules a call to run when the surrounding function returns.",
	}}

	s := interview.NewSession([]string{"Go", "SQL"}, interview.DifficultyMixed, 2, interview.TypeTheory, false)
	final, out := runEngine(t, Config{Generator: gen, Reader: reader, FollowupCap: 1}, s)

	if !final.Done {
		t.Fatal("session not marked done")
	}
	if final.Summary == nil {
		t.Fatal("summary missing")
	}
	if got := final.MainQuestionCount(); got != 2 {
		t.Fatalf("expected 2 main questions, got %d", got)
	}
	if len(final.Asked) != len(final.Answers) || len(final.Answers) != len(final.Evaluations) {
		t.Fatalf("history misaligned: asked=%d answers=%d evals=%d",
			len(final.Asked), len(final.Answers), len(final.Evaluations))
	}

	if final.Asked[0].Topic != "Go" || final.Asked[1].Topic != "SQL" {
		t.Fatalf("topic rotation broken: %+v", final.Asked)
	}

	text := out.String()
	if !strings.Contains(text, "Question 1 of 2") || !strings.Contains(text, "Question 2 of 2") {
		t.Fatalf("question headers missing:\n%s", text)
	}
	if !strings.Contains(text, "Interview Summary") {
		t.Fatalf("summary block missing:\n%s", text)
	}
}

func TestRunMixedDifficultyRotation(t *testing.T) {
	gen := &stubGenerator{}
	reader := &scriptedReader{answers: []string{"An answer with enough overlap about defer statement behavior."}}

	s := interview.NewSession([]string{"Go"}, interview.DifficultyMixed, 3, interview.TypeTheory, false)
	final, _ := runEngine(t, Config{Generator: gen, Reader: reader, FollowupCap: 0}, s)

	want := []string{interview.DifficultyEasy, interview.DifficultyMed, interview.DifficultyHard}
	if len(final.Asked) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(final.Asked))
	}
	for i, rec := range final.Asked {
		if rec.Difficulty != want[i] {
			t.Fatalf("question %d difficulty = %q, want %q", i, rec.Difficulty, want[i])
		}
	}
}

func TestRunFollowupBoundedByCap(t *testing.T) {
	gen := &stubGenerator{evalReply: `{"accuracy": 2, "clarity": 3, "depth": 1, "followup_needed": true, "rationale": "Shaky.", "hint": "Think harder.", "misconceptions": ["confused"]}`}
	reader := &scriptedReader{answers: []string{"The defer statement maybe runs the call at some point later."}}

	s := interview.NewSession([]string{"Go"}, interview.DifficultyEasy, 2, interview.TypeTheory, false)
	final, _ := runEngine(t, Config{Generator: gen, Reader: reader, FollowupCap: 1}, s)

	if !final.Done {
		t.Fatal("session not marked done")
	}
	if got := final.MainQuestionCount(); got != 2 {
		t.Fatalf("expected 2 main questions, got %d", got)
	}

	followups := 0
	for _, rec := range final.Asked {
		if rec.IsFollowup() {
			followups++
			if !strings.HasPrefix(rec.Question, FollowupPrefix) {
				t.Fatalf("follow-up record missing prefix: %q", rec.Question)
			}
			if rec.Topic != "Go" {
				t.Fatalf("follow-up topic not carried over: %+v", rec)
			}
		}
	}
	if followups != 2 {
		t.Fatalf("expected one follow-up per main question, got %d", followups)
	}
	if len(final.Asked) != len(final.Answers) || len(final.Answers) != len(final.Evaluations) {
		t.Fatalf("history misaligned: asked=%d answers=%d evals=%d",
			len(final.Asked), len(final.Answers), len(final.Evaluations))
	}
}

func TestRunZeroCapDisablesFollowups(t *testing.T) {
	gen := &stubGenerator{evalReply: `{"accuracy": 1, "clarity": 1, "depth": 1, "followup_needed": true, "rationale": "Weak.", "hint": "", "misconceptions": []}`}
	reader := &scriptedReader{answers: []string{"Something vague about the defer statement running later."}}

	s := interview.NewSession([]string{"Go"}, interview.DifficultyEasy, 2, interview.TypeTheory, false)
	final, _ := runEngine(t, Config{Generator: gen, Reader: reader, FollowupCap: 0}, s)

	for _, rec := range final.Asked {
		if rec.IsFollowup() {
			t.Fatalf("follow-up asked despite zero cap: %+v", rec)
		}
	}
	if got := final.MainQuestionCount(); got != 2 {
		t.Fatalf("expected 2 main questions, got %d", got)
	}
}

func TestRunSelectorFailureEndsGracefully(t *testing.T) {
	gen := &stubGenerator{err: errors.New("backend down")}
	reader := &scriptedReader{}

	s := interview.NewSession([]string{"Go"}, interview.DifficultyEasy, 2, interview.TypeTheory, false)
	final, out := runEngine(t, Config{Generator: gen, Reader: reader, FollowupCap: 1}, s)

	if !final.Done {
		t.Fatal("session not marked done after selector failure")
	}
	if len(final.Asked) != 0 {
		t.Fatalf("no question should have been asked, got %d", len(final.Asked))
	}
	if final.Summary == nil || final.Summary.Signal != "review" {
		t.Fatalf("expected fallback summary, got %+v", final.Summary)
	}
	if !strings.Contains(out.String(), "Error generating question") {
		t.Fatalf("failure notice missing:\n%s", out.String())
	}
}

func TestRunStepCeiling(t *testing.T) {
	gen := &stubGenerator{}
	reader := &scriptedReader{answers: []string{"A goroutine is a lightweight thread managed by the runtime."}}

	s := interview.NewSession([]string{"Go"}, interview.DifficultyEasy, 50, interview.TypeTheory, false)
	final, out := runEngine(t, Config{Generator: gen, Reader: reader, FollowupCap: 1, MaxSteps: 3}, s)

	if !final.Done {
		t.Fatal("session not marked done at step ceiling")
	}
	if final.Steps < 3 {
		t.Fatalf("expected at least 3 steps, got %d", final.Steps)
	}
	if final.MainQuestionCount() >= 50 {
		t.Fatal("ceiling did not cut the interview short")
	}
	if !strings.Contains(out.String(), "step limit") {
		t.Fatalf("ceiling notice missing:\n%s", out.String())
	}
}

func TestRunTopicPerformanceAccumulates(t *testing.T) {
	gen := &stubGenerator{evalReply: `{"accuracy": 6, "clarity": 6, "depth": 6, "overall": 6, "followup_needed": false, "rationale": "Fine.", "hint": "", "misconceptions": []}`}
	reader := &scriptedReader{answers: []string{"The defer statement delays the call until the function returns."}}

	s := interview.NewSession([]string{"Go"}, interview.DifficultyEasy, 2, interview.TypeTheory, false)
	final, _ := runEngine(t, Config{Generator: gen, Reader: reader, FollowupCap: 0}, s)

	stats, ok := final.TopicPerformance["Go"]
	if !ok {
		t.Fatal("topic stats missing")
	}
	if stats.Questions != 2 {
		t.Fatalf("expected 2 graded questions, got %d", stats.Questions)
	}
	if stats.Average() != 6 {
		t.Fatalf("expected average 6, got %v", stats.Average())
	}
}

func TestTransitionTable(t *testing.T) {
	e := New(Config{
		Generator:   &stubGenerator{},
		Reader:      &scriptedReader{},
		Out:         &bytes.Buffer{},
		Logger:      zap.NewNop(),
		FollowupCap: 1,
	})

	fresh := interview.NewSession([]string{"Go"}, interview.DifficultyEasy, 2, interview.TypeTheory, false)

	done := fresh.Clone()
	done.Done = true

	flagged := fresh.Clone()
	flagged.Evaluations = []interview.EvaluationRecord{{FollowupNeeded: true}}

	exhausted := flagged.Clone()
	exhausted.FollowupDepth = 1

	inFollowup := fresh.Clone()
	inFollowup.FollowupMode = true

	cases := []struct {
		name string
		from node
		s    *interview.Session
		want node
	}{
		{"select continues to ask", nodeSelect, fresh, nodeAsk},
		{"select short-circuits when done", nodeSelect, done, nodeSummarize},
		{"ask always evaluates", nodeAsk, fresh, nodeEvaluate},
		{"evaluate branches to followup when flagged", nodeEvaluate, flagged, nodeFollowup},
		{"evaluate skips followup at the cap", nodeEvaluate, exhausted, nodeFinalize},
		{"evaluate finalizes when unflagged", nodeEvaluate, fresh, nodeFinalize},
		{"followup re-asks when pending", nodeFollowup, inFollowup, nodeAsk},
		{"followup falls through when cleared", nodeFollowup, fresh, nodeFinalize},
		{"finalize loops back to select", nodeFinalize, fresh, nodeSelect},
		{"finalize ends with summary when done", nodeFinalize, done, nodeSummarize},
		{"summarize terminates", nodeSummarize, done, nodeEnd},
	}

	for _, tc := range cases {
		if got := e.nextNode(tc.from, tc.s); got != tc.want {
			t.Errorf("%s: %s -> %s, want %s", tc.name, tc.from, got, tc.want)
		}
	}
}

func TestRunContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(Config{
		Generator: &stubGenerator{},
		Reader:    &scriptedReader{},
		Out:       &bytes.Buffer{},
		Logger:    zap.NewNop(),
	})

	s := interview.NewSession([]string{"Go"}, interview.DifficultyEasy, 2, interview.TypeTheory, false)
	if _, err := e.Run(ctx, s); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
