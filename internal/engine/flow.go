package engine

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/skillprobe/interviewer/internal/interview"
	"github.com/skillprobe/interviewer/internal/llm"
	"github.com/skillprobe/interviewer/internal/seeds"
)

const (
	// DefaultFollowupCap bounds clarifying questions per main question.
	DefaultFollowupCap = 1
	// DefaultMaxSteps is the hard safety ceiling on node executions.
	DefaultMaxSteps = 500
)

// AnswerReader captures one candidate answer. Implementations decide the
// input mode (single-line prompt, multi-line until blank, scripted tests).
type AnswerReader interface {
	ReadAnswer(ctx context.Context) (string, error)
}

// node names one state of the interview state machine.
type node string

const (
	nodeSelect    node = "select_question"
	nodeAsk       node = "ask"
	nodeEvaluate  node = "evaluate"
	nodeFollowup  node = "followup"
	nodeFinalize  node = "finalize"
	nodeSummarize node = "summarize"
	nodeEnd       node = "end"
)

// guard decides whether a transition fires for the current session.
type guard func(*interview.Session) bool

// transition is one guarded edge. A nil guard matches unconditionally; the
// first matching transition in a node's list wins.
type transition struct {
	when guard
	next node
}

// Config wires an Engine together.
type Config struct {
	Generator llm.Generator
	Seeds     *seeds.Store
	Reader    AnswerReader
	Out       io.Writer
	Logger    *zap.Logger

	FollowupCap   int
	MaxSteps      int
	EvalMaxTokens int

	// Rand seeds the selector's random picks; nil uses a time-based source.
	Rand *rand.Rand
}

// Engine drives one interview session through the state machine. A single
// engine handles one session at a time; concurrent sessions each get their
// own engine and session value.
type Engine struct {
	selector   *Selector
	evaluator  *Evaluator
	followup   *Followup
	summarizer *Summarizer

	reader AnswerReader
	out    io.Writer
	logger *zap.Logger

	followupCap int
	maxSteps    int

	graph map[node][]transition
}

// New assembles the engine and its transition table.
func New(cfg Config) *Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	e := &Engine{
		selector:    NewSelector(cfg.Generator, cfg.Seeds, cfg.Rand, log),
		evaluator:   NewEvaluator(cfg.Generator, cfg.EvalMaxTokens, log),
		followup:    NewFollowup(cfg.Generator, log),
		summarizer:  NewSummarizer(cfg.Generator, log),
		reader:      cfg.Reader,
		out:         out,
		logger:      log,
		followupCap: cfg.FollowupCap,
		maxSteps:    maxSteps,
	}

	e.graph = map[node][]transition{
		nodeSelect: {
			{when: sessionDone, next: nodeSummarize},
			{next: nodeAsk},
		},
		nodeAsk: {
			{next: nodeEvaluate},
		},
		nodeEvaluate: {
			{when: e.needFollowup, next: nodeFollowup},
			{next: nodeFinalize},
		},
		nodeFollowup: {
			{when: followupPending, next: nodeAsk},
			{next: nodeFinalize},
		},
		nodeFinalize: {
			{when: sessionDone, next: nodeSummarize},
			{next: nodeSelect},
		},
		nodeSummarize: {
			{next: nodeEnd},
		},
	}

	return e
}

func sessionDone(s *interview.Session) bool { return s.Done }

func followupPending(s *interview.Session) bool { return s.FollowupMode }

// needFollowup guards the Evaluate -> Followup edge: the evaluation must have
// flagged one, the session must not already be answering a follow-up, and
// the per-question cap must not be exhausted.
func (e *Engine) needFollowup(s *interview.Session) bool {
	last := s.LastEvaluation()
	if last == nil || !last.FollowupNeeded {
		return false
	}
	return !s.FollowupMode && e.followupCap > 0 && s.FollowupDepth < e.followupCap
}

// Run executes the state machine until the terminal node. The returned
// session is always complete: every failure path inside a node degrades to a
// terminated session rather than an error. Only context cancellation and
// answer-input failures abort the run.
func (e *Engine) Run(ctx context.Context, s *interview.Session) (*interview.Session, error) {
	cur := nodeSelect
	for cur != nodeEnd {
		if err := ctx.Err(); err != nil {
			return s, err
		}

		next, err := e.exec(ctx, cur, s)
		if err != nil {
			return s, err
		}
		s = next

		cur = e.nextNode(cur, s)
	}
	return s, nil
}

// nextNode picks the first transition whose guard matches.
func (e *Engine) nextNode(cur node, s *interview.Session) node {
	for _, t := range e.graph[cur] {
		if t.when == nil || t.when(s) {
			return t.next
		}
	}
	return nodeEnd
}

func (e *Engine) exec(ctx context.Context, cur node, s *interview.Session) (*interview.Session, error) {
	switch cur {
	case nodeSelect:
		return e.selectQuestion(ctx, s), nil
	case nodeAsk:
		return e.ask(ctx, s)
	case nodeEvaluate:
		return e.evaluate(ctx, s), nil
	case nodeFollowup:
		return e.generateFollowup(ctx, s), nil
	case nodeFinalize:
		return e.finalize(s), nil
	case nodeSummarize:
		return e.summarize(ctx, s), nil
	default:
		return s, fmt.Errorf("unknown state: %s", cur)
	}
}

// selectQuestion picks the next main question, tracks the difficulty bucket
// and advances the topic rotation. A selector failure terminates the session
// instead of crashing it.
func (e *Engine) selectQuestion(ctx context.Context, s *interview.Session) *interview.Session {
	if s.Done {
		return s
	}

	next := s.Clone()
	topic := next.CurrentTopic()

	difficulty := next.Difficulty
	if difficulty == interview.DifficultyMixed {
		difficulty = leastUsedDifficulty(next.DifficultyCounts)
	}

	tagged, err := e.selector.Select(ctx, topic, difficulty, next.QuestionType, next.AskedForTopic(topic))
	if err != nil {
		e.logger.Warn("question selection failed, ending interview", zap.Error(err))
		fmt.Fprintf(e.out, "Error generating question: %v\n", err)
		next.Done = true
		return next
	}

	next.CurrentQuestion = StripTag(tagged)
	next.Asked = append(next.Asked, interview.QuestionRecord{
		Question:   tagged,
		Topic:      topic,
		Difficulty: difficulty,
	})
	next.DifficultyCounts[difficulty]++
	next.TopicIndex++
	next.FollowupMode = false
	next.FollowupDepth = 0

	fmt.Fprintf(e.out, "Question %d of %d (Topic: %s, Difficulty: %s)\n",
		next.MainQuestionCount(), next.MaxMainQuestions, topic, difficulty)

	return next
}

// ask presents the current question and captures one answer.
func (e *Engine) ask(ctx context.Context, s *interview.Session) (*interview.Session, error) {
	next := s.Clone()

	fmt.Fprintf(e.out, "\n[Q] %s\n", next.CurrentQuestion)

	answer, err := e.reader.ReadAnswer(ctx)
	if err != nil {
		return s, fmt.Errorf("reading answer: %w", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = "(no answer)"
	}

	next.Answers = append(next.Answers, answer)
	next.Steps++

	return next, nil
}

// evaluate grades the last answer and folds the result into the per-topic
// performance tally. The topic comes from the latest asked record, not from
// the rotation counter.
func (e *Engine) evaluate(ctx context.Context, s *interview.Session) *interview.Session {
	next := s.Clone()

	topic := next.Topics[0]
	if last := next.LastAsked(); last != nil {
		topic = last.Topic
	}

	rec := e.evaluator.Evaluate(ctx, topic, next.CurrentQuestion, next.LastAnswer())

	stats := next.TopicPerformance[topic]
	stats.Questions++
	stats.TotalScore += rec.Overall
	next.TopicPerformance[topic] = stats

	next.Evaluations = append(next.Evaluations, rec)

	fmt.Fprintf(e.out, "-> Scores: accuracy=%.1f, clarity=%.1f, depth=%.1f, overall=%.2f\n",
		rec.Accuracy, rec.Clarity, rec.Depth, rec.Overall)
	fmt.Fprintf(e.out, "-> Rationale: %s\n", rec.Rationale)
	if rec.FollowupNeeded {
		fmt.Fprintln(e.out, "-> Follow-up flagged.")
	}

	return next
}

// generateFollowup issues the bounded clarifying question. When the cap is
// disabled or exhausted it clears the follow-up state so the finalize branch
// is taken instead.
func (e *Engine) generateFollowup(ctx context.Context, s *interview.Session) *interview.Session {
	next := s.Clone()

	if e.followupCap <= 0 || next.FollowupDepth >= e.followupCap {
		next.FollowupMode = false
		next.FollowupDepth = 0
		return next
	}

	last := next.LastEvaluation()
	if last == nil {
		next.FollowupMode = false
		return next
	}

	question, err := e.followup.Generate(ctx, last.Question, last.Answer, last.Hint, last.Misconceptions)
	if err != nil {
		e.logger.Warn("follow-up generation failed, continuing without it", zap.Error(err))
		next.FollowupMode = false
		return next
	}

	next.CurrentQuestion = question
	next.Asked = append(next.Asked, interview.QuestionRecord{
		Question:   question,
		Topic:      last.Topic,
		Difficulty: interview.DifficultyFollowup,
	})
	next.FollowupMode = true
	next.FollowupDepth++

	return next
}

// finalize decides whether the interview continues with another main
// question. The step ceiling guarantees termination even when the backend
// perpetually flags follow-ups.
func (e *Engine) finalize(s *interview.Session) *interview.Session {
	next := s.Clone()

	done := next.MainQuestionCount() >= next.MaxMainQuestions
	if next.Steps >= e.maxSteps {
		fmt.Fprintln(e.out, "Reached the total step limit; finishing the interview to avoid an infinite loop.")
		e.logger.Warn("step ceiling reached",
			zap.Int("steps", next.Steps),
			zap.Int("ceiling", e.maxSteps),
		)
		done = true
	}

	next.Done = done
	return next
}

// summarize produces and prints the final report.
func (e *Engine) summarize(ctx context.Context, s *interview.Session) *interview.Session {
	next := s.Clone()

	summary := e.summarizer.Summarize(ctx, next.Evaluations, next.MaxMainQuestions)
	next.Summary = &summary
	next.Done = true

	e.printSummary(next)

	return next
}

func (e *Engine) printSummary(s *interview.Session) {
	summary := s.Summary

	fmt.Fprintln(e.out, "\n===== Interview Summary =====")
	fmt.Fprintf(e.out, "Topics covered: %s\n", strings.Join(s.Topics, ", "))
	fmt.Fprintf(e.out, "Asked: %d main question(s)\n", s.MainQuestionCount())
	fmt.Fprintf(e.out, "Final grade: %.1f, signal: %s\n", summary.FinalGrade, summary.Signal)

	verdicts := make([]string, 0, len(s.Evaluations))
	for _, rec := range s.Evaluations {
		verdicts = append(verdicts, interview.CoarseVerdict(rec.Overall))
	}
	fmt.Fprintf(e.out, "Coarse score: %.1f/%d\n", interview.VerdictScore(verdicts), s.MaxMainQuestions)

	if summary.Feedback != "" {
		fmt.Fprintf(e.out, "\nFeedback: %s\n", summary.Feedback)
	}

	if len(s.TopicPerformance) > 0 {
		fmt.Fprintln(e.out, "\nPer-topic performance:")
		for _, topic := range s.Topics {
			stats, ok := s.TopicPerformance[topic]
			if !ok {
				continue
			}
			fmt.Fprintf(e.out, "  * %s: %d question(s), avg score: %.2f\n", topic, stats.Questions, stats.Average())
		}
	}

	if len(summary.Strengths) > 0 {
		fmt.Fprintln(e.out, "\nStrengths:")
		for _, item := range summary.Strengths {
			fmt.Fprintf(e.out, "  * %s\n", item)
		}
	}
	if len(summary.Recommendations) > 0 {
		fmt.Fprintln(e.out, "\nRecommendations:")
		for _, item := range summary.Recommendations {
			fmt.Fprintf(e.out, "  * %s\n", item)
		}
	}
	fmt.Fprintln(e.out, "=============================")
}

// leastUsedDifficulty resolves "mixed" difficulty to the bucket with the
// fewest asked questions; ties go to the earlier bucket in the fixed order.
func leastUsedDifficulty(counts map[string]int) string {
	best := interview.Difficulties[0]
	for _, d := range interview.Difficulties[1:] {
		if counts[d] < counts[best] {
			best = d
		}
	}
	return best
}
