package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/skillprobe/interviewer/internal/interview"
	"github.com/skillprobe/interviewer/internal/llm"
	"github.com/skillprobe/interviewer/internal/utils"
)

const (
	defaultEvalMaxTokens = 220
	evalTemperature      = 0.1

	logPreviewLen = 200
)

// Answers equivalent to an explicit refusal skip the backend call entirely.
var dontKnowAnswers = map[string]struct{}{
	"i dont know":        {},
	"i don't know":       {},
	"sorry, i dont know": {},
	"idk":                {},
	"don't know":         {},
	"do not know":        {},
}

// Evaluator grades one free-text answer against the rubric. It never returns
// an error: backend failures and unparsable replies degrade to a zero-score
// record that flags a follow-up.
type Evaluator struct {
	gen       llm.Generator
	maxTokens int
	logger    *zap.Logger
}

// NewEvaluator builds an Evaluator. maxTokens bounds the model's grading
// reply; values <= 0 use the default.
func NewEvaluator(gen llm.Generator, maxTokens int, log *zap.Logger) *Evaluator {
	if maxTokens <= 0 {
		maxTokens = defaultEvalMaxTokens
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{gen: gen, maxTokens: maxTokens, logger: log}
}

// Evaluate grades the answer to the question within the topic.
func (e *Evaluator) Evaluate(ctx context.Context, topic, question, answer string) interview.EvaluationRecord {
	folded := strings.ToLower(strings.TrimSpace(answer))
	if _, refused := dontKnowAnswers[folded]; refused || folded == "" {
		return zeroRecord(topic, question, answer, "Candidate explicitly said they do not know.")
	}

	prompt := renderPrompt(evalPrompt, map[string]string{
		"TOPIC":    topic,
		"QUESTION": question,
		"ANSWER":   answer,
	})

	raw, err := e.gen.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, llm.Options{
		"temperature": evalTemperature,
		"num_predict": e.maxTokens,
	})
	if err != nil {
		e.logger.Warn("evaluation call failed", zap.Error(err))
		return zeroRecord(topic, question, answer, fmt.Sprintf("Evaluation failed: %v", err))
	}

	e.logger.Debug("evaluation reply",
		zap.String("topic", topic),
		zap.String("reply_preview", utils.TruncateForLog(raw, logPreviewLen)),
	)

	var payload map[string]any
	if err := json.Unmarshal([]byte(interview.ExtractJSONObject(raw)), &payload); err != nil || len(payload) == 0 {
		e.logger.Warn("evaluation reply was not valid JSON",
			zap.String("reply_preview", utils.TruncateForLog(raw, logPreviewLen)),
		)
		return zeroRecord(topic, question, answer, "Evaluation reply could not be parsed as JSON.")
	}

	rec := interview.NormalizeEvaluation(payload)
	rec.Question = question
	rec.Answer = answer
	rec.Topic = topic

	applyOverrides(question, answer, &rec, e.logger)

	return rec
}

// zeroRecord is the degradation path shared by the refusal shortcut and every
// evaluation failure.
func zeroRecord(topic, question, answer, rationale string) interview.EvaluationRecord {
	return interview.EvaluationRecord{
		FollowupNeeded: true,
		Rationale:      rationale,
		Misconceptions: []string{},
		Question:       question,
		Answer:         answer,
		Topic:          topic,
	}
}
