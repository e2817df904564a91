package engine

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/skillprobe/interviewer/internal/interview"
	"github.com/skillprobe/interviewer/internal/llm"
	"github.com/skillprobe/interviewer/internal/utils"
)

const fallbackFeedbackLen = 600

// Summarizer aggregates all evaluations into the final grade and hiring
// signal. Like the evaluator it never fails: unusable backend output
// degrades to a fallback record carrying the raw reply.
type Summarizer struct {
	gen    llm.Generator
	logger *zap.Logger
}

func NewSummarizer(gen llm.Generator, log *zap.Logger) *Summarizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Summarizer{gen: gen, logger: log}
}

// Summarize sends every evaluation to the backend and decodes the summary
// reply.
func (s *Summarizer) Summarize(ctx context.Context, evals []interview.EvaluationRecord, maxQuestions int) interview.SummaryRecord {
	payload, err := json.Marshal(evals)
	if err != nil {
		// Evaluation records are plain data; this cannot realistically fail.
		payload = []byte("[]")
	}

	prompt := renderPrompt(summaryPrompt, map[string]string{
		"N": strconv.Itoa(maxQuestions),
	})

	raw, err := s.gen.Chat(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
		{Role: llm.RoleUser, Content: "EVALUATIONS_JSON:\n" + string(payload)},
	}, nil)
	if err != nil {
		s.logger.Warn("summary call failed", zap.Error(err))
		return fallbackSummary("")
	}

	s.logger.Debug("summary reply",
		zap.String("reply_preview", utils.TruncateForLog(raw, logPreviewLen)),
	)

	var data map[string]any
	if err := json.Unmarshal([]byte(interview.ExtractJSONObject(raw)), &data); err != nil || len(data) == 0 {
		return fallbackSummary(raw)
	}

	var rec interview.SummaryRecord
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &rec,
	})
	if err != nil || decoder.Decode(data) != nil {
		return fallbackSummary(raw)
	}

	rec.FinalGrade = interview.ClampScore(rec.FinalGrade)
	if strings.TrimSpace(rec.Signal) == "" {
		rec.Signal = "review"
	}
	if rec.Strengths == nil {
		rec.Strengths = []string{}
	}
	if rec.Recommendations == nil {
		rec.Recommendations = []string{}
	}

	return rec
}

// fallbackSummary carries the head of the raw reply so a human can still read
// whatever the model produced.
func fallbackSummary(raw string) interview.SummaryRecord {
	runes := []rune(raw)
	if len(runes) > fallbackFeedbackLen {
		runes = runes[:fallbackFeedbackLen]
	}

	return interview.SummaryRecord{
		Feedback:        string(runes),
		Strengths:       []string{},
		Recommendations: []string{},
		Signal:          "review",
	}
}
