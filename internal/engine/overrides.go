package engine

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/skillprobe/interviewer/internal/interview"
)

// The generation backend is unreliable at penalizing degenerate answers, so a
// small deterministic override chain runs after normalization. Steps are
// tried in order; the first one that fires wins.
type override interface {
	Name() string
	Apply(question, answer string, rec *interview.EvaluationRecord) bool
}

var overrideChain = []override{tooShortOverride{}, offTopicOverride{}}

const minAnswerWords = 3

var wordRe = regexp.MustCompile(`\w+`)

func applyOverrides(question, answer string, rec *interview.EvaluationRecord, log *zap.Logger) {
	for _, o := range overrideChain {
		if o.Apply(question, answer, rec) {
			log.Debug("evaluation override applied", zap.String("name", o.Name()))
			return
		}
	}
}

// tooShortOverride zeroes out answers under the minimum word count.
type tooShortOverride struct{}

func (tooShortOverride) Name() string { return "too_short" }

func (tooShortOverride) Apply(_, answer string, rec *interview.EvaluationRecord) bool {
	if len(wordRe.FindAllString(answer, -1)) >= minAnswerWords {
		return false
	}

	rec.Accuracy = 0
	rec.Depth = 0
	rec.Overall = 0
	if rec.Clarity < 1 {
		rec.Clarity = 1
	}
	rec.Rationale = appendNote(rec.Rationale, "Overridden: Answer too short or uninformative.")
	rec.FollowupNeeded = true
	return true
}

// offTopicOverride caps accuracy when the answer shares no word tokens with
// the question.
type offTopicOverride struct{}

func (offTopicOverride) Name() string { return "off_topic" }

func (offTopicOverride) Apply(question, answer string, rec *interview.EvaluationRecord) bool {
	questionTokens := make(map[string]struct{})
	for _, tok := range wordRe.FindAllString(strings.ToLower(question), -1) {
		questionTokens[tok] = struct{}{}
	}

	for _, tok := range wordRe.FindAllString(strings.ToLower(answer), -1) {
		if _, ok := questionTokens[tok]; ok {
			return false
		}
	}

	if rec.Accuracy > 2 {
		rec.Accuracy = 2
	}
	rec.Rationale = appendNote(rec.Rationale, "Penalized: Answer may not address the question.")
	rec.FollowupNeeded = true
	return true
}

func appendNote(rationale, note string) string {
	rationale = strings.TrimSpace(rationale)
	if rationale == "" {
		return note
	}
	return rationale + " | " + note
}
