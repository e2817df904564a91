package engine

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/skillprobe/interviewer/internal/interview"
	"github.com/skillprobe/interviewer/internal/llm"
	"github.com/skillprobe/interviewer/internal/seeds"
)

// Selector picks the next interview question: an unused seed question when
// one exists for the (topic, type) pair, otherwise a freshly generated one.
type Selector struct {
	gen    llm.Generator
	seeds  *seeds.Store
	rng    *rand.Rand
	logger *zap.Logger
}

// NewSelector builds a Selector. A nil rng gets a time-seeded source; pass a
// fixed-seed source in tests to make the random picks deterministic.
func NewSelector(gen llm.Generator, store *seeds.Store, rng *rand.Rand, log *zap.Logger) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Selector{gen: gen, seeds: store, rng: rng, logger: log}
}

// Select returns one tagged question for the topic. history carries the
// tagged text of every main question already asked for this topic; seeded
// questions matching it are never returned again. Generated questions are a
// single attempt, so their uniqueness is best-effort only.
func (s *Selector) Select(ctx context.Context, topic, difficulty, questionType string, history []string) (string, error) {
	chosen := s.pickType(questionType, history)

	if q := s.pickSeed(topic, chosen, history); q != "" {
		s.logger.Debug("seed question selected",
			zap.String("topic", topic),
			zap.String("type", chosen),
		)
		return q, nil
	}

	prompt := renderPrompt(questionPrompt, map[string]string{
		"TOPIC":      topic,
		"DIFFICULTY": difficulty,
		"TYPE":       chosen,
	})

	out, err := s.gen.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: renderPrompt(systemPrompt, map[string]string{"TOPIC": topic})},
		{Role: llm.RoleUser, Content: prompt},
	}, nil)
	if err != nil {
		return "", err
	}

	return Tag(out, chosen), nil
}

// pickType resolves "mixed" to the concrete type least used in history,
// breaking ties uniformly at random.
func (s *Selector) pickType(requested string, history []string) string {
	if requested != interview.TypeMixed {
		return requested
	}

	counts := make(map[string]int, len(interview.QuestionTypes))
	for _, t := range interview.QuestionTypes {
		counts[t] = 0
	}
	for _, q := range history {
		lower := strings.ToLower(q)
		for _, t := range interview.QuestionTypes {
			if strings.HasPrefix(lower, "["+t+"]") {
				counts[t]++
				break
			}
		}
	}

	least := -1
	for _, t := range interview.QuestionTypes {
		if least == -1 || counts[t] < least {
			least = counts[t]
		}
	}

	var candidates []string
	for _, t := range interview.QuestionTypes {
		if counts[t] == least {
			candidates = append(candidates, t)
		}
	}

	return candidates[s.rng.Intn(len(candidates))]
}

// pickSeed returns a tagged seed question not yet asked, or "".
func (s *Selector) pickSeed(topic, questionType string, history []string) string {
	pool := s.seeds.Questions(topic, questionType)
	if len(pool) == 0 {
		return ""
	}

	asked := make(map[string]struct{}, len(history))
	for _, q := range history {
		asked[NormalizeQuestion(q)] = struct{}{}
	}

	var remaining []string
	for _, q := range pool {
		if _, dup := asked[NormalizeQuestion(q)]; !dup {
			remaining = append(remaining, q)
		}
	}
	if len(remaining) == 0 {
		return ""
	}

	return Tag(remaining[s.rng.Intn(len(remaining))], questionType)
}

// Tag prefixes the question with its lowercase type tag and makes sure the
// text ends with a question mark.
func Tag(question, questionType string) string {
	question = strings.TrimSpace(question)
	if !strings.HasSuffix(question, "?") {
		question = strings.TrimRight(question, ".") + "?"
	}
	return "[" + strings.ToLower(questionType) + "] " + question
}

// StripTag removes a leading [type] tag, if any.
func StripTag(question string) string {
	trimmed := strings.TrimSpace(question)
	if strings.HasPrefix(trimmed, "[") {
		if close := strings.IndexByte(trimmed, ']'); close != -1 {
			return strings.TrimSpace(trimmed[close+1:])
		}
	}
	return trimmed
}

// NormalizeQuestion reduces a question to its comparable form: tag stripped,
// trailing punctuation stripped, case-folded.
func NormalizeQuestion(question string) string {
	q := StripTag(question)
	q = strings.TrimRight(q, "?.! ")
	return strings.ToLower(q)
}
