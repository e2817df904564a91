package interview

import (
	"encoding/json"
	"fmt"
	"os"
)

// Difficulty levels and question types understood by the session.
const (
	DifficultyEasy  = "easy"
	DifficultyMed   = "medium"
	DifficultyHard  = "hard"
	DifficultyMixed = "mixed"

	// DifficultyFollowup marks clarifying questions that do not count
	// toward the main-question quota.
	DifficultyFollowup = "follow-up"

	TypeCoding    = "coding"
	TypeTheory    = "theory"
	TypeDesign    = "design"
	TypeDebugging = "debugging"
	TypeMixed     = "mixed"
)

// Difficulties lists the concrete difficulty buckets in tie-breaking order.
var Difficulties = []string{DifficultyEasy, DifficultyMed, DifficultyHard}

// QuestionTypes lists the concrete question types.
var QuestionTypes = []string{TypeCoding, TypeTheory, TypeDesign, TypeDebugging}

// QuestionRecord is one presented question. Immutable once appended.
type QuestionRecord struct {
	Question   string `json:"question"`
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
}

// IsFollowup reports whether the record is a clarifying follow-up rather
// than a main question.
func (r QuestionRecord) IsFollowup() bool {
	return r.Difficulty == DifficultyFollowup
}

// EvaluationRecord holds the normalized rubric result for one answer.
type EvaluationRecord struct {
	Accuracy       float64  `json:"accuracy"`
	Clarity        float64  `json:"clarity"`
	Depth          float64  `json:"depth"`
	Overall        float64  `json:"overall"`
	FollowupNeeded bool     `json:"followup_needed"`
	Rationale      string   `json:"rationale"`
	Hint           string   `json:"hint"`
	Misconceptions []string `json:"misconceptions"`
	Question       string   `json:"question"`
	Answer         string   `json:"answer"`
	Topic          string   `json:"topic"`
}

// SummaryRecord is the terminal assessment of the whole interview.
type SummaryRecord struct {
	Feedback        string   `json:"feedback"`
	Strengths       []string `json:"strengths"`
	Recommendations []string `json:"recommendations"`
	FinalGrade      float64  `json:"final_grade" mapstructure:"final_grade"`
	Signal          string   `json:"signal"`
}

// TopicStats accumulates per-topic performance.
type TopicStats struct {
	Questions  int     `json:"questions"`
	TotalScore float64 `json:"total_score"`
}

// Average returns the mean overall score for the topic.
func (s TopicStats) Average() float64 {
	if s.Questions == 0 {
		return 0
	}
	return s.TotalScore / float64(s.Questions)
}

// Session is the whole interview state. Transitions never mutate a session
// in place; they Clone it, adjust the copy and hand the new value on.
type Session struct {
	Topics           []string              `json:"topics"`
	TopicIndex       int                   `json:"topic_index"`
	Difficulty       string                `json:"difficulty"`
	MaxMainQuestions int                   `json:"max_main_questions"`
	QuestionType     string                `json:"question_type"`
	Asked            []QuestionRecord      `json:"asked"`
	Answers          []string              `json:"answers"`
	Evaluations      []EvaluationRecord    `json:"evaluations"`
	TopicPerformance map[string]TopicStats `json:"topic_performance"`
	DifficultyCounts map[string]int        `json:"difficulty_counts"`
	CurrentQuestion  string                `json:"current_question"`
	FollowupMode     bool                  `json:"followup_mode"`
	FollowupDepth    int                   `json:"followup_depth"`
	Steps            int                   `json:"steps"`
	Done             bool                  `json:"done"`
	Multiline        bool                  `json:"multiline"`
	Summary          *SummaryRecord        `json:"summary,omitempty"`
}

// NewSession builds a fresh session. Empty topics fall back to a single
// default topic so the rotation cursor always has something to point at.
func NewSession(topics []string, difficulty string, maxQuestions int, questionType string, multiline bool) *Session {
	if len(topics) == 0 {
		topics = []string{"Python"}
	}
	if difficulty == "" {
		difficulty = DifficultyMixed
	}
	if questionType == "" {
		questionType = TypeMixed
	}
	if maxQuestions <= 0 {
		maxQuestions = 4
	}

	counts := make(map[string]int, len(Difficulties))
	for _, d := range Difficulties {
		counts[d] = 0
	}

	return &Session{
		Topics:           append([]string(nil), topics...),
		Difficulty:       difficulty,
		MaxMainQuestions: maxQuestions,
		QuestionType:     questionType,
		TopicPerformance: make(map[string]TopicStats),
		DifficultyCounts: counts,
		Multiline:        multiline,
	}
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	next := *s

	next.Topics = append([]string(nil), s.Topics...)
	next.Asked = append([]QuestionRecord(nil), s.Asked...)
	next.Answers = append([]string(nil), s.Answers...)
	next.Evaluations = make([]EvaluationRecord, len(s.Evaluations))
	for i, e := range s.Evaluations {
		e.Misconceptions = append([]string(nil), e.Misconceptions...)
		next.Evaluations[i] = e
	}

	next.TopicPerformance = make(map[string]TopicStats, len(s.TopicPerformance))
	for k, v := range s.TopicPerformance {
		next.TopicPerformance[k] = v
	}

	next.DifficultyCounts = make(map[string]int, len(s.DifficultyCounts))
	for k, v := range s.DifficultyCounts {
		next.DifficultyCounts[k] = v
	}

	if s.Summary != nil {
		summary := *s.Summary
		summary.Strengths = append([]string(nil), s.Summary.Strengths...)
		summary.Recommendations = append([]string(nil), s.Summary.Recommendations...)
		next.Summary = &summary
	}

	return &next
}

// CurrentTopic returns the topic the rotation cursor points at.
func (s *Session) CurrentTopic() string {
	return s.Topics[s.TopicIndex%len(s.Topics)]
}

// MainQuestionCount counts asked questions that are not follow-ups.
func (s *Session) MainQuestionCount() int {
	count := 0
	for _, q := range s.Asked {
		if !q.IsFollowup() {
			count++
		}
	}
	return count
}

// AskedForTopic returns the tagged text of every main question already asked
// for the topic, in order.
func (s *Session) AskedForTopic(topic string) []string {
	var out []string
	for _, q := range s.Asked {
		if q.Topic == topic && !q.IsFollowup() {
			out = append(out, q.Question)
		}
	}
	return out
}

// LastAsked returns the most recently appended question record, or nil.
func (s *Session) LastAsked() *QuestionRecord {
	if len(s.Asked) == 0 {
		return nil
	}
	return &s.Asked[len(s.Asked)-1]
}

// LastAnswer returns the most recently captured answer.
func (s *Session) LastAnswer() string {
	if len(s.Answers) == 0 {
		return ""
	}
	return s.Answers[len(s.Answers)-1]
}

// LastEvaluation returns the most recent evaluation record, or nil.
func (s *Session) LastEvaluation() *EvaluationRecord {
	if len(s.Evaluations) == 0 {
		return nil
	}
	return &s.Evaluations[len(s.Evaluations)-1]
}

// Dump writes the session as indented JSON to the given path.
func (s *Session) Dump(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write session log: %w", err)
	}

	return nil
}
