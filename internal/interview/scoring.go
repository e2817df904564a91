package interview

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	maxRationaleLen = 500
	maxHintLen      = 200
)

// ClampScore coerces any value into a rubric score in [0,10]. Numbers and
// numeric strings are accepted; anything else becomes 0.0.
func ClampScore(v any) float64 {
	f := coerceFloat(v)
	if math.IsNaN(f) {
		return 0.0
	}
	return math.Max(0.0, math.Min(10.0, f))
}

// RecomputeOverall returns the mean of the clamped rubric fields rounded to
// two decimals.
func RecomputeOverall(accuracy, clarity, depth any) float64 {
	return round2((ClampScore(accuracy) + ClampScore(clarity) + ClampScore(depth)) / 3.0)
}

// NormalizeEvaluation turns a loosely-structured payload from the model into
// an EvaluationRecord with every field present and in range. It never fails:
// missing or garbage fields get their documented defaults. Applying it to an
// already-normalized payload is a no-op.
func NormalizeEvaluation(payload map[string]any) EvaluationRecord {
	// The model sometimes nests the rubric under a "scores" object.
	nested, _ := payload["scores"].(map[string]any)
	score := func(key string) any {
		if nested != nil {
			if v, ok := nested[key]; ok {
				return v
			}
		}
		return payload[key]
	}
	field := func(keys ...string) any {
		for _, key := range keys {
			if v, ok := payload[key]; ok {
				return v
			}
		}
		return nil
	}

	rec := EvaluationRecord{
		Accuracy:       ClampScore(score("accuracy")),
		Clarity:        ClampScore(score("clarity")),
		Depth:          ClampScore(score("depth")),
		Overall:        ClampScore(score("overall")),
		FollowupNeeded: coerceBool(field("followup_needed", "followup")),
		Rationale:      truncateRunes(coerceString(field("rationale", "explanation")), maxRationaleLen),
		Hint:           truncateRunes(coerceString(payload["hint"]), maxHintLen),
		Misconceptions: coerceStringSlice(field("misconceptions", "errors")),
		Question:       coerceString(payload["question"]),
		Answer:         coerceString(payload["answer"]),
		Topic:          coerceString(payload["topic"]),
	}

	if rec.Overall == 0 {
		rec.Overall = RecomputeOverall(rec.Accuracy, rec.Clarity, rec.Depth)
	}

	return rec
}

// VerdictScore sums the legacy discrete verdicts: correct counts 1, partial
// 0.5 and anything else 0.
func VerdictScore(verdicts []string) float64 {
	total := 0.0
	for _, v := range verdicts {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "correct":
			total++
		case "partial":
			total += 0.5
		}
	}
	return total
}

// CoarseVerdict maps an overall rubric score back onto the legacy discrete
// verdict scale.
func CoarseVerdict(overall float64) string {
	switch {
	case overall >= 7:
		return "correct"
	case overall >= 4:
		return "partial"
	default:
		return "incorrect"
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	case int:
		return val != 0
	default:
		return false
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

func coerceStringSlice(v any) []string {
	switch val := v.(type) {
	case nil:
		return []string{}
	case []string:
		return append([]string(nil), val...)
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := coerceString(v); s != "" {
			return []string{s}
		}
		return []string{}
	}
}
