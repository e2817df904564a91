package seeds

import (
	"encoding/json"
	"os"

	"go.uber.org/zap"
)

// DefaultPath is where the seed question file is looked up when no path is
// configured.
const DefaultPath = "data/questions.json"

// Store holds pre-authored questions keyed by topic and question type.
// A missing or malformed seed file degrades to an empty store; seeded
// questions are an optimization, never a requirement.
type Store struct {
	byTopic map[string]map[string][]string
}

// Load reads the seed file once. Any failure is logged at debug level and
// yields an empty store.
func Load(path string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Debug("seed store unavailable", zap.String("path", path), zap.Error(err))
		return &Store{}
	}

	var raw map[string]map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Debug("seed store malformed", zap.String("path", path), zap.Error(err))
		return &Store{}
	}

	return &Store{byTopic: raw}
}

// Questions returns the seed pool for the given topic and question type,
// possibly empty.
func (s *Store) Questions(topic, questionType string) []string {
	if s == nil || s.byTopic == nil {
		return nil
	}
	return s.byTopic[topic][questionType]
}

// Len counts every seeded question across all topics and types.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	total := 0
	for _, types := range s.byTopic {
		for _, pool := range types {
			total += len(pool)
		}
	}
	return total
}
