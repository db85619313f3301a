// Package catalog holds the bundled category and question set.
package catalog

import (
	"context"
	_ "embed"
	"fmt"

	"trivia-duel/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var bundled []byte

type document struct {
	Categories []struct {
		domain.Category `yaml:",inline"`
		Questions       []domain.Question `yaml:"questions"`
	} `yaml:"categories"`
}

// Static is a read-only catalog held in memory.
type Static struct {
	categories []domain.Category
	questions  map[string][]domain.Question
}

// Default parses the catalog compiled into the binary.
func Default() (*Static, error) {
	return Parse(bundled)
}

// Parse decodes a YAML catalog. Each question inherits its category id and
// must carry the point value of its difficulty.
func Parse(data []byte) (*Static, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	s := &Static{questions: make(map[string][]domain.Question, len(doc.Categories))}
	seen := make(map[string]struct{})
	for _, c := range doc.Categories {
		if c.ID == "" {
			return nil, fmt.Errorf("category %q has no id", c.Name)
		}
		if _, dup := s.questions[c.ID]; dup {
			return nil, fmt.Errorf("duplicate category %q", c.ID)
		}
		questions := make([]domain.Question, 0, len(c.Questions))
		for _, q := range c.Questions {
			q.CategoryID = c.ID
			if q.Points != q.Difficulty.Points() {
				return nil, fmt.Errorf("question %q: %d points do not match difficulty %q", q.ID, q.Points, q.Difficulty)
			}
			if _, dup := seen[q.ID]; dup {
				return nil, fmt.Errorf("duplicate question %q", q.ID)
			}
			seen[q.ID] = struct{}{}
			questions = append(questions, q)
		}
		s.categories = append(s.categories, c.Category)
		s.questions[c.ID] = questions
	}
	return s, nil
}

// LoadCategories returns every category in catalog order.
func (s *Static) LoadCategories(_ context.Context) ([]domain.Category, error) {
	return append([]domain.Category(nil), s.categories...), nil
}

// LoadQuestions returns the questions of one category.
func (s *Static) LoadQuestions(_ context.Context, categoryID string) ([]domain.Question, error) {
	qs, ok := s.questions[categoryID]
	if !ok {
		return nil, domain.ErrCategoryNotFound
	}
	return append([]domain.Question(nil), qs...), nil
}

// AllQuestions flattens the catalog, used to seed relational stores.
func (s *Static) AllQuestions() []domain.Question {
	var out []domain.Question
	for _, c := range s.categories {
		out = append(out, s.questions[c.ID]...)
	}
	return out
}
