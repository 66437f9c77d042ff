// Package catalog loads the fixed set of interview questions.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/ashureev/chef-interview/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var defaultQuestions []byte

// Catalog is an ordered, read-only registry of interview questions.
type Catalog struct {
	questions []domain.Question
	byID      map[string]int
}

type file struct {
	Questions []domain.Question `yaml:"questions"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultQuestions)
}

// Load reads a catalog from path. An empty path selects the embedded catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(f.Questions)
}

// New builds a catalog from questions, keeping their order.
func New(questions []domain.Question) (*Catalog, error) {
	c := &Catalog{
		questions: make([]domain.Question, 0, len(questions)),
		byID:      make(map[string]int, len(questions)),
	}
	for i, q := range questions {
		if q.ID == "" {
			return nil, fmt.Errorf("question %d: id is required", i)
		}
		if q.Text == "" {
			return nil, fmt.Errorf("question %q: text is required", q.ID)
		}
		if _, dup := c.byID[q.ID]; dup {
			return nil, fmt.Errorf("question %q: duplicate id", q.ID)
		}
		c.byID[q.ID] = len(c.questions)
		c.questions = append(c.questions, q)
	}
	return c, nil
}

// Lookup returns the question registered under id.
func (c *Catalog) Lookup(id string) (domain.Question, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Question{}, false
	}
	return c.questions[i], true
}

// Questions returns the questions in catalog order.
func (c *Catalog) Questions() []domain.Question {
	return append([]domain.Question(nil), c.questions...)
}

// Len returns the number of questions.
func (c *Catalog) Len() int {
	return len(c.questions)
}
