// Package questions is the read-only question bank.
// The bot only needs the Bank interface; Catalog is the in-memory
// implementation loaded from a YAML file at startup.
package questions

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/common"
)

// Difficulty is the reward tier of a question.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Question is a full catalog entry including the answer key.
type Question struct {
	ID          string     `yaml:"id" validate:"required"`
	Level       int        `yaml:"level" validate:"gte=1"`
	Difficulty  Difficulty `yaml:"difficulty" validate:"required,oneof=easy medium hard"`
	Prompt      string     `yaml:"prompt" validate:"required"`
	Options     []string   `yaml:"options" validate:"min=2,dive,required"`
	Answer      int        `yaml:"answer" validate:"gte=0"` // index into Options
	Explanation string     `yaml:"explanation"`
}

// Public is a question as shown to players: no answer key, no explanation.
type Public struct {
	ID         string
	Level      int
	Difficulty Difficulty
	Prompt     string
	Options    []string
}

// Sanitize strips the answer key and explanation.
func Sanitize(q Question) Public {
	opts := make([]string, len(q.Options))
	copy(opts, q.Options)
	return Public{
		ID:         q.ID,
		Level:      q.Level,
		Difficulty: q.Difficulty,
		Prompt:     q.Prompt,
		Options:    opts,
	}
}

// Bank is the question source used by the session manager.
type Bank interface {
	// QuestionsForLevel returns every question of a level, in catalog order.
	QuestionsForLevel(level int) []Question
	// QuestionByID returns common.ErrQuestionNotFound for unknown ids.
	QuestionByID(id string) (Question, error)
	// MaxLevel is the highest level that has questions.
	MaxLevel() int
}

type catalogFile struct {
	Questions []Question `yaml:"questions" validate:"required,min=1,unique=ID,dive"`
}

// Catalog is an immutable Bank. Safe for concurrent use.
type Catalog struct {
	byID     map[string]Question
	byLevel  map[int][]Question
	maxLevel int
}

var _ Bank = (*Catalog)(nil)

// Load reads and validates a YAML catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question catalog %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidCatalog, err)
	}
	return newCatalog(f)
}

// NewCatalog builds a catalog from questions already in memory.
func NewCatalog(qs []Question) (*Catalog, error) {
	return newCatalog(catalogFile{Questions: qs})
}

func newCatalog(f catalogFile) (*Catalog, error) {
	if err := validateCatalog(f); err != nil {
		return nil, err
	}

	c := &Catalog{
		byID:    make(map[string]Question, len(f.Questions)),
		byLevel: make(map[int][]Question),
	}
	for _, q := range f.Questions {
		c.byID[q.ID] = q
		c.byLevel[q.Level] = append(c.byLevel[q.Level], q)
		if q.Level > c.maxLevel {
			c.maxLevel = q.Level
		}
	}

	// levels must be contiguous, otherwise a level-up could land on an empty level
	for lvl := 1; lvl <= c.maxLevel; lvl++ {
		if len(c.byLevel[lvl]) == 0 {
			return nil, fmt.Errorf("%w: level %d has no questions", common.ErrInvalidCatalog, lvl)
		}
	}
	return c, nil
}

func validateCatalog(f catalogFile) error {
	validate := validator.New()
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", common.ErrInvalidCatalog, err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed '%s' (value: '%v')", fe.Namespace(), fe.Tag(), fe.Value()))
		}
		sort.Strings(msgs)
		return fmt.Errorf("%w:\n- %s", common.ErrInvalidCatalog, strings.Join(msgs, "\n- "))
	}

	for _, q := range f.Questions {
		if q.Answer >= len(q.Options) {
			return fmt.Errorf("%w: question %q answer index %d out of range", common.ErrInvalidCatalog, q.ID, q.Answer)
		}
	}
	return nil
}

func (c *Catalog) QuestionsForLevel(level int) []Question {
	qs := c.byLevel[level]
	out := make([]Question, len(qs))
	copy(out, qs)
	return out
}

func (c *Catalog) QuestionByID(id string) (Question, error) {
	q, ok := c.byID[id]
	if !ok {
		return Question{}, common.ErrQuestionNotFound
	}
	return q, nil
}

func (c *Catalog) MaxLevel() int { return c.maxLevel }

// Len returns the number of questions in the catalog.
func (c *Catalog) Len() int { return len(c.byID) }
