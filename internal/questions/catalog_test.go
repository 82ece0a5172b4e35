package questions

import (
	"errors"
	"testing"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/common"
)

const sampleCatalog = `
questions:
  - id: q1
    level: 1
    difficulty: easy
    prompt: Who created Bitcoin?
    options: [Satoshi Nakamoto, Hal Finney]
    answer: 0
    explanation: The whitepaper is signed by Satoshi Nakamoto.
  - id: q2
    level: 1
    difficulty: medium
    prompt: What is the smallest unit of bitcoin?
    options: [bit, sat, wei]
    answer: 1
  - id: q3
    level: 2
    difficulty: hard
    prompt: How many blocks are in a difficulty period?
    options: ["2016", "2100", "210000"]
    answer: 0
`

func TestParseCatalog(t *testing.T) {
	c, err := Parse([]byte(sampleCatalog))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("expected 3 questions, got %d", c.Len())
	}
	if c.MaxLevel() != 2 {
		t.Fatalf("expected max level 2, got %d", c.MaxLevel())
	}
	if qs := c.QuestionsForLevel(1); len(qs) != 2 || qs[0].ID != "q1" || qs[1].ID != "q2" {
		t.Fatalf("unexpected level 1 questions %+v", qs)
	}
	if qs := c.QuestionsForLevel(9); len(qs) != 0 {
		t.Fatalf("expected no questions for level 9, got %d", len(qs))
	}

	q, err := c.QuestionByID("q3")
	if err != nil {
		t.Fatalf("question by id: %v", err)
	}
	if q.Difficulty != Hard || q.Answer != 0 {
		t.Fatalf("unexpected question %+v", q)
	}
	if _, err := c.QuestionByID("nope"); !errors.Is(err, common.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestQuestionsForLevelReturnsCopy(t *testing.T) {
	c, err := Parse([]byte(sampleCatalog))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	qs := c.QuestionsForLevel(1)
	qs[0].ID = "mutated"
	if again := c.QuestionsForLevel(1); again[0].ID != "q1" {
		t.Fatalf("catalog was mutated through returned slice")
	}
}

func TestCatalogValidation(t *testing.T) {
	valid := Question{ID: "a", Level: 1, Difficulty: Easy, Prompt: "p", Options: []string{"x", "y"}, Answer: 1}

	tests := []struct {
		name string
		qs   []Question
	}{
		{"empty", nil},
		{"duplicate id", []Question{valid, valid}},
		{"one option", []Question{{ID: "a", Level: 1, Difficulty: Easy, Prompt: "p", Options: []string{"x"}}}},
		{"answer out of range", []Question{{ID: "a", Level: 1, Difficulty: Easy, Prompt: "p", Options: []string{"x", "y"}, Answer: 2}}},
		{"unknown difficulty", []Question{{ID: "a", Level: 1, Difficulty: "legendary", Prompt: "p", Options: []string{"x", "y"}}}},
		{"level gap", []Question{valid, {ID: "b", Level: 3, Difficulty: Easy, Prompt: "p", Options: []string{"x", "y"}}}},
		{"level zero", []Question{{ID: "a", Level: 0, Difficulty: Easy, Prompt: "p", Options: []string{"x", "y"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.qs)
			if !errors.Is(err, common.ErrInvalidCatalog) {
				t.Fatalf("expected ErrInvalidCatalog, got %v", err)
			}
		})
	}
}

func TestSanitizeStripsAnswer(t *testing.T) {
	q := Question{ID: "a", Level: 1, Difficulty: Easy, Prompt: "p", Options: []string{"x", "y"}, Answer: 1, Explanation: "because"}
	p := Sanitize(q)
	if p.ID != "a" || p.Prompt != "p" || len(p.Options) != 2 {
		t.Fatalf("unexpected public question %+v", p)
	}
	p.Options[0] = "changed"
	if q.Options[0] != "x" {
		t.Fatalf("sanitize shares the options slice")
	}
}
