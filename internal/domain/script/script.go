package script

import (
	"errors"
	"strings"
	"time"

	"github.com/scriptboard/backend/internal/id"
)

type Category string

const (
	CategoryStandard Category = "standard"
	CategoryTarget   Category = "target" // priority learning goal
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c == CategoryStandard || c == CategoryTarget
}

// ParseCategory maps user input to a Category. An empty string means standard.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c == "" {
		return CategoryStandard, nil
	}
	if !c.Valid() {
		return "", errors.New("invalid category: must be standard or target")
	}
	return c, nil
}

// Script is a phrase a learner can be quizzed on.
type Script struct {
	ID        string
	LearnerID string
	Text      string
	Category  Category
	CreatedAt time.Time
}

func New(learnerID, text string, category Category) (*Script, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("script text cannot be empty")
	}
	if category == "" {
		category = CategoryStandard
	}
	if !category.Valid() {
		return nil, errors.New("invalid category: must be standard or target")
	}
	return &Script{
		ID:        id.GenerateID(),
		LearnerID: learnerID,
		Text:      text,
		Category:  category,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// IsTarget reports whether the script is a priority learning goal.
func (s Script) IsTarget() bool {
	return s.Category == CategoryTarget
}
