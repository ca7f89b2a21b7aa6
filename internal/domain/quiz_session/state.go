package quizsession

import (
	"slices"

	"github.com/scriptboard/backend/internal/content"
	"github.com/scriptboard/backend/internal/domain/script"
)

type Kind string

const (
	KindIdle    Kind = "idle"
	KindLoading Kind = "loading"
	KindError   Kind = "error"
	KindActive  Kind = "active"
	KindCorrect Kind = "correct"
)

// State is where a quiz interaction currently is. The concrete types are
// Idle, Loading, Failed, Active and Correct.
type State interface {
	Kind() Kind
	sealed()
}

// Idle means no quiz is in progress.
type Idle struct{}

// Loading means selection and content fetches are in flight.
type Loading struct{}

// Failed carries the message of the fetch that failed.
type Failed struct {
	Message string
}

// Active means the learner is choosing among the options.
type Active struct {
	Setup       *Setup
	AnsweredIDs []string // wrong picks so far, duplicates allowed
}

// Correct means the learner found the right script.
type Correct struct {
	Setup *Setup
}

func (Idle) Kind() Kind    { return KindIdle }
func (Loading) Kind() Kind { return KindLoading }
func (Failed) Kind() Kind  { return KindError }
func (Active) Kind() Kind  { return KindActive }
func (Correct) Kind() Kind { return KindCorrect }

func (Idle) sealed()    {}
func (Loading) sealed() {}
func (Failed) sealed()  {}
func (Active) sealed()  {}
func (Correct) sealed() {}

// IsAnswered reports whether the learner already tried scriptID this round.
func (a Active) IsAnswered(scriptID string) bool {
	return slices.Contains(a.AnsweredIDs, scriptID)
}

// Setup is one selection round plus the content fetched for it.
// It is not modified after the session becomes active.
type Setup struct {
	Correct  script.Script
	Options  []script.Script
	Scenario string
	Image    *content.Image
}

// HasOption reports whether scriptID is one of the displayed options.
func (s *Setup) HasOption(scriptID string) bool {
	for _, o := range s.Options {
		if o.ID == scriptID {
			return true
		}
	}
	return false
}
