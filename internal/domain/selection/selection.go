package selection

import (
	"errors"
	"fmt"
	"time"

	"github.com/scriptboard/backend/internal/domain/history"
	"github.com/scriptboard/backend/internal/domain/script"
)

// OptionCount is the number of options shown in a quiz: one correct
// script plus three distractors.
const OptionCount = 4

const (
	TargetMultiplier    = 3.0
	NewScriptMultiplier = 2.0
	RecentUseMultiplier = 0.5

	NewScriptWindow = 30 * 24 * time.Hour
	RecentUseWindow = 3 * 24 * time.Hour
)

// ErrInsufficientPool is returned when fewer than OptionCount scripts are
// available. Selection never proceeds with a smaller quiz.
var ErrInsufficientPool = errors.New("insufficient pool: at least 4 scripts are required")

// Result is the outcome of one selection round.
type Result struct {
	Correct script.Script
	Options []script.Script // OptionCount scripts in display order, Correct among them
}

// Selector picks the correct script and distractors for a quiz.
// It is safe for concurrent use.
type Selector struct {
	rng Rand
	now func() time.Time
}

type Option func(*Selector)

// WithRand replaces the random source, e.g. with a seeded generator in tests.
func WithRand(r Rand) Option {
	return func(s *Selector) {
		s.rng = Locked(r)
	}
}

// WithClock replaces time.Now for recency calculations.
func WithClock(now func() time.Time) Option {
	return func(s *Selector) {
		s.now = now
	}
}

func New(opts ...Option) *Selector {
	s := &Selector{
		rng: RuntimeRand(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weight returns the selection weight of a script as the correct answer.
func Weight(s script.Script, hist []history.Entry, now time.Time) float64 {
	w := 1.0
	if s.IsTarget() {
		w *= TargetMultiplier
	}
	if s.CreatedAt.After(now.Add(-NewScriptWindow)) {
		w *= NewScriptMultiplier
	}
	if history.UsedSince(hist, s.ID, now.Add(-RecentUseWindow)) {
		w *= RecentUseMultiplier
	}
	return w
}

// Weights returns Weight for every script in pool, index-aligned.
func Weights(pool []script.Script, hist []history.Entry, now time.Time) []float64 {
	weights := make([]float64, len(pool))
	for i, s := range pool {
		weights[i] = Weight(s, hist, now)
	}
	return weights
}

// Select draws one correct script weighted by category and recency, then
// three distinct distractors uniformly from the remainder, and returns the
// four options shuffled.
func (sel *Selector) Select(pool []script.Script, hist []history.Entry) (Result, error) {
	if len(pool) < OptionCount {
		return Result{}, fmt.Errorf("%w (got %d)", ErrInsufficientPool, len(pool))
	}

	weights := Weights(pool, hist, sel.now())
	correct, rest, _ := draw(pool, weights, sel.rng)

	options := make([]script.Script, 0, OptionCount)
	options = append(options, correct)
	for len(options) < OptionCount {
		var distractor script.Script
		distractor, rest, _ = draw(rest, uniform(len(rest)), sel.rng)
		options = append(options, distractor)
	}

	Shuffle(options, sel.rng)

	return Result{Correct: correct, Options: options}, nil
}

func draw[T any](items []T, weights []float64, rng Rand) (T, []T, []float64) {
	return PickWeighted(items, weights, rng.Float64()*sum(weights))
}

// PickWeighted performs one cumulative-weight draw. r must lie in
// [0, sum(weights)). The picked item is removed from the returned
// remainders; the inputs are not modified. If floating-point drift leaves
// a positive remainder after the walk, the last item is picked.
func PickWeighted[T any](items []T, weights []float64, r float64) (picked T, restItems []T, restWeights []float64) {
	if len(items) == 0 {
		return picked, nil, nil
	}

	idx := len(items) - 1
	remaining := r
	for i, w := range weights[:len(items)] {
		remaining -= w
		if remaining <= 0 {
			idx = i
			break
		}
	}

	restItems = make([]T, 0, len(items)-1)
	restItems = append(restItems, items[:idx]...)
	restItems = append(restItems, items[idx+1:]...)

	restWeights = make([]float64, 0, len(items)-1)
	restWeights = append(restWeights, weights[:idx]...)
	restWeights = append(restWeights, weights[idx+1:len(items)]...)

	return items[idx], restItems, restWeights
}

// Shuffle permutes items in place with Fisher–Yates.
func Shuffle[T any](items []T, rng Rand) {
	for i := len(items) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

func uniform(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}

func sum(weights []float64) float64 {
	var total float64
	for _, w := range weights {
		total += w
	}
	return total
}
