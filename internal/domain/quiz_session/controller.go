package quizsession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scriptboard/backend/internal/content"
	"github.com/scriptboard/backend/internal/domain/history"
	"github.com/scriptboard/backend/internal/domain/script"
	"github.com/scriptboard/backend/internal/domain/selection"
)

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrNotActive         = errors.New("session is not accepting answers")
	ErrUnknownOption     = errors.New("script is not one of the options")
)

// HistoryRecorder persists the history entry written when a quiz is
// answered correctly.
type HistoryRecorder interface {
	Record(ctx context.Context, entry history.Entry) error
}

// CompletionSink is notified once when a quiz is answered correctly.
// Failures are ignored.
type CompletionSink interface {
	Celebrate(ctx context.Context, setup *Setup) error
}

// Deps are the collaborators of a Controller. Recorder, Sink and Logger
// are optional.
type Deps struct {
	Selector     *selection.Selector
	Scenarios    content.ScenarioWriter
	Illustrator  content.Illustrator
	Recorder     HistoryRecorder
	Sink         CompletionSink
	Logger       *slog.Logger
	Now          func() time.Time
	FetchTimeout time.Duration // 0 = no timeout
}

// OpenRequest is the input of one selection round.
type OpenRequest struct {
	Pool      []script.Script
	History   []history.Entry
	Reference *content.Image // optional reference for the illustration
}

// Controller drives a single quiz through idle → loading → active →
// correct. It is safe for concurrent use.
type Controller struct {
	deps Deps

	mu         sync.Mutex
	state      State
	generation uint64
	cancel     context.CancelFunc
}

func NewController(deps Deps) *Controller {
	if deps.Selector == nil {
		deps.Selector = selection.New()
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Controller{
		deps:  deps,
		state: Idle{},
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open runs a fresh selection round and fetches the scenario and image for
// the correct script concurrently. It blocks until the session is active or
// failed. Fetch failures are reported through the Failed state; a selection
// failure also moves the session to Failed and is returned to the caller.
//
// If the session is closed while loading, the late results are discarded.
func (c *Controller) Open(ctx context.Context, req OpenRequest) (State, error) {
	round, err := c.Begin(ctx, req)
	if err != nil {
		return c.State(), err
	}
	return round.Run(), nil
}

// Round is a selection round whose content is still being fetched.
type Round struct {
	c         *Controller
	gen       uint64
	ctx       context.Context
	cancel    context.CancelFunc
	result    selection.Result
	reference *content.Image
}

// Begin moves an idle session to loading and runs the selection. Only one
// concurrent caller can win; the rest get ErrInvalidTransition. The fetch
// phase is left to Round.Run so it can happen off the caller's goroutine.
func (c *Controller) Begin(ctx context.Context, req OpenRequest) (*Round, error) {
	c.mu.Lock()
	if _, ok := c.state.(Idle); !ok {
		st := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: open requested while %s", ErrInvalidTransition, st.Kind())
	}
	c.generation++
	gen := c.generation
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = Loading{}
	c.mu.Unlock()

	res, err := c.deps.Selector.Select(req.Pool, req.History)
	if err != nil {
		cancel()
		c.finish(gen, Failed{Message: err.Error()})
		return nil, err
	}

	return &Round{
		c:         c,
		gen:       gen,
		ctx:       ctx,
		cancel:    cancel,
		result:    res,
		reference: req.Reference,
	}, nil
}

// Run fetches the content for the round and applies the outcome. It returns
// the session state afterwards.
func (r *Round) Run() State {
	defer r.cancel()

	setup, err := r.c.fetch(r.ctx, r.result, r.reference)
	if err != nil {
		r.c.deps.Logger.Warn("quiz content fetch failed",
			"script_id", r.result.Correct.ID,
			"error", err,
		)
		return r.c.finish(r.gen, Failed{Message: err.Error()})
	}

	return r.c.finish(r.gen, Active{Setup: setup, AnsweredIDs: []string{}})
}

func (c *Controller) fetch(ctx context.Context, res selection.Result, reference *content.Image) (*Setup, error) {
	if c.deps.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.deps.FetchTimeout)
		defer cancel()
	}

	var (
		scenario string
		image    *content.Image
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := c.deps.Scenarios.WriteScenario(gctx, res.Correct.Text)
		if err != nil {
			return err
		}
		scenario = s
		return nil
	})
	g.Go(func() error {
		img, err := c.deps.Illustrator.Illustrate(gctx, content.IllustrationRequest{
			Text:      res.Correct.Text,
			Reference: reference,
		})
		if err != nil {
			return err
		}
		image = img
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Setup{
		Correct:  res.Correct,
		Options:  res.Options,
		Scenario: scenario,
		Image:    image,
	}, nil
}

// finish applies the outcome of the round started at generation gen, unless
// the session was closed or re-opened in the meantime.
func (c *Controller) finish(gen uint64, next State) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.deps.Logger.Debug("dropping stale quiz result",
			"result", next.Kind(),
			"current", c.state.Kind(),
		)
		return c.state
	}
	c.state = next
	c.cancel = nil
	return next
}

// Close abandons the current quiz, cancelling any in-flight fetches, and
// returns the session to idle.
func (c *Controller) Close() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = Idle{}
	return c.state
}

// SelectAnswer submits the learner's pick. A wrong pick keeps the session
// active and marks the option as tried; the correct pick moves the session
// to Correct, records one history entry and notifies the completion sink.
func (c *Controller) SelectAnswer(ctx context.Context, scriptID string) (State, error) {
	c.mu.Lock()
	active, ok := c.state.(Active)
	if !ok {
		st := c.state
		c.mu.Unlock()
		return st, fmt.Errorf("%w: session is %s", ErrNotActive, st.Kind())
	}
	if !active.Setup.HasOption(scriptID) {
		c.mu.Unlock()
		return active, fmt.Errorf("%w: %s", ErrUnknownOption, scriptID)
	}

	if scriptID != active.Setup.Correct.ID {
		next := Active{
			Setup:       active.Setup,
			AnsweredIDs: append(slices.Clone(active.AnsweredIDs), scriptID),
		}
		c.state = next
		c.mu.Unlock()
		return next, nil
	}

	next := Correct{Setup: active.Setup}
	c.state = next
	c.mu.Unlock()

	var err error
	if c.deps.Recorder != nil {
		entry := history.New(scriptID, c.deps.Now())
		if recErr := c.deps.Recorder.Record(ctx, entry); recErr != nil {
			err = fmt.Errorf("record history: %w", recErr)
		}
	}

	if c.deps.Sink != nil {
		setup := active.Setup
		sinkCtx := context.WithoutCancel(ctx)
		go func() {
			if err := c.deps.Sink.Celebrate(sinkCtx, setup); err != nil {
				c.deps.Logger.Debug("completion feedback failed", "error", err)
			}
		}()
	}

	return next, err
}
