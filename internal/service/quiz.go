package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scriptboard/backend/internal/content"
	quizsession "github.com/scriptboard/backend/internal/domain/quiz_session"
	"github.com/scriptboard/backend/internal/domain/selection"
	"github.com/scriptboard/backend/internal/id"
	"github.com/scriptboard/backend/internal/store"
)

var (
	ErrSessionNotFound  = errors.New("quiz session not found")
	ErrNotEnoughScripts = errors.New("not enough scripts for a quiz")
)

// QuizOptions tune a QuizService. Zero values pick defaults.
type QuizOptions struct {
	Selector     *selection.Selector
	Sink         quizsession.CompletionSink
	FetchTimeout time.Duration
	Now          func() time.Time
}

// Snapshot is a point-in-time view of one quiz session.
type Snapshot struct {
	SessionID string
	LearnerID string
	CreatedAt time.Time
	State     quizsession.State
}

type quizSession struct {
	id         string
	learnerID  string
	createdAt  time.Time
	controller *quizsession.Controller
	wg         sync.WaitGroup // in-flight fetches
	lastUsed   atomic.Int64   // unix nanos
}

func (s *quizSession) touch(t time.Time) {
	s.lastUsed.Store(t.UnixNano())
}

func (s *quizSession) snapshot(st quizsession.State) *Snapshot {
	return &Snapshot{
		SessionID: s.id,
		LearnerID: s.learnerID,
		CreatedAt: s.createdAt,
		State:     st,
	}
}

// QuizService keeps the live quiz sessions and runs their content fetches
// in the background.
type QuizService struct {
	store       store.Store
	keeper      *HistoryKeeper
	scenarios   content.ScenarioWriter
	illustrator content.Illustrator
	opts        QuizOptions
	logger      *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*quizSession // sessionID → session
}

func NewQuizService(
	s store.Store,
	keeper *HistoryKeeper,
	scenarios content.ScenarioWriter,
	illustrator content.Illustrator,
	logger *slog.Logger,
	opts QuizOptions,
) *QuizService {
	if opts.Selector == nil {
		opts.Selector = selection.New()
	}
	if opts.Sink == nil {
		opts.Sink = NewLogSink(logger)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &QuizService{
		store:       s,
		keeper:      keeper,
		scenarios:   scenarios,
		illustrator: illustrator,
		opts:        opts,
		logger:      logger,
		sessions:    make(map[string]*quizSession),
	}
}

// StartQuiz creates a session for the learner, moves it to loading and
// fetches its content in the background. The returned snapshot is in the
// loading state.
func (qs *QuizService) StartQuiz(ctx context.Context, learnerID string, reference *content.Image) (*Snapshot, error) {
	req, err := qs.openRequest(ctx, learnerID, reference)
	if err != nil {
		return nil, err
	}

	now := qs.opts.Now()
	sess := &quizSession{
		id:        id.GenerateID(),
		learnerID: learnerID,
		createdAt: now.UTC(),
		controller: quizsession.NewController(quizsession.Deps{
			Selector:     qs.opts.Selector,
			Scenarios:    qs.scenarios,
			Illustrator:  qs.illustrator,
			Recorder:     learnerRecorder{keeper: qs.keeper, learnerID: learnerID},
			Sink:         qs.opts.Sink,
			Logger:       qs.logger.With("learner_id", learnerID),
			Now:          qs.opts.Now,
			FetchTimeout: qs.opts.FetchTimeout,
		}),
	}
	sess.touch(now)

	round, err := qs.begin(sess, req)
	if err != nil {
		return nil, err
	}

	qs.mu.Lock()
	qs.sessions[sess.id] = sess
	qs.mu.Unlock()

	qs.logger.Info("quiz started",
		"session_id", sess.id,
		"learner_id", learnerID,
		"pool", len(req.Pool),
	)
	qs.run(sess, round)

	return sess.snapshot(quizsession.Loading{}), nil
}

// Reopen starts a fresh round on a session that was closed. Only one of
// several concurrent reopens succeeds; the others get ErrInvalidTransition.
func (qs *QuizService) Reopen(ctx context.Context, sessionID string, reference *content.Image) (*Snapshot, error) {
	sess, err := qs.session(sessionID)
	if err != nil {
		return nil, err
	}

	req, err := qs.openRequest(ctx, sess.learnerID, reference)
	if err != nil {
		return nil, err
	}

	round, err := qs.begin(sess, req)
	if err != nil {
		return sess.snapshot(sess.controller.State()), err
	}
	qs.run(sess, round)

	return sess.snapshot(quizsession.Loading{}), nil
}

func (qs *QuizService) openRequest(ctx context.Context, learnerID string, reference *content.Image) (quizsession.OpenRequest, error) {
	n, err := qs.store.CountScripts(ctx, learnerID)
	if err != nil {
		return quizsession.OpenRequest{}, err
	}
	if n < selection.OptionCount {
		return quizsession.OpenRequest{}, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughScripts, n, selection.OptionCount)
	}

	pool, err := qs.store.ListScripts(ctx, learnerID)
	if err != nil {
		return quizsession.OpenRequest{}, err
	}

	hist, err := qs.keeper.View(ctx, learnerID)
	if err != nil {
		return quizsession.OpenRequest{}, err
	}

	return quizsession.OpenRequest{Pool: pool, History: hist, Reference: reference}, nil
}

// begin moves the session to loading on the caller's goroutine. It uses
// context.Background because the quiz must keep loading after the HTTP
// request that started it returns; Close is what cancels it.
func (qs *QuizService) begin(sess *quizSession, req quizsession.OpenRequest) (*quizsession.Round, error) {
	round, err := sess.controller.Begin(context.Background(), req)
	if err != nil {
		qs.logger.Debug("quiz open rejected",
			"session_id", sess.id,
			"error", err,
		)
		return nil, err
	}
	return round, nil
}

// run fetches the round's content on a goroutine.
func (qs *QuizService) run(sess *quizSession, round *quizsession.Round) {
	sess.wg.Add(1)
	go func() {
		defer sess.wg.Done()

		st := round.Run()
		qs.logger.Debug("quiz open finished",
			"session_id", sess.id,
			"state", st.Kind(),
		)
	}()
}

// WaitForSession blocks until every background open of the session has
// returned.
func (qs *QuizService) WaitForSession(sessionID string) {
	qs.mu.RLock()
	sess, ok := qs.sessions[sessionID]
	qs.mu.RUnlock()

	if ok {
		sess.wg.Wait()
	}
}

func (qs *QuizService) Get(sessionID string) (*Snapshot, error) {
	sess, err := qs.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.snapshot(sess.controller.State()), nil
}

// Answer submits the learner's pick for the session.
func (qs *QuizService) Answer(ctx context.Context, sessionID, scriptID string) (*Snapshot, error) {
	sess, err := qs.session(sessionID)
	if err != nil {
		return nil, err
	}

	st, err := sess.controller.SelectAnswer(ctx, scriptID)
	switch {
	case err == nil:
	case errors.Is(err, quizsession.ErrNotActive), errors.Is(err, quizsession.ErrUnknownOption):
		return sess.snapshot(st), err
	default:
		// Solved, but the history write failed. The learner still sees
		// the success; the next quiz treats the script as unused.
		qs.logger.Error("failed to record quiz history",
			"session_id", sessionID,
			"script_id", scriptID,
			"error", err,
		)
	}

	qs.logger.Debug("answer submitted",
		"session_id", sessionID,
		"script_id", scriptID,
		"state", st.Kind(),
	)
	return sess.snapshot(st), nil
}

// Close returns the session to idle, abandoning any in-flight fetch.
func (qs *QuizService) Close(sessionID string) (*Snapshot, error) {
	sess, err := qs.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.snapshot(sess.controller.Close()), nil
}

// Sweep closes and forgets every session nobody has touched for maxIdle.
// It returns how many were removed.
func (qs *QuizService) Sweep(maxIdle time.Duration) int {
	cutoff := qs.opts.Now().Add(-maxIdle).UnixNano()

	qs.mu.Lock()
	var stale []*quizSession
	for sid, sess := range qs.sessions {
		if sess.lastUsed.Load() <= cutoff {
			stale = append(stale, sess)
			delete(qs.sessions, sid)
		}
	}
	qs.mu.Unlock()

	for _, sess := range stale {
		sess.controller.Close()
	}
	if len(stale) > 0 {
		qs.logger.Info("idle quiz sessions removed", "count", len(stale))
	}
	return len(stale)
}

// Len returns the number of live sessions.
func (qs *QuizService) Len() int {
	qs.mu.RLock()
	defer qs.mu.RUnlock()
	return len(qs.sessions)
}

// Delete closes the session and forgets it.
func (qs *QuizService) Delete(sessionID string) error {
	qs.mu.Lock()
	sess, ok := qs.sessions[sessionID]
	delete(qs.sessions, sessionID)
	qs.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	sess.controller.Close()
	return nil
}

func (qs *QuizService) session(sessionID string) (*quizSession, error) {
	qs.mu.RLock()
	defer qs.mu.RUnlock()

	sess, ok := qs.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.touch(qs.opts.Now())
	return sess, nil
}
