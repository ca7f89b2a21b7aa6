package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/scriptboard/backend/internal/domain/history"
	"github.com/scriptboard/backend/internal/store"
	"github.com/scriptboard/backend/internal/worker"
)

// HistoryKeeper owns every read-modify-write of learner history. Updates
// for the same learner are serialized; different learners proceed in
// parallel.
type HistoryKeeper struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*learnerLock // learnerID → lock, only while held or awaited
}

type learnerLock struct {
	sync.Mutex
	refs int
}

func NewHistoryKeeper(s store.Store, logger *slog.Logger) *HistoryKeeper {
	return &HistoryKeeper{
		store:  s,
		logger: logger,
		now:    time.Now,
		locks:  make(map[string]*learnerLock),
	}
}

// WithClock replaces the keeper's time source.
func (k *HistoryKeeper) WithClock(now func() time.Time) *HistoryKeeper {
	k.now = now
	return k
}

// lock serializes writers of one learner's history. The entry is dropped
// once the last holder releases it.
func (k *HistoryKeeper) lock(learnerID string) func() {
	k.mu.Lock()
	l, ok := k.locks[learnerID]
	if !ok {
		l = &learnerLock{}
		k.locks[learnerID] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, learnerID)
		}
		k.mu.Unlock()
	}
}

// View returns the learner's history with expired entries filtered out.
// Storage is not modified.
func (k *HistoryKeeper) View(ctx context.Context, learnerID string) ([]history.Entry, error) {
	entries, err := k.store.ListHistory(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	return history.Prune(entries, k.now()), nil
}

// Record appends entry to the learner's history and prunes it in the same
// write.
func (k *HistoryKeeper) Record(ctx context.Context, learnerID string, entry history.Entry) error {
	unlock := k.lock(learnerID)
	defer unlock()

	entries, err := k.store.ListHistory(ctx, learnerID)
	if err != nil {
		return err
	}
	entries = history.Prune(append(entries, entry), k.now())

	return k.store.ReplaceHistory(ctx, learnerID, entries)
}

// Prune removes expired entries for one learner and returns how many were
// dropped.
func (k *HistoryKeeper) Prune(ctx context.Context, learnerID string) (int, error) {
	unlock := k.lock(learnerID)
	defer unlock()

	entries, err := k.store.ListHistory(ctx, learnerID)
	if err != nil {
		return 0, err
	}
	kept := history.Prune(entries, k.now())
	removed := len(entries) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	if err := k.store.ReplaceHistory(ctx, learnerID, kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// PruneReport summarizes a PruneAll run.
type PruneReport struct {
	Learners int
	Removed  int
	Failed   int
}

type pruneOutcome struct {
	removed int
	err     error
}

// PruneAll prunes every learner's history using a pool of workers.
// Per-learner failures are logged and counted, not returned.
func (k *HistoryKeeper) PruneAll(ctx context.Context, workers int) (PruneReport, error) {
	learners, err := k.store.ListLearners(ctx)
	if err != nil {
		return PruneReport{}, fmt.Errorf("list learners: %w", err)
	}

	pool := worker.NewPool[pruneOutcome](workers, len(learners))
	go func() {
		for _, learnerID := range learners {
			id := learnerID
			pool.Submit(id, func() pruneOutcome {
				n, err := k.Prune(ctx, id)
				return pruneOutcome{removed: n, err: err}
			})
		}
		pool.Close()
	}()

	report := PruneReport{Learners: len(learners)}
	for res := range pool.Results() {
		if res.Output.err != nil {
			report.Failed++
			k.logger.Error("history prune failed",
				"learner_id", res.JobID,
				"error", res.Output.err,
			)
			continue
		}
		report.Removed += res.Output.removed
	}

	k.logger.Info("history pruned",
		"learners", report.Learners,
		"removed", report.Removed,
		"failed", report.Failed,
	)
	return report, nil
}

// learnerRecorder adapts the keeper to a single learner's quiz session.
type learnerRecorder struct {
	keeper    *HistoryKeeper
	learnerID string
}

func (r learnerRecorder) Record(ctx context.Context, entry history.Entry) error {
	return r.keeper.Record(ctx, r.learnerID, entry)
}
