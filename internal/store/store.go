package store

import (
	"context"
	"errors"
	"time"

	"github.com/scriptboard/backend/internal/domain/history"
	"github.com/scriptboard/backend/internal/domain/script"
)

var (
	ErrNotFound = errors.New("not found")
)

// Store persists scripts and per-learner history.
type Store interface {
	SaveScript(ctx context.Context, sc *script.Script) error
	SaveScripts(ctx context.Context, scripts []*script.Script) error
	GetScript(ctx context.Context, learnerID, id string) (*script.Script, error)
	ListScripts(ctx context.Context, learnerID string) ([]script.Script, error)
	CountScripts(ctx context.Context, learnerID string) (int, error)
	DeleteScript(ctx context.Context, learnerID, id string) error
	ListLearners(ctx context.Context) ([]string, error)

	ListHistory(ctx context.Context, learnerID string) ([]history.Entry, error)
	ReplaceHistory(ctx context.Context, learnerID string, entries []history.Entry) error
}

// scriptRow is the persisted form of a script. Times are epoch milliseconds.
type scriptRow struct {
	ID        string `db:"id"`
	LearnerID string `db:"learner_id"`
	Text      string `db:"text"`
	Category  string `db:"category"`
	CreatedAt int64  `db:"created_at"`
}

func (r scriptRow) toScript() script.Script {
	return script.Script{
		ID:        r.ID,
		LearnerID: r.LearnerID,
		Text:      r.Text,
		Category:  script.Category(r.Category),
		CreatedAt: time.UnixMilli(r.CreatedAt).UTC(),
	}
}

type historyRow struct {
	ScriptID string `db:"script_id"`
	UsedAt   int64  `db:"used_at"`
}

func (r historyRow) toEntry() history.Entry {
	return history.Entry{
		ScriptID: r.ScriptID,
		UsedAt:   time.UnixMilli(r.UsedAt).UTC(),
	}
}
