package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/scriptboard/backend/internal/domain/history"
	"github.com/scriptboard/backend/internal/domain/script"
	"github.com/scriptboard/backend/internal/store"
)

func newStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustScript(t *testing.T, learnerID, text string, cat script.Category, createdAt time.Time) *script.Script {
	t.Helper()
	sc, err := script.New(learnerID, text, cat)
	if err != nil {
		t.Fatalf("new script: %v", err)
	}
	sc.CreatedAt = createdAt
	return sc
}

func TestSaveAndGetScript(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	created := time.Date(2026, 9, 1, 8, 30, 0, 123_000_000, time.UTC)
	sc := mustScript(t, "learner-1", "I want juice", script.CategoryTarget, created)

	if err := s.SaveScript(ctx, sc); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetScript(ctx, "learner-1", sc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Text != "I want juice" {
		t.Errorf("expected text %q, got %q", "I want juice", got.Text)
	}
	if got.Category != script.CategoryTarget {
		t.Errorf("expected category target, got %q", got.Category)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("expected created_at %v, got %v", created, got.CreatedAt)
	}
	if got.LearnerID != "learner-1" {
		t.Errorf("expected learner-1, got %q", got.LearnerID)
	}
}

func TestGetScript_OtherLearner(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	sc := mustScript(t, "learner-1", "hello", script.CategoryStandard, time.Now())
	s.SaveScript(ctx, sc)

	_, err := s.GetScript(ctx, "learner-2", sc.ID)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListScripts_OrderedAndScoped(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	second := mustScript(t, "a", "second", script.CategoryStandard, base.Add(time.Hour))
	first := mustScript(t, "a", "first", script.CategoryStandard, base)
	other := mustScript(t, "b", "other", script.CategoryStandard, base)
	if err := s.SaveScripts(ctx, []*script.Script{second, first, other}); err != nil {
		t.Fatalf("save scripts: %v", err)
	}

	got, err := s.ListScripts(ctx, "a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 scripts, got %d", len(got))
	}
	if got[0].Text != "first" || got[1].Text != "second" {
		t.Errorf("expected oldest first, got %q, %q", got[0].Text, got[1].Text)
	}

	n, err := s.CountScripts(ctx, "b")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 script for b, got %d", n)
	}
}

func TestListScripts_Empty(t *testing.T) {
	s := newStore(t)

	got, err := s.ListScripts(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestDeleteScript(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	sc := mustScript(t, "a", "bye", script.CategoryStandard, time.Now())
	s.SaveScript(ctx, sc)

	if err := s.DeleteScript(ctx, "a", sc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetScript(ctx, "a", sc.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteScript(ctx, "a", sc.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSaveScripts_RollsBackOnDuplicate(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	sc := mustScript(t, "a", "one", script.CategoryStandard, time.Now())
	dup := *sc
	fresh := mustScript(t, "a", "two", script.CategoryStandard, time.Now())

	if err := s.SaveScripts(ctx, []*script.Script{fresh, sc, &dup}); err == nil {
		t.Fatal("expected duplicate id error")
	}

	n, _ := s.CountScripts(ctx, "a")
	if n != 0 {
		t.Errorf("expected nothing saved, got %d scripts", n)
	}
}

func TestReplaceHistory_KeepsOrder(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	entries := []history.Entry{
		history.New("s2", base.Add(2*time.Hour)),
		history.New("s1", base),
		history.New("s2", base.Add(time.Hour)),
	}
	if err := s.ReplaceHistory(ctx, "a", entries); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := s.ListHistory(ctx, "a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(got))
	}
	for i := range entries {
		if got[i].ScriptID != entries[i].ScriptID || !got[i].UsedAt.Equal(entries[i].UsedAt) {
			t.Errorf("entry %d: expected %+v, got %+v", i, entries[i], got[i])
		}
	}

	if err := s.ReplaceHistory(ctx, "a", entries[:1]); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, _ = s.ListHistory(ctx, "a")
	if len(got) != 1 || got[0].ScriptID != "s2" {
		t.Errorf("expected history to be overwritten, got %+v", got)
	}
}

func TestReplaceHistory_ScopedToLearner(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	s.ReplaceHistory(ctx, "a", []history.Entry{history.New("x", now)})
	s.ReplaceHistory(ctx, "b", []history.Entry{history.New("y", now)})
	s.ReplaceHistory(ctx, "a", nil)

	a, _ := s.ListHistory(ctx, "a")
	b, _ := s.ListHistory(ctx, "b")
	if len(a) != 0 {
		t.Errorf("expected empty history for a, got %+v", a)
	}
	if len(b) != 1 {
		t.Errorf("expected b's history untouched, got %+v", b)
	}
}

func TestListLearners(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	s.SaveScript(ctx, mustScript(t, "carol", "hi", script.CategoryStandard, time.Now()))
	s.SaveScript(ctx, mustScript(t, "alice", "hi", script.CategoryStandard, time.Now()))
	s.ReplaceHistory(ctx, "bob", []history.Entry{history.New("gone", time.Now())})
	s.ReplaceHistory(ctx, "alice", []history.Entry{history.New("x", time.Now())})

	got, err := s.ListLearners(ctx)
	if err != nil {
		t.Fatalf("list learners: %v", err)
	}
	want := []string{"alice", "bob", "carol"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
			break
		}
	}
}
