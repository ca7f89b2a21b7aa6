package main

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/scriptboard/backend/internal/store"
)

const defaultDatabasePath = "scriptboard.db"

type commandContext struct {
	dbFlag *string

	storeOnce sync.Once
	store     *store.SQLiteStore
	storeErr  error
}

func newCommandContext(dbFlag *string) *commandContext {
	return &commandContext{dbFlag: dbFlag}
}

func (c *commandContext) databasePath() string {
	if c.dbFlag != nil {
		if path := strings.TrimSpace(*c.dbFlag); path != "" {
			return path
		}
	}
	_ = godotenv.Load()
	if path := os.Getenv("DATABASE_PATH"); path != "" {
		return path
	}
	return defaultDatabasePath
}

func (c *commandContext) ensureStore() (*store.SQLiteStore, error) {
	c.storeOnce.Do(func() {
		c.store, c.storeErr = store.NewSQLite(c.databasePath())
	})
	return c.store, c.storeErr
}

func (c *commandContext) close() error {
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}

func (c *commandContext) logger(out io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func requireLearner(learnerID string) error {
	if strings.TrimSpace(learnerID) == "" {
		return errors.New("--learner is required")
	}
	return nil
}
