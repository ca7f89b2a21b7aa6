package service

import (
	"context"
	"log/slog"

	quizsession "github.com/scriptboard/backend/internal/domain/quiz_session"
)

// LogSink is the completion feedback used when no audio or visual channel
// is attached: it writes one log line per solved quiz.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Celebrate(ctx context.Context, setup *quizsession.Setup) error {
	s.logger.InfoContext(ctx, "quiz solved",
		"script_id", setup.Correct.ID,
		"text", setup.Correct.Text,
	)
	return nil
}
