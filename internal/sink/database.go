package sink

import (
	"context"
	"log/slog"

	"github.com/nao1215/sitescan/internal/database"
	"github.com/nao1215/sitescan/internal/model"
)

// DatabaseSink records runs in the history database.
type DatabaseSink struct {
	db     *database.RunDB
	logger *slog.Logger
}

// NewDatabaseSink creates a DatabaseSink. A nil logger means slog.Default.
func NewDatabaseSink(db *database.RunDB, logger *slog.Logger) *DatabaseSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatabaseSink{db: db, logger: logger}
}

// Write implements ResultSink.
func (s *DatabaseSink) Write(ctx context.Context, state *model.RunState) error {
	if s.db == nil {
		return ErrNoDatabase
	}
	if err := s.db.SaveRun(ctx, state); err != nil {
		return err
	}
	s.logger.Info("run saved", "run_id", state.ID, "database", s.db.Location())
	return nil
}
