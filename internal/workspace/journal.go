package workspace

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/MrJamesThe3rd/gastos/internal/attachment"
	attachmentstore "github.com/MrJamesThe3rd/gastos/internal/attachment/store"
	"github.com/MrJamesThe3rd/gastos/internal/config"
	"github.com/MrJamesThe3rd/gastos/internal/database"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenJournal returns the Postgres journal when a database is configured, after
// applying migrations, and an in-memory journal otherwise. The closer releases
// the database.
func OpenJournal(cfg *config.Config, log *slog.Logger) (attachment.Journal, io.Closer, error) {
	if !cfg.JournalEnabled() {
		log.Info("no database configured, attachment journal kept in memory")
		return attachment.NewMemoryJournal(), nopCloser{}, nil
	}

	if err := database.Migrate(cfg.ConnectionString()); err != nil {
		return nil, nil, fmt.Errorf("migrating database: %w", err)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return nil, nil, err
	}

	return attachmentstore.New(db), db, nil
}
