package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jask/creditofacil/internal/database"
	"github.com/jask/creditofacil/internal/database/repository"
)

// MaintenanceService houses destructive journal operations surfaced through the CLI.
type MaintenanceService struct {
	DB      *sql.DB
	Journal *repository.JournalRepo
}

// Reset wipes the journal. It keeps the schema intact so the app can continue running.
func (s *MaintenanceService) Reset(ctx context.Context) error {
	if s.DB == nil {
		return fmt.Errorf("maintenance: db not configured")
	}
	if err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		for _, t := range []string{"journal_entries", "journal_sessions"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return fmt.Errorf("reset table %s: %w", t, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	_, _ = s.DB.ExecContext(ctx, "VACUUM")
	return nil
}

// PurgeOlderThan removes sessions started more than age ago.
func (s *MaintenanceService) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	if s.Journal == nil {
		return 0, fmt.Errorf("maintenance: journal not configured")
	}
	if age <= 0 {
		return 0, fmt.Errorf("maintenance: age must be positive")
	}
	return s.Journal.Purge(ctx, database.Now().Add(-age))
}
