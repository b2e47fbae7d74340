package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/jask/creditofacil/internal/database"
)

func openJournal(t *testing.T) (*JournalRepo, *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	require.NoError(t, database.RunMigrations(path))
	db, err := database.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewJournalRepo(db), db
}

func fixedClock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		out := cur
		cur = cur.Add(time.Minute)
		return out
	}
}

func TestJournalSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo, _ := openJournal(t)
	repo.now = fixedClock(time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC))

	s, err := repo.StartSession(ctx)
	require.NoError(t, err)
	require.Equal(t, OutcomeInProgress, s.Outcome)

	customer := int64(1)
	_, err = repo.Append(ctx, Entry{SessionID: s.ID, Step: StepRegistered, CustomerID: &customer, CPFDigest: "abc"})
	require.NoError(t, err)
	loan := int64(9)
	_, err = repo.Append(ctx, Entry{SessionID: s.ID, Step: StepRequested, CustomerID: &customer, LoanID: &loan, AmountCents: 150000, Installments: 12, Rate: 2.5, Status: "pendente"})
	require.NoError(t, err)

	require.NoError(t, repo.FinishSession(ctx, s.ID, OutcomeReleased))

	sessions, err := repo.ListSessions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, OutcomeReleased, sessions[0].Outcome)
	require.Equal(t, 2, sessions[0].EntryCount)
	require.NotNil(t, sessions[0].FinishedAt)

	entries, err := repo.Entries(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, StepRegistered, entries[0].Step)
	require.Nil(t, entries[0].LoanID)
	require.Equal(t, "abc", entries[0].CPFDigest)
	require.Equal(t, int64(9), *entries[1].LoanID)
	require.Equal(t, int64(150000), entries[1].AmountCents)
	require.Equal(t, 2.5, entries[1].Rate)
	require.True(t, entries[1].CreatedAt.After(entries[0].CreatedAt))
}

func TestFinishUnknownSession(t *testing.T) {
	repo, _ := openJournal(t)
	err := repo.FinishSession(context.Background(), "missing", OutcomeAbandoned)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAppendRequiresSession(t *testing.T) {
	repo, _ := openJournal(t)
	_, err := repo.Append(context.Background(), Entry{SessionID: "missing", Step: StepAnalysed})
	require.Error(t, err, "foreign key should reject orphan entries")
}

func TestListSessionsNewestFirstAndLimit(t *testing.T) {
	ctx := context.Background()
	repo, _ := openJournal(t)
	repo.now = fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	var ids []string
	for i := 0; i < 3; i++ {
		s, err := repo.StartSession(ctx)
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}
	sessions, err := repo.ListSessions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, ids[2], sessions[0].ID)
	require.Equal(t, ids[1], sessions[1].ID)
}

func TestPurgeRemovesOldSessions(t *testing.T) {
	ctx := context.Background()
	repo, _ := openJournal(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	repo.now = func() time.Time { return base }
	old, err := repo.StartSession(ctx)
	require.NoError(t, err)
	_, err = repo.Append(ctx, Entry{SessionID: old.ID, Step: StepRegistered})
	require.NoError(t, err)

	repo.now = func() time.Time { return base.AddDate(0, 2, 0) }
	recent, err := repo.StartSession(ctx)
	require.NoError(t, err)
	_, err = repo.Append(ctx, Entry{SessionID: recent.ID, Step: StepRegistered})
	require.NoError(t, err)

	n, err := repo.Purge(ctx, base.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, recent.ID, all[0].SessionID)
}

func TestAppendErrorIsWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("disk full")
	mock.ExpectExec("INSERT INTO journal_entries").WillReturnError(boom)

	repo := NewJournalRepo(db)
	_, err = repo.Append(context.Background(), Entry{SessionID: "s", Step: StepSigned})
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "append journal entry")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinishSessionNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE journal_sessions").WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewJournalRepo(db)
	require.ErrorIs(t, repo.FinishSession(context.Background(), "s", OutcomeAbandoned), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM journal_entries").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM journal_sessions").WillReturnError(errors.New("locked"))
	mock.ExpectRollback()

	repo := NewJournalRepo(db)
	_, err = repo.Purge(context.Background(), time.Now())
	require.ErrorContains(t, err, "purge sessions")
	require.NoError(t, mock.ExpectationsWereMet())
}
