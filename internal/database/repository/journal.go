package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jask/creditofacil/internal/database"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("repository: not found")

// JournalRepo stores the local audit trail of wizard runs.
type JournalRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewJournalRepo(db *sql.DB) *JournalRepo {
	return &JournalRepo{db: db, now: database.Now}
}

func (r *JournalRepo) StartSession(ctx context.Context) (Session, error) {
	s := Session{ID: uuid.NewString(), StartedAt: r.now(), Outcome: OutcomeInProgress}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO journal_sessions(id, started_at, outcome) VALUES (?, ?, ?);
	`, s.ID, s.StartedAt, s.Outcome)
	if err != nil {
		return Session{}, fmt.Errorf("start session: %w", err)
	}
	return s, nil
}

func (r *JournalRepo) FinishSession(ctx context.Context, id, outcome string) error {
	res, err := r.db.ExecContext(ctx, `
	UPDATE journal_sessions SET finished_at = ?, outcome = ? WHERE id = ?;
	`, r.now(), outcome, id)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Append stores e, filling in ID and CreatedAt when unset.
func (r *JournalRepo) Append(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO journal_entries(id, session_id, step, customer_id, loan_id, cpf_digest,
		amount_cents, installments, rate, status, note, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`, e.ID, e.SessionID, e.Step, nullInt(e.CustomerID), nullInt(e.LoanID), e.CPFDigest,
		e.AmountCents, e.Installments, e.Rate, e.Status, e.Note, e.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("append journal entry: %w", err)
	}
	return e, nil
}

// ListSessions returns the newest sessions first. limit <= 0 means all.
func (r *JournalRepo) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	q := `
	SELECT s.id, s.started_at, s.finished_at, s.outcome, COUNT(e.id)
	FROM journal_sessions s
	LEFT JOIN journal_entries e ON e.session_id = s.id
	GROUP BY s.id
	ORDER BY s.started_at DESC, s.rowid DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	var out []Session
	for rows.Next() {
		var s Session
		var finished sql.NullTime
		if err := rows.Scan(&s.ID, &s.StartedAt, &finished, &s.Outcome, &s.EntryCount); err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			s.FinishedAt = &t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Entries lists one session's entries in the order they were written.
func (r *JournalRepo) Entries(ctx context.Context, sessionID string) ([]Entry, error) {
	return r.queryEntries(ctx, entrySelect+` WHERE session_id = ? ORDER BY created_at, rowid`, sessionID)
}

// All lists every entry, oldest first.
func (r *JournalRepo) All(ctx context.Context) ([]Entry, error) {
	return r.queryEntries(ctx, entrySelect+` ORDER BY created_at, rowid`)
}

// Purge deletes sessions started before cutoff together with their entries.
func (r *JournalRepo) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
		DELETE FROM journal_entries WHERE session_id IN (SELECT id FROM journal_sessions WHERE started_at < ?);
		`, cutoff.UTC()); err != nil {
			return fmt.Errorf("purge entries: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM journal_sessions WHERE started_at < ?;`, cutoff.UTC())
		if err != nil {
			return fmt.Errorf("purge sessions: %w", err)
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}

const entrySelect = `
	SELECT id, session_id, step, customer_id, loan_id, cpf_digest,
		amount_cents, installments, rate, status, note, created_at
	FROM journal_entries`

func (r *JournalRepo) queryEntries(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var customer, loan sql.NullInt64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Step, &customer, &loan, &e.CPFDigest,
			&e.AmountCents, &e.Installments, &e.Rate, &e.Status, &e.Note, &e.CreatedAt); err != nil {
			return nil, err
		}
		if customer.Valid {
			v := customer.Int64
			e.CustomerID = &v
		}
		if loan.Valid {
			v := loan.Int64
			e.LoanID = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
