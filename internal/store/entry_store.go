package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/flexit/backend/internal/models"
)

var (
	// ErrDuplicateReference is returned by Create when an entry with the
	// same payment reference already exists. The unique constraint on
	// payment_reference is the only concurrency control the pipeline
	// needs: two racing deliveries of the same order cannot both insert.
	ErrDuplicateReference = errors.New("entry with payment reference already exists")

	// ErrEntryNotFound is returned by lookups that match no entry.
	ErrEntryNotFound = errors.New("entry not found")
)

// EntryStore is the CRUD-style surface the reconciliation and ranking
// engines depend on. Engines receive it explicitly so tests can swap in
// doubles.
type EntryStore interface {
	Create(ctx context.Context, entry *models.LeaderboardEntry) error
	FindByPaymentReference(ctx context.Context, reference string) (*models.LeaderboardEntry, error)
	// MarkRefunded flips a completed entry to refunded and reports
	// whether a row actually changed. The amount is never touched.
	MarkRefunded(ctx context.Context, reference string) (bool, error)
	ListCompleted(ctx context.Context, since time.Time, limit int) ([]models.LeaderboardEntry, error)
	ListAll(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// PostgresEntryStore implements EntryStore over database/sql.
type PostgresEntryStore struct {
	db *sql.DB
}

func NewPostgresEntryStore(db *sql.DB) *PostgresEntryStore {
	return &PostgresEntryStore{db: db}
}

const entryColumns = "id, handle, amount_paid, message, payment_reference, payment_status, created_at, updated_at"

func (s *PostgresEntryStore) Create(ctx context.Context, entry *models.LeaderboardEntry) error {
	now := time.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO leaderboard_entries
        (id, handle, amount_paid, message, payment_reference, payment_status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, entry.ID, entry.Handle, entry.AmountPaid, entry.Message,
		entry.PaymentReference, entry.Status, entry.CreatedAt, entry.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateReference
		}
		return fmt.Errorf("failed to create entry: %w", err)
	}

	return nil
}

func (s *PostgresEntryStore) FindByPaymentReference(ctx context.Context, reference string) (*models.LeaderboardEntry, error) {
	entry := &models.LeaderboardEntry{}
	err := s.db.QueryRowContext(ctx, `
        SELECT `+entryColumns+`
        FROM leaderboard_entries
        WHERE payment_reference = $1
    `, reference).Scan(
		&entry.ID, &entry.Handle, &entry.AmountPaid, &entry.Message,
		&entry.PaymentReference, &entry.Status, &entry.CreatedAt, &entry.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to fetch entry: %w", err)
	}

	return entry, nil
}

func (s *PostgresEntryStore) MarkRefunded(ctx context.Context, reference string) (bool, error) {
	// Conditional on the current status so a refund delivered twice, or
	// racing another refund, is a no-op rather than a second mutation.
	result, err := s.db.ExecContext(ctx, `
        UPDATE leaderboard_entries
        SET payment_status = $1, updated_at = $2
        WHERE payment_reference = $3 AND payment_status = $4
    `, models.StatusRefunded, time.Now(), reference, models.StatusCompleted)

	if err != nil {
		return false, fmt.Errorf("failed to mark entry refunded: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (s *PostgresEntryStore) ListCompleted(ctx context.Context, since time.Time, limit int) ([]models.LeaderboardEntry, error) {
	conditions := []string{"payment_status = $1"}
	args := []interface{}{models.StatusCompleted}
	argIndex := 2

	if !since.IsZero() {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, since)
		argIndex++
	}

	query := `
        SELECT ` + entryColumns + `
        FROM leaderboard_entries
        WHERE ` + strings.Join(conditions, " AND ") + `
        ORDER BY amount_paid DESC, created_at ASC
    `
	query += fmt.Sprintf(" LIMIT $%d", argIndex)
	args = append(args, limit)

	return s.queryEntries(ctx, query, args...)
}

func (s *PostgresEntryStore) ListAll(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	query := `
        SELECT ` + entryColumns + `
        FROM leaderboard_entries
        ORDER BY created_at DESC
        LIMIT $1
    `
	return s.queryEntries(ctx, query, limit)
}

func (s *PostgresEntryStore) queryEntries(ctx context.Context, query string, args ...interface{}) ([]models.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := []models.LeaderboardEntry{}
	for rows.Next() {
		var entry models.LeaderboardEntry
		err := rows.Scan(
			&entry.ID, &entry.Handle, &entry.AmountPaid, &entry.Message,
			&entry.PaymentReference, &entry.Status, &entry.CreatedAt, &entry.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
