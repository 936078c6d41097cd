package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/flexit/backend/internal/models"
)

func TestPostgresEntryStore_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	s := NewPostgresEntryStore(db)

	t.Run("successful create", func(t *testing.T) {
		entry := &models.LeaderboardEntry{
			ID:               "entry-1",
			Handle:           "@alice",
			AmountPaid:       10.00,
			Message:          "flexing",
			PaymentReference: "ord-1",
			Status:           models.StatusCompleted,
		}

		mock.ExpectExec("INSERT INTO leaderboard_entries").
			WithArgs("entry-1", "@alice", 10.00, "flexing", "ord-1", models.StatusCompleted, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := s.Create(context.Background(), entry)
		assert.NoError(t, err)
		assert.False(t, entry.CreatedAt.IsZero())
		assert.Equal(t, entry.CreatedAt, entry.UpdatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate payment reference", func(t *testing.T) {
		entry := &models.LeaderboardEntry{
			ID:               "entry-2",
			Handle:           "@alice",
			AmountPaid:       10.00,
			PaymentReference: "ord-1",
			Status:           models.StatusCompleted,
		}

		mock.ExpectExec("INSERT INTO leaderboard_entries").
			WillReturnError(&pq.Error{Code: "23505"})

		err := s.Create(context.Background(), entry)
		assert.ErrorIs(t, err, ErrDuplicateReference)
	})
}

func TestPostgresEntryStore_FindByPaymentReference(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	s := NewPostgresEntryStore(db)

	columns := []string{"id", "handle", "amount_paid", "message", "payment_reference", "payment_status", "created_at", "updated_at"}

	t.Run("existing entry", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery("SELECT (.+) FROM leaderboard_entries WHERE payment_reference = \\$1").
			WithArgs("ord-1").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("entry-1", "@alice", 10.00, "flexing", "ord-1", models.StatusCompleted, now, now))

		entry, err := s.FindByPaymentReference(context.Background(), "ord-1")
		assert.NoError(t, err)
		assert.Equal(t, "@alice", entry.Handle)
		assert.Equal(t, 10.00, entry.AmountPaid)
		assert.Equal(t, models.StatusCompleted, entry.Status)
	})

	t.Run("missing entry", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM leaderboard_entries WHERE payment_reference = \\$1").
			WithArgs("ord-99").
			WillReturnRows(sqlmock.NewRows(columns))

		entry, err := s.FindByPaymentReference(context.Background(), "ord-99")
		assert.Nil(t, entry)
		assert.ErrorIs(t, err, ErrEntryNotFound)
	})
}

func TestPostgresEntryStore_MarkRefunded(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	s := NewPostgresEntryStore(db)

	t.Run("completed entry refunded", func(t *testing.T) {
		mock.ExpectExec("UPDATE leaderboard_entries SET payment_status = \\$1, updated_at = \\$2 WHERE payment_reference = \\$3 AND payment_status = \\$4").
			WithArgs(models.StatusRefunded, sqlmock.AnyArg(), "ord-1", models.StatusCompleted).
			WillReturnResult(sqlmock.NewResult(0, 1))

		updated, err := s.MarkRefunded(context.Background(), "ord-1")
		assert.NoError(t, err)
		assert.True(t, updated)
	})

	t.Run("no matching completed entry", func(t *testing.T) {
		mock.ExpectExec("UPDATE leaderboard_entries SET payment_status = \\$1, updated_at = \\$2 WHERE payment_reference = \\$3 AND payment_status = \\$4").
			WithArgs(models.StatusRefunded, sqlmock.AnyArg(), "ord-99", models.StatusCompleted).
			WillReturnResult(sqlmock.NewResult(0, 0))

		updated, err := s.MarkRefunded(context.Background(), "ord-99")
		assert.NoError(t, err)
		assert.False(t, updated)
	})
}

func TestPostgresEntryStore_ListCompleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	s := NewPostgresEntryStore(db)

	columns := []string{"id", "handle", "amount_paid", "message", "payment_reference", "payment_status", "created_at", "updated_at"}

	t.Run("unwindowed query orders by amount then age", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery("SELECT (.+) FROM leaderboard_entries WHERE payment_status = \\$1 ORDER BY amount_paid DESC, created_at ASC LIMIT \\$2").
			WithArgs(models.StatusCompleted, 50).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("entry-1", "@topflex", 1000.00, "", "ord-1", models.StatusCompleted, now, now).
				AddRow("entry-2", "@flexer", 250.00, "", "ord-2", models.StatusCompleted, now, now))

		entries, err := s.ListCompleted(context.Background(), time.Time{}, 50)
		assert.NoError(t, err)
		assert.Len(t, entries, 2)
		assert.Equal(t, "@topflex", entries[0].Handle)
	})

	t.Run("windowed query filters on created_at", func(t *testing.T) {
		since := time.Now().Add(-24 * time.Hour)
		mock.ExpectQuery("SELECT (.+) FROM leaderboard_entries WHERE payment_status = \\$1 AND created_at >= \\$2 ORDER BY amount_paid DESC, created_at ASC LIMIT \\$3").
			WithArgs(models.StatusCompleted, since, 50).
			WillReturnRows(sqlmock.NewRows(columns))

		entries, err := s.ListCompleted(context.Background(), since, 50)
		assert.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestPostgresEntryStore_ListAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	s := NewPostgresEntryStore(db)

	columns := []string{"id", "handle", "amount_paid", "message", "payment_reference", "payment_status", "created_at", "updated_at"}
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM leaderboard_entries ORDER BY created_at DESC LIMIT \\$1").
		WithArgs(500).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("entry-1", "@alice", 10.00, "", "ord-1", models.StatusRefunded, now, now))

	entries, err := s.ListAll(context.Background(), 500)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, models.StatusRefunded, entries[0].Status)
}
