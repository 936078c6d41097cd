package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/flexit/backend/internal/models"
)

type MockEntryStore struct {
	mock.Mock
}

func (m *MockEntryStore) Create(ctx context.Context, entry *models.LeaderboardEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockEntryStore) FindByPaymentReference(ctx context.Context, reference string) (*models.LeaderboardEntry, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LeaderboardEntry), args.Error(1)
}

func (m *MockEntryStore) MarkRefunded(ctx context.Context, reference string) (bool, error) {
	args := m.Called(ctx, reference)
	return args.Bool(0), args.Error(1)
}

func (m *MockEntryStore) ListCompleted(ctx context.Context, since time.Time, limit int) ([]models.LeaderboardEntry, error) {
	args := m.Called(ctx, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LeaderboardEntry), args.Error(1)
}

func (m *MockEntryStore) ListAll(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LeaderboardEntry), args.Error(1)
}
