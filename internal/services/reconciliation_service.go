package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/flexit/backend/internal/audit"
	"github.com/flexit/backend/internal/models"
	"github.com/flexit/backend/internal/store"
)

// ReconciliationService applies normalized payment events to the entry
// store. It is the single mutation path for leaderboard entries and
// guarantees idempotency under at-least-once webhook delivery: the store's
// unique constraint on the payment reference makes creation race-safe, and
// refunds are conditional status flips.
//
// Per payment reference the state machine is
// absent -> completed -> refunded, with refunded terminal.
type ReconciliationService struct {
	store store.EntryStore
	audit *audit.AuditLogger
}

func NewReconciliationService(entryStore store.EntryStore) *ReconciliationService {
	return &ReconciliationService{
		store: entryStore,
		audit: audit.NewAuditLogger(),
	}
}

// Reconcile applies one payment event. The returned result distinguishes
// "applied" outcomes from deliberate no-ops; an error means the store was
// unavailable and the delivery should be retried by the sender. A failed
// insert leaves no partial row.
func (s *ReconciliationService) Reconcile(ctx context.Context, event *models.PaymentEvent) (*models.ReconciliationResult, error) {
	switch event.Outcome {
	case models.OutcomeCompleted:
		return s.reconcileCompleted(ctx, event)
	case models.OutcomeRefunded:
		return s.reconcileRefunded(ctx, event)
	default:
		return nil, fmt.Errorf("unknown event outcome: %s", event.Outcome)
	}
}

func (s *ReconciliationService) reconcileCompleted(ctx context.Context, event *models.PaymentEvent) (*models.ReconciliationResult, error) {
	existing, err := s.store.FindByPaymentReference(ctx, event.OrderID)
	if err == nil {
		log.Printf("[RECONCILE] Entry for order %s already exists (status %s), skipping creation", event.OrderID, existing.Status)
		s.audit.LogReconciliation(event.OrderID, event.Handle, event.AmountPaid, models.ReconcileDuplicateIgnore)
		return &models.ReconciliationResult{Outcome: models.ReconcileDuplicateIgnore}, nil
	}
	if !errors.Is(err, store.ErrEntryNotFound) {
		s.audit.LogError(event.OrderID, err)
		return nil, err
	}

	entry := &models.LeaderboardEntry{
		ID:               uuid.NewString(),
		Handle:           event.Handle,
		AmountPaid:       event.AmountPaid,
		Message:          event.Message,
		PaymentReference: event.OrderID,
		Status:           models.StatusCompleted,
	}

	if err := s.store.Create(ctx, entry); err != nil {
		if errors.Is(err, store.ErrDuplicateReference) {
			// A concurrent delivery of the same order won the insert
			// race; the constraint violation is the idempotency
			// guarantee doing its job.
			log.Printf("[RECONCILE] Concurrent duplicate for order %s, skipping", event.OrderID)
			s.audit.LogReconciliation(event.OrderID, event.Handle, event.AmountPaid, models.ReconcileDuplicateIgnore)
			return &models.ReconciliationResult{Outcome: models.ReconcileDuplicateIgnore}, nil
		}
		s.audit.LogError(event.OrderID, err)
		return nil, err
	}

	log.Printf("[RECONCILE] Created entry %s for order %s: handle=%s amount=%.2f", entry.ID, event.OrderID, entry.Handle, entry.AmountPaid)
	s.audit.LogReconciliation(event.OrderID, event.Handle, event.AmountPaid, models.ReconcileCreated)
	return &models.ReconciliationResult{Outcome: models.ReconcileCreated, Entry: entry}, nil
}

func (s *ReconciliationService) reconcileRefunded(ctx context.Context, event *models.PaymentEvent) (*models.ReconciliationResult, error) {
	updated, err := s.store.MarkRefunded(ctx, event.OrderID)
	if err != nil {
		s.audit.LogError(event.OrderID, err)
		return nil, err
	}

	if updated {
		log.Printf("[RECONCILE] Marked order %s refunded", event.OrderID)
		s.audit.LogReconciliation(event.OrderID, event.Handle, 0, models.ReconcileUpdated)
		return &models.ReconciliationResult{Outcome: models.ReconcileUpdated}, nil
	}

	// Nothing flipped: either the entry is already refunded, or the
	// refund arrived before its completion is visible.
	existing, err := s.store.FindByPaymentReference(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, store.ErrEntryNotFound) {
			log.Printf("[RECONCILE] Refund for unknown order %s", event.OrderID)
			s.audit.LogOrphanRefund(event.OrderID)
			return &models.ReconciliationResult{Outcome: models.ReconcileOrphanRefund}, nil
		}
		s.audit.LogError(event.OrderID, err)
		return nil, err
	}

	log.Printf("[RECONCILE] Order %s already %s, refund ignored", event.OrderID, existing.Status)
	s.audit.LogReconciliation(event.OrderID, event.Handle, 0, models.ReconcileDuplicateIgnore)
	return &models.ReconciliationResult{Outcome: models.ReconcileDuplicateIgnore}, nil
}
