package models

import (
	"time"
)

// Entry status values. Refunded entries stay in the table as an audit
// trail but are excluded from ranking output.
const (
	StatusCompleted = "completed"
	StatusRefunded  = "refunded"
)

// LeaderboardEntry represents one claimed, paid-for slot on the board.
// AmountPaid is the sole ranking key and is only ever set at creation;
// refunds flip the status and leave the amount untouched.
type LeaderboardEntry struct {
	ID               string    `json:"id" db:"id"`
	Handle           string    `json:"handle" db:"handle"`
	AmountPaid       float64   `json:"amountPaid" db:"amount_paid"`
	Message          string    `json:"message" db:"message"`
	PaymentReference string    `json:"paymentReference,omitempty" db:"payment_reference"`
	Status           string    `json:"status,omitempty" db:"payment_status"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time `json:"updatedAt" db:"updated_at"`
}

// PublicEntry is the read-path projection of an entry. Status and the
// payment reference never leave the backend.
type PublicEntry struct {
	Rank       int       `json:"rank"`
	ID         string    `json:"id"`
	Handle     string    `json:"handle"`
	AmountPaid float64   `json:"amountPaid"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Public strips the internal fields and attaches a dense 1-based rank.
func (e *LeaderboardEntry) Public(rank int) PublicEntry {
	return PublicEntry{
		Rank:       rank,
		ID:         e.ID,
		Handle:     e.Handle,
		AmountPaid: e.AmountPaid,
		Message:    e.Message,
		CreatedAt:  e.CreatedAt,
	}
}

// PaymentEvent outcome values.
const (
	OutcomeCompleted = "completed"
	OutcomeRefunded  = "refunded"
)

// PaymentEvent is the canonical, transient shape of a provider webhook
// event after normalization. Handle, AmountPaid and Message are only
// meaningful for completed events.
type PaymentEvent struct {
	OrderID    string  `json:"orderId"`
	Handle     string  `json:"handle"`
	AmountPaid float64 `json:"amountPaid"`
	Message    string  `json:"message"`
	Outcome    string  `json:"outcome"`
}

// Reconciliation outcomes. Duplicate deliveries are expected steady-state
// behavior under at-least-once delivery, not errors.
const (
	ReconcileCreated         = "created"
	ReconcileUpdated         = "updated"
	ReconcileDuplicateIgnore = "duplicate-ignored"
	ReconcileOrphanRefund    = "orphan-refund"
)

// ReconciliationResult reports what applying a PaymentEvent did. Entry is
// set for created/updated outcomes.
type ReconciliationResult struct {
	Outcome string            `json:"outcome"`
	Entry   *LeaderboardEntry `json:"entry,omitempty"`
}
