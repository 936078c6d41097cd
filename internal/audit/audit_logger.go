package audit

import (
	"encoding/json"
	"log"
	"time"
)

type AuditEvent struct {
	Timestamp        time.Time `json:"timestamp"`
	EventType        string    `json:"event_type"`
	PaymentReference string    `json:"payment_reference"`
	Handle           string    `json:"handle,omitempty"`
	Amount           float64   `json:"amount,omitempty"`
	Status           string    `json:"status"`
	Details          any       `json:"details,omitempty"`
}

// AuditLogger emits one-line JSON audit events for every reconciliation
// outcome. Refunded entries are never deleted, so the log plus the table
// together form the audit trail.
type AuditLogger struct{}

func NewAuditLogger() *AuditLogger {
	return &AuditLogger{}
}

func (a *AuditLogger) LogReconciliation(reference, handle string, amount float64, outcome string) {
	event := AuditEvent{
		Timestamp:        time.Now(),
		EventType:        "RECONCILE",
		PaymentReference: reference,
		Handle:           handle,
		Amount:           amount,
		Status:           outcome,
	}
	a.log(event)
}

func (a *AuditLogger) LogOrphanRefund(reference string) {
	event := AuditEvent{
		Timestamp:        time.Now(),
		EventType:        "ORPHAN_REFUND",
		PaymentReference: reference,
		Status:           "ANOMALY",
	}
	a.log(event)
}

func (a *AuditLogger) LogError(reference string, err error) {
	event := AuditEvent{
		Timestamp:        time.Now(),
		EventType:        "ERROR",
		PaymentReference: reference,
		Status:           "FAILED",
		Details:          map[string]string{"error": err.Error()},
	}
	a.log(event)
}

func (a *AuditLogger) log(event AuditEvent) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
