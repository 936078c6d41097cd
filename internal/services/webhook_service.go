package services

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/flexit/backend/internal/config"
)

// WebhookService is the inbound boundary of the reconciliation pipeline:
// verify the delivery, normalize the payload, reconcile the event. It
// owns the HTTP status contract with the payment processor — a 500 tells
// the sender to retry, a 200 acknowledges processing or deliberate
// ignoring.
type WebhookService struct {
	verifier   *SignatureVerifier
	normalizer *EventNormalizer
	reconciler *ReconciliationService
	production bool
}

func NewWebhookService(verifier *SignatureVerifier, normalizer *EventNormalizer, reconciler *ReconciliationService) *WebhookService {
	return &WebhookService{
		verifier:   verifier,
		normalizer: normalizer,
		reconciler: reconciler,
		production: config.IsProduction(),
	}
}

// HandleWebhook processes a provider webhook delivery.
// @Summary Payment processor webhook
// @Description Receives order lifecycle events from the payment processor
// @Tags webhooks
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /webhooks/lemonsqueezy [post]
func (s *WebhookService) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("[WEBHOOK] Failed to read request body: %v", err)
		SendErrorResponse(w, "Failed to read request body", http.StatusBadRequest, nil)
		return
	}

	signature := r.Header.Get("X-Signature")
	if !s.verifier.Verify(rawBody, signature) {
		log.Printf("[WEBHOOK] Invalid signature from IP: %s", r.RemoteAddr)
		// Outside production a bad or missing signature is logged and
		// processing continues, so local payloads can be replayed
		// without the provider secret.
		if s.production {
			SendErrorResponse(w, "Invalid signature", http.StatusUnauthorized, nil)
			return
		}
	}

	var payload map[string]any
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		log.Printf("[WEBHOOK] Failed to parse webhook body: %v", err)
		SendErrorResponse(w, "Invalid JSON body", http.StatusBadRequest, nil)
		return
	}

	event := s.normalizer.Normalize(payload)
	if event == nil {
		SendJSONResponse(w, http.StatusOK, map[string]string{"message": "Event ignored or not relevant"})
		return
	}

	result, err := s.reconciler.Reconcile(r.Context(), event)
	if err != nil {
		// Store failure: tell the processor to redeliver later. Nothing
		// partial was written.
		log.Printf("[WEBHOOK] Reconciliation failed for order %s: %v", event.OrderID, err)
		SendErrorResponse(w, "Failed to process webhook", http.StatusInternalServerError, nil)
		return
	}

	SendJSONResponse(w, http.StatusOK, map[string]string{
		"message": "Webhook processed successfully",
		"outcome": result.Outcome,
	})
}
