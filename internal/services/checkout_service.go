package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/flexit/backend/internal/config"
	"github.com/flexit/backend/internal/models"
)

// CheckoutService hands a submission off to the payment processor. The
// processor integration itself is a URL handoff: custom fields travel as
// checkout parameters and come back to us through the webhook. In mock
// mode (never in production) checkouts short-circuit through the real
// reconciliation pipeline instead.
type CheckoutService struct {
	redis      *redis.Client
	validator  *ValidationHelper
	reconciler *ReconciliationService
	cfg        *config.LemonSqueezyConfig
	production bool
}

// CheckoutRequest represents the checkout initiation payload
// @Description Checkout initiation request structure
type CheckoutRequest struct {
	Handle  string  `json:"handle" validate:"required,min=1,max=255" example:"@alice"` // Social handle or website URL
	Amount  float64 `json:"amount" validate:"required,gte=1" example:"25"`             // Amount in currency units, at least 1
	Message string  `json:"message" validate:"max=500" example:"flexing"`              // Optional flex message
}

// CheckoutResponse represents the checkout initiation result
// @Description Checkout initiation response structure
type CheckoutResponse struct {
	CheckoutURL string `json:"checkoutUrl"`      // Provider checkout URL
	CheckoutID  string `json:"checkoutId"`       // Correlation id for this checkout
	QRCode      string `json:"qrCode,omitempty"` // Base64 PNG of the checkout URL
}

func NewCheckoutService(redisClient *redis.Client, reconciler *ReconciliationService, cfg *config.LemonSqueezyConfig) *CheckoutService {
	return &CheckoutService{
		redis:      redisClient,
		validator:  NewValidationHelper(),
		reconciler: reconciler,
		cfg:        cfg,
		production: config.IsProduction(),
	}
}

// CreateCheckout initiates a checkout session.
// @Summary Create a checkout session
// @Description Validate a submission and build the payment-processor checkout URL
// @Tags checkout
// @Accept json
// @Produce json
// @Param request body CheckoutRequest true "Checkout request"
// @Success 200 {object} CheckoutResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /checkout [post]
func (s *CheckoutService) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req CheckoutRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	checkoutURL, err := s.buildCheckoutURL(&req)
	if err != nil {
		log.Printf("[CHECKOUT] Failed to build checkout URL: %v", err)
		SendErrorResponse(w, err.Error(), http.StatusInternalServerError, nil)
		return
	}

	checkoutID := fmt.Sprintf("checkout-%s", uuid.NewString())
	s.trackPendingCheckout(r.Context(), checkoutID, &req)

	log.Printf("[CHECKOUT] Created checkout %s for handle %s, amount %.2f", checkoutID, req.Handle, req.Amount)

	SendJSONResponse(w, http.StatusOK, CheckoutResponse{
		CheckoutURL: checkoutURL,
		CheckoutID:  checkoutID,
		QRCode:      s.encodeQRCode(checkoutURL),
	})
}

// MockCheckout simulates the processor's checkout completion during
// development: it synthesizes a completed payment event and runs it
// through the real reconciliation pipeline.
// @Summary Mock checkout completion (development only)
// @Tags checkout
// @Param handle query string true "Handle"
// @Param amount query number true "Amount"
// @Param message query string false "Message"
// @Success 302
// @Router /mock-checkout [get]
func (s *CheckoutService) MockCheckout(w http.ResponseWriter, r *http.Request) {
	handle := r.URL.Query().Get("handle")
	amountStr := r.URL.Query().Get("amount")
	message := r.URL.Query().Get("message")

	if handle == "" || amountStr == "" {
		s.redirectError(w, r, "invalid_parameters")
		return
	}

	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil || amount < 1 {
		s.redirectError(w, r, "invalid_amount")
		return
	}

	event := &models.PaymentEvent{
		OrderID:    fmt.Sprintf("mock-payment-%d", time.Now().UnixNano()),
		Handle:     handle,
		AmountPaid: amount,
		Message:    message,
		Outcome:    models.OutcomeCompleted,
	}

	if _, err := s.reconciler.Reconcile(r.Context(), event); err != nil {
		log.Printf("[CHECKOUT] Mock checkout failed for handle %s: %v", handle, err)
		s.redirectError(w, r, "checkout_failed")
		return
	}

	log.Printf("[CHECKOUT] Mock checkout completed: order=%s handle=%s amount=%.2f", event.OrderID, handle, amount)
	http.Redirect(w, r, s.cfg.AppURL+"/success", http.StatusFound)
}

func (s *CheckoutService) buildCheckoutURL(req *CheckoutRequest) (string, error) {
	if s.cfg.UseMockCheckout && !s.production {
		return fmt.Sprintf("%s/api/v1/mock-checkout?handle=%s&amount=%s&message=%s",
			s.cfg.AppURL,
			url.QueryEscape(req.Handle),
			url.QueryEscape(strconv.FormatFloat(req.Amount, 'f', -1, 64)),
			url.QueryEscape(req.Message)), nil
	}

	if s.cfg.ProductURL == "" {
		return "", fmt.Errorf("payment provider product URL not configured")
	}

	// The provider expects the custom price in minor units.
	amountInCents := int64(req.Amount*100 + 0.5)

	return fmt.Sprintf("%s?checkout[custom][handle]=%s&checkout[custom][message]=%s&checkout[custom_price]=%d&checkout[redirect_url]=%s",
		s.cfg.ProductURL,
		url.QueryEscape(req.Handle),
		url.QueryEscape(req.Message),
		amountInCents,
		url.QueryEscape(s.cfg.AppURL+"/success")), nil
}

// trackPendingCheckout records the session in Redis for correlation with
// the eventual webhook. Best effort: checkout still succeeds without
// Redis, the session is just not observable.
func (s *CheckoutService) trackPendingCheckout(ctx context.Context, checkoutID string, req *CheckoutRequest) {
	if s.redis == nil {
		return
	}

	data, err := json.Marshal(map[string]any{
		"handle":    req.Handle,
		"amount":    req.Amount,
		"message":   req.Message,
		"createdAt": time.Now().Unix(),
	})
	if err != nil {
		return
	}

	key := fmt.Sprintf("checkout:%s", checkoutID)
	if err := s.redis.Set(ctx, key, data, 24*time.Hour).Err(); err != nil {
		log.Printf("[CHECKOUT] Failed to track pending checkout %s: %v", checkoutID, err)
	}
}

func (s *CheckoutService) encodeQRCode(checkoutURL string) string {
	png, err := qrcode.Encode(checkoutURL, qrcode.Medium, 256)
	if err != nil {
		log.Printf("[CHECKOUT] Failed to generate QR code: %v", err)
		return ""
	}
	return base64.StdEncoding.EncodeToString(png)
}

func (s *CheckoutService) redirectError(w http.ResponseWriter, r *http.Request, errType string) {
	http.Redirect(w, r, fmt.Sprintf("%s/error?type=%s", s.cfg.AppURL, errType), http.StatusFound)
}
