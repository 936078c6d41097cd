package services

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/flexit/backend/internal/config"
	"github.com/flexit/backend/internal/models"
	"github.com/flexit/backend/internal/store"
)

func newCheckoutService(entryStore *MockEntryStore, cfg *config.LemonSqueezyConfig) *CheckoutService {
	return NewCheckoutService(nil, NewReconciliationService(entryStore), cfg)
}

func postCheckout(service *CheckoutService, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest("POST", "/api/v1/checkout", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	service.CreateCheckout(w, r)
	return w
}

func TestCheckoutService_CreateCheckout(t *testing.T) {
	productCfg := &config.LemonSqueezyConfig{
		ProductURL: "https://store.lemonsqueezy.com/buy/prod-1",
		AppURL:     "http://localhost:8080",
	}

	t.Run("builds provider checkout URL", func(t *testing.T) {
		service := newCheckoutService(&MockEntryStore{}, productCfg)

		w := postCheckout(service, `{"handle": "@alice", "amount": 25, "message": "flex msg"}`)
		assert.Equal(t, http.StatusOK, w.Code)

		var response CheckoutResponse
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Contains(t, response.CheckoutURL, "https://store.lemonsqueezy.com/buy/prod-1")
		assert.Contains(t, response.CheckoutURL, "checkout[custom][handle]=%40alice")
		assert.Contains(t, response.CheckoutURL, "checkout[custom_price]=2500")
		assert.Contains(t, response.CheckoutID, "checkout-")
		assert.NotEmpty(t, response.QRCode)
	})

	t.Run("mock mode points at the local completion path", func(t *testing.T) {
		service := newCheckoutService(&MockEntryStore{}, &config.LemonSqueezyConfig{
			AppURL:          "http://localhost:8080",
			UseMockCheckout: true,
		})

		w := postCheckout(service, `{"handle": "@alice", "amount": 5}`)
		assert.Equal(t, http.StatusOK, w.Code)

		var response CheckoutResponse
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Contains(t, response.CheckoutURL, "/api/v1/mock-checkout?handle=%40alice")
	})

	t.Run("missing handle rejected", func(t *testing.T) {
		service := newCheckoutService(&MockEntryStore{}, productCfg)

		w := postCheckout(service, `{"amount": 25}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("amount below one rejected", func(t *testing.T) {
		service := newCheckoutService(&MockEntryStore{}, productCfg)

		w := postCheckout(service, `{"handle": "@alice", "amount": 0.5}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid body rejected", func(t *testing.T) {
		service := newCheckoutService(&MockEntryStore{}, productCfg)

		w := postCheckout(service, `not json`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unconfigured provider fails", func(t *testing.T) {
		service := newCheckoutService(&MockEntryStore{}, &config.LemonSqueezyConfig{AppURL: "http://localhost:8080"})

		w := postCheckout(service, `{"handle": "@alice", "amount": 25}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestCheckoutService_MockCheckout(t *testing.T) {
	cfg := &config.LemonSqueezyConfig{AppURL: "http://localhost:8080", UseMockCheckout: true}

	t.Run("reconciles through the real pipeline and redirects", func(t *testing.T) {
		entryStore := &MockEntryStore{}
		service := newCheckoutService(entryStore, cfg)

		entryStore.On("FindByPaymentReference", mock.Anything, mock.Anything).
			Return(nil, store.ErrEntryNotFound)
		entryStore.On("Create", mock.Anything, mock.MatchedBy(func(e *models.LeaderboardEntry) bool {
			return e.Handle == "@alice" && e.AmountPaid == 12.50 && e.Status == models.StatusCompleted
		})).Return(nil)

		r := httptest.NewRequest("GET", "/api/v1/mock-checkout?handle=%40alice&amount=12.5&message=hi", nil)
		w := httptest.NewRecorder()
		service.MockCheckout(w, r)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "http://localhost:8080/success", w.Header().Get("Location"))
		entryStore.AssertExpectations(t)
	})

	t.Run("missing parameters redirect to error page", func(t *testing.T) {
		service := newCheckoutService(&MockEntryStore{}, cfg)

		r := httptest.NewRequest("GET", "/api/v1/mock-checkout?amount=10", nil)
		w := httptest.NewRecorder()
		service.MockCheckout(w, r)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Contains(t, w.Header().Get("Location"), "type=invalid_parameters")
	})

	t.Run("invalid amount redirects to error page", func(t *testing.T) {
		service := newCheckoutService(&MockEntryStore{}, cfg)

		r := httptest.NewRequest("GET", "/api/v1/mock-checkout?handle=%40alice&amount=0", nil)
		w := httptest.NewRecorder()
		service.MockCheckout(w, r)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Contains(t, w.Header().Get("Location"), "type=invalid_amount")
	})
}
