package services

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/flexit/backend/internal/models"
)

// EventNormalizer parses provider webhook payloads into canonical
// PaymentEvents. Unrecognized or irrelevant events normalize to nil,
// which callers must treat as "nothing to reconcile", not as failure.
type EventNormalizer struct{}

func NewEventNormalizer() *EventNormalizer {
	return &EventNormalizer{}
}

// customFieldExtractor probes one possible location of the custom
// handle/message metadata inside the order attributes. The provider
// stores custom checkout data in different places depending on how the
// checkout was created, so extraction is an ordered strategy list and the
// first non-empty value per field wins.
type customFieldExtractor struct {
	name    string
	extract func(attrs map[string]any) (handle, message string)
}

var customFieldExtractors = []customFieldExtractor{
	{
		name: "checkout_data.custom",
		extract: func(attrs map[string]any) (string, string) {
			custom := mapAt(attrs, "checkout_data", "custom")
			return stringField(custom, "handle"), stringField(custom, "message")
		},
	},
	{
		name: "checkout_data.custom_fields",
		extract: func(attrs map[string]any) (string, string) {
			fields := mapAt(attrs, "checkout_data", "custom_fields")
			return stringField(fields, "handle"), stringField(fields, "message")
		},
	},
	{
		name: "custom_data",
		extract: func(attrs map[string]any) (string, string) {
			switch v := attrs["custom_data"].(type) {
			case map[string]any:
				return stringField(v, "handle"), stringField(v, "message")
			case string:
				// Some checkouts deliver the custom block as a
				// JSON-encoded string blob.
				var parsed map[string]any
				if err := json.Unmarshal([]byte(v), &parsed); err != nil {
					log.Printf("[WEBHOOK] Failed to parse custom_data blob: %v", err)
					return "", ""
				}
				return stringField(parsed, "handle"), stringField(parsed, "message")
			default:
				return "", ""
			}
		},
	},
	{
		name: "order attributes",
		extract: func(attrs map[string]any) (string, string) {
			return "", stringField(attrs, "custom_message")
		},
	},
}

// Normalize dispatches on meta.event_name. Order lifecycle events map to
// completed/refunded outcomes; everything else (subscription lifecycle,
// unknown kinds, payloads without an event name) is ignored.
func (n *EventNormalizer) Normalize(payload map[string]any) *models.PaymentEvent {
	eventName := stringField(mapAt(payload, "meta"), "event_name")
	if eventName == "" {
		log.Printf("[WEBHOOK] Payload has no event name, ignoring")
		return nil
	}

	switch eventName {
	case "order_created":
		return n.normalizeOrderCreated(payload)
	case "order_refunded":
		return n.normalizeOrderRefunded(payload)
	default:
		if strings.HasPrefix(eventName, "subscription_") {
			log.Printf("[WEBHOOK] Subscription event received but not processed: %s", eventName)
		} else {
			log.Printf("[WEBHOOK] Unhandled webhook event: %s", eventName)
		}
		return nil
	}
}

func (n *EventNormalizer) normalizeOrderCreated(payload map[string]any) *models.PaymentEvent {
	orderID := orderIDOf(payload)
	if orderID == "" {
		log.Printf("[WEBHOOK] order_created event has no order id, ignoring")
		return nil
	}

	attrs := mapAt(payload, "data", "attributes")

	var handle, message string
	for _, extractor := range customFieldExtractors {
		h, m := extractor.extract(attrs)
		if handle == "" && h != "" {
			handle = h
		}
		if message == "" && m != "" {
			message = m
		}
		if handle != "" && message != "" {
			break
		}
	}

	// Fall back to the processor-assigned display name rather than
	// rejecting the payment.
	if handle == "" {
		handle = stringField(attrs, "user_name")
	}
	if handle == "" {
		handle = "anonymous"
	}

	event := &models.PaymentEvent{
		OrderID:    orderID,
		Handle:     handle,
		Message:    message,
		AmountPaid: minorUnitsToAmount(attrs["total"]),
		Outcome:    models.OutcomeCompleted,
	}

	log.Printf("[WEBHOOK] Normalized order_created: order=%s handle=%s amount=%.2f", orderID, handle, event.AmountPaid)
	return event
}

func (n *EventNormalizer) normalizeOrderRefunded(payload map[string]any) *models.PaymentEvent {
	orderID := orderIDOf(payload)
	if orderID == "" {
		log.Printf("[WEBHOOK] order_refunded event has no order id, ignoring")
		return nil
	}

	// Handle is only extracted for logging; refunds don't need it.
	attrs := mapAt(payload, "data", "attributes")
	handle := stringField(mapAt(attrs, "checkout_data", "custom"), "handle")

	log.Printf("[WEBHOOK] Normalized order_refunded: order=%s handle=%s", orderID, handle)
	return &models.PaymentEvent{
		OrderID: orderID,
		Handle:  handle,
		Outcome: models.OutcomeRefunded,
	}
}

// Payload navigation helpers. Webhook payloads are arbitrarily nested and
// loosely typed, so lookups tolerate any shape and return zero values.

func mapAt(m map[string]any, keys ...string) map[string]any {
	current := m
	for _, key := range keys {
		next, ok := current[key].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func orderIDOf(payload map[string]any) string {
	data := mapAt(payload, "data")
	if data == nil {
		return ""
	}
	switch v := data["id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// minorUnitsToAmount converts the provider's minor-unit total into a
// decimal currency amount. Missing or unparseable totals become zero; a
// garbled total must not drop the whole event.
func minorUnitsToAmount(total any) float64 {
	switch v := total.(type) {
	case float64:
		return v / 100
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			log.Printf("[WEBHOOK] Unparseable order total %q, defaulting to 0", v)
			return 0
		}
		return parsed / 100
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0
		}
		return parsed / 100
	case nil:
		return 0
	default:
		log.Printf("[WEBHOOK] Unexpected order total type %s, defaulting to 0", fmt.Sprintf("%T", total))
		return 0
	}
}
