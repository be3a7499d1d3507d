/**
 * @description
 * Webhook ingress for payment gateway events. The raw body is verified
 * against the shared signing secret before any field is read; verified
 * events go to the reconciler, whose handlers are idempotent under
 * redelivery.
 */
package api

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/rizzosai/affiliate-service/pkg/stripeclient"
)

// maxWebhookBody bounds the payload size accepted on the webhook endpoint.
const maxWebhookBody = 1 << 20

// handleStripeWebhook verifies and applies one gateway event.
func (h *Handler) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	event, err := stripeclient.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.webhookKey)
	if errors.Is(err, stripeclient.ErrInvalidSignature) {
		log.Printf("Rejected webhook with invalid signature: %v", err)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}
	if err != nil {
		http.Error(w, "Malformed event payload", http.StatusBadRequest)
		return
	}

	if err := h.reconciler.HandleEvent(r.Context(), event); err != nil {
		// A non-2xx response makes the gateway redeliver; the handlers
		// tolerate the replay.
		log.Printf("Error applying webhook event %s (%s): %v", event.ID, event.Type, err)
		http.Error(w, "Event processing failed", http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"received": true})
}
