package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/midnightspa/platform/internal/checkout"
	"github.com/midnightspa/platform/internal/database"
	"github.com/midnightspa/platform/internal/payments"
)

// Stripe sends events up to 64 KiB; anything larger is not ours.
const maxWebhookBody = 65536

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkout.InitiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.checkout.Initiate(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrInvalidRequest):
			respondError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, database.ErrProductNotFound):
			respondError(w, http.StatusUnprocessableEntity, "Unknown or unpublished product in cart")
		case errors.Is(err, database.ErrTotalMismatch):
			respondError(w, http.StatusUnprocessableEntity, "Order total does not match current prices")
		case errors.Is(err, database.ErrDigitalMismatch):
			respondError(w, http.StatusUnprocessableEntity, "Cart digital flag does not match the catalog")
		case errors.Is(err, checkout.ErrIntentFailed):
			log.Printf("Checkout intent error: %v", err)
			respondError(w, http.StatusBadGateway, "Payment processor unavailable, please retry")
		default:
			log.Printf("Checkout error: %v", err)
			respondError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// StripeWebhook verifies the processor signature before trusting anything in
// the body. A bad signature is a 400 with zero state change; processing
// failures are 500 so the processor redelivers.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Unable to read request body")
		return
	}

	event, err := payments.VerifyEvent(payload, r.Header.Get("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		log.Printf("Webhook signature verification failed: %v", err)
		respondError(w, http.StatusBadRequest, "Invalid signature")
		return
	}

	if err := h.checkout.HandleEvent(r.Context(), event); err != nil {
		log.Printf("Webhook processing failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Webhook processing failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}
