package checkout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/stripe/stripe-go/v74"

	"github.com/midnightspa/platform/internal/database"
	"github.com/midnightspa/platform/internal/models"
	"github.com/midnightspa/platform/internal/store"
)

// EventPaymentSucceeded is the only processor event that mutates state;
// everything else is acknowledged and dropped.
const EventPaymentSucceeded = "payment_intent.succeeded"

// HandleEvent reconciles a verified processor event. The whole reconciliation
// runs in one transaction with the order row locked, so a redelivered event
// either sees status=paid and no-ops, or loses the customer insert conflict
// and no-ops. Exactly one customer per paid order either way.
func (s *Service) HandleEvent(ctx context.Context, event stripe.Event) error {
	if event.Type != EventPaymentSucceeded {
		return nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return fmt.Errorf("unmarshal payment intent: %w", err)
	}

	orderID := pi.Metadata["orderId"]
	leadID := pi.Metadata["leadId"]
	if orderID == "" || leadID == "" {
		return fmt.Errorf("payment intent %s is missing order metadata", pi.ID)
	}

	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		order, err := store.GetOrderForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}

		if order.Status == models.OrderStatusPaid {
			log.Printf("Webhook redelivery for order %s, already paid", orderID)
			return nil
		}

		lead, err := store.GetLead(ctx, tx, leadID)
		if err != nil {
			return err
		}

		customer, err := store.CreateCustomer(ctx, tx, lead, order.ID, pi.ID)
		if err != nil {
			if errors.Is(err, database.ErrCustomerExists) {
				log.Printf("Customer already exists for order %s", orderID)
				return nil
			}
			return err
		}

		if err := store.MarkOrderPaid(ctx, tx, order.ID, customer.ID, pi.ID); err != nil {
			if errors.Is(err, database.ErrOrderAlreadyPaid) {
				return nil
			}
			return err
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("reconcile payment for order %s: %w", orderID, err)
	}

	return nil
}
