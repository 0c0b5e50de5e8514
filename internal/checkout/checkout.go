// Package checkout orchestrates the purchase flow: capturing a lead,
// snapshotting an order and opening a payment intent with the processor,
// then reconciling the processor's asynchronous confirmation.
package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/midnightspa/platform/internal/payments"
	"github.com/midnightspa/platform/internal/store"
)

var (
	// ErrInvalidRequest marks client payload problems; handlers map it to 422.
	ErrInvalidRequest = errors.New("invalid checkout request")
	// ErrIntentFailed means the order was persisted but the processor call
	// failed; the order is parked as intent_failed and the client may retry.
	ErrIntentFailed = errors.New("payment intent creation failed")
)

type Service struct {
	db      *sql.DB
	intents payments.IntentClient
}

func NewService(db *sql.DB, intents payments.IntentClient) *Service {
	return &Service{db: db, intents: intents}
}

// FormData mirrors the checkout form the storefront submits.
type FormData struct {
	Email      string `json:"email"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type ItemInput struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
	// Price is what the client displayed. It is ignored for charging;
	// the server re-reads prices from the catalog.
	Price float64 `json:"price"`
}

type InitiateRequest struct {
	FormData  FormData    `json:"formData"`
	Items     []ItemInput `json:"items"`
	IsDigital bool        `json:"isDigital"`
	Total     float64     `json:"total"`
}

type InitiateResponse struct {
	ClientSecret string `json:"clientSecret"`
	OrderID      string `json:"orderId"`
}

func (r *InitiateRequest) validate() error {
	if r.FormData.Email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidRequest)
	}
	if r.FormData.FirstName == "" || r.FormData.LastName == "" {
		return fmt.Errorf("%w: first and last name are required", ErrInvalidRequest)
	}
	if len(r.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalidRequest)
	}
	for _, item := range r.Items {
		if item.ProductID == 0 {
			return fmt.Errorf("%w: item is missing a product id", ErrInvalidRequest)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item quantity must be positive", ErrInvalidRequest)
		}
	}
	if !r.IsDigital {
		if r.FormData.Address == "" || r.FormData.City == "" || r.FormData.Country == "" {
			return fmt.Errorf("%w: shipping address is required for physical orders", ErrInvalidRequest)
		}
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Initiate persists the lead and the order atomically, then opens a payment
// intent for the recomputed total. Digital orders drop every shipping field
// regardless of what the client sent.
func (s *Service) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	lead := store.LeadParams{
		Email:     req.FormData.Email,
		FirstName: req.FormData.FirstName,
		LastName:  req.FormData.LastName,
		Phone:     optional(req.FormData.Phone),
	}
	if !req.IsDigital {
		lead.Address = optional(req.FormData.Address)
		lead.City = optional(req.FormData.City)
		lead.PostalCode = optional(req.FormData.PostalCode)
		lead.Country = optional(req.FormData.Country)
	}

	items := make([]store.CheckoutItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, store.CheckoutItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	order, err := store.CreateCheckoutOrder(ctx, s.db, store.CreateCheckoutOrderParams{
		Lead:        lead,
		Items:       items,
		IsDigital:   req.IsDigital,
		ClientTotal: decimal.NewFromFloat(req.Total),
	})
	if err != nil {
		return nil, err
	}

	intent, err := s.intents.CreateIntent(ctx, payments.CreateIntentParams{
		Amount:   payments.MinorUnits(order.TotalAmount),
		Currency: "usd",
		Metadata: map[string]string{
			"orderId":   order.ID,
			"leadId":    order.LeadID,
			"isDigital": strconv.FormatBool(order.IsDigital),
		},
	})
	if err != nil {
		if markErr := store.MarkOrderIntentFailed(ctx, s.db, order.ID); markErr != nil {
			log.Printf("Mark order %s intent_failed: %v", order.ID, markErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrIntentFailed, err)
	}

	return &InitiateResponse{
		ClientSecret: intent.ClientSecret,
		OrderID:      order.ID,
	}, nil
}
