package payments

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/webhook"
)

// Intent is the slice of a processor payment intent the checkout flow needs.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
}

type CreateIntentParams struct {
	Amount   int64
	Currency string
	Metadata map[string]string
}

// IntentClient creates charge intents with the payment processor. Tests
// substitute a fake; production wires the Stripe-backed client below.
type IntentClient interface {
	CreateIntent(ctx context.Context, p CreateIntentParams) (*Intent, error)
}

type StripeClient struct {
	intents *paymentintent.Client
}

func NewStripeClient(secretKey string) *StripeClient {
	return &StripeClient{
		intents: &paymentintent.Client{
			B:   stripe.GetBackend(stripe.APIBackend),
			Key: secretKey,
		},
	}
}

func (c *StripeClient) CreateIntent(ctx context.Context, p CreateIntentParams) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(p.Amount),
		Currency: stripe.String(p.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := c.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
	}, nil
}

// MinorUnits converts a decimal amount to processor minor units with
// half-up rounding, so 19.999 charges 2000 cents rather than 1999.
func MinorUnits(total decimal.Decimal) int64 {
	return total.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// VerifyEvent authenticates a webhook payload against the signing secret
// before anything in it is trusted.
func VerifyEvent(payload []byte, sigHeader, secret string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, secret)
}
