package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v74"

	"github.com/midnightspa/platform/internal/checkout"
	"github.com/midnightspa/platform/internal/database"
	"github.com/midnightspa/platform/internal/models"
	"github.com/midnightspa/platform/internal/payments"
	"github.com/midnightspa/platform/internal/store"
)

type recordingIntentClient struct {
	mu      sync.Mutex
	intents []payments.CreateIntentParams
	fail    bool
}

func (c *recordingIntentClient) CreateIntent(_ context.Context, p payments.CreateIntentParams) (*payments.Intent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return nil, errors.New("processor unavailable")
	}
	c.intents = append(c.intents, p)
	return &payments.Intent{
		ID:           fmt.Sprintf("pi_test_%d", len(c.intents)),
		ClientSecret: fmt.Sprintf("pi_test_%d_secret", len(c.intents)),
		Amount:       p.Amount,
	}, nil
}

func digitalCheckoutRequest(productID int64, total float64) checkout.InitiateRequest {
	return checkout.InitiateRequest{
		FormData: checkout.FormData{
			Email:      "guest@example.com",
			FirstName:  "Ada",
			LastName:   "Lovelace",
			Phone:      "555-0100",
			Address:    "1 Infinite Loop",
			City:       "Cupertino",
			PostalCode: "95014",
			Country:    "US",
		},
		Items:     []checkout.ItemInput{{ProductID: productID, Quantity: 2, Price: total / 2}},
		IsDigital: true,
		Total:     total,
	}
}

func succeededEvent(orderID, leadID, intentID string) stripe.Event {
	raw := fmt.Sprintf(`{"id":%q,"metadata":{"orderId":%q,"leadId":%q,"isDigital":"true"}}`,
		intentID, orderID, leadID)
	return stripe.Event{
		Type: checkout.EventPaymentSucceeded,
		Data: &stripe.EventData{Raw: json.RawMessage(raw)},
	}
}

func TestCheckoutCreatesLeadAndOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	product, err := store.CreateProduct(ctx, db, store.ProductParams{
		SKU: "SLEEP-001", Slug: "sleep-bundle", Name: "Sleep Bundle",
		Price: decimal.NewFromFloat(49.99), Stock: 10, IsDigital: true, Published: true,
	})
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}

	intents := &recordingIntentClient{}
	svc := checkout.NewService(db, intents)

	resp, err := svc.Initiate(ctx, digitalCheckoutRequest(product.ID, 99.98))
	if err != nil {
		t.Fatalf("Initiate checkout: %v", err)
	}

	order, err := store.GetOrder(ctx, db, resp.OrderID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}

	if order.Status != models.OrderStatusDigitalPending {
		t.Errorf("Expected status digital_pending, got %s", order.Status)
	}
	if !order.TotalAmount.Equal(decimal.NewFromFloat(99.98)) {
		t.Errorf("Expected total 99.98, got %s", order.TotalAmount)
	}
	if len(order.Items) != 1 {
		t.Fatalf("Expected 1 order item, got %d", len(order.Items))
	}

	lead, err := store.GetLead(ctx, db, order.LeadID)
	if err != nil {
		t.Fatalf("Get lead: %v", err)
	}
	if lead.Address != nil || lead.City != nil || lead.PostalCode != nil || lead.Country != nil {
		t.Error("Digital order must not persist shipping fields")
	}

	if len(intents.intents) != 1 {
		t.Fatalf("Expected 1 payment intent, got %d", len(intents.intents))
	}
	if intents.intents[0].Amount != 9998 {
		t.Errorf("Expected intent amount 9998, got %d", intents.intents[0].Amount)
	}
	if intents.intents[0].Metadata["orderId"] != order.ID {
		t.Error("Intent metadata must carry the order id")
	}
}

func TestCheckoutTotalMismatchLeavesNoRows(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	product, err := store.CreateProduct(ctx, db, store.ProductParams{
		SKU: "SLEEP-002", Slug: "night-oil", Name: "Night Oil",
		Price: decimal.NewFromFloat(19.99), Stock: 10, IsDigital: true, Published: true,
	})
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}

	svc := checkout.NewService(db, &recordingIntentClient{})

	_, err = svc.Initiate(ctx, digitalCheckoutRequest(product.ID, 1.00))
	if !errors.Is(err, database.ErrTotalMismatch) {
		t.Fatalf("Expected ErrTotalMismatch, got %v", err)
	}

	var leads, orders int
	if err := db.QueryRow(`SELECT COUNT(*) FROM leads`).Scan(&leads); err != nil {
		t.Fatalf("Count leads: %v", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&orders); err != nil {
		t.Fatalf("Count orders: %v", err)
	}
	if leads != 0 || orders != 0 {
		t.Errorf("Expected no rows after rollback, got %d leads, %d orders", leads, orders)
	}
}

func TestCheckoutDigitalHintMustMatchCatalog(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	// A physical product in the catalog; the cart claims it is digital.
	product, err := store.CreateProduct(ctx, db, store.ProductParams{
		SKU: "SLEEP-006", Slug: "weighted-blanket", Name: "Weighted Blanket",
		Price: decimal.NewFromFloat(49.99), Stock: 10, Published: true,
	})
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}

	intents := &recordingIntentClient{}
	svc := checkout.NewService(db, intents)

	_, err = svc.Initiate(ctx, digitalCheckoutRequest(product.ID, 99.98))
	if !errors.Is(err, database.ErrDigitalMismatch) {
		t.Fatalf("Expected ErrDigitalMismatch, got %v", err)
	}

	var orders int
	if err := db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&orders); err != nil {
		t.Fatalf("Count orders: %v", err)
	}
	if orders != 0 {
		t.Errorf("Expected no order for a mismatched cart, got %d", orders)
	}
	if len(intents.intents) != 0 {
		t.Errorf("Expected no payment intent, got %d", len(intents.intents))
	}
}

func TestCheckoutIntentFailureMarksOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	product, err := store.CreateProduct(ctx, db, store.ProductParams{
		SKU: "SLEEP-003", Slug: "dream-tea", Name: "Dream Tea",
		Price: decimal.NewFromFloat(12.50), Stock: 10, IsDigital: true, Published: true,
	})
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}

	svc := checkout.NewService(db, &recordingIntentClient{fail: true})

	_, err = svc.Initiate(ctx, digitalCheckoutRequest(product.ID, 25.00))
	if !errors.Is(err, checkout.ErrIntentFailed) {
		t.Fatalf("Expected ErrIntentFailed, got %v", err)
	}

	var status string
	if err := db.QueryRow(`SELECT status FROM orders`).Scan(&status); err != nil {
		t.Fatalf("Query order status: %v", err)
	}
	if status != models.OrderStatusIntentFailed {
		t.Errorf("Expected status intent_failed, got %s", status)
	}
}

func TestWebhookReconciliationIsIdempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	product, err := store.CreateProduct(ctx, db, store.ProductParams{
		SKU: "SLEEP-004", Slug: "calm-audio", Name: "Calm Audio",
		Price: decimal.NewFromFloat(49.99), Stock: 10, IsDigital: true, Published: true,
	})
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}

	intents := &recordingIntentClient{}
	svc := checkout.NewService(db, intents)

	resp, err := svc.Initiate(ctx, digitalCheckoutRequest(product.ID, 99.98))
	if err != nil {
		t.Fatalf("Initiate checkout: %v", err)
	}

	order, err := store.GetOrder(ctx, db, resp.OrderID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}

	event := succeededEvent(order.ID, order.LeadID, "pi_test_1")

	if err := svc.HandleEvent(ctx, event); err != nil {
		t.Fatalf("First delivery: %v", err)
	}
	if err := svc.HandleEvent(ctx, event); err != nil {
		t.Fatalf("Redelivery: %v", err)
	}

	var customers int
	if err := db.QueryRow(`SELECT COUNT(*) FROM customers WHERE order_id = $1`, order.ID).Scan(&customers); err != nil {
		t.Fatalf("Count customers: %v", err)
	}
	if customers != 1 {
		t.Errorf("Expected exactly 1 customer after redelivery, got %d", customers)
	}

	paid, err := store.GetOrder(ctx, db, order.ID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	if paid.Status != models.OrderStatusPaid {
		t.Errorf("Expected status paid, got %s", paid.Status)
	}
	if paid.PaymentIntentID == nil || *paid.PaymentIntentID != "pi_test_1" {
		t.Error("Order must store the processor intent id")
	}
	if paid.CustomerID == nil {
		t.Error("Order must link the customer")
	}

	customer, err := store.GetCustomerByOrder(ctx, db, order.ID)
	if err != nil {
		t.Fatalf("Get customer: %v", err)
	}
	if customer.Email != "guest@example.com" {
		t.Errorf("Customer email mismatch: %s", customer.Email)
	}
}

func TestDuplicateCustomerInsertKeepsTransactionHealthy(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	product, err := store.CreateProduct(ctx, db, store.ProductParams{
		SKU: "SLEEP-007", Slug: "wind-down", Name: "Wind Down",
		Price: decimal.NewFromFloat(10.00), Stock: 10, IsDigital: true, Published: true,
	})
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}

	svc := checkout.NewService(db, &recordingIntentClient{})

	resp, err := svc.Initiate(ctx, digitalCheckoutRequest(product.ID, 20.00))
	if err != nil {
		t.Fatalf("Initiate checkout: %v", err)
	}

	order, err := store.GetOrder(ctx, db, resp.OrderID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}

	if err := svc.HandleEvent(ctx, succeededEvent(order.ID, order.LeadID, "pi_test_1")); err != nil {
		t.Fatalf("First delivery: %v", err)
	}

	// A second insert for the same order must report the conflict without
	// poisoning the transaction; later statements and the commit must work.
	err = database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		lead, err := store.GetLead(ctx, tx, order.LeadID)
		if err != nil {
			return err
		}

		_, err = store.CreateCustomer(ctx, tx, lead, order.ID, "pi_test_1")
		if !errors.Is(err, database.ErrCustomerExists) {
			t.Errorf("Expected ErrCustomerExists, got %v", err)
		}

		var customers int
		return tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers WHERE order_id = $1`, order.ID).Scan(&customers)
	})
	if err != nil {
		t.Fatalf("Transaction after duplicate insert: %v", err)
	}
}

func TestConcurrentWebhookDeliveries(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	product, err := store.CreateProduct(ctx, db, store.ProductParams{
		SKU: "SLEEP-005", Slug: "rest-kit", Name: "Rest Kit",
		Price: decimal.NewFromFloat(10.00), Stock: 10, IsDigital: true, Published: true,
	})
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}

	svc := checkout.NewService(db, &recordingIntentClient{})

	resp, err := svc.Initiate(ctx, digitalCheckoutRequest(product.ID, 20.00))
	if err != nil {
		t.Fatalf("Initiate checkout: %v", err)
	}

	order, err := store.GetOrder(ctx, db, resp.OrderID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}

	event := succeededEvent(order.ID, order.LeadID, "pi_test_1")

	concurrency := 5
	var wg sync.WaitGroup
	errs := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.HandleEvent(ctx, event)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Concurrent delivery failed: %v", err)
		}
	}

	var customers int
	if err := db.QueryRow(`SELECT COUNT(*) FROM customers WHERE order_id = $1`, order.ID).Scan(&customers); err != nil {
		t.Fatalf("Count customers: %v", err)
	}
	if customers != 1 {
		t.Errorf("Expected exactly 1 customer, got %d", customers)
	}
}
