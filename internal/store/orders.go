package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/midnightspa/platform/internal/database"
	"github.com/midnightspa/platform/internal/models"
)

type CheckoutItem struct {
	ProductID int64
	Quantity  int
}

type CreateCheckoutOrderParams struct {
	Lead  LeadParams
	Items []CheckoutItem
	// IsDigital is the client's hint. The stored flag is derived from the
	// catalog (digital iff every line item is digital); a hint that
	// contradicts it fails with ErrDigitalMismatch.
	IsDigital bool
	// ClientTotal is what the browser claims the cart costs. It is checked
	// against the server-side recomputed total, never charged as-is.
	ClientTotal decimal.Decimal
}

// Order numbers are display identifiers, not keys; collisions are tolerable
// because orders are addressed by UUID everywhere else.
func generateOrderNumber() string {
	return fmt.Sprintf("ORD-%06d", rand.Intn(1000000))
}

// CreateCheckoutOrder creates the lead, the order and its line-item snapshot
// in a single transaction. Prices come from the products table, not from the
// client; a mismatched client total aborts with ErrTotalMismatch so nothing
// is persisted.
func CreateCheckoutOrder(ctx context.Context, db *sql.DB, p CreateCheckoutOrderParams) (*models.Order, error) {
	var order *models.Order

	err := database.WithRetry(ctx, db, database.TxOptions{
		IsolationLevel: sql.LevelSerializable,
		MaxRetries:     3,
	}, func(tx *sql.Tx) error {
		lead, err := CreateLead(ctx, tx, p.Lead)
		if err != nil {
			return err
		}

		var total decimal.Decimal
		prices := make(map[int64]decimal.Decimal)
		digital := true

		for _, item := range p.Items {
			var price decimal.Decimal
			var published, itemDigital bool

			err := tx.QueryRowContext(ctx,
				`SELECT price, published, is_digital FROM products WHERE id = $1`,
				item.ProductID).Scan(&price, &published, &itemDigital)
			if err != nil {
				if err == sql.ErrNoRows {
					return database.ErrProductNotFound
				}
				return fmt.Errorf("load product %d: %w", item.ProductID, err)
			}
			if !published {
				return database.ErrProductNotFound
			}
			if !itemDigital {
				digital = false
			}

			prices[item.ProductID] = price
			total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		// The catalog decides fulfillment. A client hint that disagrees is
		// rejected rather than overridden; a physical order whose shipping
		// fields were skipped on a false hint must not reach the processor.
		if digital != p.IsDigital {
			return database.ErrDigitalMismatch
		}
		if !total.Equal(p.ClientTotal) {
			return database.ErrTotalMismatch
		}

		status := models.OrderStatusPending
		if digital {
			status = models.OrderStatusDigitalPending
		}

		orderID := uuid.NewString()
		order = &models.Order{}
		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (id, order_number, lead_id, status, is_digital, total_amount, created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW(), 1)
			 RETURNING id, order_number, lead_id, status, is_digital, total_amount, created_at, updated_at, version`,
			orderID, generateOrderNumber(), lead.ID, status, digital, total,
		).Scan(
			&order.ID,
			&order.OrderNumber,
			&order.LeadID,
			&order.Status,
			&order.IsDigital,
			&order.TotalAmount,
			&order.CreatedAt,
			&order.UpdatedAt,
			&order.Version,
		)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for _, item := range p.Items {
			unitPrice := prices[item.ProductID]
			subtotal := unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))

			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity, unit_price, subtotal, created_at)
				 VALUES ($1, $2, $3, $4, $5, NOW())`,
				order.ID, item.ProductID, item.Quantity, unitPrice, subtotal)
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}

			order.Items = append(order.Items, models.OrderItem{
				OrderID:   order.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: unitPrice,
				Subtotal:  subtotal,
			})
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return order, nil
}

func scanOrder(row *sql.Row, order *models.Order) error {
	return row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.LeadID,
		&order.CustomerID,
		&order.Status,
		&order.IsDigital,
		&order.TotalAmount,
		&order.PaymentIntentID,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
	)
}

func GetOrder(ctx context.Context, q Querier, id string) (*models.Order, error) {
	order := &models.Order{}

	query := `
		SELECT id, order_number, lead_id, customer_id, status, is_digital, total_amount, payment_intent_id, created_at, updated_at, version
		FROM orders
		WHERE id = $1`

	err := scanOrder(q.QueryRowContext(ctx, query, id), order)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	itemsQuery := `
		SELECT id, order_id, product_id, quantity, unit_price, subtotal, created_at
		FROM order_items
		WHERE order_id = $1`

	rows, err := q.QueryContext(ctx, itemsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	order.Items = items

	return order, nil
}

// GetOrderForUpdate row-locks the order so two concurrent webhook deliveries
// for the same payment serialize on it. Must run inside a transaction.
func GetOrderForUpdate(ctx context.Context, tx *sql.Tx, id string) (*models.Order, error) {
	order := &models.Order{}

	query := `
		SELECT id, order_number, lead_id, customer_id, status, is_digital, total_amount, payment_intent_id, created_at, updated_at, version
		FROM orders
		WHERE id = $1
		FOR UPDATE`

	err := scanOrder(tx.QueryRowContext(ctx, query, id), order)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}

	return order, nil
}

// MarkOrderPaid records the processor's intent id, links the customer and
// moves the order to paid. The status guard makes the update a no-op when a
// redelivered event raced a previous one past the row lock.
func MarkOrderPaid(ctx context.Context, q Querier, id, customerID, paymentIntentID string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE orders
		 SET status = $1,
		     customer_id = $2,
		     payment_intent_id = $3,
		     updated_at = NOW(),
		     version = version + 1
		 WHERE id = $4
		   AND status <> $1`,
		models.OrderStatusPaid, customerID, paymentIntentID, id)
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrOrderAlreadyPaid
	}

	return nil
}

// MarkOrderIntentFailed parks an order whose payment intent could not be
// created, so it is visible for a retried checkout instead of silently
// orphaned.
func MarkOrderIntentFailed(ctx context.Context, q Querier, id string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE orders
		 SET status = $1,
		     updated_at = NOW(),
		     version = version + 1
		 WHERE id = $2
		   AND status IN ($3, $4)`,
		models.OrderStatusIntentFailed, id,
		models.OrderStatusPending, models.OrderStatusDigitalPending)
	if err != nil {
		return fmt.Errorf("mark order intent failed: %w", err)
	}

	return nil
}

func ListOrdersCursor(ctx context.Context, q Querier, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT id, order_number, lead_id, customer_id, status, is_digital, total_amount, payment_intent_id, created_at, updated_at, version
		FROM orders
		WHERE (created_at, id::text) < ($1, $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`

	rows, err := q.QueryContext(ctx, query, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.ID,
			&order.OrderNumber,
			&order.LeadID,
			&order.CustomerID,
			&order.Status,
			&order.IsDigital,
			&order.TotalAmount,
			&order.PaymentIntentID,
			&order.CreatedAt,
			&order.UpdatedAt,
			&order.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
