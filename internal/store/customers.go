package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/midnightspa/platform/internal/database"
	"github.com/midnightspa/platform/internal/models"
)

// CreateCustomer copies a lead's contact fields into a customer row for a
// paid order. A second customer for the same order returns ErrCustomerExists
// via ON CONFLICT DO NOTHING; a raised unique violation would poison the
// surrounding transaction and fail its commit, so the conflict must never
// become an error inside the reconciliation transaction.
func CreateCustomer(ctx context.Context, q Querier, lead *models.Lead, orderID, paymentIntentID string) (*models.Customer, error) {
	customer := &models.Customer{}

	query := `
		INSERT INTO customers (id, order_id, email, first_name, last_name, phone, address, city, postal_code, country, payment_intent_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (order_id) DO NOTHING
		RETURNING id, order_id, email, first_name, last_name, phone, address, city, postal_code, country, payment_intent_id, created_at`

	err := q.QueryRowContext(ctx, query,
		uuid.NewString(), orderID,
		lead.Email, lead.FirstName, lead.LastName,
		lead.Phone, lead.Address, lead.City, lead.PostalCode, lead.Country,
		paymentIntentID,
	).Scan(
		&customer.ID,
		&customer.OrderID,
		&customer.Email,
		&customer.FirstName,
		&customer.LastName,
		&customer.Phone,
		&customer.Address,
		&customer.City,
		&customer.PostalCode,
		&customer.Country,
		&customer.PaymentIntentID,
		&customer.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCustomerExists
		}
		return nil, fmt.Errorf("create customer: %w", err)
	}

	return customer, nil
}

func GetCustomerByOrder(ctx context.Context, q Querier, orderID string) (*models.Customer, error) {
	customer := &models.Customer{}

	query := `
		SELECT id, order_id, email, first_name, last_name, phone, address, city, postal_code, country, payment_intent_id, created_at
		FROM customers
		WHERE order_id = $1`

	err := q.QueryRowContext(ctx, query, orderID).Scan(
		&customer.ID,
		&customer.OrderID,
		&customer.Email,
		&customer.FirstName,
		&customer.LastName,
		&customer.Phone,
		&customer.Address,
		&customer.City,
		&customer.PostalCode,
		&customer.Country,
		&customer.PaymentIntentID,
		&customer.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer by order: %w", err)
	}

	return customer, nil
}
