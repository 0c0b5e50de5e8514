package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/midnightspa/platform/internal/database"
	"github.com/midnightspa/platform/internal/models"
)

type LeadParams struct {
	Email      string
	FirstName  string
	LastName   string
	Phone      *string
	Address    *string
	City       *string
	PostalCode *string
	Country    *string
}

// CreateLead persists the checkout contact. Shipping fields must already be
// cleared by the caller for digital orders; the store writes what it is given.
func CreateLead(ctx context.Context, q Querier, p LeadParams) (*models.Lead, error) {
	lead := &models.Lead{}

	query := `
		INSERT INTO leads (id, email, first_name, last_name, phone, address, city, postal_code, country, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id, email, first_name, last_name, phone, address, city, postal_code, country, created_at`

	err := q.QueryRowContext(ctx, query,
		uuid.NewString(), p.Email, p.FirstName, p.LastName,
		p.Phone, p.Address, p.City, p.PostalCode, p.Country,
	).Scan(
		&lead.ID,
		&lead.Email,
		&lead.FirstName,
		&lead.LastName,
		&lead.Phone,
		&lead.Address,
		&lead.City,
		&lead.PostalCode,
		&lead.Country,
		&lead.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}

	return lead, nil
}

func GetLead(ctx context.Context, q Querier, id string) (*models.Lead, error) {
	lead := &models.Lead{}

	query := `
		SELECT id, email, first_name, last_name, phone, address, city, postal_code, country, created_at
		FROM leads
		WHERE id = $1`

	err := q.QueryRowContext(ctx, query, id).Scan(
		&lead.ID,
		&lead.Email,
		&lead.FirstName,
		&lead.LastName,
		&lead.Phone,
		&lead.Address,
		&lead.City,
		&lead.PostalCode,
		&lead.Country,
		&lead.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrLeadNotFound
		}
		return nil, fmt.Errorf("get lead: %w", err)
	}

	return lead, nil
}
