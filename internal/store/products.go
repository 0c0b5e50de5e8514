package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/midnightspa/platform/internal/database"
	"github.com/midnightspa/platform/internal/models"
)

type ProductParams struct {
	SKU         string
	Slug        string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	IsDigital   bool
	Published   bool
}

const productColumns = `id, sku, slug, name, description, price, stock_quantity, is_digital, published, created_at, updated_at, version`

func scanProduct(row *sql.Row, product *models.Product) error {
	return row.Scan(
		&product.ID,
		&product.SKU,
		&product.Slug,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.StockQuantity,
		&product.IsDigital,
		&product.Published,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
}

func CreateProduct(ctx context.Context, q Querier, p ProductParams) (*models.Product, error) {
	product := &models.Product{}

	query := `
		INSERT INTO products (sku, slug, name, description, price, stock_quantity, is_digital, published, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW(), 1)
		RETURNING ` + productColumns

	err := scanProduct(q.QueryRowContext(ctx, query,
		p.SKU, p.Slug, p.Name, p.Description, p.Price, p.Stock, p.IsDigital, p.Published), product)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, fmt.Errorf("create product: duplicate sku or slug: %w", err)
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, q Querier, id int64) (*models.Product, error) {
	product := &models.Product{}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	err := scanProduct(q.QueryRowContext(ctx, query, id), product)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

func ListProducts(ctx context.Context, q Querier, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT ` + productColumns + `
		FROM products
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := q.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products, err := collectProducts(rows)
	if err != nil {
		return nil, err
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &OffsetPage{
		Items:      products,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// ListPublishedProducts feeds the sitemap generator; unpublished products
// never appear there.
func ListPublishedProducts(ctx context.Context, q Querier) ([]models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE published = TRUE
		ORDER BY id`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list published products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func collectProducts(rows *sql.Rows) ([]models.Product, error) {
	var products []models.Product
	for rows.Next() {
		var product models.Product
		err := rows.Scan(
			&product.ID,
			&product.SKU,
			&product.Slug,
			&product.Name,
			&product.Description,
			&product.Price,
			&product.StockQuantity,
			&product.IsDigital,
			&product.Published,
			&product.CreatedAt,
			&product.UpdatedAt,
			&product.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}
