package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lead is the contact captured when checkout starts, before any payment.
// Leads are written once and never updated; a successful payment copies
// the fields onto a Customer.
type Lead struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Phone      *string   `json:"phone,omitempty"`
	Address    *string   `json:"address,omitempty"`
	City       *string   `json:"city,omitempty"`
	PostalCode *string   `json:"postalCode,omitempty"`
	Country    *string   `json:"country,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	LeadID          string          `json:"leadId"`
	CustomerID      *string         `json:"customerId,omitempty"`
	Status          string          `json:"status"`
	IsDigital       bool            `json:"isDigital"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	PaymentIntentID *string         `json:"paymentIntentId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	Version         int             `json:"version"`
	Items           []OrderItem     `json:"items,omitempty"`
}

type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   string          `json:"orderId"`
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Customer is the post-payment identity, created by the webhook reconciler
// exactly once per paid order. The unique order_id column backs that.
type Customer struct {
	ID              string    `json:"id"`
	OrderID         string    `json:"orderId"`
	Email           string    `json:"email"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Phone           *string   `json:"phone,omitempty"`
	Address         *string   `json:"address,omitempty"`
	City            *string   `json:"city,omitempty"`
	PostalCode      *string   `json:"postalCode,omitempty"`
	Country         *string   `json:"country,omitempty"`
	PaymentIntentID string    `json:"paymentIntentId"`
	CreatedAt       time.Time `json:"createdAt"`
}

type Product struct {
	ID            int64           `json:"id"`
	SKU           string          `json:"sku"`
	Slug          string          `json:"slug"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	IsDigital     bool            `json:"isDigital"`
	Published     bool            `json:"published"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Version       int             `json:"version"`
}

// Post, Video, Category and Subcategory are the published content entities
// the sitemap walks. Only the fields the sitemap and admin listing need.
type Post struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Video struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Category struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Subcategory struct {
	ID         int64     `json:"id"`
	CategoryID int64     `json:"categoryId"`
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	Published  bool      `json:"published"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

const (
	// OrderStatusPending and OrderStatusDigitalPending are the two
	// pre-payment states; is_digital is authoritative for fulfillment,
	// the digital_pending value survives for API compatibility.
	OrderStatusPending        = "pending"
	OrderStatusDigitalPending = "digital_pending"
	OrderStatusIntentFailed   = "intent_failed"
	OrderStatusPaid           = "paid"
)
