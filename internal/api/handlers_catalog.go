package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/midnightspa/platform/internal/database"
	"github.com/midnightspa/platform/internal/store"
)

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	page, err := store.ListOrdersCursor(r.Context(), h.db, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		log.Printf("List orders: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, page)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := store.GetOrder(r.Context(), h.db, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, database.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Printf("Get order: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SKU         string  `json:"sku"`
		Slug        string  `json:"slug"`
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Price       float64 `json:"price"`
		Stock       int     `json:"stock"`
		IsDigital   bool    `json:"isDigital"`
		Published   bool    `json:"published"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SKU == "" || req.Slug == "" || req.Name == "" {
		respondError(w, http.StatusUnprocessableEntity, "sku, slug and name are required")
		return
	}

	product, err := store.CreateProduct(r.Context(), h.db, store.ProductParams{
		SKU:         req.SKU,
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		Price:       decimal.NewFromFloat(req.Price),
		Stock:       req.Stock,
		IsDigital:   req.IsDigital,
		Published:   req.Published,
	})
	if err != nil {
		log.Printf("Create product: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusCreated, product)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	result, err := store.ListProducts(r.Context(), h.db, page, pageSize)
	if err != nil {
		log.Printf("List products: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	product, err := store.GetProduct(r.Context(), h.db, id)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "Product not found")
			return
		}
		log.Printf("Get product: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, product)
}
