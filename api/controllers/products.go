package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/brickfield/brickfield-backend/api/responses"
	"github.com/brickfield/brickfield-backend/api/validators"
	"github.com/brickfield/brickfield-backend/internal/products"
	"github.com/brickfield/brickfield-backend/pkg/db/models"
	pkgerrors "github.com/brickfield/brickfield-backend/pkg/errors"
	"github.com/brickfield/brickfield-backend/pkg/logger"
)

// ListProducts returns the public catalog with live availability.
func ListProducts(repo products.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product repository unavailable"))
			return
		}

		entries, err := repo.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]catalogItemResponse, 0, len(entries))
		for _, entry := range entries {
			items = append(items, newCatalogItemResponse(entry))
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// GetProduct returns one catalog product with availability.
func GetProduct(repo products.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product repository unavailable"))
			return
		}

		productID, err := uuidParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := repo.FindByID(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// LowStockReport lists products at or below their low-stock threshold.
func LowStockReport(repo products.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product repository unavailable"))
			return
		}

		entries, err := repo.ListLowStock(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]catalogItemResponse, 0, len(entries))
		for _, entry := range entries {
			items = append(items, newCatalogItemResponse(entry))
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// AdminCreateProduct adds a catalog variant.
func AdminCreateProduct(repo products.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product repository unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product := payload.toModel()
		if err := repo.Create(r.Context(), &product); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// AdminUpdateProduct edits price, name, or active flag of a variant.
func AdminUpdateProduct(repo products.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product repository unavailable"))
			return
		}

		productID, err := uuidParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := repo.FindByID(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload.apply(product)
		if err := repo.Update(r.Context(), product); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type catalogItemResponse struct {
	ID             uuid.UUID `json:"id"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	Unit           string    `json:"unit"`
	UnitPriceCents int       `json:"unit_price_cents"`
	AvailableQty   int       `json:"available_qty"`
	ReservedQty    int       `json:"reserved_qty"`
	LowStock       bool      `json:"low_stock"`
}

func newCatalogItemResponse(entry products.CatalogEntry) catalogItemResponse {
	return catalogItemResponse{
		ID:             entry.Product.ID,
		SKU:            entry.Product.SKU,
		Name:           entry.Product.Name,
		Unit:           entry.Product.Unit,
		UnitPriceCents: entry.Product.UnitPriceCents,
		AvailableQty:   entry.AvailableQty,
		ReservedQty:    entry.ReservedQty,
		LowStock:       entry.LowStock,
	}
}

type createProductRequest struct {
	SKU            string `json:"sku" validate:"required"`
	Name           string `json:"name" validate:"required"`
	Unit           string `json:"unit" validate:"required"`
	UnitPriceCents int    `json:"unit_price_cents" validate:"required,min=1"`
	Active         *bool  `json:"active,omitempty"`
}

func (r createProductRequest) toModel() models.Product {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return models.Product{
		SKU:            strings.TrimSpace(r.SKU),
		Name:           strings.TrimSpace(r.Name),
		Unit:           strings.TrimSpace(r.Unit),
		UnitPriceCents: r.UnitPriceCents,
		Active:         active,
	}
}

type updateProductRequest struct {
	Name           *string `json:"name,omitempty"`
	Unit           *string `json:"unit,omitempty"`
	UnitPriceCents *int    `json:"unit_price_cents,omitempty" validate:"omitempty,min=1"`
	Active         *bool   `json:"active,omitempty"`
}

func (r updateProductRequest) apply(product *models.Product) {
	if r.Name != nil {
		product.Name = strings.TrimSpace(*r.Name)
	}
	if r.Unit != nil {
		product.Unit = strings.TrimSpace(*r.Unit)
	}
	if r.UnitPriceCents != nil {
		product.UnitPriceCents = *r.UnitPriceCents
	}
	if r.Active != nil {
		product.Active = *r.Active
	}
}
