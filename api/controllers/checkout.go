package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/brickfield/brickfield-backend/api/middleware"
	"github.com/brickfield/brickfield-backend/api/responses"
	"github.com/brickfield/brickfield-backend/api/validators"
	checkoutsvc "github.com/brickfield/brickfield-backend/internal/checkout"
	"github.com/brickfield/brickfield-backend/pkg/db/models"
	"github.com/brickfield/brickfield-backend/pkg/enums"
	pkgerrors "github.com/brickfield/brickfield-backend/pkg/errors"
	"github.com/brickfield/brickfield-backend/pkg/logger"
	"github.com/brickfield/brickfield-backend/pkg/types"
)

// Checkout reprices the cart, holds stock, and opens a payment intent.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		input, err := decodeCheckoutInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), *input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCheckoutResponse(result))
	}
}

// QuoteCheckout prices a cart without taking stock or creating anything.
func QuoteCheckout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		input, err := decodeCheckoutInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Quote(r.Context(), *input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newQuoteResponse(quote))
	}
}

func decodeCheckoutInput(r *http.Request) (*checkoutsvc.Input, error) {
	var payload checkoutRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		return nil, err
	}

	method, err := enums.ParseDeliveryMethod(strings.TrimSpace(payload.DeliveryMethod))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery method")
	}

	lines := make([]checkoutsvc.Line, 0, len(payload.Lines))
	for _, line := range payload.Lines {
		lines = append(lines, checkoutsvc.Line{ProductID: line.ProductID, Qty: line.Qty})
	}

	input := checkoutsvc.Input{
		DeliveryMethod:  method,
		DeliveryAddress: strings.TrimSpace(payload.DeliveryAddress),
		Destination:     payload.Destination,
		Lines:           lines,
		Originator:      strings.TrimSpace(r.Header.Get("X-Client-Id")),
	}

	if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
		userID, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid subject")
		}
		input.UserID = &userID
	} else if payload.Guest != nil {
		input.Guest = payload.Guest
	}

	return &input, nil
}

type checkoutRequest struct {
	Lines           []checkoutLineRequest `json:"lines" validate:"required,min=1,dive"`
	DeliveryMethod  string                `json:"delivery_method" validate:"required"`
	DeliveryAddress string                `json:"delivery_address,omitempty"`
	Destination     *types.LatLng         `json:"destination,omitempty"`
	Guest           *types.GuestContact   `json:"guest,omitempty"`
}

type checkoutLineRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Qty       int       `json:"qty" validate:"required,min=1"`
}

type checkoutResponse struct {
	OrderID      uuid.UUID          `json:"order_id"`
	OrderNumber  string             `json:"order_number"`
	Status       string             `json:"status"`
	Items        []lineItemResponse `json:"items"`
	Subtotal     int                `json:"subtotal_cents"`
	DeliveryFee  int                `json:"delivery_fee_cents"`
	TotalCents   int                `json:"total_cents"`
	PaymentRef   string             `json:"payment_ref"`
	ClientSecret string             `json:"client_secret"`
}

type lineItemResponse struct {
	ProductID       uuid.UUID `json:"product_id"`
	SKU             string    `json:"sku"`
	Name            string    `json:"name"`
	Unit            string    `json:"unit"`
	Qty             int       `json:"qty"`
	UnitPriceCents  int       `json:"unit_price_cents"`
	DiscountPercent int       `json:"discount_percent"`
	TotalCents      int       `json:"total_cents"`
}

func newCheckoutResponse(result *checkoutsvc.Result) checkoutResponse {
	if result == nil || result.Order == nil {
		return checkoutResponse{}
	}

	items := make([]lineItemResponse, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, newLineItemResponse(item))
	}

	resp := checkoutResponse{
		OrderID:     result.Order.ID,
		OrderNumber: result.Order.OrderNumber,
		Status:      string(result.Order.Status),
		Items:       items,
		Subtotal:    result.Order.SubtotalCents,
		DeliveryFee: result.Order.DeliveryFeeCents,
		TotalCents:  result.Order.TotalCents,
	}
	if result.Payment != nil {
		resp.PaymentRef = result.Payment.Reference
		resp.ClientSecret = result.Payment.ClientSecret
	}
	return resp
}

func newLineItemResponse(item models.OrderLineItem) lineItemResponse {
	return lineItemResponse{
		ProductID:       item.ProductID,
		SKU:             item.SKU,
		Name:            item.Name,
		Unit:            item.Unit,
		Qty:             item.Qty,
		UnitPriceCents:  item.UnitPriceCents,
		DiscountPercent: item.DiscountPercent,
		TotalCents:      item.TotalCents,
	}
}

type quoteLineResponse struct {
	ProductID       uuid.UUID `json:"product_id"`
	SKU             string    `json:"sku"`
	Name            string    `json:"name"`
	Qty             int       `json:"qty"`
	UnitPriceCents  int       `json:"unit_price_cents"`
	DiscountPercent int       `json:"discount_percent"`
	TotalCents      int       `json:"total_cents"`
	SavingsCents    int       `json:"savings_cents"`
}

type quoteResponse struct {
	Lines         []quoteLineResponse `json:"lines"`
	SubtotalCents int                 `json:"subtotal_cents"`
	DeliveryFee   *int                `json:"delivery_fee_cents,omitempty"`
	ZoneName      *string             `json:"zone_name,omitempty"`
	TotalCents    int                 `json:"total_cents"`
}

func newQuoteResponse(quote *checkoutsvc.Quote) quoteResponse {
	if quote == nil {
		return quoteResponse{}
	}

	lines := make([]quoteLineResponse, 0, len(quote.Lines))
	for _, line := range quote.Lines {
		lines = append(lines, quoteLineResponse{
			ProductID:       line.Product.ID,
			SKU:             line.Product.SKU,
			Name:            line.Product.Name,
			Qty:             line.Quote.Qty,
			UnitPriceCents:  line.Quote.UnitPriceCents,
			DiscountPercent: line.Quote.DiscountPercent,
			TotalCents:      line.Quote.TotalCents,
			SavingsCents:    line.Quote.SavingsCents(),
		})
	}

	resp := quoteResponse{
		Lines:         lines,
		SubtotalCents: quote.SubtotalCents,
		TotalCents:    quote.TotalCents,
	}
	if quote.Delivery != nil {
		fee := quote.Delivery.FeeCents
		zone := quote.Delivery.ZoneName
		resp.DeliveryFee = &fee
		resp.ZoneName = &zone
	}
	return resp
}
