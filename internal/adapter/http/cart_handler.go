package http

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

type CartHandler struct {
	cart       interfaces.CartService
	promotions interfaces.PromotionService
	responder
}

func NewCartHandler(cart interfaces.CartService, promotions interfaces.PromotionService, rs responder) *CartHandler {
	return &CartHandler{cart: cart, promotions: promotions, responder: rs}
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	cart, err := h.cart.Get(r.Context(), actor(r).UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toCart(cart))
}

type AddItemRequest struct {
	MenuItemID int `json:"menu_item_id"`
	Quantity   int `json:"quantity"`
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	var errs []ValidationError
	if req.MenuItemID < 1 {
		errs = append(errs, ValidationError{Field: "menu_item_id", Message: "menu item id is required"})
	}
	errs = append(errs, validateQuantity(req.Quantity)...)
	if len(errs) > 0 {
		h.respondValidation(w, "Validation failed", errs)
		return
	}

	cart, err := h.cart.AddItem(r.Context(), actor(r).UserID, req.MenuItemID, req.Quantity)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toCart(cart))
}

type UpdateLineRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	lineID, err := pathID(r, "lineID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req UpdateLineRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if errs := validateQuantity(req.Quantity); len(errs) > 0 {
		h.respondValidation(w, "Validation failed", errs)
		return
	}

	cart, err := h.cart.UpdateLine(r.Context(), actor(r).UserID, lineID, req.Quantity)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toCart(cart))
}

func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	lineID, err := pathID(r, "lineID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	cart, err := h.cart.RemoveLine(r.Context(), actor(r).UserID, lineID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toCart(cart))
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Clear(r.Context(), actor(r).UserID); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ValidatePromoRequest struct {
	Code string `json:"code"`
}

type PromoResponse struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Discount decimal.Decimal `json:"discount"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// ValidatePromo checks a code against the caller's current cart without counting a use.
func (h *CartHandler) ValidatePromo(w http.ResponseWriter, r *http.Request) {
	var req ValidatePromoRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		h.respondValidation(w, "Validation failed", []ValidationError{{Field: "code", Message: "promo code is required"}})
		return
	}

	cart, err := h.cart.Get(r.Context(), actor(r).UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.promotions.ValidateCode(r.Context(), code, cart.Subtotal)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, PromoResponse{
		Code:     code,
		Name:     result.Promotion.Name,
		Type:     string(result.Promotion.Type),
		Discount: result.Discount,
		Subtotal: cart.Subtotal,
	})
}

func validateQuantity(qty int) []ValidationError {
	if qty < 1 || qty > 50 {
		return []ValidationError{{Field: "quantity", Message: "quantity must be between 1 and 50"}}
	}
	return nil
}
