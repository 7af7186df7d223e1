package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

type OrderHandler struct {
	service interfaces.OrderService
	responder
}

func NewOrderHandler(service interfaces.OrderService, rs responder) *OrderHandler {
	return &OrderHandler{service: service, responder: rs}
}

type CheckoutRequest struct {
	OrderType       string  `json:"order_type"`
	DeliveryAddress *string `json:"delivery_address,omitempty"`
	PointsToRedeem  int64   `json:"points_to_redeem"`
	PromoCode       *string `json:"promo_code,omitempty"`
}

func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	if errs := validateCheckoutRequest(req); len(errs) > 0 {
		h.respondValidation(w, "Validation failed", errs)
		return
	}

	cmd := interfaces.CheckoutCommand{
		UserID:          actor(r).UserID,
		OrderType:       domain.OrderType(req.OrderType),
		DeliveryAddress: req.DeliveryAddress,
		PointsToRedeem:  req.PointsToRedeem,
	}
	if req.PromoCode != nil && strings.TrimSpace(*req.PromoCode) != "" {
		code := strings.TrimSpace(*req.PromoCode)
		cmd.PromoCode = &code
	}

	order, err := h.service.Checkout(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusCreated, toOrder(order))
}

func validateCheckoutRequest(req CheckoutRequest) []ValidationError {
	var errors []ValidationError

	switch domain.OrderType(req.OrderType) {
	case domain.OrderTypeDelivery:
		if req.DeliveryAddress == nil {
			errors = append(errors, ValidationError{
				Field:   "delivery_address",
				Message: "delivery address is required for delivery orders",
			})
		} else if len(strings.TrimSpace(*req.DeliveryAddress)) < 10 {
			errors = append(errors, ValidationError{
				Field:   "delivery_address",
				Message: "delivery address must be at least 10 characters",
			})
		}
	case domain.OrderTypePickup:
		if req.DeliveryAddress != nil {
			errors = append(errors, ValidationError{
				Field:   "delivery_address",
				Message: "delivery address must not be present for pickup orders",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "order_type",
			Message: "order type must be one of: delivery, pickup",
		})
	}

	if req.PointsToRedeem < 0 {
		errors = append(errors, ValidationError{
			Field:   "points_to_redeem",
			Message: "points to redeem must not be negative",
		})
	}

	if req.PromoCode != nil && len(*req.PromoCode) > 50 {
		errors = append(errors, ValidationError{
			Field:   "promo_code",
			Message: "promo code must not exceed 50 characters",
		})
	}

	return errors
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.List(r.Context(), actor(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toOrders(orders))
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	order, err := h.service.Get(r.Context(), actor(r), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toOrder(order))
}

func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	history, err := h.service.History(r.Context(), actor(r), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	resp := make([]StatusLogResponse, len(history))
	for i, log := range history {
		resp[i] = StatusLogResponse{
			Status:    log.Status,
			Timestamp: log.ChangedAt,
			ChangedBy: log.ChangedBy,
			Notes:     log.Notes,
		}
	}
	h.respond(w, http.StatusOK, resp)
}

func (h *OrderHandler) Track(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Track(r.Context(), actor(r), chi.URLParam(r, "number"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toTracking(result))
}

type CancelRequest struct {
	Reason *string `json:"reason,omitempty"`
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req CancelRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			h.respondError(w, r, err)
			return
		}
	}

	order, err := h.service.Cancel(r.Context(), actor(r), id, req.Reason)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toOrder(order))
}

func (h *OrderHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	status := domain.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = domain.StatusPending
	}
	if !status.Valid() || status == domain.StatusCart {
		h.respondValidation(w, "Validation failed", []ValidationError{{
			Field:   "status",
			Message: "unknown order status",
		}})
		return
	}

	orders, err := h.service.ListByStatus(r.Context(), actor(r), status)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toOrders(orders))
}

type StatusChangeRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes,omitempty"`
}

func (h *OrderHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req StatusChangeRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	status := domain.Status(req.Status)
	if !status.Valid() {
		h.respondValidation(w, "Validation failed", []ValidationError{{
			Field:   "status",
			Message: fmt.Sprintf("unknown order status %q", req.Status),
		}})
		return
	}

	order, err := h.service.Transition(r.Context(), actor(r), id, status, req.Notes)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toOrder(order))
}

type AssignAgentRequest struct {
	AgentID int `json:"agent_id"`
}

func (h *OrderHandler) AssignAgent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req AssignAgentRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.AgentID < 1 {
		h.respondValidation(w, "Validation failed", []ValidationError{{Field: "agent_id", Message: "agent id is required"}})
		return
	}

	order, err := h.service.AssignAgent(r.Context(), actor(r), id, req.AgentID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toOrder(order))
}

func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id < 1 {
		return 0, domain.Validation(name + " must be a positive integer")
	}
	return id, nil
}
