package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

type PaymentHandler struct {
	service interfaces.PaymentService
	responder
}

func NewPaymentHandler(service interfaces.PaymentService, rs responder) *PaymentHandler {
	return &PaymentHandler{service: service, responder: rs}
}

type InitializePaymentRequest struct {
	Method string `json:"method"`
}

func (h *PaymentHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req InitializePaymentRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	method := domain.PaymentMethod(strings.ToLower(strings.TrimSpace(req.Method)))
	if method != domain.MethodCard && method != domain.MethodMobileMoney {
		h.respondValidation(w, "Validation failed", []ValidationError{{
			Field:   "method",
			Message: "method must be one of: card, mobile_money",
		}})
		return
	}

	result, err := h.service.Initialize(r.Context(), actor(r), interfaces.InitializePaymentCommand{
		OrderID: orderID,
		Method:  method,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	resp := toPayment(result.Payment)
	resp.RedirectURL = result.RedirectURL
	h.respond(w, http.StatusCreated, resp)
}

func (h *PaymentHandler) ListByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	payments, err := h.service.ListByOrder(r.Context(), actor(r), orderID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	resp := make([]PaymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = toPayment(p)
	}
	h.respond(w, http.StatusOK, resp)
}

// Status is the manual status check; it asks the processor unless the payment is already paid.
func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	payment, err := h.service.CheckStatus(r.Context(), actor(r), chi.URLParam(r, "reference"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toPayment(payment))
}

type WebhookRequest struct {
	Payment struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Channel   string `json:"channel"`
	} `json:"payment"`
}

func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var req WebhookRequest
	if err := decodeLenient(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.Payment.Reference == "" || req.Payment.Status == "" {
		h.respondValidation(w, "Validation failed", []ValidationError{{
			Field:   "payment",
			Message: "payment.reference and payment.status are required",
		}})
		return
	}

	payment, err := h.service.HandleWebhook(r.Context(), interfaces.PaymentWebhook{
		Reference: req.Payment.Reference,
		Status:    req.Payment.Status,
		Channel:   req.Payment.Channel,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toPayment(payment))
}

// Callback handles the processor's success redirect by verifying the reference with it.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	reference := strings.TrimSpace(r.URL.Query().Get("reference"))
	if reference == "" {
		h.respondValidation(w, "Validation failed", []ValidationError{{Field: "reference", Message: "reference is required"}})
		return
	}

	payment, err := h.service.Verify(r.Context(), reference)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toPayment(payment))
}
