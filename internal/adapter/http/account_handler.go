package http

import (
	"net/http"

	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

// AccountHandler serves registration, the caller's profile, points and notifications.
type AccountHandler struct {
	accounts      interfaces.AccountService
	ledger        interfaces.Ledger
	notifications interfaces.NotificationService
	responder
}

func NewAccountHandler(accounts interfaces.AccountService, ledger interfaces.Ledger, notifications interfaces.NotificationService, rs responder) *AccountHandler {
	return &AccountHandler{accounts: accounts, ledger: ledger, notifications: notifications, responder: rs}
}

type RegisterRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	ReferralCode string `json:"referral_code,omitempty"`
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), interfaces.RegisterCommand{
		Name:         req.Name,
		Email:        req.Email,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusCreated, toUser(user))
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Profile(r.Context(), actor(r).UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toUser(user))
}

func (h *AccountHandler) Points(w http.ResponseWriter, r *http.Request) {
	balance, err := h.ledger.Balance(r.Context(), actor(r).UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]int64{"balance": balance})
}

func (h *AccountHandler) PointsHistory(w http.ResponseWriter, r *http.Request) {
	txs, err := h.ledger.History(r.Context(), actor(r).UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	resp := make([]PointTransactionResponse, len(txs))
	for i, t := range txs {
		resp[i] = PointTransactionResponse{
			Type:         t.Type,
			Amount:       t.Amount,
			BalanceAfter: t.BalanceAfter,
			Source:       t.Source,
			Reference:    t.Reference,
			CreatedAt:    t.CreatedAt,
		}
	}
	h.respond(w, http.StatusOK, resp)
}

// PointsAudit compares a user's balance with the sum of their ledger rows.
func (h *AccountHandler) PointsAudit(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	audit, err := h.ledger.Reconcile(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, audit)
}

func (h *AccountHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.notifications.List(r.Context(), actor(r).UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	resp := make([]NotificationResponse, len(list))
	for i, n := range list {
		resp[i] = NotificationResponse{
			ID:        n.ID,
			Type:      n.Type,
			Title:     n.Title,
			Body:      n.Body,
			Data:      n.Data,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		}
	}
	h.respond(w, http.StatusOK, resp)
}

func (h *AccountHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "notificationID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.notifications.MarkRead(r.Context(), actor(r).UserID, id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
