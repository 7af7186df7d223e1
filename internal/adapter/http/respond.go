package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/YelzhanWeb/foodorder/internal/adapter/logger"
	"github.com/YelzhanWeb/foodorder/internal/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type successResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Error   domain.Kind       `json:"error"`
	Code    string            `json:"code"`
	Detail  string            `json:"detail,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

// responder renders the JSON envelope shared by every handler.
type responder struct {
	logger     logger.Logger
	production bool
}

func (rs responder) respond(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, successResponse{Success: true, Data: data})
}

func (rs responder) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	kind := domain.KindOf(err)

	resp := ErrorResponse{
		Message: publicMessage(err),
		Error:   kind,
		Code:    domain.CodeOf(err),
	}
	if kind == domain.KindInternal || kind == domain.KindExternal {
		rs.logger.Error("request_failed", "Request failed", logger.RequestID(r.Context()),
			map[string]interface{}{"path": r.URL.Path, "status": status}, err)
		if !rs.production {
			resp.Detail = err.Error()
		}
	}

	writeJSON(w, status, resp)
}

func (rs responder) respondValidation(w http.ResponseWriter, message string, errs []ValidationError) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Message: message,
		Error:   domain.KindValidation,
		Code:    "invalid_input",
		Errors:  errs,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	}

	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal server error"
}

// decode reads a JSON body, rejecting unknown fields.
func decode(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.Validation("invalid request body")
	}
	return nil
}

// decodeLenient reads a JSON body from a third party, ignoring fields it does not know.
func decodeLenient(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.Validation("invalid request body")
	}
	return nil
}
