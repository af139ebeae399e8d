package cartapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/cartsync/internal/domain"
	"github.com/fjod/go_cart/cartsync/internal/repository"
	"github.com/fjod/go_cart/cartsync/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	carts   *Carts
	timeout time.Duration
	log     *slog.Logger
}

func NewCartHandler(carts *Carts, timeout time.Duration, log *slog.Logger) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
		log:     logger.OrDefault(log),
	}
}

type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	StatusCode int    `json:"status_code"`
	Details    string `json:"details,omitempty"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID, ok := requireSession(w, r.URL.Query().Get("session_id"))
	if !ok {
		return
	}

	cart, err := h.carts.Get(ctx, sessionID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cart.ToJSON())
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req repository.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sessionID, ok := requireSession(w, req.SessionID)
	if !ok {
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		respondError(w, http.StatusUnprocessableEntity, "validation_error", "product_id is required")
		return
	}
	if !validQuantity(w, req.Quantity) {
		return
	}

	cart, err := h.carts.AddItem(ctx, sessionID, req.ProductID, req.Quantity)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, cart.ToJSON())
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID, ok := requireSession(w, r.URL.Query().Get("session_id"))
	if !ok {
		return
	}

	var req repository.UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if !validQuantity(w, req.Quantity) {
		return
	}

	cart, err := h.carts.UpdateQuantity(ctx, sessionID, chi.URLParam(r, "item_id"), req.Quantity)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cart.ToJSON())
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID, ok := requireSession(w, r.URL.Query().Get("session_id"))
	if !ok {
		return
	}

	cart, err := h.carts.RemoveItem(ctx, sessionID, chi.URLParam(r, "item_id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cart.ToJSON())
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID, ok := requireSession(w, r.URL.Query().Get("session_id"))
	if !ok {
		return
	}

	cart, err := h.carts.Clear(ctx, sessionID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cart.ToJSON())
}

func requireSession(w http.ResponseWriter, sessionID string) (string, bool) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		respondError(w, http.StatusUnprocessableEntity, "validation_error", "session_id is required")
		return "", false
	}
	return sessionID, true
}

func validQuantity(w http.ResponseWriter, quantity int) bool {
	if quantity < domain.MinQuantity || quantity > domain.MaxQuantity {
		respondError(w, http.StatusUnprocessableEntity, "validation_error",
			fmt.Sprintf("quantity must be between %d and %d", domain.MinQuantity, domain.MaxQuantity))
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:      message,
		Code:       code,
		StatusCode: status,
	})
}

func (h *CartHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status int
		code   string
	)

	switch {
	case errors.Is(err, ErrCartNotFound):
		status, code = http.StatusNotFound, "cart_not_found"
	case errors.Is(err, ErrItemNotFound):
		status, code = http.StatusNotFound, "item_not_found"
	case errors.Is(err, ErrProductNotFound):
		status, code = http.StatusNotFound, "product_not_found"
	case errors.Is(err, ErrProductUnavailable):
		status, code = http.StatusBadRequest, "product_not_available"
	case errors.Is(err, ErrQuantityExceeded):
		status, code = http.StatusBadRequest, "invalid_quantity"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
	default:
		h.log.ErrorContext(r.Context(), "cart request failed",
			"method", r.Method, "path", r.URL.Path, "request_id", RequestID(r.Context()), "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondError(w, status, code, err.Error())
}
