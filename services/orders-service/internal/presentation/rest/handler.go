// Package rest exposes orders over HTTP. Callers identify themselves with the
// user_id query parameter.
package rest

import (
	"errors"
	"log/slog"
	"net/http"

	pkgrest "github.com/bibbank/settlement/pkg/rest"
	"github.com/bibbank/settlement/services/orders-service/internal/application/dto"
	"github.com/bibbank/settlement/services/orders-service/internal/application/usecase"
	"github.com/bibbank/settlement/services/orders-service/internal/domain/model"
)

// OrderHandler serves the /orders routes.
type OrderHandler struct {
	create *usecase.CreateOrder
	get    *usecase.GetOrder
	list   *usecase.ListOrders
	logger *slog.Logger
}

func NewOrderHandler(
	create *usecase.CreateOrder,
	get *usecase.GetOrder,
	list *usecase.ListOrders,
	logger *slog.Logger,
) *OrderHandler {
	return &OrderHandler{
		create: create,
		get:    get,
		list:   list,
		logger: logger.With("component", "order_handler"),
	}
}

// RegisterRoutes registers the order routes on mux.
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders", h.createOrder)
	mux.HandleFunc("GET /orders", h.listOrders)
	mux.HandleFunc("GET /orders/{order_id}", h.getOrder)
}

func (h *OrderHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := pkgrest.QueryUUID(r, "user_id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req dto.CreateOrderRequest
	if err := pkgrest.DecodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	req.UserID = userID

	resp, err := h.create.Execute(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	pkgrest.WriteJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := pkgrest.QueryUUID(r, "user_id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp, err := h.list.Execute(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	pkgrest.WriteJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := pkgrest.QueryUUID(r, "user_id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	orderID, err := pkgrest.PathUUID(r, "order_id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp, err := h.get.Execute(r.Context(), userID, orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	pkgrest.WriteJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) writeError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	pkgrest.WriteError(w, status, msg)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, pkgrest.ErrInvalidRequest),
		errors.Is(err, model.ErrInvalidAmount),
		errors.Is(err, model.ErrInvalidUser):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, model.ErrOrderExists):
		return http.StatusConflict, model.ErrOrderExists.Error()
	case errors.Is(err, model.ErrOrderNotFound):
		return http.StatusNotFound, model.ErrOrderNotFound.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
