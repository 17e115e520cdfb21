// Package rest exposes the account ledger over HTTP.
package rest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	pkgrest "github.com/bibbank/settlement/pkg/rest"
	"github.com/bibbank/settlement/services/payments-service/internal/application/dto"
	"github.com/bibbank/settlement/services/payments-service/internal/application/usecase"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/model"
)

// AccountHandler serves the /accounts routes.
type AccountHandler struct {
	create  *usecase.CreateAccount
	deposit *usecase.Deposit
	get     *usecase.GetAccount
	hold    *usecase.HoldFunds
	release *usecase.ReleaseHold
	capture *usecase.CaptureHold
	logger  *slog.Logger
}

// UseCases groups the use cases the handler dispatches to.
type UseCases struct {
	Create  *usecase.CreateAccount
	Deposit *usecase.Deposit
	Get     *usecase.GetAccount
	Hold    *usecase.HoldFunds
	Release *usecase.ReleaseHold
	Capture *usecase.CaptureHold
}

func NewAccountHandler(uc UseCases, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		create:  uc.Create,
		deposit: uc.Deposit,
		get:     uc.Get,
		hold:    uc.Hold,
		release: uc.Release,
		capture: uc.Capture,
		logger:  logger.With("component", "account_handler"),
	}
}

// RegisterRoutes registers the account routes on mux.
func (h *AccountHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /accounts/{user_id}", h.createAccount)
	mux.HandleFunc("GET /accounts/{user_id}", h.getAccount)
	mux.HandleFunc("POST /accounts/{user_id}/deposit", h.depositFunds)
	mux.HandleFunc("POST /accounts/{user_id}/hold", h.holdFunds)
	mux.HandleFunc("POST /accounts/{user_id}/release", h.releaseHold)
	mux.HandleFunc("POST /accounts/{user_id}/capture", h.captureHold)
}

func (h *AccountHandler) createAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := pkgrest.PathUUID(r, "user_id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp, err := h.create.Execute(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	pkgrest.WriteJSON(w, http.StatusOK, resp)
}

func (h *AccountHandler) getAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := pkgrest.PathUUID(r, "user_id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp, err := h.get.Execute(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	pkgrest.WriteJSON(w, http.StatusOK, resp)
}

func (h *AccountHandler) depositFunds(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := h.decode(r, &req.UserID, &req); err != nil {
		h.writeError(w, err)
		return
	}
	resp, err := h.deposit.Execute(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	pkgrest.WriteJSON(w, http.StatusOK, resp)
}

func (h *AccountHandler) holdFunds(w http.ResponseWriter, r *http.Request) {
	var req dto.HoldRequest
	if err := h.decode(r, &req.UserID, &req); err != nil {
		h.writeError(w, err)
		return
	}
	resp, err := h.hold.Execute(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	pkgrest.WriteJSON(w, http.StatusOK, resp)
}

func (h *AccountHandler) releaseHold(w http.ResponseWriter, r *http.Request) {
	var req dto.OrderRefRequest
	if err := h.decode(r, &req.UserID, &req); err != nil {
		h.writeError(w, err)
		return
	}
	resp, err := h.release.Execute(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	pkgrest.WriteJSON(w, http.StatusOK, resp)
}

func (h *AccountHandler) captureHold(w http.ResponseWriter, r *http.Request) {
	var req dto.OrderRefRequest
	if err := h.decode(r, &req.UserID, &req); err != nil {
		h.writeError(w, err)
		return
	}
	resp, err := h.capture.Execute(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	pkgrest.WriteJSON(w, http.StatusOK, resp)
}

// decode parses the user_id path value into userID and the body into v.
func (h *AccountHandler) decode(r *http.Request, userID *uuid.UUID, v any) error {
	id, err := pkgrest.PathUUID(r, "user_id")
	if err != nil {
		return err
	}
	if err := pkgrest.DecodeJSON(r, v); err != nil {
		return err
	}
	*userID = id
	return nil
}

// writeError maps ledger errors onto HTTP statuses.
func (h *AccountHandler) writeError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	pkgrest.WriteError(w, status, msg)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, pkgrest.ErrInvalidRequest):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, model.ErrInvalidAmount),
		errors.Is(err, model.ErrInvalidUser),
		errors.Is(err, model.ErrInvalidOrder):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, model.ErrAccountExists):
		return http.StatusBadRequest, model.ErrAccountExists.Error()
	case errors.Is(err, model.ErrInsufficientFunds):
		return http.StatusBadRequest, model.ErrInsufficientFunds.Error()
	case errors.Is(err, model.ErrHoldExists):
		return http.StatusConflict, model.ErrHoldExists.Error()
	case errors.Is(err, model.ErrAccountNotFound):
		return http.StatusNotFound, model.ErrAccountNotFound.Error()
	case errors.Is(err, model.ErrHoldNotFound):
		return http.StatusNotFound, model.ErrHoldNotFound.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
