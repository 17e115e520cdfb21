package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/bibbank/settlement/gateway/internal/proxy"
	"github.com/bibbank/settlement/pkg/money"
	pkgrest "github.com/bibbank/settlement/pkg/rest"
)

// checkoutRequest is the public body of POST /orders.
type checkoutRequest struct {
	Amount      money.Amount `json:"amount"`
	Description string       `json:"description"`
}

type holdRequest struct {
	OrderID uuid.UUID    `json:"order_id"`
	Amount  money.Amount `json:"amount"`
}

type releaseRequest struct {
	OrderID uuid.UUID `json:"order_id"`
}

type createOrderRequest struct {
	OrderID     uuid.UUID    `json:"order_id"`
	Amount      money.Amount `json:"amount"`
	Description string       `json:"description"`
}

// Checkout places an order in two steps. Funds are held on the payments
// service first, so an order is only created for a user who can pay for it;
// the order's payment request later captures that hold. If the order cannot
// be created the hold is released again.
type Checkout struct {
	payments *proxy.Upstream
	orders   *proxy.Upstream
	logger   *slog.Logger
}

func NewCheckout(payments, orders *proxy.Upstream, logger *slog.Logger) *Checkout {
	return &Checkout{
		payments: payments,
		orders:   orders,
		logger:   logger.With("component", "checkout"),
	}
}

func (c *Checkout) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := pkgrest.QueryUUID(r, "user_id")
	if err != nil {
		pkgrest.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	var req checkoutRequest
	if err := pkgrest.DecodeJSON(r, &req); err != nil {
		pkgrest.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if !req.Amount.IsPositive() {
		pkgrest.WriteError(w, http.StatusUnprocessableEntity, "amount must be positive")
		return
	}

	ctx := r.Context()
	orderID := uuid.New()
	logger := c.logger.With("order_id", orderID, "user_id", userID)
	accountPath := "/accounts/" + userID.String()

	hold, err := c.payments.Call(ctx, http.MethodPost, accountPath+"/hold", nil,
		holdRequest{OrderID: orderID, Amount: req.Amount}, r.Header)
	if err != nil {
		c.payments.WriteUnavailable(w, err)
		return
	}
	if !hold.OK() {
		logger.Info("hold refused", "status", hold.Status, "body", string(hold.Body))
		hold.Write(w)
		return
	}

	created, err := c.orders.Call(ctx, http.MethodPost, "/orders", url.Values{"user_id": {userID.String()}},
		createOrderRequest{OrderID: orderID, Amount: req.Amount, Description: req.Description}, r.Header)
	if err == nil && created.OK() {
		logger.Info("order placed", "amount", req.Amount.String())
		created.Write(w)
		return
	}

	c.release(context.WithoutCancel(ctx), logger, accountPath, orderID, r.Header)
	if err != nil {
		c.orders.WriteUnavailable(w, err)
		return
	}
	created.Write(w)
}

// release returns held funds after a failed order creation. A failure here
// leaves an open hold that no payment request will capture, so it is logged
// at error level for manual follow-up.
func (c *Checkout) release(ctx context.Context, logger *slog.Logger, accountPath string, orderID uuid.UUID, header http.Header) {
	resp, err := c.payments.Call(ctx, http.MethodPost, accountPath+"/release", nil, releaseRequest{OrderID: orderID}, header)
	switch {
	case err != nil:
		logger.Error("release after failed order creation", "error", err)
	case !resp.OK():
		logger.Error("release after failed order creation", "status", resp.Status, "body", string(resp.Body))
	default:
		logger.Warn("order creation failed, hold released")
	}
}
