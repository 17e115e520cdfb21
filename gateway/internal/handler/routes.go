// Package handler defines the gateway's public routes.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/bibbank/settlement/gateway/internal/proxy"
	pkgrest "github.com/bibbank/settlement/pkg/rest"
)

// Upstreams are the backend services the gateway talks to.
type Upstreams struct {
	Payments *proxy.Upstream
	Orders   *proxy.Upstream
}

// RegisterRoutes registers the public API on mux. Account routes and order
// reads are passed through; order creation is orchestrated by Checkout.
func RegisterRoutes(mux *http.ServeMux, up Upstreams, logger *slog.Logger) {
	forward := func(u *proxy.Upstream) http.HandlerFunc { return u.Forward }

	// Accounts
	mux.HandleFunc("POST /accounts/{user_id}", forward(up.Payments))
	mux.HandleFunc("GET /accounts/{user_id}", forward(up.Payments))
	mux.HandleFunc("POST /accounts/{user_id}/deposit", forward(up.Payments))
	mux.HandleFunc("POST /accounts/{user_id}/hold", forward(up.Payments))
	mux.HandleFunc("POST /accounts/{user_id}/release", forward(up.Payments))
	mux.HandleFunc("POST /accounts/{user_id}/capture", forward(up.Payments))

	// Orders
	mux.Handle("POST /orders", NewCheckout(up.Payments, up.Orders, logger))
	mux.HandleFunc("GET /orders", forward(up.Orders))
	mux.HandleFunc("GET /orders/{order_id}", forward(up.Orders))

	// Health
	pkgrest.NewHealthHandler("gateway", logger).
		AddCheck(up.Payments.Name(), up.Payments.Ping).
		AddCheck(up.Orders.Name(), up.Orders.Ping).
		RegisterRoutes(mux)
}
