// Package handler exposes the order operations over HTTP.
package handler

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/result"
)

// Orders is the order service used by the handlers.
type Orders interface {
	CreateOrder(ctx context.Context, userID, cartID int64) result.Result[*order.Order]
	GetOrder(ctx context.Context, userID, orderID int64) result.Result[*order.Order]
	GetOrders(ctx context.Context, userID int64, page, pageSize int) result.Result[order.Page[order.Order]]
}

// Reports builds aggregated order reports.
type Reports interface {
	GetOrderReport(ctx context.Context, from, to time.Time, interval order.Interval) result.Result[[]order.ReportRow]
}

// Verifier authenticates bearer tokens.
type Verifier interface {
	Verify(raw string) (auth.Principal, error)
}

// Handler serves the /api routes.
type Handler struct {
	orders   Orders
	reports  Reports
	tokens   Verifier
	validate *validator.Validate
	authed   []func(http.Handler) http.Handler
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(orders Orders, reports Reports, tokens Verifier) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Handler{
		orders:   orders,
		reports:  reports,
		tokens:   tokens,
		validate: v,
	}
}

// UseAuthenticated adds middlewares that run after authentication, so they
// can read the principal from the request context.
func (h *Handler) UseAuthenticated(mws ...func(http.Handler) http.Handler) {
	h.authed = append(h.authed, mws...)
}

// Routes mounts the API on r. Every route requires a bearer token.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.Authenticate)
		r.Use(h.authed...)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.CreateOrder)
			r.Get("/", h.ListOrders)
			r.Get("/{orderID}", h.GetOrder)
		})

		r.With(RequireAdmin).Get("/reports/orders", h.OrderReport)
	})
}

// Router returns a chi router serving the API under prefix.
func (h *Handler) Router(prefix string) http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})
	r.Route(prefix, h.Routes)
	return r
}
