package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-playground/validator/v10"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/result"
)

const (
	defaultPageSize = 20
	maxBodyBytes    = 1 << 16
)

type createOrderRequest struct {
	CartID int64 `json:"cartId" validate:"required,gt=0"`
}

func decodeCreateOrder(data []byte) (createOrderRequest, error) {
	var req createOrderRequest
	d := jx.DecodeBytes(data)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "cartId":
			v, err := d.Int64()
			if err != nil {
				return errors.Wrap(err, "cartId")
			}
			req.CartID = v
			return nil
		default:
			return d.Skip()
		}
	})
	return req, err
}

// CreateOrder handles POST /orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body", nil)
		return
	}
	req, err := decodeCreateOrder(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if fields := h.validationErrors(req); fields != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", fields)
		return
	}

	res := h.orders.CreateOrder(r.Context(), p.UserID, req.CartID)
	writeResult(r.Context(), w, res, http.StatusCreated, encodeOrder)
}

// GetOrder handles GET /orders/{orderID}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())

	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid order id", nil)
		return
	}

	res := h.orders.GetOrder(r.Context(), p.UserID, orderID)
	writeResult(r.Context(), w, res, http.StatusOK, encodeOrder)
}

// ListOrders handles GET /orders?page=&pageSize=.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())

	q := r.URL.Query()
	page, ok := intParam(q.Get("page"), 1)
	if !ok {
		writeError(w, http.StatusBadRequest, "page must be an integer", nil)
		return
	}
	pageSize, ok := intParam(q.Get("pageSize"), defaultPageSize)
	if !ok {
		writeError(w, http.StatusBadRequest, "pageSize must be an integer", nil)
		return
	}

	res := h.orders.GetOrders(r.Context(), p.UserID, page, pageSize)
	writeResult(r.Context(), w, res, http.StatusOK, encodeOrderPage)
}

func intParam(s string, def int) (int, bool) {
	if s == "" {
		return def, true
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// validationErrors returns nil if v passes struct validation.
func (h *Handler) validationErrors(v any) []result.FieldError {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []result.FieldError{{Code: "invalid", Message: err.Error()}}
	}
	fields := make([]result.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, result.FieldError{
			Code:    fe.Tag(),
			Message: fe.Field() + " failed on rule: " + fe.Tag(),
		})
	}
	return fields
}
