package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/result"
)

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, message string, fields []result.FieldError) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(status) })
		e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		if len(fields) > 0 {
			e.Field("errors", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, f := range fields {
						e.Obj(func(e *jx.Encoder) {
							e.Field("code", func(e *jx.Encoder) { e.Str(f.Code) })
							e.Field("message", func(e *jx.Encoder) { e.Str(f.Message) })
						})
					}
				})
			})
		}
	})
	writeJSON(w, status, &e)
}

// writeResult maps a Result to an HTTP response. Success is encoded with
// enc and written with status.
func writeResult[T any](ctx context.Context, w http.ResponseWriter, res result.Result[T], status int, enc func(*jx.Encoder, T)) {
	switch res.Kind() {
	case result.KindSuccess:
		var e jx.Encoder
		enc(&e, res.Value())
		writeJSON(w, status, &e)
	case result.KindNotFound:
		writeError(w, http.StatusNotFound, res.Message(), nil)
	case result.KindInvalid:
		writeError(w, http.StatusUnprocessableEntity, res.Message(), res.Fields())
	default:
		if res.Canceled() {
			zctx.From(ctx).Debug("Request canceled", zap.Error(res.Err()))
			writeError(w, http.StatusServiceUnavailable, "request canceled", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Str(d.StringFixed(2))
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(o.ID) })
		e.Field("userId", func(e *jx.Encoder) { e.Int64(o.UserID) })
		e.Field("createdAt", func(e *jx.Encoder) { e.Str(o.CreatedAt.UTC().Format(time.RFC3339)) })
		e.Field("lines", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range o.Lines {
					e.Obj(func(e *jx.Encoder) {
						e.Field("productId", func(e *jx.Encoder) { e.Int64(l.ProductID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
						e.Field("unitPrice", func(e *jx.Encoder) { encodeMoney(e, l.UnitPrice) })
					})
				}
			})
		})
		e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, o.Subtotal()) })
		e.Field("deliveryCost", func(e *jx.Encoder) { encodeMoney(e, o.DeliveryCost) })
		e.Field("tax", func(e *jx.Encoder) { encodeMoney(e, o.Tax) })
		e.Field("total", func(e *jx.Encoder) { encodeMoney(e, o.Total()) })
	})
}

func encodeOrderPage(e *jx.Encoder, p order.Page[order.Order]) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("page", func(e *jx.Encoder) { e.Int(p.Page) })
		e.Field("pageSize", func(e *jx.Encoder) { e.Int(p.PageSize) })
		e.Field("total", func(e *jx.Encoder) { e.Int(p.Total) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range p.Items {
					encodeOrder(e, &p.Items[i])
				}
			})
		})
	})
}

func encodeReport(e *jx.Encoder, rows []order.ReportRow) {
	e.Arr(func(e *jx.Encoder) {
		for _, r := range rows {
			EncodeReportRow(e, r)
		}
	})
}

// EncodeReportRow writes r as a JSON object.
func EncodeReportRow(e *jx.Encoder, r order.ReportRow) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("period", func(e *jx.Encoder) { e.Str(r.Period.Format(time.RFC3339)) })
		e.Field("orders", func(e *jx.Encoder) { e.Int(r.Orders) })
		e.Field("items", func(e *jx.Encoder) { e.Int(r.Items) })
		e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, r.Subtotal) })
		e.Field("delivery", func(e *jx.Encoder) { encodeMoney(e, r.Delivery) })
		e.Field("tax", func(e *jx.Encoder) { encodeMoney(e, r.Tax) })
		e.Field("total", func(e *jx.Encoder) { encodeMoney(e, r.Total()) })
	})
}
