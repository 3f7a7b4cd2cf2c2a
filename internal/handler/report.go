package handler

import (
	"net/http"
	"time"

	"github.com/xenking/storefront/internal/domain/order"
)

type reportQuery struct {
	From     time.Time `json:"from" validate:"required"`
	To       time.Time `json:"to" validate:"required"`
	Interval string    `json:"interval" validate:"required,oneof=day month year"`
}

// OrderReport handles GET /reports/orders?from=&to=&interval=.
// Dates are RFC 3339 timestamps or YYYY-MM-DD. A date-only "to" covers the
// whole day.
func (h *Handler) OrderReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		query reportQuery
		ok    bool
	)
	if query.From, ok = parseDate(q.Get("from"), false); !ok {
		writeError(w, http.StatusBadRequest, "from must be a date", nil)
		return
	}
	if query.To, ok = parseDate(q.Get("to"), true); !ok {
		writeError(w, http.StatusBadRequest, "to must be a date", nil)
		return
	}
	query.Interval = q.Get("interval")
	if fields := h.validationErrors(query); fields != nil {
		writeError(w, http.StatusBadRequest, "invalid report query", fields)
		return
	}

	interval, _ := order.ParseInterval(query.Interval)
	res := h.reports.GetOrderReport(r.Context(), query.From, query.To, interval)
	writeResult(r.Context(), w, res, http.StatusOK, encodeReport)
}

// parseDate accepts an empty string as the zero time so that "required"
// validation reports it. With endOfDay a YYYY-MM-DD value resolves to the
// last instant of that day.
func parseDate(s string, endOfDay bool) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t, true
	}
	return time.Time{}, false
}
