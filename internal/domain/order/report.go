package order

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/result"
)

// Interval is the bucket width of an order report.
type Interval uint8

const (
	IntervalDay Interval = iota + 1
	IntervalMonth
	IntervalYear
)

func (i Interval) String() string {
	switch i {
	case IntervalDay:
		return "day"
	case IntervalMonth:
		return "month"
	case IntervalYear:
		return "year"
	default:
		return fmt.Sprintf("Interval(%d)", uint8(i))
	}
}

// ParseInterval parses "day", "month" or "year".
func ParseInterval(s string) (Interval, bool) {
	switch s {
	case "day":
		return IntervalDay, true
	case "month":
		return IntervalMonth, true
	case "year":
		return IntervalYear, true
	default:
		return 0, false
	}
}

// truncate returns the start of the UTC bucket containing t.
func (i Interval) truncate(t time.Time) time.Time {
	t = t.UTC()
	switch i {
	case IntervalDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case IntervalMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case IntervalYear:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		panic(fmt.Sprintf("order: invalid report interval %d", uint8(i)))
	}
}

// HistoryRow is one stored order as read for reporting.
type HistoryRow struct {
	OrderID      int64
	CreatedAt    time.Time
	Items        int
	Subtotal     decimal.Decimal
	DeliveryCost decimal.Decimal
	Tax          decimal.Decimal
}

// ReportRow aggregates the orders of one period.
type ReportRow struct {
	Period   time.Time
	Orders   int
	Items    int
	Subtotal decimal.Decimal
	Delivery decimal.Decimal
	Tax      decimal.Decimal
}

// Total returns subtotal plus delivery and tax of the period.
func (r ReportRow) Total() decimal.Decimal {
	return r.Subtotal.Add(r.Delivery).Add(r.Tax)
}

// ReportService aggregates order history.
type ReportService struct {
	history HistoryReader
}

// NewReportService creates a ReportService.
func NewReportService(history HistoryReader) *ReportService {
	return &ReportService{history: history}
}

// GetOrderReport groups orders created in [from, to] into UTC buckets of the
// given interval, oldest first. Empty periods are omitted.
//
// Passing an interval other than IntervalDay, IntervalMonth or IntervalYear
// panics.
func (s *ReportService) GetOrderReport(ctx context.Context, from, to time.Time, interval Interval) result.Result[[]ReportRow] {
	switch interval {
	case IntervalDay, IntervalMonth, IntervalYear:
	default:
		panic(fmt.Sprintf("order: invalid report interval %d", uint8(interval)))
	}
	if to.Before(from) {
		return result.Invalid[[]ReportRow]("invalid report range", result.FieldError{
			Code:    "invalid_range",
			Message: "from must not be after to",
		})
	}
	if ctx.Err() != nil {
		return result.Canceled[[]ReportRow](ctx)
	}

	rows, err := s.history.GetOrderHistory(ctx, from, to)
	if err != nil {
		lg := zctx.From(ctx).With(zap.Time("from", from), zap.Time("to", to))
		return failure[[]ReportRow](lg, "read order history", err)
	}

	return result.Success(Aggregate(rows, interval))
}

// Aggregate buckets rows by interval.
func Aggregate(rows []HistoryRow, interval Interval) []ReportRow {
	buckets := make(map[time.Time]*ReportRow)
	for _, row := range rows {
		period := interval.truncate(row.CreatedAt)
		b, ok := buckets[period]
		if !ok {
			b = &ReportRow{
				Period:   period,
				Subtotal: decimal.Zero,
				Delivery: decimal.Zero,
				Tax:      decimal.Zero,
			}
			buckets[period] = b
		}
		b.Orders++
		b.Items += row.Items
		b.Subtotal = b.Subtotal.Add(row.Subtotal)
		b.Delivery = b.Delivery.Add(row.DeliveryCost)
		b.Tax = b.Tax.Add(row.Tax)
	}

	out := make([]ReportRow, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out
}
