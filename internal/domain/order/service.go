package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/result"
	"github.com/xenking/storefront/internal/domain/tax"
	"github.com/xenking/storefront/internal/domain/user"
)

// Field error codes returned in Invalid results.
const (
	CodeMissingCart     = "missing_cart"
	CodeEmptyCart       = "empty_cart"
	CodeInvalidQuantity = "invalid_quantity"
	CodeUndefinedRegion = "undefined_region"
)

// MaxPageSize caps GetOrders page sizes.
const MaxPageSize = 100

const taxPlaces = 2

// deliveryCost is charged on every order.
var deliveryCost = decimal.RequireFromString("3.99")

// Option configures a Service.
type Option func(*options)

type options struct {
	events         EventPublisher
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// WithEvents publishes an event after every successfully created order.
func WithEvents(p EventPublisher) Option {
	return func(o *options) { o.events = p }
}

// WithMeterProvider sets the meter provider. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// Service assembles orders from carts and serves order reads.
type Service struct {
	carts  cart.Reader
	users  user.Reader
	writer Writer
	reader Reader
	taxes  *tax.Registry
	events EventPublisher

	tracer   trace.Tracer
	created  metric.Int64Counter
	rejected metric.Int64Counter
}

// NewService creates an order Service with the required collaborators.
func NewService(
	carts cart.Reader,
	users user.Reader,
	writer Writer,
	reader Reader,
	taxes *tax.Registry,
	opts ...Option,
) (*Service, error) {
	o := options{
		meterProvider:  otel.GetMeterProvider(),
		tracerProvider: otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	meter := o.meterProvider.Meter("storefront/order")
	created, err := meter.Int64Counter("orders.created",
		metric.WithDescription("Orders successfully created"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders.created counter")
	}
	rejected, err := meter.Int64Counter("orders.rejected",
		metric.WithDescription("Order creations that did not succeed, by reason"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders.rejected counter")
	}

	return &Service{
		carts:    carts,
		users:    users,
		writer:   writer,
		reader:   reader,
		taxes:    taxes,
		events:   o.events,
		tracer:   o.tracerProvider.Tracer("storefront/order"),
		created:  created,
		rejected: rejected,
	}, nil
}

// CreateOrder builds an order from the user's cart, computes tax for the
// user's location, persists it and returns the stored order.
//
// If ctx is canceled after the order was written but before it was read
// back, the order exists and the result is a canceled Error.
func (s *Service) CreateOrder(ctx context.Context, userID, cartID int64) result.Result[*Order] {
	ctx, span := s.tracer.Start(ctx, "order.Create", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("cart.id", cartID),
	))
	defer span.End()

	lg := zctx.From(ctx).With(zap.Int64("user_id", userID), zap.Int64("cart_id", cartID))

	res := s.createOrder(ctx, lg, userID, cartID)
	if res.OK() {
		span.SetAttributes(attribute.Int64("order.id", res.Value().ID))
		s.created.Add(ctx, 1)
		return res
	}

	reason := res.Kind().String()
	if fields := res.Fields(); len(fields) > 0 {
		reason = fields[0].Code
	}
	if res.Kind() == result.KindError {
		span.SetStatus(codes.Error, res.Message())
	}
	s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	return res
}

func (s *Service) createOrder(ctx context.Context, lg *zap.Logger, userID, cartID int64) result.Result[*Order] {
	if ctx.Err() != nil {
		return result.Canceled[*Order](ctx)
	}

	c, err := s.carts.GetCart(ctx, userID, cartID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return result.Invalid[*Order]("invalid cart", result.FieldError{
				Code:    CodeMissingCart,
				Message: fmt.Sprintf("cart with id %d does not exist", cartID),
			})
		}
		return failure[*Order](lg, "load cart", err)
	}

	draft, invalid := newDraft(userID, c)
	if invalid != nil {
		return result.Invalid[*Order]("invalid cart", *invalid)
	}

	if ctx.Err() != nil {
		return result.Canceled[*Order](ctx)
	}
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return result.NotFound[*Order]()
		}
		return failure[*Order](lg, "load user", err)
	}

	rule := s.taxes.Select(u.CountryCode)
	amount, err := rule.Compute(draft.Basket(), tax.Location{
		CountryCode: u.CountryCode,
		Address:     u.DeliveryAddress,
	})
	if err != nil {
		if errors.Is(err, tax.ErrRegionUndefined) {
			return result.Invalid[*Order]("invalid delivery address", result.FieldError{
				Code:    CodeUndefinedRegion,
				Message: "delivery address does not contain a region code",
			})
		}
		lg.Error("Tax configuration error",
			zap.String("rule", rule.Name()),
			zap.String("country", u.CountryCode),
			zap.String("address", u.DeliveryAddress),
			zap.Error(err),
		)
		return result.Fail[*Order]("compute tax", err)
	}
	draft.Tax = amount.Round(taxPlaces)

	if ctx.Err() != nil {
		return result.Canceled[*Order](ctx)
	}
	id, err := s.writer.CreateOrder(ctx, draft)
	if err != nil || id == 0 {
		if err == nil {
			err = errors.New("no identifier assigned")
		}
		return failure[*Order](lg, "unexpected error occurred creating order", err)
	}
	lg = lg.With(zap.Int64("order_id", id))

	if ctx.Err() != nil {
		lg.Warn("Canceled after order was persisted")
		return result.Canceled[*Order](ctx)
	}
	stored, err := s.reader.GetOrder(ctx, userID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return failure[*Order](lg, "order missing after create", err)
		}
		return failure[*Order](lg, "reload order", err)
	}

	lg.Info("Order created",
		zap.String("tax_rule", rule.Name()),
		zap.Stringer("tax", stored.Tax),
		zap.Stringer("total", stored.Total()),
	)

	if s.events != nil {
		if err := s.events.PublishOrderCreated(ctx, stored); err != nil {
			lg.Warn("Publish order created event", zap.Error(err))
		}
	}

	return result.Success(stored)
}

// GetOrder returns a single order owned by userID.
func (s *Service) GetOrder(ctx context.Context, userID, orderID int64) result.Result[*Order] {
	if ctx.Err() != nil {
		return result.Canceled[*Order](ctx)
	}

	o, err := s.reader.GetOrder(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return result.NotFound[*Order]()
		}
		lg := zctx.From(ctx).With(zap.Int64("user_id", userID), zap.Int64("order_id", orderID))
		return failure[*Order](lg, "get order", err)
	}
	return result.Success(o)
}

// GetOrders returns one page of the user's orders. An empty page is a
// success. page and pageSize are clamped to at least 1 and pageSize to at
// most MaxPageSize.
func (s *Service) GetOrders(ctx context.Context, userID int64, page, pageSize int) result.Result[Page[Order]] {
	page = max(page, 1)
	pageSize = min(max(pageSize, 1), MaxPageSize)

	if ctx.Err() != nil {
		return result.Canceled[Page[Order]](ctx)
	}

	p, err := s.reader.GetOrders(ctx, userID, page, pageSize)
	if err != nil {
		lg := zctx.From(ctx).With(zap.Int64("user_id", userID))
		return failure[Page[Order]](lg, "list orders", err)
	}
	if p.Items == nil {
		p.Items = []Order{}
	}
	return result.Success(p)
}

// newDraft copies cart lines into a new order with the current prices.
func newDraft(userID int64, c *cart.Cart) (*Order, *result.FieldError) {
	if len(c.Lines) == 0 {
		return nil, &result.FieldError{
			Code:    CodeEmptyCart,
			Message: fmt.Sprintf("cart with id %d has no items", c.ID),
		}
	}

	lines := make([]Line, len(c.Lines))
	for i, l := range c.Lines {
		if l.Quantity <= 0 {
			return nil, &result.FieldError{
				Code:    CodeInvalidQuantity,
				Message: fmt.Sprintf("quantity must be greater than 0 for product %d", l.ProductID),
			}
		}
		lines[i] = Line{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		}
	}

	return &Order{
		UserID:       userID,
		Lines:        lines,
		DeliveryCost: deliveryCost,
	}, nil
}

// failure logs err and wraps it in an Error result. Cancellation is logged
// as a warning since it is not a defect.
func failure[T any](lg *zap.Logger, msg string, err error) result.Result[T] {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		lg.Warn("Operation canceled", zap.String("op", msg), zap.Error(err))
	} else {
		lg.Error("Order operation failed", zap.String("op", msg), zap.Error(err))
	}
	return result.Fail[T](msg, err)
}
