package events

import (
	"context"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/xenking/storefront/internal/domain/order"
)

var _ order.EventPublisher = (*Publisher)(nil)

// Stream is the subset of jetstream.JetStream used by Publisher.
type Stream interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Publisher sends order-created events.
type Publisher struct {
	js      Stream
	subject string
	timeout time.Duration
}

// NewPublisher returns a Publisher writing to subject. A non-positive
// timeout leaves the caller's deadline in charge.
func NewPublisher(js Stream, subject string, timeout time.Duration) *Publisher {
	return &Publisher{js: js, subject: subject, timeout: timeout}
}

// PublishOrderCreated implements order.EventPublisher. The order id is used
// as the JetStream message id so redeliveries are deduplicated.
func (p *Publisher) PublishOrderCreated(ctx context.Context, o *order.Order) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	msgID := "order-created-" + strconv.FormatInt(o.ID, 10)
	if _, err := p.js.Publish(ctx, p.subject, EncodeOrderCreated(o), jetstream.WithMsgID(msgID)); err != nil {
		return errors.Wrapf(err, "publish %s", p.subject)
	}
	return nil
}

// EncodeOrderCreated renders the event payload.
func EncodeOrderCreated(o *order.Order) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("type", func(e *jx.Encoder) { e.Str("order.created") })
		e.Field("orderId", func(e *jx.Encoder) { e.Int64(o.ID) })
		e.Field("userId", func(e *jx.Encoder) { e.Int64(o.UserID) })
		e.Field("items", func(e *jx.Encoder) {
			n := 0
			for _, l := range o.Lines {
				n += l.Quantity
			}
			e.Int(n)
		})
		e.Field("subtotal", func(e *jx.Encoder) { e.Str(o.Subtotal().StringFixed(2)) })
		e.Field("tax", func(e *jx.Encoder) { e.Str(o.Tax.StringFixed(2)) })
		e.Field("total", func(e *jx.Encoder) { e.Str(o.Total().StringFixed(2)) })
		e.Field("createdAt", func(e *jx.Encoder) { e.Str(o.CreatedAt.UTC().Format(time.RFC3339)) })
	})
	return e.Bytes()
}
