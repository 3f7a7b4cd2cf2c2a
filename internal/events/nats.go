// Package events publishes order lifecycle events to NATS JetStream.
package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Connect dials NATS and opens a JetStream context.
func Connect(url string, timeout time.Duration) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url, nats.Timeout(timeout), nats.Name("storefront"))
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect to nats")
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, errors.Wrap(err, "create jetstream context")
	}
	return nc, js, nil
}

// EnsureStream creates or updates the stream that stores order events.
func EnsureStream(ctx context.Context, js jetstream.JetStream, stream, subject string) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     stream,
		Subjects: []string{subject},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		return errors.Wrapf(err, "ensure stream %s", stream)
	}
	return nil
}
