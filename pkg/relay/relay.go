// Package relay forwards accepted webhook deliveries to a downstream broker.
//
// The webhook endpoint only logs deliveries. When a relay is configured,
// each delivery with a valid JSON body is additionally published once,
// keyed by its delivery ID so consumers can drop redeliveries.
package relay

import (
	"context"
)

// Delivery is a single webhook delivery as received.
type Delivery struct {
	Event   string // X-GitHub-Event
	ID      string // X-GitHub-Delivery, may be empty
	Payload []byte // raw request body
}

// Relay publishes deliveries.
type Relay interface {
	Publish(ctx context.Context, d Delivery) error
}

// Nop drops every delivery.
type Nop struct{}

func (Nop) Publish(context.Context, Delivery) error { return nil }
