package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/go-github/v66/github"
	"go.od2.network/octolog/pkg/relay"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// MaxPayloadSize is the largest body GitHub sends for a delivery.
const MaxPayloadSize = 25 << 20

// Receiver handles POST requests carrying webhook deliveries.
type Receiver struct {
	Log *zap.Logger
	// Relay receives every delivery with a valid JSON body. Nil disables relaying.
	Relay relay.Relay

	events   metric.Int64Counter
	failures metric.Int64Counter
}

// NewReceiver returns a receiver reporting to meter.
func NewReceiver(log *zap.Logger, r relay.Relay, meter metric.Meter) (*Receiver, error) {
	events, err := meter.Int64Counter("octolog.webhook.events",
		metric.WithDescription("Webhook deliveries received, by event type and outcome"))
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("octolog.webhook.relay_failures",
		metric.WithDescription("Webhook deliveries the relay failed to publish"))
	if err != nil {
		return nil, err
	}
	return &Receiver{
		Log:      log,
		Relay:    r,
		events:   events,
		failures: failures,
	}, nil
}

func (rc *Receiver) ServeHTTP(wr http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		wr.Header().Set("Allow", http.MethodPost)
		http.Error(wr, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := req.Context()
	delivery, pretty, err := read(wr, req)
	switch {
	case errors.Is(err, ErrMissingEventType):
		rc.record(ctx, "", "missing_event")
		rc.Log.Warn("Webhook without event type")
		http.Error(wr, "Missing X-GitHub-Event header", http.StatusBadRequest)
		return
	case errors.Is(err, ErrInvalidJSON):
		rc.record(ctx, delivery.Event, "invalid_json")
		rc.Log.Warn("Invalid JSON payload", zap.String("event", delivery.Event), zap.Error(err))
		http.Error(wr, "Invalid JSON payload", http.StatusBadRequest)
		return
	case err != nil:
		rc.record(ctx, delivery.Event, "unreadable")
		rc.Log.Warn("Failed to read webhook body", zap.String("event", delivery.Event), zap.Error(err))
		http.Error(wr, "Failed to read body", http.StatusBadRequest)
		return
	}

	rc.Log.Info("Received webhook event",
		zap.String("event", delivery.Event),
		zap.String("delivery", delivery.ID))
	rc.Log.Info("Payload:\n" + pretty)
	rc.summarize(delivery)
	rc.forward(ctx, delivery)

	rc.record(ctx, delivery.Event, "ok")
	wr.Header().Set("Content-Type", "text/plain; charset=utf-8")
	wr.WriteHeader(http.StatusOK)
	_, _ = wr.Write([]byte("Webhook received"))
}

// read extracts the delivery and its indented payload from req.
func read(wr http.ResponseWriter, req *http.Request) (d relay.Delivery, pretty string, err error) {
	d.Event = github.WebHookType(req)
	if d.Event == "" {
		return d, "", ErrMissingEventType
	}
	d.ID = github.DeliveryID(req)
	d.Payload, err = io.ReadAll(http.MaxBytesReader(wr, req.Body, MaxPayloadSize))
	if err != nil {
		return d, "", err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, d.Payload, "", "  "); err != nil {
		return d, "", fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return d, buf.String(), nil
}

// summarize logs the one-line summary of a delivery.
// Malformed payloads of recognized types are logged and otherwise ignored.
func (rc *Receiver) summarize(d relay.Delivery) {
	event, err := Decode(d.Event, d.Payload)
	if err != nil {
		rc.Log.Warn("Malformed webhook payload", zap.String("event", d.Event), zap.Error(err))
		return
	}
	msg, fields, err := event.Summary()
	if err != nil {
		rc.Log.Warn("Malformed webhook payload", zap.String("event", d.Event), zap.Error(err))
		return
	}
	rc.Log.Info(msg, fields...)
}

func (rc *Receiver) forward(ctx context.Context, d relay.Delivery) {
	if rc.Relay == nil {
		return
	}
	if err := rc.Relay.Publish(ctx, d); err != nil {
		rc.Log.Error("Failed to relay webhook",
			zap.String("event", d.Event),
			zap.String("delivery", d.ID),
			zap.Error(err))
		rc.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("event", d.Event)))
	}
}

func (rc *Receiver) record(ctx context.Context, eventType, outcome string) {
	rc.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", eventType),
		attribute.String("outcome", outcome)))
}
