package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.od2.network/octolog/cmd/providers"
	"go.uber.org/zap"
)

var sendCmd = cobra.Command{
	Use:   "send",
	Short: "Post a JSON payload to a webhook receiver",
	Long: "Posts a payload file the way GitHub delivers webhooks, " +
		"with X-GitHub-Event and a fresh X-GitHub-Delivery, and prints the response",
	Args: cobra.NoArgs,
	RunE: providers.NewCmd(runSend),
}

func init() {
	flags := sendCmd.Flags()
	flags.String("url", "http://localhost:8080/webhook", "Receiver URL")
	flags.String("event", "", "Event type (X-GitHub-Event)")
	flags.StringP("file", "f", "-", "Payload file, - for stdin")
	flags.Duration("timeout", 10*time.Second, "Request timeout")
	_ = sendCmd.MarkFlagRequired("event")
	Cmd.AddCommand(&sendCmd)
}

func runSend(cmd *cobra.Command, log *zap.Logger) error {
	flags := cmd.Flags()
	target, _ := flags.GetString("url")
	event, _ := flags.GetString("event")
	file, _ := flags.GetString("file")
	timeout, _ := flags.GetDuration("timeout")

	var payload []byte
	var err error
	if file == "-" {
		payload, err = io.ReadAll(cmd.InOrStdin())
	} else {
		payload, err = os.ReadFile(file)
	}
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	res, err := Send(ctx, http.DefaultClient, target, event, payload)
	if err != nil {
		return err
	}
	log.Info("Sent webhook",
		zap.String("event", event),
		zap.String("delivery", res.DeliveryID),
		zap.Int("status", res.StatusCode))
	fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", res.StatusCode, res.Body)
	return nil
}

// Result is the receiver's answer to a delivery.
type Result struct {
	DeliveryID string
	StatusCode int
	Body       string
}

// Send posts payload to target as a delivery of the given event type.
func Send(ctx context.Context, client *http.Client, target, event string, payload []byte) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	deliveryID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "GitHub-Hookshot/octolog")
	req.Header.Set("X-GitHub-Event", event)
	req.Header.Set("X-GitHub-Delivery", deliveryID)
	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send webhook: %w", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return &Result{
		DeliveryID: deliveryID,
		StatusCode: res.StatusCode,
		Body:       string(bytes.TrimSpace(body)),
	}, nil
}
