package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gabapcia/hookrelay/internal/chainevent"
	"github.com/gabapcia/hookrelay/internal/subroute"

	"github.com/hashicorp/go-retryablehttp"
)

// webhookAlert is the JSON body posted for each delivery.
type webhookAlert struct {
	Pipeline    string                       `json:"pipeline"`
	Events      []chainevent.DomainEvent     `json:"events,omitempty"`
	Retractions []chainevent.RetractionEvent `json:"retractions,omitempty"`
}

// webhook forwards deliveries to an external URL as a single JSON POST per
// batch. Outbound retries are the retryable client's concern; this handler
// only decides success or failure for the batch outcome.
type webhook struct {
	pipeline string
	client   *retryablehttp.Client
	url      string
}

var _ subroute.Handler = (*webhook)(nil)

// NewWebhook returns a handler that posts every non-empty delivery for the
// named pipeline to url.
func NewWebhook(pipeline string, client *retryablehttp.Client, url string) *webhook {
	return &webhook{
		pipeline: pipeline,
		client:   client,
		url:      url,
	}
}

// Handle implements subroute.Handler. Empty deliveries are skipped so quiet
// batches do not spam the receiver.
func (h *webhook) Handle(ctx context.Context, events []chainevent.DomainEvent, retractions []chainevent.RetractionEvent) error {
	if len(events) == 0 && len(retractions) == 0 {
		return nil
	}

	body, err := json.Marshal(webhookAlert{
		Pipeline:    h.pipeline,
		Events:      events,
		Retractions: retractions,
	})
	if err != nil {
		return fmt.Errorf("encode webhook alert: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, h.url, body)
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook alert rejected with status %d", resp.StatusCode)
	}

	return nil
}
