// Package chainhook implements the predicate registry client against the
// chain-indexing service's HTTP API. All requests go through the shared
// retryable HTTP client so transient registry errors are absorbed.
package chainhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gabapcia/hookrelay/internal/predreg"

	"github.com/hashicorp/go-retryablehttp"
)

// apiKeyHeader authenticates requests against the registry API.
const apiKeyHeader = "X-Api-Key"

// predicatePayload is the registration body the registry API expects.
type predicatePayload struct {
	UUID           string `json:"uuid"`
	SubscriptionID string `json:"subscriptionId"`
	Network        string `json:"network"`
	MatchRule      string `json:"matchRule"`
	CallbackURL    string `json:"callbackUrl"`
}

type client struct {
	http    *retryablehttp.Client
	baseURL string
	apiKey  string
}

var _ predreg.RegistryClient = (*client)(nil)

// NewClient builds a registry client for the API rooted at baseURL. The API
// key may be empty for unauthenticated deployments.
func NewClient(httpClient *retryablehttp.Client, baseURL, apiKey string) *client {
	return &client{
		http:    httpClient,
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// RegisterPredicate implements predreg.RegistryClient.
func (c *client) RegisterPredicate(ctx context.Context, predicate predreg.Predicate) error {
	body, err := json.Marshal(predicatePayload{
		UUID:           predicate.UUID,
		SubscriptionID: predicate.SubscriptionID,
		Network:        predicate.Network,
		MatchRule:      predicate.MatchRule,
		CallbackURL:    predicate.CallbackURL,
	})
	if err != nil {
		return fmt.Errorf("encode predicate: %w", err)
	}

	url := fmt.Sprintf("%s/v1/predicates", c.baseURL)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("build registration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("register predicate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("predicate registration rejected with status %d", resp.StatusCode)
	}

	return nil
}

// DeregisterPredicate implements predreg.RegistryClient.
func (c *client) DeregisterPredicate(ctx context.Context, predicateUUID string) error {
	url := fmt.Sprintf("%s/v1/predicates/%s", c.baseURL, predicateUUID)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("build deregistration request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("deregister predicate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("predicate deregistration rejected with status %d", resp.StatusCode)
	}

	return nil
}
