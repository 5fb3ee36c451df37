// Package client talks to a running operator over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gravitas-games/sortsys/internal/catalog"
	"github.com/gravitas-games/sortsys/internal/holds"
	"github.com/gravitas-games/sortsys/internal/item"
	"github.com/gravitas-games/sortsys/internal/network"
)

// APIError is a non-2xx response from the operator.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (status %d, %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Message)
}

// Client is an operator HTTP client.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for the operator at baseURL. token may be empty for
// public endpoints.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(responseBody))}
		var payload network.ErrorPayload
		if json.Unmarshal(responseBody, &payload) == nil && payload.Code != "" {
			apiErr.Code, apiErr.Message = payload.Code, payload.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(responseBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Items fetches the published item catalog.
func (c *Client) Items(ctx context.Context) ([]catalog.Entry, error) {
	var entries []catalog.Entry
	if err := c.makeRequest(ctx, http.MethodGet, "/data/items", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Listing fetches the merged inventory listing. An empty unpacking uses the
// operator's default.
func (c *Client) Listing(ctx context.Context, unpacking string) ([]item.Item, error) {
	endpoint := "/automation/inventory_listing"
	if unpacking != "" {
		endpoint += "?shulker_unpacking=" + url.QueryEscape(unpacking)
	}

	var listing []item.Item
	if err := c.makeRequest(ctx, http.MethodGet, endpoint, nil, &listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// RequestHolds submits a batch of hold requests and returns one result per
// request, in order.
func (c *Client) RequestHolds(ctx context.Context, reqs ...holds.Request) ([]network.HoldResult, error) {
	payload := network.HoldRequestPayload{Requests: make([]json.RawMessage, 0, len(reqs))}
	for _, r := range reqs {
		data, err := holds.EncodeRequest(r)
		if err != nil {
			return nil, err
		}
		payload.Requests = append(payload.Requests, data)
	}

	var results network.HoldResultsPayload
	if err := c.makeRequest(ctx, http.MethodPost, "/automation/holds", payload, &results); err != nil {
		return nil, err
	}
	return results.Results, nil
}

// ReleaseHolds releases holds by id.
func (c *Client) ReleaseHolds(ctx context.Context, ids ...string) (*network.HoldReleasedPayload, error) {
	var released network.HoldReleasedPayload
	if err := c.makeRequest(ctx, http.MethodDelete, "/automation/holds", ids, &released); err != nil {
		return nil, err
	}
	return &released, nil
}

// Hold fetches one live hold.
func (c *Client) Hold(ctx context.Context, id string) (*holds.Hold, error) {
	var h holds.Hold
	if err := c.makeRequest(ctx, http.MethodGet, "/agent/hold/"+url.PathEscape(id), nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// ReportScan uploads one container scan.
func (c *Client) ReportScan(ctx context.Context, scan *network.InventoryScannedPayload) (*network.ScanAcceptedPayload, error) {
	var ack network.ScanAcceptedPayload
	if err := c.makeRequest(ctx, http.MethodPost, "/agent/inventory_scanned", scan, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// Stats fetches operator statistics.
func (c *Client) Stats(ctx context.Context) (*network.Stats, error) {
	var stats network.Stats
	if err := c.makeRequest(ctx, http.MethodGet, "/admin/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
