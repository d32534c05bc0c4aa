// Package enrichment talks to the description service that stores the
// human-written text of proposals keyed by their on-chain id.
package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ProposalRecord is the description service representation of a proposal.
type ProposalRecord struct {
	ArcID            string `json:"arcId"`
	DaoAvatarAddress string `json:"daoAvatarAddress,omitempty"`
	DescriptionHash  string `json:"descriptionHash,omitempty"`
	Description      string `json:"description"`
	Title            string `json:"title,omitempty"`
}

// Client is a small HTTP client for the description service.
type Client struct {
	baseURL string
	client  *http.Client
}

// Opts is the set of options for a new Client.
type Opts struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// New creates a description service client.
func New(o Opts) *Client {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: o.Timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(o.BaseURL, "/"),
		client:  client,
	}
}

// Description returns the stored description of a proposal.
// The boolean is false when the service has no record for the id.
func (c *Client) Description(ctx context.Context, proposalID common.Hash) (string, bool, error) {
	filter, err := json.Marshal(map[string]any{
		"where": map[string]string{"arcId": proposalID.Hex()},
	})
	if err != nil {
		return "", false, err
	}

	path := "/api/proposals?filter=" + url.QueryEscape(string(filter))
	var records []ProposalRecord
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &records); err != nil {
		return "", false, err
	}
	if len(records) == 0 {
		return "", false, nil
	}
	return records[0].Description, true, nil
}

// Publish stores a new proposal record.
func (c *Client) Publish(ctx context.Context, rec ProposalRecord) error {
	return c.doJSON(ctx, http.MethodPost, "/api/proposals", rec, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("description service not configured")
	}

	var body io.Reader = http.NoBody
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: http %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	slog.Debug("description service", "method", method, "path", path, "len", len(rawBody))

	if err := json.Unmarshal(rawBody, out); err != nil {
		return fmt.Errorf("json unmarshal: %w (body: %s)", err, string(rawBody[:min(200, len(rawBody))]))
	}
	return nil
}
