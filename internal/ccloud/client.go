// Package ccloud implements the Confluent Cloud inventory reader and
// effector on top of the public v2 REST APIs. All list operations paginate
// internally and return complete snapshots.
package ccloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/tiagoposse/ccloud-secretsync/internal/config"
)

const (
	defaultBaseURL = "https://api.confluent.cloud"

	environmentsPath    = "/org/v2/environments"
	serviceAccountsPath = "/iam/v2/service-accounts"
	apiKeysPath         = "/iam/v2/api-keys"
	clustersPath        = "/cmk/v2/clusters"

	pageSize = "50"
)

// APIError is a non-2xx response from Confluent Cloud.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("confluent cloud returned status %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the provider.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to the Confluent Cloud REST APIs using basic auth with a
// cloud API key.
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      *retryablehttp.Client
	log       logr.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// NewClient builds a client from the ccloud configuration block.
func NewClient(cfg config.CCloudConfig, log logr.Logger, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	c := &Client{
		baseURL:   defaultBaseURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		http:      rc,
		log:       log.WithName("ccloud"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) request(ctx context.Context, method, path string, params url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, c.apiSecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response body: %w", err)
		}
	}
	return nil
}

// listPage is the common envelope of the v2 list APIs.
type listPage struct {
	Data     []json.RawMessage `json:"data"`
	Metadata struct {
		Next string `json:"next"`
	} `json:"metadata"`
}

// list walks every page of a list endpoint, handing each raw data item to
// collect.
func (c *Client) list(ctx context.Context, path string, params url.Values, collect func(json.RawMessage) error) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("page_size", pageSize)
	for {
		var page listPage
		if err := c.request(ctx, http.MethodGet, path, params, nil, &page); err != nil {
			return err
		}
		for _, item := range page.Data {
			if err := collect(item); err != nil {
				return err
			}
		}
		token := nextPageToken(page.Metadata.Next)
		if token == "" {
			return nil
		}
		params.Set("page_token", token)
	}
}

func nextPageToken(next string) string {
	if next == "" {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil {
		return ""
	}
	return u.Query().Get("page_token")
}
