// Package cluster talks to the storage cluster's host API.
package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bcnelson/host-dashboard/internal/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// MediaType is the versioned media type of the host API.
const MediaType = "application/vnd.ceph.api.v1.0+json"

// Directory is the cluster's host registry.
type Directory interface {
	List(ctx context.Context) ([]domain.Host, error)
	Create(ctx context.Context, hostname string, status domain.HostStatus) error
	Update(ctx context.Context, hostname string, maintenance bool) error
}

// Client is an HTTP client for the cluster host API.
type Client struct {
	baseURL string
	http    *http.Client
}

// Ensure Client implements Directory.
var _ Directory = (*Client)(nil)

// Options configures a Client. Token takes precedence over client
// credentials; with neither, requests are sent unauthenticated.
type Options struct {
	BaseURL      string
	Token        string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Timeout      time.Duration
}

// New creates a new cluster client.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("cluster API URL is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("parsing cluster API URL: %w", err)
	}

	var httpClient *http.Client
	ctx := context.Background()
	switch {
	case opts.Token != "":
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}))
	case opts.ClientID != "":
		cc := &clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
		}
		httpClient = cc.Client(ctx)
	default:
		httpClient = &http.Client{}
	}
	httpClient.Timeout = opts.Timeout

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    httpClient,
	}, nil
}

// List returns every host known to the cluster.
func (c *Client) List(ctx context.Context) ([]domain.Host, error) {
	var hosts []domain.Host
	if err := c.do(ctx, http.MethodGet, "/api/host", nil, &hosts); err != nil {
		return nil, err
	}
	if hosts == nil {
		hosts = []domain.Host{}
	}
	return hosts, nil
}

// Create adds a host to the cluster with the given status.
func (c *Client) Create(ctx context.Context, hostname string, status domain.HostStatus) error {
	body := struct {
		Hostname string            `json:"hostname"`
		Status   domain.HostStatus `json:"status"`
	}{hostname, status}
	return c.do(ctx, http.MethodPost, "/api/host", body, nil)
}

// Update puts a host into or out of maintenance.
func (c *Client) Update(ctx context.Context, hostname string, maintenance bool) error {
	body := domain.UpdateMaintenanceRequest{Maintenance: maintenance}
	return c.do(ctx, http.MethodPut, "/api/host/"+url.PathEscape(hostname), body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", MediaType)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// APIError is a non-2xx response from the cluster.
type APIError struct {
	StatusCode int
	Message    string
	err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cluster API error %d: %s", e.StatusCode, e.Message)
}

// Unwrap returns the domain error matching the status code, if any.
func (e *APIError) Unwrap() error { return e.err }

func newAPIError(resp *http.Response) *APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	msg := strings.TrimSpace(string(data))
	var detail struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(data, &detail) == nil && detail.Detail != "" {
		msg = detail.Detail
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: msg}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		apiErr.err = domain.ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		apiErr.err = domain.ErrAlreadyExists
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		apiErr.err = domain.ErrUnauthorized
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity:
		apiErr.err = domain.ErrInvalidInput
	case resp.StatusCode >= 500:
		apiErr.err = domain.ErrUnavailable
	}
	return apiErr
}

// IsAPIError reports whether err came from a cluster response.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
