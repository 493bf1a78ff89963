package userapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	auth "github.com/goliatone/go-auth-bearer"
)

const (
	// HeaderAPIKey carries the shared key expected by the identity API.
	HeaderAPIKey = "X-API-Key"

	defaultTimeout = 5 * time.Second
	maxBodySize    = 1 << 20
)

// Config holds identity API client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	// Timeout bounds each request when HTTPClient is nil.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client implements auth.IdentitySource over the identity HTTP API. It does
// not retry, a failed request is reported to the caller as is.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
}

var _ auth.IdentitySource = (*Client)(nil)

// New creates a new identity API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, goerrors.New("identity API base URL is required", goerrors.CategoryValidation)
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, goerrors.New(fmt.Sprintf("invalid identity API base URL %q", cfg.BaseURL), goerrors.CategoryValidation)
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		httpClient: client,
	}, nil
}

// FindByID implements auth.IdentitySource.
func (c *Client) FindByID(ctx context.Context, userID int64) (*auth.IdentityRecord, error) {
	endpoint := c.baseURL.JoinPath("identities", strconv.FormatInt(userID, 10))
	return c.fetch(ctx, "find_by_id", endpoint)
}

// FindByEmail implements auth.IdentitySource.
func (c *Client) FindByEmail(ctx context.Context, email string) (*auth.IdentityRecord, error) {
	endpoint := c.baseURL.JoinPath("identities")
	endpoint.RawQuery = url.Values{"email": {email}}.Encode()
	return c.fetch(ctx, "find_by_email", endpoint)
}

func (c *Client) fetch(ctx context.Context, op string, endpoint *url.URL) (*auth.IdentityRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(HeaderAPIKey, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, apiError(op, resp.StatusCode, "failed to read identity response", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, goerrors.New("identity not found", goerrors.CategoryNotFound).
			WithTextCode("IDENTITY_NOT_FOUND").
			WithCode(goerrors.CodeNotFound).
			WithMetadata(map[string]any{"operation": op})
	case resp.StatusCode != http.StatusOK:
		return nil, apiError(op, resp.StatusCode, "identity API returned "+resp.Status, nil)
	}

	record := new(auth.IdentityRecord)
	if err := json.Unmarshal(body, record); err != nil {
		return nil, apiError(op, resp.StatusCode, "failed to decode identity response", err)
	}
	return record, nil
}

func apiError(op string, status int, message string, source error) error {
	var err *goerrors.Error
	if source != nil {
		err = goerrors.Wrap(source, goerrors.CategoryExternal, message)
	} else {
		err = goerrors.New(message, goerrors.CategoryExternal)
	}
	return err.
		WithTextCode("IDENTITY_API_ERROR").
		WithCode(http.StatusBadGateway).
		WithMetadata(map[string]any{
			"operation":   op,
			"status_code": status,
		})
}
