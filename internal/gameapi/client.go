// internal/gameapi/client.go
//
// HTTP client for the game-server bridge API.
//
// Context
// -------
// The bridge resource (a small Lua/Node export running inside the game
// server) exposes three read-only endpoints:
//
//	GET {base}/esx/citizens            → []ESXCitizen
//	GET {base}/qbcore/citizens         → []QBCitizen
//	GET {base}/vehicles/{citizenID}    → []RawVehicle
//
// Every call carries a per-request deadline, asks for JSON, and forbids
// intermediary caching.  Non-2xx responses surface as *StatusError.  Each
// decoded element is validated before it is handed to the normalizer;
// failures surface as *SchemaError rather than letting absent required
// fields drift through as zero values.
//
// No retries here.  The orchestrator owns any retry policy; today there is
// none, so one transient failure fails the enclosing phase.
package gameapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultTimeout bounds one fetch when the caller does not override it.
const DefaultTimeout = 30 * time.Second

var validate = validator.New()

// Client issues requests against one organization's bridge API.  Safe for
// concurrent use.
type Client struct {
	base    string
	token   string // optional bearer token
	timeout time.Duration
	httpc   *http.Client
}

// NewClient fails fast with ErrNoBaseURL before any network call when the
// organization has no bridge URL configured.
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrNoBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("gameapi: bad base URL %q: %w", baseURL, err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		base:    strings.TrimRight(baseURL, "/"),
		token:   token,
		timeout: timeout,
		httpc:   &http.Client{},
	}, nil
}

// ESXCitizens fetches and validates the full ESX citizen list.
func (c *Client) ESXCitizens(ctx context.Context) ([]ESXCitizen, error) {
	const path = "/esx/citizens"
	var out []ESXCitizen
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if err := validate.Struct(&out[i]); err != nil {
			return nil, &SchemaError{Path: path, Index: i, Err: err}
		}
	}
	return out, nil
}

// QBCitizens fetches and validates the full QBCore citizen list.
func (c *Client) QBCitizens(ctx context.Context) ([]QBCitizen, error) {
	const path = "/qbcore/citizens"
	var out []QBCitizen
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if err := validate.Struct(&out[i]); err != nil {
			return nil, &SchemaError{Path: path, Index: i, Err: err}
		}
	}
	return out, nil
}

// CitizenVehicles fetches one citizen's vehicles.  An empty list is a
// normal outcome; most citizens own nothing.
func (c *Client) CitizenVehicles(ctx context.Context, citizenID string) ([]RawVehicle, error) {
	path := "/vehicles/" + url.PathEscape(citizenID)
	var out []RawVehicle
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if err := validate.Struct(&out[i]); err != nil {
			return nil, &SchemaError{Path: path, Index: i, Err: err}
		}
	}
	return out, nil
}

// getJSON performs one deadline-bounded GET and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("gameapi: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status, Path: path}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gameapi: GET %s: decode: %w", path, err)
	}
	return nil
}
