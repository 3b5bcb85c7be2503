// Package sdk provides the REST client that backs entitystore.Store
// instances. One Client is constructed per master-data resource; the
// server speaks the same {success, data, errorMessage} envelope the
// store passes through to its callers.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ebioscore/platform/internal/entitystore"
)

// Config holds connection settings shared by every resource client.
type Config struct {
	// BaseURL is the platform root, e.g. http://localhost:8080
	BaseURL string
	// Token is the bearer token attached to every request (optional
	// in development)
	Token string
	// Timeout bounds each request; zero means 30s
	Timeout time.Duration
}

// Client implements entitystore.Service[T, K] over the platform REST
// API for a single resource.
type Client[T any, K comparable] struct {
	baseURL  string
	resource string
	token    string
	http     *http.Client
}

// NewClient creates a resource client. resource is the URL segment
// under /api/v1, e.g. "diagnoses" or "medication-routes".
func NewClient[T any, K comparable](cfg Config, resource string) *Client[T, K] {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client[T, K]{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		resource: resource,
		token:    cfg.Token,
		http:     &http.Client{Timeout: timeout},
	}
}

// GetAll fetches the full collection
func (c *Client[T, K]) GetAll(ctx context.Context) entitystore.Result[[]T] {
	var res entitystore.Result[[]T]
	if err := c.do(ctx, http.MethodGet, c.resourceURL(""), nil, &res); err != nil {
		return entitystore.Fail[[]T](err.Error())
	}
	return res
}

// GetByID fetches a single entity
func (c *Client[T, K]) GetByID(ctx context.Context, id K) entitystore.Result[T] {
	var res entitystore.Result[T]
	if err := c.do(ctx, http.MethodGet, c.resourceURL(fmt.Sprint(id)), nil, &res); err != nil {
		return entitystore.Fail[T](err.Error())
	}
	return res
}

// Save creates or updates an entity; the server disambiguates by the
// identifier value carried in the body.
func (c *Client[T, K]) Save(ctx context.Context, entity T) entitystore.Result[T] {
	var res entitystore.Result[T]
	if err := c.do(ctx, http.MethodPost, c.resourceURL(""), entity, &res); err != nil {
		return entitystore.Fail[T](err.Error())
	}
	return res
}

type statusRequest struct {
	Active bool `json:"active"`
}

// UpdateActiveStatus flips the soft-delete flag on a record
func (c *Client[T, K]) UpdateActiveStatus(ctx context.Context, id K, active bool) (bool, error) {
	var res entitystore.Result[bool]
	url := c.resourceURL(fmt.Sprint(id) + "/status")
	if err := c.do(ctx, http.MethodPut, url, statusRequest{Active: active}, &res); err != nil {
		return false, err
	}
	if !res.Success {
		return false, fmt.Errorf("%s", res.ErrorMessage)
	}
	return true, nil
}

// NextCode asks the server for an advisory code suggestion
func (c *Client[T, K]) NextCode(ctx context.Context, prefix string, padWidth int) (string, error) {
	var res entitystore.Result[string]
	url := fmt.Sprintf("%s?prefix=%s&width=%s",
		c.resourceURL("next-code"), prefix, strconv.Itoa(padWidth))
	if err := c.do(ctx, http.MethodGet, url, nil, &res); err != nil {
		return "", err
	}
	if !res.Success || res.Data == nil {
		return "", fmt.Errorf("%s", failureMessage(res.ErrorMessage))
	}
	return *res.Data, nil
}

func (c *Client[T, K]) resourceURL(suffix string) string {
	url := fmt.Sprintf("%s/api/v1/%s", c.baseURL, c.resource)
	if suffix != "" {
		url += "/" + suffix
	}
	return url
}

// do performs a request and decodes the envelope into out. A non-2xx
// status with a decodable envelope body is not an error here; the
// envelope already carries the failure; transport problems and
// undecodable bodies are.
func (c *Client[T, K]) do(ctx context.Context, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("server error: status %d", resp.StatusCode)
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func failureMessage(msg string) string {
	if msg == "" {
		return "an unexpected error occurred"
	}
	return msg
}
