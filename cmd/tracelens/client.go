// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tracelens/tracelens/lib/schema/trace"
)

// ErrTraceNotFound reports a trace id the server has no rows for.
var ErrTraceNotFound = errors.New("trace not found")

// Client speaks the tracelens server's JSON API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// ListTraces fetches the most recently active traces.
func (c *Client) ListTraces(ctx context.Context, limit int) ([]trace.Summary, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var listing trace.ListResponse
	if err := c.get(ctx, "/api/traces", params, &listing); err != nil {
		return nil, err
	}
	return listing.Traces, nil
}

// GetTrace fetches one reconstructed trace tree.
func (c *Client) GetTrace(ctx context.Context, traceID string) (*trace.Tree, error) {
	var tree trace.Tree
	err := c.get(ctx, "/api/trace/"+url.PathEscape(traceID), nil, &tree)
	if err != nil {
		return nil, err
	}
	return &tree, nil
}

// SearchParams mirror the server's conjunctive search filters.
type SearchParams struct {
	Level          string
	EventSubstring string
	Since          string
	Until          string
	Limit          int
}

// Search fetches rows matching the filters, newest first.
func (c *Client) Search(ctx context.Context, p SearchParams) (*trace.SearchResponse, error) {
	params := url.Values{}
	if p.Level != "" {
		params.Set("level", p.Level)
	}
	if p.EventSubstring != "" {
		params.Set("event", p.EventSubstring)
	}
	if p.Since != "" {
		params.Set("since", p.Since)
	}
	if p.Until != "" {
		params.Set("until", p.Until)
	}
	if p.Limit > 0 {
		params.Set("limit", strconv.Itoa(p.Limit))
	}
	var result trace.SearchResponse
	if err := c.get(ctx, "/api/search", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contacting %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrTraceNotFound
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("server returned %s: %s", resp.Status, snippet)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
