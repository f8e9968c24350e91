// Package graph is a thin REST client for SharePoint sites, lists and document
// libraries exposed through the Microsoft Graph API.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/gastos/internal/auth"
)

// TokenSource supplies bearer tokens per audience.
type TokenSource interface {
	Token(ctx context.Context, aud auth.Audience) (string, error)
}

type Options struct {
	BaseURL    string
	Tokens     TokenSource
	HTTPClient *http.Client
	PageSize   int
	UserAgent  string
}

// Client talks to the remote list store. It never retries; failures are returned as is.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	pageSize   int
	userAgent  string
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://graph.microsoft.com/v1.0"
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 200
	}

	return &Client{
		baseURL:    baseURL,
		tokens:     opts.Tokens,
		httpClient: httpClient,
		pageSize:   pageSize,
		userAgent:  strings.TrimSpace(opts.UserAgent),
	}
}

// SiteByPath resolves a site from its hostname and server-relative path.
func (c *Client) SiteByPath(ctx context.Context, host, path string) (Site, error) {
	endpoint := c.baseURL + "/sites/" + host
	if path = strings.Trim(path, "/"); path != "" {
		endpoint += ":/" + escapePath(path)
	}

	var site Site
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &site); err != nil {
		return Site{}, fmt.Errorf("resolving site %s/%s: %w", host, path, err)
	}

	return site, nil
}

// ListsByName returns every list whose display name equals name, in store order.
func (c *Client) ListsByName(ctx context.Context, siteID, name string) ([]List, error) {
	q := url.Values{}
	q.Set("$filter", "displayName eq '"+strings.ReplaceAll(name, "'", "''")+"'")

	endpoint := c.siteURL(siteID) + "/lists?" + strings.ReplaceAll(q.Encode(), "+", "%20")

	lists, err := getAll[List](ctx, c, endpoint)
	if err != nil {
		return nil, fmt.Errorf("finding list %q: %w", name, err)
	}

	return lists, nil
}

// Columns returns the column descriptors of a list.
func (c *Client) Columns(ctx context.Context, siteID, listID string) ([]Column, error) {
	endpoint := c.listURL(siteID, listID) + "/columns"

	cols, err := getAll[Column](ctx, c, endpoint)
	if err != nil {
		return nil, fmt.Errorf("listing columns: %w", err)
	}

	return cols, nil
}

// Items returns every row of a list with its fields, following pagination links
// until the store reports no more pages.
func (c *Client) Items(ctx context.Context, siteID, listID string) ([]Item, error) {
	endpoint := c.listURL(siteID, listID) + "/items?expand=fields&$top=" + strconv.Itoa(c.pageSize)

	items, err := getAll[Item](ctx, c, endpoint)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	return items, nil
}

func (c *Client) CreateItem(ctx context.Context, siteID, listID string, fields map[string]any) (Item, error) {
	body := struct {
		Fields map[string]any `json:"fields"`
	}{Fields: fields}

	var item Item
	if err := c.doJSON(ctx, http.MethodPost, c.listURL(siteID, listID)+"/items", body, &item); err != nil {
		return Item{}, fmt.Errorf("creating item: %w", err)
	}

	return item, nil
}

// UpdateItem patches only the given fields and returns the row's full field set.
func (c *Client) UpdateItem(ctx context.Context, siteID, listID, itemID string, fields map[string]any) (map[string]any, error) {
	endpoint := c.listURL(siteID, listID) + "/items/" + itemID + "/fields"

	var out map[string]any
	if err := c.doJSON(ctx, http.MethodPatch, endpoint, fields, &out); err != nil {
		return nil, fmt.Errorf("updating item %s: %w", itemID, err)
	}

	return out, nil
}

func (c *Client) DeleteItem(ctx context.Context, siteID, listID, itemID string) error {
	endpoint := c.listURL(siteID, listID) + "/items/" + itemID

	if err := c.doJSON(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		return fmt.Errorf("deleting item %s: %w", itemID, err)
	}

	return nil
}

// ListDrive returns the drive behind a document library.
func (c *Client) ListDrive(ctx context.Context, siteID, listID string) (Drive, error) {
	var d Drive
	if err := c.doJSON(ctx, http.MethodGet, c.listURL(siteID, listID)+"/drive", nil, &d); err != nil {
		return Drive{}, fmt.Errorf("resolving library drive: %w", err)
	}

	return d, nil
}

// Upload stores content at path inside the drive, replacing any file already there.
func (c *Client) Upload(ctx context.Context, driveID, path string, content io.Reader, contentType string) (DriveItem, error) {
	endpoint := c.baseURL + "/drives/" + driveID + "/root:/" + escapePath(strings.Trim(path, "/")) + ":/content"

	resp, err := c.send(ctx, auth.AudienceGraph, http.MethodPut, endpoint, content, contentType)
	if err != nil {
		return DriveItem{}, fmt.Errorf("uploading %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var item DriveItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return DriveItem{}, fmt.Errorf("decoding upload response: %w", err)
	}

	return item, nil
}

// Download fetches a file from the document library by its web URL. The caller
// closes the response body.
func (c *Client) Download(ctx context.Context, webURL string) (*http.Response, error) {
	resp, err := c.send(ctx, auth.AudienceSharePoint, http.MethodGet, webURL, nil, "")
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", webURL, err)
	}

	return resp, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Site, list and item ids are opaque server-issued values and are used verbatim.
func (c *Client) siteURL(siteID string) string {
	return c.baseURL + "/sites/" + siteID
}

func (c *Client) listURL(siteID, listID string) string {
	return c.siteURL(siteID) + "/lists/" + listID
}

func getAll[T any](ctx context.Context, c *Client, endpoint string) ([]T, error) {
	var out []T

	for endpoint != "" {
		var page collection[T]
		if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		out = append(out, page.Value...)
		endpoint = page.NextLink
	}

	return out, nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, in, out any) error {
	var (
		body        io.Reader
		contentType string
	)

	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}

		body = bytes.NewReader(raw)
		contentType = "application/json"
	}

	resp, err := c.send(ctx, auth.AudienceGraph, method, endpoint, body, contentType)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// send performs one authenticated request. Any non-2xx status is returned as *HTTPError
// and the body is already closed in that case.
func (c *Client) send(ctx context.Context, aud auth.Audience, method, endpoint string, body io.Reader, contentType string) (*http.Response, error) {
	if c.tokens == nil {
		return nil, auth.ErrAuthRequired
	}

	token, err := c.tokens.Token(ctx, aud)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("client-request-id", requestID)

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()

		return nil, newHTTPError(resp.StatusCode, requestID, raw)
	}

	return resp, nil
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}

	return strings.Join(parts, "/")
}
