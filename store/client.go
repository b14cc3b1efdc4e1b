// Package store implements the HTTP client for the record store's REST API.
// The rest of the repository treats it as an opaque capability: collections
// and records in, collections and records out.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	pbmcp "github.com/minhdtb/pocketbase-cursor-mcp"
)

// fullListPageSize is the page size used when draining a collection.
const fullListPageSize = 500

// Client talks to the record store's HTTP API. Admin authentication is
// token-based: call AuthWithPassword once, subsequent calls carry the token.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithToken sets a pre-obtained auth token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// NewClient creates a Client for the store at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// AuthWithPassword authenticates as an admin and retains the returned token
// for subsequent calls.
func (c *Client) AuthWithPassword(ctx context.Context, email, password string) (string, error) {
	var result struct {
		Token string `json:"token"`
	}

	body := map[string]any{"identity": email, "password": password}

	err := c.do(ctx, http.MethodPost, "/api/admins/auth-with-password", nil, body, &result)
	if err != nil {
		return "", fmt.Errorf("authenticating admin %s: %w", email, err)
	}

	c.token = result.Token

	return result.Token, nil
}

// ListCollections returns one page of collection schemas.
func (c *Client) ListCollections(ctx context.Context, page, perPage int) (*CollectionList, error) {
	query := url.Values{
		"page":    {strconv.Itoa(page)},
		"perPage": {strconv.Itoa(perPage)},
	}

	var result CollectionList

	err := c.do(ctx, http.MethodGet, "/api/collections", query, nil, &result)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}

	return &result, nil
}

// GetCollection fetches one collection schema by name or id.
func (c *Client) GetCollection(ctx context.Context, nameOrID string) (*pbmcp.Collection, error) {
	var result pbmcp.Collection

	err := c.do(ctx, http.MethodGet, "/api/collections/"+url.PathEscape(nameOrID), nil, nil, &result)
	if err != nil {
		return nil, fmt.Errorf("fetching collection %s: %w", nameOrID, err)
	}

	return &result, nil
}

// CreateCollection creates a collection from the given schema.
func (c *Client) CreateCollection(ctx context.Context, collection pbmcp.Collection) (*pbmcp.Collection, error) {
	var result pbmcp.Collection

	err := c.do(ctx, http.MethodPost, "/api/collections", nil, collection, &result)
	if err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", collection.Name, err)
	}

	return &result, nil
}

// UpdateCollection applies a partial update to a collection by id. Used for
// schema and index updates, and for the final rename during migration.
func (c *Client) UpdateCollection(ctx context.Context, id string, patch map[string]any) (*pbmcp.Collection, error) {
	var result pbmcp.Collection

	err := c.do(ctx, http.MethodPatch, "/api/collections/"+url.PathEscape(id), nil, patch, &result)
	if err != nil {
		return nil, fmt.Errorf("updating collection %s: %w", id, err)
	}

	return &result, nil
}

// DeleteCollection deletes a collection by name or id.
func (c *Client) DeleteCollection(ctx context.Context, nameOrID string) error {
	err := c.do(ctx, http.MethodDelete, "/api/collections/"+url.PathEscape(nameOrID), nil, nil, nil)
	if err != nil {
		return fmt.Errorf("deleting collection %s: %w", nameOrID, err)
	}

	return nil
}

// ListRecords returns one page of records from a collection.
func (c *Client) ListRecords(ctx context.Context, collection string, opts ListOptions) (*RecordList, error) {
	query := url.Values{}

	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}

	if opts.PerPage > 0 {
		query.Set("perPage", strconv.Itoa(opts.PerPage))
	}

	if opts.Filter != "" {
		query.Set("filter", opts.Filter)
	}

	if opts.Sort != "" {
		query.Set("sort", opts.Sort)
	}

	var result RecordList

	path := "/api/collections/" + url.PathEscape(collection) + "/records"

	err := c.do(ctx, http.MethodGet, path, query, nil, &result)
	if err != nil {
		return nil, fmt.Errorf("listing records of %s: %w", collection, err)
	}

	return &result, nil
}

// FullRecordList drains every record of a collection, paging internally.
func (c *Client) FullRecordList(ctx context.Context, collection string) ([]Record, error) {
	var all []Record

	for page := 1; ; page++ {
		list, err := c.ListRecords(ctx, collection, ListOptions{Page: page, PerPage: fullListPageSize})
		if err != nil {
			return nil, err
		}

		all = append(all, list.Items...)

		if len(list.Items) < fullListPageSize || len(all) >= list.TotalItems {
			return all, nil
		}
	}
}

// GetRecord fetches one record by id.
func (c *Client) GetRecord(ctx context.Context, collection, id string) (Record, error) {
	var result Record

	path := "/api/collections/" + url.PathEscape(collection) + "/records/" + url.PathEscape(id)

	err := c.do(ctx, http.MethodGet, path, nil, nil, &result)
	if err != nil {
		return nil, fmt.Errorf("fetching record %s/%s: %w", collection, id, err)
	}

	return result, nil
}

// CreateRecord creates a record in a collection.
func (c *Client) CreateRecord(ctx context.Context, collection string, data map[string]any) (Record, error) {
	var result Record

	path := "/api/collections/" + url.PathEscape(collection) + "/records"

	err := c.do(ctx, http.MethodPost, path, nil, data, &result)
	if err != nil {
		return nil, fmt.Errorf("creating record in %s: %w", collection, err)
	}

	return result, nil
}

// UpdateRecord applies a partial update to a record.
func (c *Client) UpdateRecord(ctx context.Context, collection, id string, data map[string]any) (Record, error) {
	var result Record

	path := "/api/collections/" + url.PathEscape(collection) + "/records/" + url.PathEscape(id)

	err := c.do(ctx, http.MethodPatch, path, nil, data, &result)
	if err != nil {
		return nil, fmt.Errorf("updating record %s/%s: %w", collection, id, err)
	}

	return result, nil
}

// DeleteRecord deletes a record by id.
func (c *Client) DeleteRecord(ctx context.Context, collection, id string) error {
	path := "/api/collections/" + url.PathEscape(collection) + "/records/" + url.PathEscape(id)

	err := c.do(ctx, http.MethodDelete, path, nil, nil, nil)
	if err != nil {
		return fmt.Errorf("deleting record %s/%s: %w", collection, id, err)
	}

	return nil
}

// CreateBackup asks the store to write a backup archive under the given
// name. The store generates a name when none is supplied.
func (c *Client) CreateBackup(ctx context.Context, name string) error {
	body := map[string]any{}
	if name != "" {
		body["name"] = name
	}

	err := c.do(ctx, http.MethodPost, "/api/backups", nil, body, nil)
	if err != nil {
		return fmt.Errorf("creating backup: %w", err)
	}

	return nil
}

// ImportCollections bulk-imports collection schemas. With deleteMissing the
// store removes collections absent from the import set.
func (c *Client) ImportCollections(ctx context.Context, collections []pbmcp.Collection, deleteMissing bool) error {
	body := map[string]any{
		"collections":   collections,
		"deleteMissing": deleteMissing,
	}

	err := c.do(ctx, http.MethodPut, "/api/collections/import", nil, body, nil)
	if err != nil {
		return fmt.Errorf("importing %d collections: %w", len(collections), err)
	}

	return nil
}

// do performs one API round-trip. Non-2xx responses decode into *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}

		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	c.logger.Debug("store request", zap.String("method", method), zap.String("path", path))

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
