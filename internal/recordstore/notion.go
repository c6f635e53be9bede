package recordstore

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
)

// DefaultNotionURL is the public Notion API base URL.
const DefaultNotionURL = "https://api.notion.com/v1"

// DefaultNotionVersion is the API version sent in the Notion-Version header.
// Data source endpoints require 2025-09-03 or later.
const DefaultNotionVersion = "2025-09-03"

// queryPageSize is the maximum page size Notion accepts for queries.
const queryPageSize = 100

// Notion implements Store against the Notion REST API. Collections are
// data source IDs and records are pages.
type Notion struct {
	baseURL string
	token   string
	version string
	client  *http.Client
}

// NewNotion creates a Notion client. Empty baseURL and version fall back to
// the defaults; a non-positive timeout means 30 seconds.
func NewNotion(baseURL, token, version string, timeout time.Duration) *Notion {
	if baseURL == "" {
		baseURL = DefaultNotionURL
	}
	if version == "" {
		version = DefaultNotionVersion
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Notion{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		version: version,
		client:  &http.Client{Timeout: timeout},
	}
}

// Query follows next_cursor until every matching page has been fetched.
func (n *Notion) Query(ctx context.Context, collection string, filter Filter) ([]Record, error) {
	path := "/data_sources/" + url.PathEscape(collection) + "/query"

	var records []Record
	cursor := ""
	for {
		body := notionQuery{PageSize: queryPageSize, StartCursor: cursor}
		if !filter.IsZero() {
			f := encodeFilter(filter)
			body.Filter = &f
		}

		var resp notionQueryResponse
		if err := n.do(ctx, "query", http.MethodPost, path, body, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Results {
			if p.Archived || p.InTrash {
				continue
			}
			records = append(records, p.record())
		}
		if !resp.HasMore || resp.NextCursor == "" {
			return records, nil
		}
		cursor = resp.NextCursor
	}
}

// Create inserts a page into the given data source.
func (n *Notion) Create(ctx context.Context, collection string, props Properties) (Record, error) {
	body := notionCreate{
		Parent:     notionParent{Type: "data_source_id", DataSourceID: collection},
		Properties: encodeProperties(props),
	}
	var page notionPage
	if err := n.do(ctx, "create", http.MethodPost, "/pages", body, &page); err != nil {
		return Record{}, err
	}
	return page.record(), nil
}

// Update patches the named page properties.
func (n *Notion) Update(ctx context.Context, id string, props Properties) error {
	body := notionPatch{Properties: encodeProperties(props)}
	return n.do(ctx, "update", http.MethodPatch, "/pages/"+url.PathEscape(id), body, nil)
}

// Archive moves the page to the trash.
func (n *Notion) Archive(ctx context.Context, id string) error {
	archived := true
	body := notionPatch{Archived: &archived}
	return n.do(ctx, "archive", http.MethodPatch, "/pages/"+url.PathEscape(id), body, nil)
}

// Get retrieves a page by ID.
func (n *Notion) Get(ctx context.Context, id string) (Record, error) {
	var page notionPage
	if err := n.do(ctx, "get", http.MethodGet, "/pages/"+url.PathEscape(id), nil, &page); err != nil {
		return Record{}, err
	}
	return page.record(), nil
}

// do sends one API request. Non-2xx responses become *TransportError with
// the API's error message when the body carries one.
func (n *Notion) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("recordstore: %s: marshal: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, n.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("recordstore: %s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+n.token)
	req.Header.Set("Notion-Version", n.version)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: apiError(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("recordstore: %s: decode response: %w", op, err)
	}
	return nil
}

// apiError extracts the message from a Notion error body, or nil.
func apiError(data []byte) error {
	var e struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &e) != nil || e.Message == "" {
		return nil
	}
	if e.Code != "" {
		return errors.New(e.Code + ": " + e.Message)
	}
	return errors.New(e.Message)
}
