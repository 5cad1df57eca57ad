package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RawRecord is one row as the store returns it: an opaque id plus the raw
// field map. Field typing is whatever the remote schema is configured with.
type RawRecord struct {
	ID          string                 `json:"id"`
	Fields      map[string]interface{} `json:"fields"`
	CreatedTime string                 `json:"createdTime,omitempty"`
}

// Store is the record-store surface the job service needs. The production
// implementation is Client; tests substitute an in-memory fake.
type Store interface {
	ListRecords(ctx context.Context, view string) ([]RawRecord, error)
	GetRecord(ctx context.Context, id string) (RawRecord, error)
	PatchRecord(ctx context.Context, id string, fields map[string]interface{}) (RawRecord, error)
}

// Config addresses one table of the remote store.
type Config struct {
	BaseURL string
	BaseID  string
	TableID string
	Token   string
	Timeout time.Duration
}

// Client talks to an Airtable-compatible record store over its REST API with
// a bearer-token credential.
type Client struct {
	baseURL    string
	baseID     string
	tableID    string
	token      string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.airtable.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		baseID:  cfg.BaseID,
		tableID: cfg.TableID,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (c *Client) tableURL() string {
	return fmt.Sprintf("%s/v0/%s/%s", c.baseURL, c.baseID, c.tableID)
}

func (c *Client) recordURL(id string) string {
	return fmt.Sprintf("%s/%s", c.tableURL(), url.PathEscape(id))
}

type listResponse struct {
	Records []RawRecord `json:"records"`
	Offset  string      `json:"offset,omitempty"`
}

// ListRecords fetches every record of a view, following the store's paging
// offset until exhausted.
func (c *Client) ListRecords(ctx context.Context, view string) ([]RawRecord, error) {
	var all []RawRecord
	offset := ""

	for {
		q := url.Values{}
		if view != "" {
			q.Set("view", view)
		}
		if offset != "" {
			q.Set("offset", offset)
		}
		reqURL := c.tableURL()
		if len(q) > 0 {
			reqURL += "?" + q.Encode()
		}

		body, err := c.do(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}

		var page listResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to parse list response: %w", err)
		}
		all = append(all, page.Records...)

		if page.Offset == "" {
			return all, nil
		}
		offset = page.Offset
	}
}

func (c *Client) GetRecord(ctx context.Context, id string) (RawRecord, error) {
	body, err := c.do(ctx, http.MethodGet, c.recordURL(id), nil)
	if err != nil {
		return RawRecord{}, err
	}

	var rec RawRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return RawRecord{}, fmt.Errorf("failed to parse record response: %w", err)
	}
	return rec, nil
}

// PatchRecord updates only the supplied fields. Each call is a full
// replacement of those fields, never an increment, so a failed call leaves
// nothing partially applied.
func (c *Client) PatchRecord(ctx context.Context, id string, fields map[string]interface{}) (RawRecord, error) {
	payload, err := json.Marshal(map[string]interface{}{"fields": fields})
	if err != nil {
		return RawRecord{}, fmt.Errorf("failed to marshal patch: %w", err)
	}

	body, err := c.do(ctx, http.MethodPatch, c.recordURL(id), payload)
	if err != nil {
		return RawRecord{}, err
	}

	var rec RawRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return RawRecord{}, fmt.Errorf("failed to parse patch response: %w", err)
	}
	return rec, nil
}

func (c *Client) do(ctx context.Context, method, reqURL string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, &ValidationError{StatusCode: resp.StatusCode, Body: string(body)}
	case resp.StatusCode >= 400:
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
