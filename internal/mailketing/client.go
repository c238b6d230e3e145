// Package mailketing is a thin client for the Mailketing list API. All calls
// are form-encoded POSTs; the API token is resolved per call so rotation in
// settings applies immediately.
package mailketing

import (
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

const defaultBaseURL = "https://api.mailketing.co.id/api/v1"

// ErrNotConfigured signals that no API token is present in settings. Callers
// treat it as "sync disabled", not as a failure.
var ErrNotConfigured = errors.New("mailketing api token not configured")

// TokenSource provides the Mailketing API token at call time.
type TokenSource interface {
	MailketingToken(ctx context.Context) (string, error)
}

// Client talks to the Mailketing API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// NewClient creates a Mailketing client.
func NewClient(tokens TokenSource) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		tokens:  tokens,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a local server.
func NewClientWithBaseURL(tokens TokenSource, baseURL string) *Client {
	c := NewClient(tokens)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// List is one subscriber list as reported by the API.
type List struct {
	ListID   json.Number `json:"list_id"`
	ListName string      `json:"list_name"`
	Total    json.Number `json:"total_subscriber"`
}

type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Lists   json.RawMessage `json:"lists"`
}

// Lists fetches all subscriber lists on the account.
func (c *Client) Lists(ctx context.Context) ([]List, error) {
	resp, err := c.post(ctx, "/viewlist", url.Values{})
	if err != nil {
		return nil, err
	}
	if len(resp.Lists) == 0 {
		return nil, nil
	}
	var lists []List
	if err := json.Unmarshal(resp.Lists, &lists); err != nil {
		return nil, fmt.Errorf("decoding mailketing lists: %w", err)
	}
	return lists, nil
}

// AddSubscriber subscribes a contact to a list.
func (c *Client) AddSubscriber(ctx context.Context, listID, name, email, phone string) error {
	form := url.Values{}
	form.Set("list_id", listID)
	form.Set("first_name", name)
	form.Set("email", email)
	if phone != "" {
		form.Set("mobile", phone)
	}
	_, err := c.post(ctx, "/addsubtolist", form)
	return err
}

func (c *Client) post(ctx context.Context, path string, form url.Values) (*apiResponse, error) {
	token, err := c.tokens.MailketingToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading mailketing token: %w", err)
	}
	if token == "" {
		return nil, ErrNotConfigured
	}
	form.Set("api_token", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mailketing request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mailketing %s returned status %d", path, res.StatusCode)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding mailketing response: %w", err)
	}
	if !strings.EqualFold(parsed.Status, "success") {
		return nil, fmt.Errorf("mailketing %s rejected the request: %s", path, parsed.Message)
	}
	return &parsed, nil
}
