// Package scalev is a read-only client for the Scalev platform API, used by
// the admin UI to browse stores, products and sales people when building
// rules.
package scalev

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

const (
	defaultBaseURL = "https://api.scalev.id"
	pageSize       = 25
	// Hard stop for cursor pagination in case the API misreports has_next.
	maxPages = 40
)

// ErrNotConfigured signals that no API key is present in settings.
var ErrNotConfigured = errors.New("scalev api key not configured")

// APIKeySource provides the Scalev API key at call time.
type APIKeySource interface {
	ScalevAPIKey(ctx context.Context) (string, error)
}

// Client talks to the Scalev API.
type Client struct {
	baseURL string
	http    *http.Client
	keys    APIKeySource
}

// NewClient creates a Scalev client.
func NewClient(keys APIKeySource) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		keys:    keys,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a local server.
func NewClientWithBaseURL(keys APIKeySource, baseURL string) *Client {
	c := NewClient(keys)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Store is one Scalev store.
type Store struct {
	ID       json.Number `json:"id"`
	UniqueID string      `json:"unique_id"`
	Name     string      `json:"name"`
}

// Product is a sellable product, optionally scoped to a store.
type Product struct {
	ID       json.Number `json:"id"`
	UniqueID string      `json:"unique_id"`
	Name     string      `json:"name"`
	SKU      string      `json:"sku"`
}

// SalesPerson is a store team member orders can be attributed to.
type SalesPerson struct {
	ID       json.Number `json:"id"`
	UniqueID string      `json:"unique_id"`
	Name     string      `json:"fullname"`
	Email    string      `json:"email"`
}

// Stores lists all stores on the account.
func (c *Client) Stores(ctx context.Context) ([]Store, error) {
	return collectPages[Store](ctx, c, "/v2/stores", nil)
}

// StoreProducts lists the products of one store.
func (c *Client) StoreProducts(ctx context.Context, storeID string) ([]Product, error) {
	return collectPages[Product](ctx, c, "/v2/stores/"+url.PathEscape(storeID)+"/store-products", nil)
}

// StoreSalesPeople lists the sales people of one store.
func (c *Client) StoreSalesPeople(ctx context.Context, storeID string) ([]SalesPerson, error) {
	return collectPages[SalesPerson](ctx, c, "/v2/stores/"+url.PathEscape(storeID)+"/sales-people", nil)
}

// Products lists all products on the account, across stores.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	return collectPages[Product](ctx, c, "/v2/products", nil)
}

// Order fetches a single order from the v1 API.
func (c *Client) Order(ctx context.Context, orderID string) (json.RawMessage, error) {
	body, err := c.get(ctx, "/v1/order/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding order response: %w", err)
	}
	if len(envelope.Data) == 0 {
		return body, nil
	}
	return envelope.Data, nil
}

// page is the v2 cursor-pagination envelope.
type page[T any] struct {
	Data struct {
		Results []T         `json:"results"`
		LastID  json.Number `json:"last_id"`
		HasNext bool        `json:"has_next"`
	} `json:"data"`
}

// collectPages walks last_id cursors until has_next is false or the page cap
// is hit.
func collectPages[T any](ctx context.Context, c *Client, path string, extra url.Values) ([]T, error) {
	var out []T
	lastID := ""
	for range maxPages {
		query := url.Values{}
		for key, values := range extra {
			query[key] = values
		}
		query.Set("page_size", fmt.Sprint(pageSize))
		if lastID != "" {
			query.Set("last_id", lastID)
		}

		body, err := c.get(ctx, path, query)
		if err != nil {
			return nil, err
		}
		var parsed page[T]
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("decoding %s page: %w", path, err)
		}

		out = append(out, parsed.Data.Results...)
		if !parsed.Data.HasNext || parsed.Data.LastID.String() == "" {
			return out, nil
		}
		lastID = parsed.Data.LastID.String()
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	key, err := c.keys.ScalevAPIKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading scalev api key: %w", err)
	}
	if key == "" {
		return nil, ErrNotConfigured
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scalev request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scalev %s returned status %d", path, res.StatusCode)
	}
	return body, nil
}
