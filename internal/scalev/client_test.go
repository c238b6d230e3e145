package scalev

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

type staticKey string

func (s staticKey) ScalevAPIKey(_ context.Context) (string, error) {
	return string(s), nil
}

func TestStoresPagination(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/v2/stores" {
			t.Errorf("path = %s, want /v2/stores", r.URL.Path)
		}
		switch r.URL.Query().Get("last_id") {
		case "":
			fmt.Fprint(w, `{"data":{"results":[
				{"id":1,"unique_id":"st-1","name":"Store One"},
				{"id":2,"unique_id":"st-2","name":"Store Two"}
			],"last_id":2,"has_next":true}}`)
		case "2":
			fmt.Fprint(w, `{"data":{"results":[
				{"id":3,"unique_id":"st-3","name":"Store Three"}
			],"last_id":3,"has_next":false}}`)
		default:
			t.Errorf("unexpected last_id %q", r.URL.Query().Get("last_id"))
		}
	}))
	defer server.Close()

	client := NewClientWithBaseURL(staticKey("key-1"), server.URL)
	stores, err := client.Stores(context.Background())
	if err != nil {
		t.Fatalf("Stores returned error: %v", err)
	}
	if gotAuth != "Bearer key-1" {
		t.Errorf("Authorization = %q, want Bearer key-1", gotAuth)
	}
	if len(stores) != 3 {
		t.Fatalf("got %d stores, want 3", len(stores))
	}
	if stores[2].UniqueID != "st-3" {
		t.Errorf("last store = %+v", stores[2])
	}
}

func TestPaginationCap(t *testing.T) {
	// A server that always reports has_next must not loop forever.
	pages := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		pages++
		fmt.Fprint(w, `{"data":{"results":[{"id":1,"name":"P"}],"last_id":1,"has_next":true}}`)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(staticKey("key-1"), server.URL)
	products, err := client.Products(context.Background())
	if err != nil {
		t.Fatalf("Products returned error: %v", err)
	}
	if pages != maxPages {
		t.Errorf("fetched %d pages, want the cap of %d", pages, maxPages)
	}
	if len(products) != maxPages {
		t.Errorf("got %d products, want %d", len(products), maxPages)
	}
}

func TestOrderUnwrapsDataEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/order/123" {
			t.Errorf("path = %s, want /v1/order/123", r.URL.Path)
		}
		fmt.Fprint(w, `{"data":{"id":123,"payment_status":"paid"}}`)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(staticKey("key-1"), server.URL)
	raw, err := client.Order(context.Background(), "123")
	if err != nil {
		t.Fatalf("Order returned error: %v", err)
	}
	if string(raw) != `{"id":123,"payment_status":"paid"}` {
		t.Errorf("unexpected order payload: %s", raw)
	}
}

func TestMissingKeyIsNotConfigured(t *testing.T) {
	client := NewClient(staticKey(""))
	_, err := client.Stores(context.Background())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestNon200IsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(staticKey("key-1"), server.URL)
	if _, err := client.Stores(context.Background()); err == nil {
		t.Fatal("expected an error for a 403 response")
	}
}
