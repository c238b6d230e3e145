package mailketing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type staticToken string

func (s staticToken) MailketingToken(_ context.Context) (string, error) {
	return string(s), nil
}

func TestAddSubscriber(t *testing.T) {
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/addsubtolist" {
			t.Errorf("path = %s, want /addsubtolist", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		gotForm = map[string]string{
			"api_token":  r.PostFormValue("api_token"),
			"list_id":    r.PostFormValue("list_id"),
			"first_name": r.PostFormValue("first_name"),
			"email":      r.PostFormValue("email"),
			"mobile":     r.PostFormValue("mobile"),
		}
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(staticToken("tok-1"), server.URL)
	err := client.AddSubscriber(context.Background(), "42", "Budi", "budi@example.com", "+628123456789")
	if err != nil {
		t.Fatalf("AddSubscriber returned error: %v", err)
	}

	want := map[string]string{
		"api_token":  "tok-1",
		"list_id":    "42",
		"first_name": "Budi",
		"email":      "budi@example.com",
		"mobile":     "+628123456789",
	}
	for key, value := range want {
		if gotForm[key] != value {
			t.Errorf("form[%s] = %q, want %q", key, gotForm[key], value)
		}
	}
}

func TestAddSubscriberRejectedByAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"error","message":"invalid list"}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(staticToken("tok-1"), server.URL)
	err := client.AddSubscriber(context.Background(), "99", "Budi", "budi@example.com", "")
	if err == nil {
		t.Fatal("expected an error for a non-success response")
	}
}

func TestLists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/viewlist" {
			t.Errorf("path = %s, want /viewlist", r.URL.Path)
		}
		w.Write([]byte(`{"status":"success","lists":[
			{"list_id":1,"list_name":"Follow Up","total_subscriber":10},
			{"list_id":"2","list_name":"Closing","total_subscriber":"3"}
		]}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(staticToken("tok-1"), server.URL)
	lists, err := client.Lists(context.Background())
	if err != nil {
		t.Fatalf("Lists returned error: %v", err)
	}
	if len(lists) != 2 {
		t.Fatalf("got %d lists, want 2", len(lists))
	}
	if lists[0].ListName != "Follow Up" || lists[1].ListID.String() != "2" {
		t.Errorf("unexpected lists: %+v", lists)
	}
}

func TestMissingTokenIsNotConfigured(t *testing.T) {
	client := NewClient(staticToken(""))
	err := client.AddSubscriber(context.Background(), "1", "Budi", "budi@example.com", "")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
