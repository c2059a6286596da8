package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClientInsert(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/events" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header: %q", got)
		}
		var event Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			t.Errorf("decode event: %v", err)
		}
		if event.Summary != "Short walk" {
			t.Errorf("summary = %q", event.Summary)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "evt-9"})
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL, Token: "tok"}, srv.Client())
	id, err := c.Insert(context.Background(), Event{Summary: "Short walk"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id != "evt-9" {
		t.Fatalf("id = %q, want evt-9", id)
	}
}

func TestHTTPClientListWeek(t *testing.T) {
	t.Parallel()

	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("from") != from.Format(time.RFC3339) {
			t.Errorf("from = %q", q.Get("from"))
		}
		if q.Get("to") != from.AddDate(0, 0, 7).Format(time.RFC3339) {
			t.Errorf("to = %q", q.Get("to"))
		}
		_ = json.NewEncoder(w).Encode([]Event{{ID: "evt-1", Summary: "Yoga"}})
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL}, srv.Client())
	events, err := c.ListWeek(context.Background(), from)
	if err != nil {
		t.Fatalf("ListWeek: %v", err)
	}
	if len(events) != 1 || events[0].ID != "evt-1" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestHTTPClientDelete(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/events/evt-1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL}, srv.Client())
	if err := c.Delete(context.Background(), "evt-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestHTTPClientDeleteGoneIsOK(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL}, srv.Client())
	if err := c.Delete(context.Background(), "evt-1"); err != nil {
		t.Fatalf("Delete on missing event: %v", err)
	}
}

func TestHTTPClientBadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL}, srv.Client())
	if _, err := c.ListWeek(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
