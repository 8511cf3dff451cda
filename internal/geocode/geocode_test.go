package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "blue mosque istanbul" {
			t.Errorf("unexpected query %q", r.URL.Query().Get("q"))
		}
		if r.Header.Get("User-Agent") != "minaret-test" {
			t.Errorf("missing user agent")
		}
		w.Write([]byte(`[
			{"lat":"41.0054","lon":"28.9768","display_name":"Sultan Ahmed Mosque, Istanbul"},
			{"lat":"bogus","lon":"28.9","display_name":"dropped"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "minaret-test")
	places, err := c.Search(context.Background(), "blue mosque istanbul")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(places) != 1 {
		t.Fatalf("expected 1 parseable place, got %d", len(places))
	}
	if places[0].Coordinate.Latitude != 41.0054 {
		t.Errorf("got %v", places[0].Coordinate)
	}
}

func TestSearch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "minaret-test")
	if _, err := c.Search(context.Background(), "anything"); err == nil {
		t.Fatal("expected error")
	}
}
