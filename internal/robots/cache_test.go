package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestCache_FetchAndCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
	}))
	defer srv.Close()

	host := mustHost(t, srv.URL)
	c := NewCache(srv.Client(), "linkscope-test")

	rd, err := c.Get(context.Background(), host)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !Allowed(rd, "linkscope-test", "/public/page") {
		t.Error("expected /public/page to be allowed")
	}
	if Allowed(rd, "linkscope-test", "/private/page") {
		t.Error("expected /private/page to be disallowed")
	}

	// Second lookup must come from cache.
	if _, err := c.Get(context.Background(), host); err != nil {
		t.Fatalf("Get (cached): %v", err)
	}
	if hits != 1 {
		t.Errorf("expected 1 fetch, got %d", hits)
	}
}

func TestCache_404AllowsAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewCache(srv.Client(), "linkscope-test")
	rd, err := c.Get(context.Background(), mustHost(t, srv.URL))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !Allowed(rd, "linkscope-test", "/anything") {
		t.Error("expected missing robots.txt to allow all")
	}
}

func mustHost(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u.Host
}
