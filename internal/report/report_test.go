package report

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seolens/linkscope/internal/logging"
)

func TestPublishDeliversReport(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rep Report
		if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
			t.Errorf("decode: %v", err)
		}
		got.Store(rep.Target)
	}))
	defer srv.Close()

	u := NewUploader(srv.URL, t.TempDir(), logging.New())
	u.Publish(New("example.com"))

	if got.Load() != "example.com" {
		t.Fatalf("ingest saw target %v", got.Load())
	}
}

func TestPublishSpoolsOnFailureAndDrains(t *testing.T) {
	spool := t.TempDir()
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
	}))
	defer srv.Close()

	u := NewUploader(srv.URL, spool, logging.New())
	// Keep the retry window short for the test.
	u.maxRetry = 100 * time.Millisecond

	rep := New("example.com")
	u.Publish(rep)

	spooled, err := os.ReadDir(spool)
	if err != nil {
		t.Fatal(err)
	}
	if len(spooled) != 1 {
		t.Fatalf("expected 1 spooled report, got %d", len(spooled))
	}

	var onDisk Report
	raw, err := os.ReadFile(filepath.Join(spool, spooled[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("spooled report not valid JSON: %v", err)
	}
	if onDisk.RunID != rep.RunID {
		t.Errorf("spooled run %q, want %q", onDisk.RunID, rep.RunID)
	}

	healthy.Store(true)
	u.Drain()
	spooled, _ = os.ReadDir(spool)
	if len(spooled) != 0 {
		t.Errorf("expected empty spool after drain, got %d files", len(spooled))
	}
}
