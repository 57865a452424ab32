package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/seolens/linkscope/internal/types"
)

func sample() []types.Backlink {
	ts := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	return []types.Backlink{
		{
			ID: "bl_1", SourceURL: "https://blog.dev/post", SourceDomain: "blog.dev",
			TargetURL: "https://example.com/", AnchorText: "example",
			LinkType: types.LinkFollow, Status: types.StatusActive,
			Position: types.PositionContent, DomainRating: 44,
			Strength: types.StrengthStrong, FirstSeen: ts, LastSeen: ts,
		},
		{
			ID: "bl_2", SourceURL: "https://news.org/item", SourceDomain: "news.org",
			TargetURL: "https://example.com/a", LinkType: types.LinkNoFollow,
			Status: types.StatusLost, Position: types.PositionFooter,
			FirstSeen: ts, LastSeen: ts,
		},
	}
}

func TestWriteBacklinksJSONL(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter("jsonl", &buf)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteBacklinks(sample()); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var bl types.Backlink
	if err := json.Unmarshal([]byte(lines[0]), &bl); err != nil {
		t.Fatalf("line not valid JSON: %v", err)
	}
	if bl.ID != "bl_1" {
		t.Errorf("ID = %q", bl.ID)
	}
}

func TestWriteBacklinksCSV(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter("csv", &buf)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteBacklinks(sample()); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "id" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][2] != "blog.dev" || rows[2][6] != "LOST" {
		t.Errorf("unexpected rows: %v", rows[1:])
	}

	// A second batch must not repeat the header.
	if err := w.WriteBacklinks(sample()[:1]); err != nil {
		t.Fatal(err)
	}
	w.Flush()
	rows, _ = csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if len(rows) != 4 {
		t.Errorf("expected 4 rows after second batch, got %d", len(rows))
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := NewWriter("xml", &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
