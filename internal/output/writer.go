// Package output renders audit results to a stream in JSON, JSONL or
// CSV form.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/seolens/linkscope/internal/types"
)

type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatCSV   Format = "csv"
)

var csvHeader = []string{
	"id", "source_url", "source_domain", "target_url", "anchor_text",
	"link_type", "status", "position", "domain_rating", "toxic_score",
	"strength", "first_seen", "last_seen",
}

// Writer renders results in the configured format.
type Writer struct {
	format    Format
	w         io.Writer
	csvWriter *csv.Writer
	mu        sync.Mutex
	hasHeader bool
}

func NewWriter(format string, w io.Writer) (*Writer, error) {
	var f Format
	switch strings.ToLower(format) {
	case "json":
		f = FormatJSON
	case "jsonl", "ndjson":
		f = FormatJSONL
	case "csv":
		f = FormatCSV
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	writer := &Writer{format: f, w: w}
	if f == FormatCSV {
		writer.csvWriter = csv.NewWriter(w)
	}
	return writer, nil
}

func NewStdoutWriter(format string) (*Writer, error) {
	return NewWriter(format, os.Stdout)
}

// WriteReport renders a full report document. Row formats fall back to
// the report's backlink rows.
func (w *Writer) WriteReport(doc interface{}, links []types.Backlink) error {
	if w.format == FormatJSON {
		w.mu.Lock()
		defer w.mu.Unlock()
		encoder := json.NewEncoder(w.w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(doc)
	}
	return w.WriteBacklinks(links)
}

// WriteBacklinks renders backlinks as rows (or a JSON array).
func (w *Writer) WriteBacklinks(links []types.Backlink) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.format {
	case FormatJSON:
		encoder := json.NewEncoder(w.w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(links)

	case FormatJSONL:
		encoder := json.NewEncoder(w.w)
		for i := range links {
			if err := encoder.Encode(links[i]); err != nil {
				return err
			}
		}
		return nil

	case FormatCSV:
		if !w.hasHeader {
			if err := w.csvWriter.Write(csvHeader); err != nil {
				return err
			}
			w.hasHeader = true
		}
		for i := range links {
			if err := w.csvWriter.Write(csvRow(&links[i])); err != nil {
				return err
			}
		}
		w.csvWriter.Flush()
		return w.csvWriter.Error()

	default:
		return fmt.Errorf("unsupported format: %s", w.format)
	}
}

func csvRow(b *types.Backlink) []string {
	return []string{
		b.ID,
		b.SourceURL,
		b.SourceDomain,
		b.TargetURL,
		b.AnchorText,
		string(b.LinkType),
		string(b.Status),
		string(b.Position),
		strconv.Itoa(b.DomainRating),
		strconv.Itoa(b.ToxicScore),
		string(b.Strength),
		b.FirstSeen.Format(time.RFC3339),
		b.LastSeen.Format(time.RFC3339),
	}
}

// Flush flushes any buffered rows.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.csvWriter != nil {
		w.csvWriter.Flush()
		return w.csvWriter.Error()
	}
	return nil
}
