package provider

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/seolens/linkscope/internal/extract"
	"github.com/seolens/linkscope/internal/httpclient"
	"github.com/seolens/linkscope/internal/logging"
	"github.com/seolens/linkscope/internal/rate"
	"github.com/seolens/linkscope/internal/types"
)

// cdxRecord is one line of a CDX index response.
type cdxRecord struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Offset   string `json:"offset"`
	Length   string `json:"length"`
}

// Archive discovers backlinks in web-archive crawl snapshots. It
// queries the CDX index for captured pages related to the audited
// domain, then range-reads each capture's WARC segment and scans the
// archived HTML for links.
type Archive struct {
	client  *httpclient.ResilientClient
	limiter *rate.PerHost
	log     *logging.Logger

	baseURL string
	dataURL string
	indexes []string
}

// NewArchive builds the archive provider against the given index and
// data endpoints. indexes lists crawl snapshots, newest first.
func NewArchive(client *httpclient.ResilientClient, limiter *rate.PerHost, log *logging.Logger, baseURL, dataURL string, indexes []string) *Archive {
	return &Archive{
		client:  client,
		limiter: limiter,
		log:     log,
		baseURL: baseURL,
		dataURL: dataURL,
		indexes: indexes,
	}
}

func (a *Archive) Name() string { return "archive" }

// Collect walks the configured snapshots until the limit is reached.
// Index lookups and capture fetches fail soft; a snapshot that errors
// is logged and skipped.
func (a *Archive) Collect(ctx context.Context, target string, limit int) ([]types.Backlink, error) {
	matcher := extract.NewTargetMatcher(target)
	queries := []string{
		"*." + target + "/*",
		"*" + target + "*",
	}

	var out []types.Backlink
	for _, index := range a.indexes {
		for _, q := range queries {
			if len(out) >= limit {
				return out[:limit], nil
			}
			records, err := a.queryIndex(ctx, index, q, limit)
			if err != nil {
				a.log.Warnw("archive index query failed", "index", index, "query", q, "error", err)
				continue
			}
			for _, rec := range records {
				if len(out) >= limit {
					break
				}
				if extract.DomainFromURL(rec.URL) == target {
					continue
				}
				links, err := a.scanCapture(ctx, rec, matcher)
				if err != nil {
					a.log.Debugw("archive capture skipped", "url", rec.URL, "error", err)
					continue
				}
				out = append(out, links...)
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// queryIndex fetches one CDX index page. The response is NDJSON; rows
// that fail to parse are dropped.
func (a *Archive) queryIndex(ctx context.Context, index, query string, limit int) ([]cdxRecord, error) {
	qctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	u := fmt.Sprintf("%s/%s-index?url=%s&output=json&limit=%d",
		a.baseURL, index, url.QueryEscape(query), limit)

	if err := a.waitHost(qctx, u); err != nil {
		return nil, err
	}
	resp, err := a.client.Get(qctx, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		// Snapshot has no captures for this pattern.
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &httpclient.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var records []cdxRecord
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var rec cdxRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			continue
		}
		if rec.Filename == "" || rec.URL == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, sc.Err()
}

// scanCapture range-reads one gzipped WARC record, strips the WARC and
// HTTP headers and scans the payload HTML.
func (a *Archive) scanCapture(ctx context.Context, rec cdxRecord, matcher extract.TargetMatcher) ([]types.Backlink, error) {
	offset, err := strconv.ParseInt(rec.Offset, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad offset %q: %w", rec.Offset, err)
	}
	length, err := strconv.ParseInt(rec.Length, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad length %q: %w", rec.Length, err)
	}

	fctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	captureURL := a.dataURL + "/" + rec.Filename
	if err := a.waitHost(fctx, captureURL); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(fctx, http.MethodGet, captureURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+length-1))

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		return nil, &httpclient.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decompressing capture: %w", err)
	}
	defer gz.Close()
	raw, err := io.ReadAll(io.LimitReader(gz, 4<<20))
	if err != nil {
		return nil, err
	}

	html := payloadHTML(raw)
	if len(html) == 0 {
		return nil, fmt.Errorf("capture has no payload")
	}
	return extract.ScanPage(rec.URL, bytes.NewReader(html), matcher)
}

// payloadHTML cuts the document body out of a WARC response record.
// The record carries two header blocks before the payload: the WARC
// headers and the archived HTTP headers, each ended by a blank line.
func payloadHTML(raw []byte) []byte {
	rest := raw
	for i := 0; i < 2; i++ {
		j := bytes.Index(rest, []byte("\r\n\r\n"))
		if j < 0 {
			break
		}
		rest = rest[j+4:]
	}
	return rest
}

func (a *Archive) waitHost(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	return a.limiter.Wait(ctx, u.Host)
}
