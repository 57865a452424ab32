// Package report assembles the final audit document for one run and
// ships it to an ingest endpoint, spooling to disk when the endpoint
// is unreachable.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/seolens/linkscope/internal/logging"
	"github.com/seolens/linkscope/internal/types"
)

// Report is the complete output of one audit run.
type Report struct {
	RunID       string    `json:"run_id"`
	Target      string    `json:"target"`
	GeneratedAt time.Time `json:"generated_at"`

	Stats     types.CollectionStats `json:"stats"`
	Backlinks []types.Backlink      `json:"backlinks"`

	ToxicityHealth   int                            `json:"toxicity_health"`
	ToxicityScores   map[string]types.ToxicityScore `json:"toxicity_scores,omitempty"`
	ToxicLinks       []types.Backlink               `json:"toxic_links,omitempty"`
	Anchors          types.AnchorAnalysis           `json:"anchors"`
	OverOptimization types.OverOptimization         `json:"over_optimization"`
	Velocity         types.VelocityAnalysis         `json:"velocity"`

	Comparisons map[string]types.CompetitorComparison `json:"comparisons,omitempty"`
}

// New starts an empty report for a target.
func New(target string) *Report {
	return &Report{
		RunID:       "run_" + uuid.NewString(),
		Target:      target,
		GeneratedAt: time.Now().UTC(),
	}
}

// Uploader posts reports to the ingest endpoint with retry, falling
// back to an on-disk spool so no run result is lost.
type Uploader struct {
	ingest   string
	spoolDir string
	client   *http.Client
	log      *logging.Logger
	maxRetry time.Duration
}

func NewUploader(ingest, spoolDir string, log *logging.Logger) *Uploader {
	_ = os.MkdirAll(spoolDir, 0o755)
	return &Uploader{
		ingest:   ingest,
		spoolDir: spoolDir,
		client:   &http.Client{Timeout: 20 * time.Second},
		log:      log,
		maxRetry: 30 * time.Second,
	}
}

// Publish delivers one report. Without an ingest endpoint the report
// goes to stdout; delivery failures end up in the spool.
func (u *Uploader) Publish(r *Report) {
	if u.ingest == "" {
		_ = json.NewEncoder(os.Stdout).Encode(r)
		return
	}
	if err := u.post(r); err != nil {
		u.log.Warnw("ingest failed, spooling", "run", r.RunID, "err", err)
		u.spool(r)
	}
}

func (u *Uploader) post(r *Report) error {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(r); err != nil {
		return err
	}
	op := func() error {
		req, err := http.NewRequest(http.MethodPost, u.ingest, bytes.NewReader(buf.Bytes()))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := u.client.Do(req)
		if err != nil {
			return err
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("bad status: %d", resp.StatusCode)
		}
		return nil
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = u.maxRetry
	return backoff.Retry(op, bo)
}

func (u *Uploader) spool(r *Report) {
	name := time.Now().UTC().Format("20060102T150405.000000000") + ".json"
	path := filepath.Join(u.spoolDir, name)
	f, err := os.Create(path)
	if err != nil {
		u.log.Errorw("spool create failed", "err", err)
		return
	}
	defer f.Close()
	_ = json.NewEncoder(f).Encode(r)
}

// Drain retries every spooled report, removing the ones that deliver.
func (u *Uploader) Drain() {
	entries, _ := os.ReadDir(u.spoolDir)
	for _, ent := range entries {
		p := filepath.Join(u.spoolDir, ent.Name())
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		var r Report
		if err := json.NewDecoder(f).Decode(&r); err == nil {
			if u.ingest == "" || u.post(&r) == nil {
				_ = f.Close()
				_ = os.Remove(p)
				continue
			}
		}
		_ = f.Close()
	}
}
