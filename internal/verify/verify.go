// Package verify re-checks previously discovered backlinks: a source
// page may still carry the link, have dropped it, gone away entirely
// or moved. The resulting status drives lost-link reporting.
package verify

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/seolens/linkscope/internal/extract"
	"github.com/seolens/linkscope/internal/httpclient"
	"github.com/seolens/linkscope/internal/logging"
	"github.com/seolens/linkscope/internal/rate"
	"github.com/seolens/linkscope/internal/types"
)

const maxBodyBytes = 1 << 20

// Verifier re-fetches source pages and confirms link presence.
type Verifier struct {
	client  *httpclient.ResilientClient
	limiter *rate.PerHost
	log     *logging.Logger
}

// New builds a verifier. Redirects are not followed so that moved
// pages surface as REDIRECT instead of silently resolving.
func New(limiter *rate.PerHost, log *logging.Logger, ua string) *Verifier {
	inner := httpclient.Default()
	inner.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &Verifier{
		client:  httpclient.NewResilientClient(inner, ua),
		limiter: limiter,
		log:     log,
	}
}

// Check determines the current status of one backlink.
func (v *Verifier) Check(ctx context.Context, link types.Backlink) (types.LinkStatus, error) {
	u, err := url.Parse(link.SourceURL)
	if err != nil {
		return types.StatusBroken, err
	}
	if err := v.limiter.Wait(ctx, u.Host); err != nil {
		return link.Status, err
	}

	fctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	resp, err := v.client.Get(fctx, link.SourceURL)
	if err != nil {
		return types.StatusBroken, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return types.StatusRedirect, nil
	case resp.StatusCode >= 400:
		return types.StatusBroken, nil
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "html") {
		return types.StatusLost, nil
	}

	matcher := extract.NewTargetMatcher(extract.DomainFromURL(link.TargetURL))
	present, err := extract.ContainsLinkTo(io.LimitReader(resp.Body, maxBodyBytes), matcher)
	if err != nil {
		return link.Status, err
	}
	if !present {
		return types.StatusLost, nil
	}
	return types.StatusActive, nil
}

// Run verifies a batch with a small worker pool and returns the links
// with refreshed Status and LastSeen.
func (v *Verifier) Run(ctx context.Context, links []types.Backlink, workers int) []types.Backlink {
	if workers < 1 {
		workers = 4
	}
	out := make([]types.Backlink, len(links))
	copy(out, links)

	tasks := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range tasks {
				status, err := v.Check(ctx, out[i])
				if err != nil {
					v.log.Debugw("verification error", "url", out[i].SourceURL, "error", err)
				}
				out[i].Status = status
				if status == types.StatusActive {
					out[i].LastSeen = time.Now().UTC()
				}
			}
		}()
	}
	for i := range out {
		select {
		case tasks <- i:
		case <-ctx.Done():
			close(tasks)
			wg.Wait()
			return out
		}
	}
	close(tasks)
	wg.Wait()
	return out
}
