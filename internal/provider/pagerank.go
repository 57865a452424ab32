package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/seolens/linkscope/internal/httpclient"
	"github.com/seolens/linkscope/internal/logging"
	"github.com/seolens/linkscope/internal/types"
)

const (
	pageRankURL      = "https://openpagerank.com/api/v1.0/getPageRank"
	pageRankBatchMax = 100
)

// PageRank fetches domain authority from the Open PageRank API. The
// free tier allows a fixed number of requests per day; the client
// counts usage and stops issuing requests once the quota is spent,
// letting enrichment degrade to cached values.
type PageRank struct {
	client  *httpclient.ResilientClient
	log     *logging.Logger
	apiKey  string
	quota   int
	baseURL string

	mu   sync.Mutex
	day  string
	used int
}

func NewPageRank(client *httpclient.ResilientClient, log *logging.Logger, apiKey string, dailyQuota int) *PageRank {
	return &PageRank{
		client:  client,
		log:     log,
		apiKey:  apiKey,
		quota:   dailyQuota,
		baseURL: pageRankURL,
	}
}

// Fetch looks up authority for up to len(domains) domains, batching
// per API limits. Domains the API does not know are absent from the
// result. Exhausted quota returns the partial result without error.
func (p *PageRank) Fetch(ctx context.Context, domains []string) (map[string]types.DomainMetric, error) {
	out := make(map[string]types.DomainMetric, len(domains))
	for start := 0; start < len(domains); start += pageRankBatchMax {
		end := start + pageRankBatchMax
		if end > len(domains) {
			end = len(domains)
		}
		if !p.spend() {
			p.log.Warnw("domain metrics quota exhausted", "quota", p.quota, "pending", len(domains)-start)
			return out, nil
		}
		if err := p.fetchBatch(ctx, domains[start:end], out); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (p *PageRank) fetchBatch(ctx context.Context, domains []string, out map[string]types.DomainMetric) error {
	bctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	params := url.Values{}
	for _, d := range domains {
		params.Add("domains[]", d)
	}
	req, err := http.NewRequestWithContext(bctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("API-OPR", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		p.log.Warnw("domain metrics rate limited upstream")
		return &httpclient.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	case http.StatusUnauthorized:
		p.log.Errorw("domain metrics API key rejected")
		return &httpclient.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	default:
		return &httpclient.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var body struct {
		Response []struct {
			StatusCode      int     `json:"status_code"`
			Domain          string  `json:"domain"`
			PageRankDecimal float64 `json:"page_rank_decimal"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decoding metrics response: %w", err)
	}

	now := time.Now().UTC()
	for _, entry := range body.Response {
		if entry.StatusCode != http.StatusOK || entry.Domain == "" {
			continue
		}
		out[entry.Domain] = types.DomainMetric{
			Domain:       entry.Domain,
			DomainRating: int(math.Round(entry.PageRankDecimal * 10)),
			Authority:    entry.PageRankDecimal,
			LastUpdated:  now,
		}
	}
	return nil
}

// spend consumes one request from today's quota, resetting the counter
// on day rollover.
func (p *PageRank) spend() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	today := time.Now().UTC().Format("2006-01-02")
	if p.day != today {
		p.day = today
		p.used = 0
	}
	if p.used >= p.quota {
		return false
	}
	p.used++
	return true
}

// ResetQuota clears today's usage counter, for operators whose plan
// limit was raised mid-day.
func (p *PageRank) ResetQuota() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.used = 0
}

// Remaining reports how many requests are left today.
func (p *PageRank) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	today := time.Now().UTC().Format("2006-01-02")
	if p.day != today {
		return p.quota
	}
	return p.quota - p.used
}
