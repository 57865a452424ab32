package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/seolens/linkscope/internal/dedup"
	"github.com/seolens/linkscope/internal/extract"
	"github.com/seolens/linkscope/internal/httpclient"
	"github.com/seolens/linkscope/internal/logging"
	"github.com/seolens/linkscope/internal/rate"
	"github.com/seolens/linkscope/internal/robots"
	"github.com/seolens/linkscope/internal/types"
)

const customSearchURL = "https://www.googleapis.com/customsearch/v1"

// Search discovers backlinks through web search: it runs a fixed query
// set for the audited domain, fetches the result pages and scans them
// for links. With API credentials it uses the Custom Search endpoint;
// otherwise it falls back to scraping the result HTML.
type Search struct {
	client  *httpclient.ResilientClient
	limiter *rate.PerHost
	robots  *robots.Cache
	visited dedup.Interface
	log     *logging.Logger

	ua       string
	apiKey   string
	engineID string
	useAPI   bool
	apiURL   string
}

// NewSearch builds the search provider. apiKey and engineID may be
// empty when useAPI is false.
func NewSearch(client *httpclient.ResilientClient, limiter *rate.PerHost, rc *robots.Cache, visited dedup.Interface, log *logging.Logger, ua, apiKey, engineID string, useAPI bool) *Search {
	return &Search{
		client:   client,
		limiter:  limiter,
		robots:   rc,
		visited:  visited,
		log:      log,
		ua:       ua,
		apiKey:   apiKey,
		engineID: engineID,
		useAPI:   useAPI,
		apiURL:   customSearchURL,
	}
}

func (s *Search) Name() string { return "search" }

// queries builds the operator set used to surface pages that mention
// or link to the audited domain.
func queries(target string) []string {
	return []string{
		fmt.Sprintf("%q", target),
		"link:" + target,
		fmt.Sprintf("intext:%q", target),
		fmt.Sprintf("site:*.edu %q", target),
		fmt.Sprintf("site:*.gov %q", target),
		fmt.Sprintf("site:*.org %q", target),
	}
}

func (s *Search) Collect(ctx context.Context, target string, limit int) ([]types.Backlink, error) {
	matcher := extract.NewTargetMatcher(target)

	var out []types.Backlink
	for _, q := range queries(target) {
		if len(out) >= limit {
			break
		}
		var (
			results []string
			err     error
		)
		if s.useAPI {
			results, err = s.searchAPI(ctx, q)
		} else {
			results, err = s.searchScrape(ctx, q)
		}
		if err != nil {
			s.log.Warnw("search query failed", "query", q, "error", err)
			continue
		}
		for _, pageURL := range results {
			if len(out) >= limit {
				break
			}
			if extract.DomainFromURL(pageURL) == target {
				continue
			}
			if s.visited.Seen(pageURL) {
				continue
			}
			links, err := s.scanResult(ctx, pageURL, matcher)
			if err != nil {
				s.log.Debugw("result page skipped", "url", pageURL, "error", err)
				continue
			}
			out = append(out, links...)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// searchAPI queries the Custom Search JSON endpoint.
func (s *Search) searchAPI(ctx context.Context, query string) ([]string, error) {
	qctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	params := url.Values{}
	params.Set("key", s.apiKey)
	params.Set("cx", s.engineID)
	params.Set("q", query)
	params.Set("num", "10")

	resp, err := s.client.Get(qctx, s.apiURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &httpclient.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var body struct {
		Items []struct {
			Link string `json:"link"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	links := make([]string, 0, len(body.Items))
	for _, item := range body.Items {
		if item.Link != "" {
			links = append(links, item.Link)
		}
	}
	return links, nil
}

// searchScrape fetches the public result page and pulls result links
// out of the HTML. Brittle against markup changes, so it degrades to
// an empty result set rather than failing the run.
func (s *Search) searchScrape(ctx context.Context, query string) ([]string, error) {
	qctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	u := "https://www.google.com/search?q=" + url.QueryEscape(query) + "&num=20"
	if err := s.limiter.Wait(qctx, "www.google.com"); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(qctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.ua)
	req.Header.Set("Accept-Language", "en")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &httpclient.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}
	var links []string
	doc.Find("div.g a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !strings.HasPrefix(href, "http") {
			return
		}
		if sel.Find("h3").Length() == 0 && sel.Closest("div.g").Find("h3").Length() == 0 {
			return
		}
		links = append(links, href)
	})
	return links, nil
}

// scanResult fetches one result page, honoring its robots.txt and the
// per-host throttle, and scans it for links to the target.
func (s *Search) scanResult(ctx context.Context, pageURL string, matcher extract.TargetMatcher) ([]types.Backlink, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	rd, err := s.robots.Get(ctx, u.Host)
	if err == nil && !robots.Allowed(rd, s.ua, u.Path) {
		return nil, fmt.Errorf("disallowed by robots.txt")
	}

	fctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := s.limiter.Wait(fctx, u.Host); err != nil {
		return nil, err
	}
	resp, err := s.client.Get(fctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &httpclient.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "html") {
		return nil, fmt.Errorf("not HTML: %s", ct)
	}
	return extract.ScanPage(pageURL, resp.Body, matcher)
}
