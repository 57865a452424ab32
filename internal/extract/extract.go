// Package extract is the shared HTML link extractor used by every
// acquisition provider. It scans fetched pages for anchors pointing at
// the audited domain and records anchor text, rel attributes, a short
// context window and a position classification.
package extract

import (
	"io"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"github.com/seolens/linkscope/internal/types"
)

const contextRadius = 100

// RegistrableDomain lowers a host to its registrable domain with any
// leading www. stripped.
func RegistrableDomain(host string) string {
	h := strings.ToLower(strings.TrimSuffix(host, "."))
	h = strings.TrimPrefix(h, "www.")
	if e, err := publicsuffix.EffectiveTLDPlusOne(h); err == nil {
		return e
	}
	return h
}

// DomainFromURL extracts the registrable domain of a URL, or "" when
// the URL does not parse.
func DomainFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return RegistrableDomain(u.Hostname())
}

// NormalizeTarget accepts a bare domain or a full URL and returns the
// audited registrable domain.
func NormalizeTarget(input string) string {
	s := strings.TrimSpace(strings.ToLower(input))
	if s == "" {
		return ""
	}
	if strings.Contains(s, "://") {
		return DomainFromURL(s)
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return RegistrableDomain(s)
}

// ResolveHref resolves a possibly relative href against its page URL.
func ResolveHref(href, pageURL string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	u, err := base.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return u.String()
}

// TargetMatcher decides whether an href points at the audited domain.
type TargetMatcher struct {
	domain string
}

// NewTargetMatcher builds a matcher for one audited domain.
func NewTargetMatcher(targetDomain string) TargetMatcher {
	return TargetMatcher{domain: strings.ToLower(targetDomain)}
}

// Matches reports whether the href targets the audited domain. The
// match is a deliberate substring check so that path mentions,
// protocol-relative and www-prefixed forms all count.
func (m TargetMatcher) Matches(href string) bool {
	if m.domain == "" {
		return false
	}
	h := strings.ToLower(href)
	return strings.Contains(h, m.domain) ||
		strings.Contains(h, "//"+m.domain) ||
		strings.Contains(h, "www."+m.domain)
}

// ScanPage parses one fetched HTML page and returns a backlink record
// for every anchor whose href the matcher accepts.
func ScanPage(sourceURL string, body io.Reader, matcher TargetMatcher) ([]types.Backlink, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sourceDomain := DomainFromURL(sourceURL)

	var out []types.Backlink
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if href == "" || !matcher.Matches(href) {
			return
		}
		anchor := strings.TrimSpace(sel.Text())
		if anchor == "" {
			anchor = strings.TrimSpace(sel.AttrOr("title", ""))
		}
		rel, _ := sel.Attr("rel")
		rel = strings.ToLower(rel)

		lt := types.LinkFollow
		if strings.Contains(rel, "nofollow") {
			lt = types.LinkNoFollow
		}

		out = append(out, types.Backlink{
			ID:           "bl_" + uuid.NewString(),
			SourceURL:    sourceURL,
			SourceDomain: sourceDomain,
			TargetURL:    ResolveHref(href, sourceURL),
			AnchorText:   anchor,
			LinkType:     lt,
			Sponsored:    strings.Contains(rel, "sponsored"),
			UGC:          strings.Contains(rel, "ugc"),
			Status:       types.StatusActive,
			Position:     classifyPosition(sel),
			Context:      contextAround(sel),
			FirstSeen:    now,
			LastSeen:     now,
		})
	})
	return out, nil
}

// ContainsLinkTo reports whether the page still carries a link the
// matcher accepts; used by the lifecycle verifier.
func ContainsLinkTo(body io.Reader, matcher TargetMatcher) (bool, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return false, err
	}
	found := false
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if matcher.Matches(href) {
			found = true
			return false
		}
		return true
	})
	return found, nil
}

// classifyPosition infers the link's placement from its ancestors.
func classifyPosition(sel *goquery.Selection) types.LinkPosition {
	switch {
	case sel.Closest("footer, .footer").Length() > 0:
		return types.PositionFooter
	case sel.Closest("nav, header, .header, .navigation").Length() > 0:
		return types.PositionNav
	case sel.Closest("aside, .sidebar, .widget").Length() > 0:
		return types.PositionSidebar
	case sel.Closest("article, main, .content, .post, .entry").Length() > 0:
		return types.PositionContent
	case sel.Closest(".comment, .comments, #comments").Length() > 0:
		return types.PositionComment
	}
	return types.PositionOther
}

// contextAround returns up to ~200 chars of the parent's text centered
// on the anchor.
func contextAround(sel *goquery.Selection) string {
	parentText := strings.TrimSpace(sel.Parent().Text())
	linkText := sel.Text()
	idx := strings.Index(parentText, linkText)
	if idx < 0 || linkText == "" {
		return truncate(parentText, 2*contextRadius)
	}
	start := idx - contextRadius
	if start < 0 {
		start = 0
	}
	for start > 0 && !utf8.RuneStart(parentText[start]) {
		start--
	}
	end := idx + len(linkText) + contextRadius
	if end > len(parentText) {
		end = len(parentText)
	}
	for end < len(parentText) && !utf8.RuneStart(parentText[end]) {
		end++
	}
	return parentText[start:end]
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
