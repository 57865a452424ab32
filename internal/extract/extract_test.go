package extract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/seolens/linkscope/internal/types"
)

func TestNormalizeTarget(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"example.com", "example.com"},
		{"WWW.Example.com", "example.com"},
		{"https://www.example.com/some/path?q=1", "example.com"},
		{"blog.example.co.uk", "example.co.uk"},
		{"example.com/pricing", "example.com"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeTarget(tc.in); got != tc.want {
			t.Errorf("NormalizeTarget(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTargetMatcher(t *testing.T) {
	m := NewTargetMatcher("example.com")
	for _, href := range []string{
		"https://example.com/page",
		"http://www.example.com",
		"//example.com/asset",
		"/redirect?to=example.com",
	} {
		if !m.Matches(href) {
			t.Errorf("expected match for %q", href)
		}
	}
	for _, href := range []string{"https://other.org/", "/local/path", ""} {
		if m.Matches(href) {
			t.Errorf("unexpected match for %q", href)
		}
	}
}

const samplePage = `<html><body>
<nav><a href="https://example.com/">Example</a></nav>
<article>
  <p>Our favourite audit suite is <a href="https://example.com/tools" rel="nofollow sponsored">the example toolkit</a>, reviewed below.</p>
  <p>Unrelated <a href="https://elsewhere.org/">mention</a>.</p>
</article>
<footer><a href="https://www.example.com/about" title="about example"><img src="x.png"></a></footer>
</body></html>`

func TestScanPage(t *testing.T) {
	links, err := ScanPage("https://blog.dev/review", strings.NewReader(samplePage), NewTargetMatcher("example.com"))
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 3 {
		t.Fatalf("expected 3 backlinks, got %d", len(links))
	}

	nav, article, footer := links[0], links[1], links[2]

	if nav.Position != types.PositionNav {
		t.Errorf("nav link position = %v", nav.Position)
	}
	if nav.SourceDomain != "blog.dev" {
		t.Errorf("SourceDomain = %q", nav.SourceDomain)
	}

	if article.AnchorText != "the example toolkit" {
		t.Errorf("anchor = %q", article.AnchorText)
	}
	if article.LinkType != types.LinkNoFollow || !article.Sponsored {
		t.Errorf("rel attributes not captured: %+v", article)
	}
	if article.Position != types.PositionContent {
		t.Errorf("article link position = %v", article.Position)
	}
	if article.Context == "" || !strings.Contains(article.Context, "audit suite") {
		t.Errorf("context = %q", article.Context)
	}

	if footer.Position != types.PositionFooter {
		t.Errorf("footer link position = %v", footer.Position)
	}
	if footer.AnchorText != "about example" {
		t.Errorf("title fallback anchor = %q", footer.AnchorText)
	}

	if !strings.HasPrefix(nav.ID, "bl_") {
		t.Errorf("ID = %q", nav.ID)
	}
}

func TestContextWindowKeepsValidUTF8(t *testing.T) {
	// Three-byte runes put the window edges inside a rune unless the cut
	// points are snapped.
	padding := strings.Repeat("审", 150)
	page := "<html><body><article><p>" + padding +
		`<a href="https://example.com/">review</a>` + padding +
		"</p></article></body></html>"

	links, err := ScanPage("https://blog.dev/review", strings.NewReader(page), NewTargetMatcher("example.com"))
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 {
		t.Fatalf("expected 1 backlink, got %d", len(links))
	}
	if !utf8.ValidString(links[0].Context) {
		t.Errorf("context window split a rune: %q", links[0].Context)
	}
	if !strings.Contains(links[0].Context, "review") {
		t.Errorf("context lost the anchor text: %q", links[0].Context)
	}
}

func TestTruncateOnRuneBoundary(t *testing.T) {
	s := strings.Repeat("é", 150)
	got := truncate(s, 2*contextRadius+1)
	if !utf8.ValidString(got) {
		t.Errorf("truncate returned invalid UTF-8: %q", got)
	}
	if len(got) > 2*contextRadius+1 {
		t.Errorf("truncate returned %d bytes", len(got))
	}
}

func TestResolveHrefRelative(t *testing.T) {
	got := ResolveHref("/partners/example.com", "https://blog.dev/post")
	if got != "https://blog.dev/partners/example.com" {
		t.Errorf("ResolveHref = %q", got)
	}
}

func TestContainsLinkTo(t *testing.T) {
	m := NewTargetMatcher("example.com")
	ok, err := ContainsLinkTo(strings.NewReader(samplePage), m)
	if err != nil || !ok {
		t.Fatalf("ContainsLinkTo = %v, %v", ok, err)
	}
	ok, err = ContainsLinkTo(strings.NewReader("<html><body><a href='https://other.org/'>x</a></body></html>"), m)
	if err != nil || ok {
		t.Fatalf("expected no link, got %v, %v", ok, err)
	}
}
