package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seolens/linkscope/internal/logging"
	"github.com/seolens/linkscope/internal/metricscache"
	"github.com/seolens/linkscope/internal/provider"
	"github.com/seolens/linkscope/internal/types"
)

type stubProvider struct {
	name      string
	links     []types.Backlink
	sawLimit  int
	sawTarget string
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Collect(_ context.Context, target string, limit int) ([]types.Backlink, error) {
	s.sawTarget = target
	s.sawLimit = limit
	if len(s.links) > limit {
		return s.links[:limit], nil
	}
	return s.links, nil
}

func link(sourceDomain, targetURL, anchor, ctx string, dr int) types.Backlink {
	return types.Backlink{
		ID:           "bl_" + sourceDomain + targetURL,
		SourceURL:    "https://" + sourceDomain + "/page",
		SourceDomain: sourceDomain,
		TargetURL:    targetURL,
		AnchorText:   anchor,
		Context:      ctx,
		LinkType:     types.LinkFollow,
		Status:       types.StatusActive,
		Position:     types.PositionContent,
		FirstSeen:    time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		LastSeen:     time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMergeKeepsRicherRecord(t *testing.T) {
	bare := link("blog.dev", "https://example.com/", "", "", 0)
	bare.FirstSeen = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	rich := link("blog.dev", "https://example.com/", "great tool", "a paragraph of surrounding prose", 0)

	merged := Merge([]types.Backlink{bare, rich})
	require.Len(t, merged, 1)
	assert.Equal(t, "great tool", merged[0].AnchorText)
	// The survivor keeps the earliest sighting.
	assert.Equal(t, bare.FirstSeen, merged[0].FirstSeen)

	// Order of arguments must not matter for the winner.
	merged = Merge([]types.Backlink{rich, bare})
	require.Len(t, merged, 1)
	assert.Equal(t, "great tool", merged[0].AnchorText)
	assert.Equal(t, bare.FirstSeen, merged[0].FirstSeen)
}

func TestMergePreservesDistinctTargets(t *testing.T) {
	a := link("blog.dev", "https://example.com/a", "one", "", 0)
	b := link("blog.dev", "https://example.com/b", "two", "", 0)
	c := link("other.net", "https://example.com/a", "three", "", 0)

	merged := Merge([]types.Backlink{a, b, c})
	assert.Len(t, merged, 3)
}

func TestGrade(t *testing.T) {
	cases := []struct {
		name string
		bl   types.Backlink
		want types.LinkStrength
	}{
		{
			name: "strong profile",
			bl: types.Backlink{
				DomainRating: 100, LinkType: types.LinkFollow,
				Position: types.PositionContent, AnchorText: "good anchor",
				Context: "plenty of surrounding context to push past the fifty character mark",
			},
			want: types.StrengthVeryStrong,
		},
		{
			name: "solid editorial link",
			bl: types.Backlink{
				DomainRating: 50, LinkType: types.LinkFollow,
				Position: types.PositionContent,
			},
			want: types.StrengthStrong,
		},
		{
			name: "nofollow nav link",
			bl: types.Backlink{
				DomainRating: 30, LinkType: types.LinkNoFollow,
				Position: types.PositionNav, AnchorText: "here it is",
			},
			want: types.StrengthWeak,
		},
		{
			name: "boundary at forty",
			bl: types.Backlink{
				DomainRating: 0, LinkType: types.LinkFollow,
				Position: types.PositionContent,
			},
			want: types.StrengthNormal,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Grade(&tc.bl))
		})
	}
}

func TestCollectPipeline(t *testing.T) {
	archive := &stubProvider{name: "archive", links: []types.Backlink{
		link("blog.dev", "https://example.com/", "review", "long context around the anchor text of this editorial mention", 0),
		link("news.org", "https://example.com/tools", "the tools", "", 0),
	}}
	search := &stubProvider{name: "search", links: []types.Backlink{
		// Duplicate of the archive find, with less detail.
		link("blog.dev", "https://example.com/", "", "", 0),
		link("forum.net", "https://example.com/", "thread link", "", 0),
	}}

	cache := metricscache.NewMemory(30)
	require.NoError(t, cache.Save(context.Background(), []types.DomainMetric{
		{Domain: "blog.dev", DomainRating: 55},
		{Domain: "news.org", DomainRating: 70},
	}))
	enricher := NewEnricher(cache, nil, logging.New())

	var phases []int
	c := New([]provider.Provider{archive, search}, enricher, logging.New(), 10,
		WithProgress(func(_ string, pct int) { phases = append(phases, pct) }))

	res, err := c.Collect(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, 6, archive.sawLimit, "archive receives sixty percent of the budget")
	assert.Equal(t, 8, search.sawLimit, "search receives the remaining budget")

	require.Len(t, res.Backlinks, 3)
	assert.Equal(t, 4, res.Stats.TotalFound)
	assert.Equal(t, 3, res.Stats.UniqueBacklinks)
	assert.Equal(t, 3, res.Stats.UniqueDomains)
	assert.Equal(t, map[string]int{"archive": 2, "search": 2}, res.Stats.Sources)

	byDomain := map[string]types.Backlink{}
	for _, bl := range res.Backlinks {
		byDomain[bl.SourceDomain+"|"+bl.TargetURL] = bl
	}
	dup := byDomain["blog.dev|https://example.com/"]
	assert.Equal(t, "review", dup.AnchorText, "richer duplicate wins the merge")
	assert.Equal(t, 55, dup.DomainRating)
	assert.Equal(t, types.StrengthVeryStrong, dup.Strength)

	unenriched := byDomain["forum.net|https://example.com/"]
	assert.Zero(t, unenriched.DomainRating)

	assert.Equal(t, []int{10, 30, 50, 70, 80, 90, 95, 100}, phases)
}

func TestCollectNormalizesTarget(t *testing.T) {
	archive := &stubProvider{name: "archive", links: []types.Backlink{
		link("blog.dev", "https://example.com/", "review", "", 0),
	}}
	c := New([]provider.Provider{archive}, nil, logging.New(), 5, WithEnrichment(false))

	res, err := c.Collect(context.Background(), "https://www.Example.com/pricing?ref=x")
	require.NoError(t, err)
	assert.Equal(t, "example.com", archive.sawTarget, "providers receive the registrable domain")
	assert.Len(t, res.Backlinks, 1)

	_, err = c.Collect(context.Background(), "   ")
	assert.Error(t, err, "an unparseable target is rejected up front")
}

func TestCollectRespectsBudget(t *testing.T) {
	many := make([]types.Backlink, 20)
	for i := range many {
		many[i] = link("blog.dev", string(rune('a'+i))+".example.com", "x", "", 0)
	}
	archive := &stubProvider{name: "archive", links: many}

	c := New([]provider.Provider{archive}, nil, logging.New(), 5, WithEnrichment(false))
	res, err := c.Collect(context.Background(), "example.com")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(res.Backlinks), 5)
}
