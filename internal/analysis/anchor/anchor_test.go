package anchor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seolens/linkscope/internal/types"
)

func anchors(texts ...string) []types.Backlink {
	out := make([]types.Backlink, len(texts))
	for i, t := range texts {
		out[i] = types.Backlink{ID: t, AnchorText: t}
	}
	return out
}

func TestClassify(t *testing.T) {
	keywords := []string{"backlink checker", "seo audit"}
	cases := []struct {
		anchor string
		want   types.AnchorCategory
	}{
		{"", types.AnchorImage},
		{"https://example.com/page", types.AnchorNaked},
		{"www.example.com", types.AnchorNaked},
		{"Example", types.AnchorBranded},
		{"the example team", types.AnchorBranded},
		{"example com", types.AnchorBranded},
		{"click here", types.AnchorGeneric},
		{"just click here now", types.AnchorGeneric},
		{"Backlink Checker", types.AnchorExact},
		{"best backlink checker online", types.AnchorPartial},
		{"an unrelated phrase", types.AnchorOther},
	}
	for _, tc := range cases {
		t.Run(tc.anchor, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.anchor, "example.com", keywords))
		})
	}
}

func TestAnalyzeCategorySumsMatchInput(t *testing.T) {
	links := anchors(
		"example", "example tools", "visit example",
		"seo audit", "best seo audit guide",
		"click here", "read more",
		"https://example.com", "",
		"something else entirely",
	)
	a := Analyze(links, "example.com", []string{"seo audit"})
	assert.Equal(t, len(links), a.Distribution.Total())

	sum := a.Percentages.Branded + a.Percentages.Exact + a.Percentages.Partial +
		a.Percentages.Generic + a.Percentages.Naked + a.Percentages.Image + a.Percentages.Other
	assert.InDelta(t, 100, sum, 0.001)
}

func TestAnalyzeNaturalProfile(t *testing.T) {
	// 40% branded, 10% exact, 30% generic/partial, a naked and an other.
	links := anchors(
		"example", "example blog", "by example", "example team",
		"seo audit",
		"read more", "click here", "seo audit tips",
		"https://example.com",
		"misc mention",
	)
	a := Analyze(links, "example.com", []string{"seo audit"})
	assert.True(t, a.IsNatural)
	assert.GreaterOrEqual(t, a.HealthScore, 70)
}

func TestAnalyzeOverOptimizedProfile(t *testing.T) {
	links := anchors(
		"buy widgets", "buy widgets", "buy widgets", "buy widgets",
		"buy widgets", "buy widgets", "buy widgets",
		"example",
		"cheap widgets online", "widgets",
	)
	a := Analyze(links, "example.com", []string{"buy widgets", "widgets"})
	assert.False(t, a.IsNatural)
	assert.Less(t, a.HealthScore, 50)

	o := CheckOverOptimization(links, "example.com", []string{"buy widgets", "widgets"})
	assert.True(t, o.IsOverOptimized)
	assert.GreaterOrEqual(t, o.Score, 50)
	assert.NotEmpty(t, o.Warnings)
}

func TestHealthScoreBounds(t *testing.T) {
	worst := anchors("buy stuff", "buy stuff", "buy stuff", "buy stuff", "buy stuff")
	a := Analyze(worst, "example.com", []string{"buy stuff"})
	assert.GreaterOrEqual(t, a.HealthScore, 0)
	assert.LessOrEqual(t, a.HealthScore, 100)
}

func TestTopAnchorsRankingAndShare(t *testing.T) {
	links := anchors("example", "example", "example", "read more", "read more", "widgets")
	a := Analyze(links, "example.com", nil)

	assert.Equal(t, "example", a.TopAnchors[0].Text)
	assert.Equal(t, 3, a.TopAnchors[0].Count)
	assert.InDelta(t, 50, a.TopAnchors[0].Percentage, 0.001)
}

func TestCompareProfiles(t *testing.T) {
	keywords := []string{"buy widgets"}
	yours := anchors(
		"example", "example", "example", "example", "example",
		"buy widgets",
		"click here", "click here", "click here",
		"www.example.com",
	)
	theirs := anchors(
		"rival", "rival", "rival",
		"buy widgets", "buy widgets", "buy widgets", "buy widgets",
		"buy widgets", "buy widgets", "buy widgets",
	)

	cmp := CompareProfiles(yours, theirs, "example.com", "rival.com", keywords)

	assert.InDelta(t, 50, cmp.Yours.Percentages.Branded, 0.001)
	assert.InDelta(t, 70, cmp.Theirs.Percentages.Exact, 0.001)
	assert.Greater(t, cmp.Yours.HealthScore, cmp.Theirs.HealthScore)

	assert.Len(t, cmp.Differences, 3)
	joined := ""
	for _, d := range cmp.Differences {
		joined += d + "\n"
	}
	assert.Contains(t, joined, "lead the competitor")
	assert.Contains(t, joined, "exact-match")
	assert.Contains(t, joined, "healthier")
}

func TestCompareProfilesCloseMatch(t *testing.T) {
	yours := anchors("example", "example", "click here")
	theirs := anchors("rival", "rival", "read more")

	cmp := CompareProfiles(yours, theirs, "example.com", "rival.com", nil)
	assert.Empty(t, cmp.Differences)
}

func TestAnalyzeEmptySet(t *testing.T) {
	a := Analyze(nil, "example.com", nil)
	assert.True(t, a.IsNatural)
	assert.Equal(t, 100, a.HealthScore)
	assert.NotEmpty(t, a.Recommendations)

	o := CheckOverOptimization(nil, "example.com", nil)
	assert.False(t, o.IsOverOptimized)
	assert.Zero(t, o.Score)
}
