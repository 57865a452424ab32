package velocity

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seolens/linkscope/internal/types"
)

var base = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

// linksOn creates n links first seen on the given day offset.
func linksOn(day, n int) []types.Backlink {
	out := make([]types.Backlink, n)
	for i := range out {
		out[i] = types.Backlink{
			ID:        fmt.Sprintf("bl_%d_%d", day, i),
			FirstSeen: base.AddDate(0, 0, day).Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func buildProfile(perDay []int) []types.Backlink {
	var out []types.Backlink
	for day, n := range perDay {
		out = append(out, linksOn(day, n)...)
	}
	return out
}

func TestAnalyzeEmptyInput(t *testing.T) {
	a := Analyze(nil)
	assert.Empty(t, a.Daily)
	assert.True(t, a.Spikes.NaturalGrowth)
	assert.Equal(t, types.TrendStable, a.Trend.Type)
	assert.Zero(t, a.Metrics.TotalLinks)
	assert.NotEmpty(t, a.Recommendations)
}

func TestDailySeriesAccounting(t *testing.T) {
	links := buildProfile([]int{10, 1, 0, 2})
	a := Analyze(links)

	require.Len(t, a.Daily, 4, "one point per calendar day, gaps included")
	assert.Equal(t, []int{10, 11, 11, 13}, cumulative(a.Daily))
	assert.Equal(t, 0, a.Daily[2].NewLinks)
	assert.Equal(t, 13, a.Metrics.TotalLinks)
}

func TestWeeklyRollupMatchesDaily(t *testing.T) {
	perDay := make([]int, 28)
	perDay[0] = 10
	for i := 1; i < 28; i++ {
		perDay[i] = 1
	}
	a := Analyze(buildProfile(perDay))

	require.Len(t, a.Weekly, 4)
	totalNew := 0
	for _, w := range a.Weekly {
		totalNew += w.NewLinks
	}
	assert.Equal(t, 37, totalNew)
	assert.Equal(t, 37, a.Weekly[3].Count, "last weekly count is the cumulative total")
	assert.Equal(t, 16, a.Weekly[0].NewLinks)

	require.Len(t, a.Monthly, 1)
	assert.Equal(t, 37, a.Monthly[0].NewLinks)
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	links := buildProfile([]int{10, 1, 3, 0, 2, 1, 1, 4})
	first := Analyze(links)
	second := Analyze(links)
	assert.Equal(t, first, second)

	// Input order must not matter either.
	reversed := make([]types.Backlink, len(links))
	for i := range links {
		reversed[len(links)-1-i] = links[i]
	}
	assert.Equal(t, first, Analyze(reversed))
}

func TestSteadyProfileIsNatural(t *testing.T) {
	perDay := make([]int, 28)
	perDay[0] = 10
	for i := 1; i < 28; i++ {
		perDay[i] = 1
	}
	a := Analyze(buildProfile(perDay))

	assert.True(t, a.Spikes.NaturalGrowth)
	assert.False(t, a.Spikes.HasSuspiciousSpikes)
	assert.Equal(t, types.TrendSteady, a.Trend.Type)
	assert.InDelta(t, 0.5+4.0/20, a.Trend.Confidence, 0.001)
}

func TestBurstProfileTriggersSpikes(t *testing.T) {
	// A week of five links per day, then a fifty-link dump.
	perDay := []int{5, 5, 5, 5, 5, 5, 5, 50}
	a := Analyze(buildProfile(perDay))

	require.True(t, a.Spikes.HasSuspiciousSpikes)
	assert.False(t, a.Spikes.NaturalGrowth)

	var worst types.Spike
	for _, s := range a.Spikes.Spikes {
		if s.PercentIncrease > worst.PercentIncrease {
			worst = s
		}
	}
	assert.Equal(t, types.SpikeCritical, worst.Severity)
	assert.Equal(t, 50, worst.Count)
	assert.Contains(t, a.Recommendations[0], "spikes")
}

func TestTrendInsufficientData(t *testing.T) {
	a := Analyze(buildProfile([]int{3, 1, 1, 1, 1}))
	assert.Equal(t, types.TrendStable, a.Trend.Type)
	assert.InDelta(t, 0.3, a.Trend.Confidence, 0.001)
}

func TestAnalyzeWithHistoryCountsLosses(t *testing.T) {
	perDay := make([]int, 10)
	perDay[0] = 10
	for i := 1; i < 10; i++ {
		perDay[i] = 1
	}
	links := buildProfile(perDay)

	history := []Snapshot{
		{Date: base.AddDate(0, 0, 4), Keys: []string{"a|x", "b|x", "c|x"}},
		{Date: base.AddDate(0, 0, 8), Keys: []string{"a|x"}},
	}
	a := AnalyzeWithHistory(links, history)

	require.Len(t, a.Daily, 10)
	assert.Equal(t, 2, a.Daily[8].LostLinks)
	assert.Equal(t, a.Daily[8].NewLinks-2, a.Daily[8].NetGrowth)

	lostTotal := 0
	for _, w := range a.Weekly {
		lostTotal += w.LostLinks
	}
	assert.Equal(t, 2, lostTotal)
}

func TestPredictDecaysConfidence(t *testing.T) {
	perDay := make([]int, 28)
	for i := range perDay {
		perDay[i] = 2
	}
	a := Analyze(buildProfile(perDay))

	preds := Predict(a, 4)
	require.Len(t, preds, 4)
	assert.InDelta(t, 0.9, preds[0].Confidence, 0.001)
	for i := 1; i < len(preds); i++ {
		assert.Less(t, preds[i].Confidence, preds[i-1].Confidence)
		assert.True(t, preds[i].Date.After(preds[i-1].Date))
	}
	assert.Equal(t, 14, preds[0].ExpectedNew)

	assert.Nil(t, Predict(types.VelocityAnalysis{}, 4))
}

func cumulative(points []types.VelocityPoint) []int {
	out := make([]int, len(points))
	for i, p := range points {
		out[i] = p.Count
	}
	return out
}
