package competitor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seolens/linkscope/internal/types"
)

func from(domain string, dr, traffic int) types.Backlink {
	return types.Backlink{
		ID:           "bl_" + domain,
		SourceURL:    "https://" + domain + "/page",
		SourceDomain: domain,
		TargetURL:    "https://target.com/",
		DomainRating: dr,
		Traffic:      traffic,
		LinkType:     types.LinkFollow,
		Position:     types.PositionContent,
	}
}

func TestFindGapsIsComplete(t *testing.T) {
	yours := []types.Backlink{from("shared.com", 40, 0), from("only-yours.com", 30, 0)}
	theirs := []types.Backlink{
		from("shared.com", 40, 0),
		from("gap-one.com", 60, 0),
		from("gap-two.com", 20, 0),
	}

	gaps := FindGaps(yours, theirs)
	require.Len(t, gaps, 2)

	// Every competitor domain is either shared or reported as a gap.
	gapDomains := map[string]bool{}
	for _, g := range gaps {
		gapDomains[g.SourceDomain] = true
	}
	yourDomains := map[string]bool{"shared.com": true, "only-yours.com": true}
	for _, bl := range theirs {
		assert.True(t, gapDomains[bl.SourceDomain] || yourDomains[bl.SourceDomain])
	}
}

func TestCompareSummaryAndOrdering(t *testing.T) {
	yours := []types.Backlink{from("shared.com", 40, 0), from("only-yours.com", 30, 0)}
	theirs := []types.Backlink{
		from("shared.com", 40, 0),
		from("weak-gap.com", 10, 100),
		from("strong-gap.com", 80, 50000),
	}

	cmp := Compare(yours, theirs)
	assert.Equal(t, 2, cmp.Summary.YourTotal)
	assert.Equal(t, 3, cmp.Summary.TheirTotal)
	assert.Equal(t, 1, cmp.Summary.CommonDomains)
	assert.Equal(t, 2, cmp.Summary.GapOpportunities)
	assert.Equal(t, 1, cmp.Summary.YourUniqueBacklinks)

	require.Len(t, cmp.TopGaps, 2)
	assert.Equal(t, "strong-gap.com", cmp.TopGaps[0].SourceDomain)

	require.Len(t, cmp.YourUnique, 1)
	assert.Equal(t, "only-yours.com", cmp.YourUnique[0].SourceDomain)
	assert.NotEmpty(t, cmp.Recommendations)
}

func TestCompareEmptySets(t *testing.T) {
	cmp := Compare(nil, nil)
	assert.Zero(t, cmp.Summary.YourTotal)
	assert.Zero(t, cmp.Summary.GapOpportunities)
	assert.Empty(t, cmp.TopGaps)
	assert.NotEmpty(t, cmp.Recommendations)
}

func TestAnalyzeGapsTiersOpportunities(t *testing.T) {
	yours := []types.Backlink{from("shared.com", 40, 0)}

	high := from("authority.com", 100, 0)
	high.AnchorText = "best widgets guide"
	medStrong := from("solid.org", 60, 0)
	medWeak := from("decent.net", 50, 0)
	low := from("junk.biz", 10, 0)
	low.LinkType = types.LinkNoFollow
	low.Position = types.PositionFooter

	theirs := []types.Backlink{from("shared.com", 40, 0), high, medStrong, medWeak, low}

	gaps := AnalyzeGaps(yours, theirs, []string{"widgets"})
	assert.Equal(t, 4, gaps.TotalGaps, "the shared domain is not a gap")

	require.Len(t, gaps.HighValue, 1)
	assert.Equal(t, "authority.com", gaps.HighValue[0].Domain)
	assert.Equal(t, 70, gaps.HighValue[0].Score)
	assert.Equal(t, types.PriorityHigh, gaps.HighValue[0].Priority)

	require.Len(t, gaps.MediumValue, 2)
	assert.Equal(t, "solid.org", gaps.MediumValue[0].Domain, "medium tier sorted by score")
	assert.Equal(t, "decent.net", gaps.MediumValue[1].Domain)

	require.Len(t, gaps.LowValue, 1)
	assert.Equal(t, "junk.biz", gaps.LowValue[0].Domain)
	assert.Equal(t, types.DifficultyEasy, gaps.LowValue[0].Difficulty)

	assert.Equal(t, types.EffortBreakdown{Easy: 1, Medium: 1, Hard: 2}, gaps.Effort)
}

func TestAnalyzeGapsEmpty(t *testing.T) {
	gaps := AnalyzeGaps(nil, nil, nil)
	assert.Zero(t, gaps.TotalGaps)
	assert.Empty(t, gaps.HighValue)
	assert.Empty(t, gaps.MediumValue)
	assert.Empty(t, gaps.LowValue)
}

func TestScoreOpportunity(t *testing.T) {
	strong := from("authority.com", 100, 100000)
	strong.AnchorText = "seo tools review"
	op := ScoreOpportunity(strong, []string{"seo tools"})

	// 40 authority + 20 traffic + 15 follow + 10 content + 5 keyword.
	assert.Equal(t, 90, op.Score)
	assert.Equal(t, types.PriorityHigh, op.Priority)
	assert.Equal(t, types.DifficultyHard, op.Difficulty)
	assert.NotEmpty(t, op.Reasons)

	weak := from("tiny.blog", 5, 0)
	weak.LinkType = types.LinkNoFollow
	weak.Position = types.PositionFooter
	op = ScoreOpportunity(weak, nil)
	assert.Less(t, op.Score, 40)
	assert.Equal(t, types.PriorityLow, op.Priority)
	assert.Equal(t, types.DifficultyEasy, op.Difficulty)
}

func TestNofollowNeverGradesHard(t *testing.T) {
	bl := from("authority.com", 85, 0)
	bl.LinkType = types.LinkNoFollow
	op := ScoreOpportunity(bl, nil)
	assert.Equal(t, types.DifficultyMedium, op.Difficulty)
}

func TestToxicGapIsPenalized(t *testing.T) {
	bl := from("spammy.xyz", 90, 100000)
	clean := ScoreOpportunity(bl, nil)

	bl.IsToxic = true
	bl.ToxicScore = 85
	penalized := ScoreOpportunity(bl, nil)
	assert.Less(t, penalized.Score, clean.Score)
	assert.GreaterOrEqual(t, penalized.Score, 0)
}

func TestFindCommonBacklinks(t *testing.T) {
	sets := [][]types.Backlink{
		{from("everywhere.com", 70, 0), from("half.com", 40, 0)},
		{from("everywhere.com", 70, 0), from("half.com", 40, 0)},
		{from("everywhere.com", 70, 0)},
		{from("everywhere.com", 70, 0), from("rare.com", 20, 0)},
	}
	yours := []types.Backlink{from("half.com", 40, 0)}

	shared := FindCommonBacklinks(yours, sets, 2)
	require.Len(t, shared, 2)

	assert.Equal(t, "everywhere.com", shared[0].Backlink.SourceDomain)
	assert.Equal(t, 4, shared[0].CompetitorCount)
	assert.Equal(t, "critical", shared[0].Priority)
	assert.False(t, shared[0].YouHaveIt)

	assert.Equal(t, "half.com", shared[1].Backlink.SourceDomain)
	assert.Equal(t, "high", shared[1].Priority)
	assert.True(t, shared[1].YouHaveIt)
}

func TestCompareMultiple(t *testing.T) {
	yours := []types.Backlink{from("base.com", 30, 0)}
	competitors := map[string][]types.Backlink{}
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("rival-%d", i)
		competitors[name] = []types.Backlink{from(fmt.Sprintf("gap-%d.com", i), 50, 0)}
	}

	out := CompareMultiple(yours, competitors)
	require.Len(t, out, 3)
	for _, cmp := range out {
		assert.Equal(t, 1, cmp.Summary.GapOpportunities)
	}
}
