// Package competitor compares backlink profiles across sites. The gap
// set, the links a competitor holds from domains that do not link to
// you yet, is the raw material for outreach; each gap is scored into a
// prioritized opportunity.
package competitor

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/seolens/linkscope/internal/types"
)

const (
	maxGaps    = 100
	maxCommon  = 50
	maxUnique  = 50
	maxPerTier = 50
)

func domainSet(links []types.Backlink) map[string]struct{} {
	set := make(map[string]struct{}, len(links))
	for i := range links {
		set[links[i].SourceDomain] = struct{}{}
	}
	return set
}

// FindGaps returns the competitor links whose source domain does not
// link to you.
func FindGaps(yours, theirs []types.Backlink) []types.Backlink {
	have := domainSet(yours)
	var out []types.Backlink
	for i := range theirs {
		if _, ok := have[theirs[i].SourceDomain]; !ok {
			out = append(out, theirs[i])
		}
	}
	return out
}

// Compare builds the full yours-versus-competitor report.
func Compare(yours, theirs []types.Backlink) types.CompetitorComparison {
	yourDomains := domainSet(yours)
	theirDomains := domainSet(theirs)

	gaps := FindGaps(yours, theirs)
	sort.SliceStable(gaps, func(i, j int) bool {
		return linkQuality(gaps[i]) > linkQuality(gaps[j])
	})

	var common, unique []types.Backlink
	commonDomains := make(map[string]struct{})
	for i := range yours {
		if _, ok := theirDomains[yours[i].SourceDomain]; ok {
			commonDomains[yours[i].SourceDomain] = struct{}{}
			common = append(common, yours[i])
		} else {
			unique = append(unique, yours[i])
		}
	}

	summary := types.ComparisonSummary{
		YourTotal:           len(yours),
		YourDomains:         len(yourDomains),
		YourAvgRating:       types.AverageDomainRating(yours),
		TheirTotal:          len(theirs),
		TheirDomains:        len(theirDomains),
		TheirAvgRating:      types.AverageDomainRating(theirs),
		CommonDomains:       len(commonDomains),
		GapOpportunities:    len(gaps),
		YourUniqueBacklinks: len(unique),
	}

	return types.CompetitorComparison{
		Summary:         summary,
		TopGaps:         truncate(gaps, maxGaps),
		CommonBacklinks: truncate(common, maxCommon),
		YourUnique:      truncate(unique, maxUnique),
		Recommendations: recommendations(summary),
	}
}

// CompareMultiple compares your profile against several competitors,
// keyed by competitor name.
func CompareMultiple(yours []types.Backlink, competitors map[string][]types.Backlink) map[string]types.CompetitorComparison {
	out := make(map[string]types.CompetitorComparison, len(competitors))
	for name, theirs := range competitors {
		out[name] = Compare(yours, theirs)
	}
	return out
}

// AnalyzeGaps scores every gap link and tiers the opportunities by
// value: high at 70+, medium at 40+, low below. keywords boost
// topically relevant placements.
func AnalyzeGaps(yours, theirs []types.Backlink, keywords []string) types.GapAnalysis {
	gaps := FindGaps(yours, theirs)

	opps := make([]types.LinkOpportunity, 0, len(gaps))
	var effort types.EffortBreakdown
	for i := range gaps {
		o := ScoreOpportunity(gaps[i], keywords)
		opps = append(opps, o)
		switch o.Difficulty {
		case types.DifficultyEasy:
			effort.Easy++
		case types.DifficultyMedium:
			effort.Medium++
		default:
			effort.Hard++
		}
	}
	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].Score > opps[j].Score
	})

	out := types.GapAnalysis{TotalGaps: len(gaps), Effort: effort}
	for _, o := range opps {
		switch {
		case o.Score >= 70:
			if len(out.HighValue) < maxPerTier {
				out.HighValue = append(out.HighValue, o)
			}
		case o.Score >= 40:
			if len(out.MediumValue) < maxPerTier {
				out.MediumValue = append(out.MediumValue, o)
			}
		default:
			if len(out.LowValue) < maxPerTier {
				out.LowValue = append(out.LowValue, o)
			}
		}
	}
	return out
}

// ScoreOpportunity rates one gap link for outreach.
func ScoreOpportunity(link types.Backlink, keywords []string) types.LinkOpportunity {
	score := math.Min(40, float64(link.DomainRating)*0.4)
	var reasons []string
	if link.DomainRating >= 50 {
		reasons = append(reasons, "High-authority source domain")
	}

	trafficPts := math.Min(20, math.Log10(float64(link.Traffic)+1)*4)
	score += trafficPts
	if trafficPts >= 12 {
		reasons = append(reasons, "Source attracts significant traffic")
	}

	if link.LinkType == types.LinkFollow {
		score += 15
		reasons = append(reasons, "Competitor link passes authority")
	} else {
		score += 5
	}

	switch link.Position {
	case types.PositionContent:
		score += 10
		reasons = append(reasons, "Editorial in-content placement")
	case types.PositionNav, types.PositionSidebar:
		score += 5
	default:
		score += 2
	}

	matched := 0
	text := strings.ToLower(link.AnchorText + " " + link.Context)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			matched++
		}
	}
	kwPts := math.Min(15, float64(matched)*5)
	score += kwPts
	if kwPts > 0 {
		reasons = append(reasons, "Topically relevant to your keywords")
	}

	if link.IsToxic {
		score -= float64(link.ToxicScore)
		reasons = append(reasons, "Penalized for toxicity signals")
	}

	final := int(math.Round(math.Min(100, score)))
	if final < 0 {
		final = 0
	}

	return types.LinkOpportunity{
		Domain:       link.SourceDomain,
		URL:          link.SourceURL,
		DomainRating: link.DomainRating,
		Traffic:      link.Traffic,
		Score:        final,
		Priority:     priorityFor(final),
		Difficulty:   difficultyFor(link),
		Reasons:      reasons,
	}
}

// FindCommonBacklinks surfaces source domains held by at least
// minCompetitors of the competitor sets. Domains most competitors
// share are the strongest signals of must-have placements.
func FindCommonBacklinks(yours []types.Backlink, competitorSets [][]types.Backlink, minCompetitors int) []types.SharedBacklink {
	if minCompetitors < 1 {
		minCompetitors = 2
	}
	yourDomains := domainSet(yours)

	counts := make(map[string]int)
	sample := make(map[string]types.Backlink)
	for _, set := range competitorSets {
		seen := make(map[string]struct{})
		for i := range set {
			d := set[i].SourceDomain
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			counts[d]++
			if _, ok := sample[d]; !ok {
				sample[d] = set[i]
			}
		}
	}

	var out []types.SharedBacklink
	for d, n := range counts {
		if n < minCompetitors {
			continue
		}
		_, youHaveIt := yourDomains[d]
		out = append(out, types.SharedBacklink{
			Backlink:        sample[d],
			CompetitorCount: n,
			YouHaveIt:       youHaveIt,
			Priority:        sharedPriority(n, len(competitorSets)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CompetitorCount != out[j].CompetitorCount {
			return out[i].CompetitorCount > out[j].CompetitorCount
		}
		return out[i].Backlink.SourceDomain < out[j].Backlink.SourceDomain
	})
	return out
}

// linkQuality orders gap links: authority first, traffic as the
// tiebreaker weight.
func linkQuality(b types.Backlink) float64 {
	return float64(b.DomainRating) + float64(b.Traffic)/1000
}

func priorityFor(score int) types.OpportunityPriority {
	switch {
	case score >= 70:
		return types.PriorityHigh
	case score >= 40:
		return types.PriorityMedium
	default:
		return types.PriorityLow
	}
}

// difficultyFor estimates outreach effort from the source's authority.
// Nofollow placements are easier to land, so they never grade hard.
func difficultyFor(b types.Backlink) types.OpportunityDifficulty {
	var d types.OpportunityDifficulty
	switch {
	case b.DomainRating < 30:
		d = types.DifficultyEasy
	case b.DomainRating < 60:
		d = types.DifficultyMedium
	default:
		d = types.DifficultyHard
	}
	if b.LinkType == types.LinkNoFollow && d == types.DifficultyHard {
		d = types.DifficultyMedium
	}
	return d
}

func sharedPriority(count, totalSets int) string {
	if totalSets == 0 {
		return "medium"
	}
	ratio := float64(count) / float64(totalSets)
	switch {
	case ratio >= 0.75:
		return "critical"
	case ratio >= 0.5:
		return "high"
	default:
		return "medium"
	}
}

func recommendations(s types.ComparisonSummary) []string {
	var out []string
	if s.TheirTotal-s.YourTotal > 100 {
		out = append(out, fmt.Sprintf("Competitor leads by %d backlinks; scale up acquisition", s.TheirTotal-s.YourTotal))
	}
	if s.TheirAvgRating-s.YourAvgRating > 10 {
		out = append(out, "Competitor links come from stronger domains; target higher-authority sources")
	}
	if s.GapOpportunities > 50 {
		out = append(out, fmt.Sprintf("%d gap domains found; start outreach with the top-scored opportunities", s.GapOpportunities))
	}
	if s.CommonDomains > 20 {
		out = append(out, "Large shared foundation; differentiation will come from gap domains")
	}
	if s.YourUniqueBacklinks > 10 {
		out = append(out, "You hold unique placements the competitor lacks; protect those relationships")
	}
	if len(out) == 0 {
		out = append(out, "Profiles are closely matched; monitor for changes")
	}
	return out
}

func truncate(links []types.Backlink, n int) []types.Backlink {
	if len(links) > n {
		return links[:n]
	}
	return links
}
