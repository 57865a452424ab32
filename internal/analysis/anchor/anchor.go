// Package anchor categorizes backlink anchor texts and judges whether
// the resulting distribution looks organic. Profiles dominated by
// exact-match keywords or starved of brand mentions read as manipulated
// and are flagged for over-optimization.
package anchor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/seolens/linkscope/internal/types"
)

var genericPhrases = []string{
	"click here", "read more", "learn more", "visit site", "website",
	"homepage", "check it out", "see more", "this site", "here",
	"link", "source", "via", "read the article", "full article",
	"continue reading",
}

const topAnchorLimit = 20

// brandOf derives the brand term from the audited domain: the first
// label, with any www. prefix stripped.
func brandOf(domain string) string {
	d := strings.TrimPrefix(strings.ToLower(domain), "www.")
	if i := strings.Index(d, "."); i > 0 {
		return d[:i]
	}
	return d
}

// Classify buckets one anchor text. keywords are the terms the site
// targets; they separate exact and partial matches from the rest.
func Classify(anchorText, targetDomain string, keywords []string) types.AnchorCategory {
	a := strings.ToLower(strings.TrimSpace(anchorText))
	if a == "" {
		return types.AnchorImage
	}

	if strings.HasPrefix(a, "http://") || strings.HasPrefix(a, "https://") || strings.Contains(a, "www.") {
		return types.AnchorNaked
	}

	domain := strings.ToLower(targetDomain)
	brand := brandOf(domain)
	spaced := strings.ReplaceAll(domain, ".", " ")
	if brand != "" && (strings.Contains(a, brand) || a == domain || a == spaced) {
		return types.AnchorBranded
	}

	for _, phrase := range genericPhrases {
		if a == phrase || strings.Contains(a, phrase) {
			return types.AnchorGeneric
		}
	}

	for _, kw := range keywords {
		if a == strings.ToLower(kw) {
			return types.AnchorExact
		}
	}
	for _, kw := range keywords {
		if strings.Contains(a, strings.ToLower(kw)) {
			return types.AnchorPartial
		}
	}

	return types.AnchorOther
}

// Analyze builds the full anchor-distribution report for a set.
func Analyze(links []types.Backlink, targetDomain string, keywords []string) types.AnchorAnalysis {
	if len(links) == 0 {
		return types.AnchorAnalysis{
			IsNatural:       true,
			HealthScore:     100,
			Recommendations: []string{"No anchor text data available yet"},
		}
	}

	var dist types.AnchorDistribution
	counts := make(map[string]int)
	for i := range links {
		switch Classify(links[i].AnchorText, targetDomain, keywords) {
		case types.AnchorBranded:
			dist.Branded++
		case types.AnchorExact:
			dist.Exact++
		case types.AnchorPartial:
			dist.Partial++
		case types.AnchorGeneric:
			dist.Generic++
		case types.AnchorNaked:
			dist.Naked++
		case types.AnchorImage:
			dist.Image++
		default:
			dist.Other++
		}
		if text := strings.TrimSpace(links[i].AnchorText); text != "" {
			counts[strings.ToLower(text)]++
		}
	}

	total := float64(dist.Total())
	pct := types.AnchorShare{
		Branded: 100 * float64(dist.Branded) / total,
		Exact:   100 * float64(dist.Exact) / total,
		Partial: 100 * float64(dist.Partial) / total,
		Generic: 100 * float64(dist.Generic) / total,
		Naked:   100 * float64(dist.Naked) / total,
		Image:   100 * float64(dist.Image) / total,
		Other:   100 * float64(dist.Other) / total,
	}

	analysis := types.AnchorAnalysis{
		Distribution: dist,
		Percentages:  pct,
		TopAnchors:   topAnchors(counts),
		IsNatural:    isNatural(pct),
		HealthScore:  healthScore(pct),
	}
	analysis.Recommendations = recommendations(pct, analysis.IsNatural)
	return analysis
}

// CompareProfiles analyzes both anchor sets and names the differences
// that matter: brand share, exact-match risk and overall health.
func CompareProfiles(yours, theirs []types.Backlink, yourDomain, theirDomain string, keywords []string) types.AnchorComparison {
	mine := Analyze(yours, yourDomain, keywords)
	rival := Analyze(theirs, theirDomain, keywords)

	var diffs []string
	if gap := rival.Percentages.Branded - mine.Percentages.Branded; gap > 15 {
		diffs = append(diffs, fmt.Sprintf("Branded anchors trail the competitor by %.1f points", gap))
	} else if gap < -15 {
		diffs = append(diffs, fmt.Sprintf("Branded anchors lead the competitor by %.1f points", -gap))
	}

	if rival.Percentages.Exact > 25 && mine.Percentages.Exact < rival.Percentages.Exact {
		diffs = append(diffs, "Competitor leans on risky exact-match anchors; a safer profile can outrank them")
	} else if mine.Percentages.Exact > 25 && rival.Percentages.Exact < mine.Percentages.Exact {
		diffs = append(diffs, "Exact-match share exceeds the competitor's; reduce it before it draws a penalty")
	}

	if mine.HealthScore > rival.HealthScore+10 {
		diffs = append(diffs, fmt.Sprintf("Your anchor profile is healthier (%d vs %d)", mine.HealthScore, rival.HealthScore))
	} else if rival.HealthScore > mine.HealthScore+10 {
		diffs = append(diffs, fmt.Sprintf("Competitor's anchor profile is healthier (%d vs %d)", rival.HealthScore, mine.HealthScore))
	}

	return types.AnchorComparison{Yours: mine, Theirs: rival, Differences: diffs}
}

// CheckOverOptimization runs the separate penalty-scored verdict.
func CheckOverOptimization(links []types.Backlink, targetDomain string, keywords []string) types.OverOptimization {
	analysis := Analyze(links, targetDomain, keywords)
	if len(links) == 0 {
		return types.OverOptimization{}
	}
	pct := analysis.Percentages

	score := 0
	var warnings []string
	if pct.Exact > 30 {
		score += 40
		warnings = append(warnings, fmt.Sprintf("Exact-match anchors at %.1f%% far exceed safe levels", pct.Exact))
	} else if pct.Exact > 20 {
		score += 25
		warnings = append(warnings, fmt.Sprintf("Exact-match anchors at %.1f%% are elevated", pct.Exact))
	}
	if len(analysis.TopAnchors) > 0 && analysis.TopAnchors[0].Percentage > 50 {
		score += 30
		warnings = append(warnings, fmt.Sprintf("A single anchor %q accounts for over half of all links", analysis.TopAnchors[0].Text))
	}
	if pct.Branded < 20 {
		score += 20
		warnings = append(warnings, "Branded anchors are underrepresented")
	}
	if diversity(pct) < 3 {
		score += 10
		warnings = append(warnings, "Anchor profile lacks category diversity")
	}

	return types.OverOptimization{
		IsOverOptimized: score >= 50,
		Score:           score,
		Warnings:        warnings,
	}
}

func topAnchors(counts map[string]int) []types.AnchorCount {
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return nil
	}
	out := make([]types.AnchorCount, 0, len(counts))
	for text, n := range counts {
		out = append(out, types.AnchorCount{
			Text:       text,
			Count:      n,
			Percentage: 100 * float64(n) / float64(total),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Text < out[j].Text
	})
	if len(out) > topAnchorLimit {
		out = out[:topAnchorLimit]
	}
	return out
}

// isNatural applies the organic-profile heuristic: a healthy brand
// share, restrained exact-match use and some informational anchors.
func isNatural(pct types.AnchorShare) bool {
	return pct.Branded >= 30 && pct.Branded <= 70 &&
		pct.Exact <= 25 &&
		pct.Generic+pct.Partial >= 15
}

func healthScore(pct types.AnchorShare) int {
	score := 100

	if pct.Branded < 30 {
		score -= 20
	} else if pct.Branded > 70 {
		score -= 10
	} else if pct.Branded >= 40 && pct.Branded <= 60 {
		score += 10
	}

	if pct.Exact > 30 {
		score -= 30
	} else if pct.Exact > 20 {
		score -= 15
	} else if pct.Exact > 10 {
		score -= 5
	}

	if pct.Generic > 50 {
		score -= 20
	} else if pct.Generic < 5 {
		score -= 10
	}

	if pct.Naked > 30 {
		score -= 15
	}

	if diversity(pct) >= 4 {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// diversity counts the non-image categories holding a meaningful share.
func diversity(pct types.AnchorShare) int {
	n := 0
	for _, v := range []float64{pct.Branded, pct.Exact, pct.Partial, pct.Generic, pct.Naked} {
		if v > 5 {
			n++
		}
	}
	return n
}

func recommendations(pct types.AnchorShare, natural bool) []string {
	var out []string
	if pct.Branded < 30 {
		out = append(out, "Increase branded anchors; aim for 30-70% of the profile")
	}
	if pct.Exact > 20 {
		out = append(out, "Reduce exact-match keyword anchors to avoid over-optimization penalties")
	}
	if pct.Generic > 50 {
		out = append(out, "Too many generic anchors; vary anchor text with brand and topic terms")
	}
	if pct.Naked > 30 {
		out = append(out, "High share of bare URL anchors; request descriptive anchors where possible")
	}
	if len(out) == 0 {
		if natural {
			out = append(out, "Anchor distribution looks natural; keep the current mix")
		} else {
			out = append(out, "Distribution is acceptable but could be more diverse")
		}
	}
	return out
}
