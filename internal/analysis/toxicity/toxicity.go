// Package toxicity scores backlinks for spam risk. Each link gets a
// 0-100 score built from five weighted signals (domain quality, spam
// indicators, TLD reputation, placement and anchor text) plus human
// readable reasons, and a profile-level health score rolls the set up.
package toxicity

import (
	"math"
	"sort"
	"strings"

	"github.com/seolens/linkscope/internal/types"
)

var spamKeywords = []string{
	"casino", "viagra", "cialis", "porn", "xxx", "adult", "sex",
	"pills", "pharmacy", "drug", "payday", "loan", "gambling", "poker",
	"bet", "forex", "crypto", "essay", "dissertation", "replica",
	"fake", "cheap", "discount", "seo", "backlink", "link-building",
	"guest-post", "buy-link",
}

var suspiciousTLDs = []string{
	".xyz", ".top", ".loan", ".work", ".click", ".download", ".stream",
	".science", ".racing", ".party", ".gq", ".cf", ".ml", ".ga", ".tk",
	".pw", ".cc", ".ws",
}

var spamAnchors = []string{
	"click here", "buy now", "cheap", "discount", "free", "make money",
	"earn money", "work from home", "get rich", "lose weight",
	"best price", "limited offer",
}

// Score rates one backlink. agg carries optional per-domain rollups
// (prior verdicts, link-farm volume) and may be nil.
func Score(link types.Backlink, agg *types.DomainAggregate) types.ToxicityScore {
	breakdown := types.ToxicityBreakdown{
		DomainQuality:  domainQuality(link, agg),
		SpamIndicators: spamIndicators(link, agg),
		SuspiciousTLD:  suspiciousTLD(link.SourceDomain),
		LinkPosition:   positionRisk(link.Position),
		AnchorText:     anchorRisk(link.AnchorText),
	}

	overall := breakdown.DomainQuality + breakdown.SpamIndicators +
		breakdown.SuspiciousTLD + breakdown.LinkPosition + breakdown.AnchorText
	if overall > 100 {
		overall = 100
	}

	return types.ToxicityScore{
		Overall:        overall,
		Breakdown:      breakdown,
		Classification: Classify(overall),
		Reasons:        reasons(link, agg, breakdown),
	}
}

// ScoreBatch rates a set and returns the verdicts keyed by link ID.
// aggs is keyed by source domain and may be nil.
func ScoreBatch(links []types.Backlink, aggs map[string]types.DomainAggregate) map[string]types.ToxicityScore {
	out := make(map[string]types.ToxicityScore, len(links))
	for i := range links {
		var agg *types.DomainAggregate
		if a, ok := aggs[links[i].SourceDomain]; ok {
			agg = &a
		}
		out[links[i].ID] = Score(links[i], agg)
	}
	return out
}

// Classify maps a score into the four-level verdict. A score sitting
// exactly on a boundary lands in the more severe band.
func Classify(overall int) types.ToxicityClass {
	switch {
	case overall < 20:
		return types.ToxicitySafe
	case overall < 40:
		return types.ToxicityWarning
	case overall < 70:
		return types.ToxicityToxic
	default:
		return types.ToxicityDangerous
	}
}

// FilterToxic returns the links scoring at or above threshold, worst
// first. A zero threshold uses the default of 50.
func FilterToxic(links []types.Backlink, scores map[string]types.ToxicityScore, threshold int) []types.Backlink {
	if threshold <= 0 {
		threshold = 50
	}
	var out []types.Backlink
	for i := range links {
		if s, ok := scores[links[i].ID]; ok && s.Overall >= threshold {
			out = append(out, links[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return scores[out[i].ID].Overall > scores[out[j].ID].Overall
	})
	return out
}

// HealthScore inverts the average toxicity of a profile. An empty
// profile is perfectly healthy.
func HealthScore(scores map[string]types.ToxicityScore) int {
	if len(scores) == 0 {
		return 100
	}
	sum := 0
	for _, s := range scores {
		sum += s.Overall
	}
	avg := float64(sum) / float64(len(scores))
	health := int(math.Round(100 - avg))
	if health < 0 {
		health = 0
	}
	return health
}

// Recommendations suggests remediation for a verdict level.
func Recommendations(class types.ToxicityClass) []string {
	switch class {
	case types.ToxicityDangerous:
		return []string{
			"Disavow this link immediately",
			"Check for other links from the same network",
			"Review recent ranking changes for manual action risk",
		}
	case types.ToxicityToxic:
		return []string{
			"Add this link to your disavow candidates",
			"Attempt removal via the site owner before disavowing",
		}
	case types.ToxicityWarning:
		return []string{
			"Monitor this link for further spam signals",
			"No action needed unless similar links accumulate",
		}
	default:
		return []string{"No action needed"}
	}
}

func domainQuality(link types.Backlink, agg *types.DomainAggregate) int {
	score := 0
	switch dr := link.DomainRating; {
	case dr < 10:
		score += 20
	case dr < 20:
		score += 15
	case dr < 30:
		score += 10
	case dr < 40:
		score += 5
	}
	if link.IsToxic || (agg != nil && agg.IsToxic) {
		score += 20
	}
	return score
}

func spamIndicators(link types.Backlink, agg *types.DomainAggregate) int {
	score := 0
	domain := strings.ToLower(link.SourceDomain)
	for _, kw := range spamKeywords {
		if strings.Contains(domain, kw) {
			score += 15
			break
		}
	}

	hits := 0
	ctx := strings.ToLower(link.Context)
	for _, kw := range spamKeywords {
		if strings.Contains(ctx, kw) {
			hits++
		}
	}
	if hits >= 3 {
		score += 15
	} else if hits >= 1 {
		score += 10
	}

	if agg != nil && agg.BacklinkCount > 1000 {
		score += 5
	}
	if score > 30 {
		score = 30
	}
	return score
}

func suspiciousTLD(domain string) int {
	t := types.TLD(strings.ToLower(domain))
	for _, tld := range suspiciousTLDs {
		if t == tld {
			return 15
		}
	}
	return 0
}

func positionRisk(pos types.LinkPosition) int {
	switch pos {
	case types.PositionContent:
		return 0
	case types.PositionNav:
		return 3
	case types.PositionSidebar:
		return 7
	case types.PositionComment:
		return 8
	case types.PositionFooter:
		return 10
	default:
		return 5
	}
}

func anchorRisk(anchor string) int {
	a := strings.ToLower(strings.TrimSpace(anchor))
	if a == "" {
		return 0
	}
	for _, phrase := range spamAnchors {
		if strings.Contains(a, phrase) {
			return 5
		}
	}
	words := strings.Fields(a)
	if len(words) > 3 {
		unique := make(map[string]struct{}, len(words))
		for _, w := range words {
			unique[w] = struct{}{}
		}
		if len(unique) < len(words)/2 {
			return 3
		}
	}
	return 0
}

func reasons(link types.Backlink, agg *types.DomainAggregate, b types.ToxicityBreakdown) []string {
	var out []string
	if b.DomainQuality >= 15 {
		out = append(out, "Source domain has very low authority")
	}
	if link.IsToxic || (agg != nil && agg.IsToxic) {
		out = append(out, "Domain previously marked toxic")
	}
	if b.SpamIndicators >= 15 {
		out = append(out, "Strong spam signals in domain or surrounding content")
	} else if b.SpamIndicators >= 10 {
		out = append(out, "Spam-related terms near the link")
	}
	if b.SuspiciousTLD > 0 {
		out = append(out, "Domain uses a TLD common in link schemes")
	}
	if b.LinkPosition >= 10 {
		out = append(out, "Link placed in the page footer")
	} else if b.LinkPosition >= 7 {
		out = append(out, "Link placed in sidebar or comments")
	}
	if b.AnchorText >= 5 {
		out = append(out, "Commercial spam phrase in anchor text")
	}
	if link.LinkType == types.LinkNoFollow {
		out = append(out, "Link is nofollow and passes no authority")
	}
	if len(out) == 0 {
		out = append(out, "No toxicity issues detected")
	}
	return out
}
