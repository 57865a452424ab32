package types

import (
	"fmt"
	"time"
)

// LinkType is the rel-based follow classification of a backlink.
type LinkType string

const (
	LinkFollow   LinkType = "FOLLOW"
	LinkNoFollow LinkType = "NOFOLLOW"
)

// LinkStatus is the lifecycle status of a discovered backlink.
type LinkStatus string

const (
	StatusActive   LinkStatus = "ACTIVE"
	StatusLost     LinkStatus = "LOST"
	StatusBroken   LinkStatus = "BROKEN"
	StatusRedirect LinkStatus = "REDIRECT"
)

// LinkPosition classifies where on the source page the link sits.
type LinkPosition string

const (
	PositionContent LinkPosition = "content"
	PositionNav     LinkPosition = "nav"
	PositionSidebar LinkPosition = "sidebar"
	PositionFooter  LinkPosition = "footer"
	PositionComment LinkPosition = "comment"
	PositionOther   LinkPosition = "other"
)

// LinkStrength is the derived quality classification of a backlink.
type LinkStrength string

const (
	StrengthWeak       LinkStrength = "WEAK"
	StrengthNormal     LinkStrength = "NORMAL"
	StrengthStrong     LinkStrength = "STRONG"
	StrengthVeryStrong LinkStrength = "VERY_STRONG"
)

// Backlink is one discovered hyperlink pointing at the audited domain.
// A backlink is unique by (SourceDomain, TargetURL); see Key.
type Backlink struct {
	ID           string       `json:"id"`
	SourceURL    string       `json:"source_url"`
	SourceDomain string       `json:"source_domain"`
	TargetURL    string       `json:"target_url"`
	AnchorText   string       `json:"anchor_text,omitempty"`
	LinkType     LinkType     `json:"link_type"`
	Sponsored    bool         `json:"sponsored,omitempty"`
	UGC          bool         `json:"ugc,omitempty"`
	Status       LinkStatus   `json:"status"`
	Position     LinkPosition `json:"position"`
	Context      string       `json:"context,omitempty"`
	DomainRating int          `json:"domain_rating,omitempty"`
	Traffic      int          `json:"traffic,omitempty"`
	IsToxic      bool         `json:"is_toxic,omitempty"`
	ToxicScore   int          `json:"toxic_score,omitempty"`
	Strength     LinkStrength `json:"strength,omitempty"`
	FirstSeen    time.Time    `json:"first_seen"`
	LastSeen     time.Time    `json:"last_seen"`
}

// Key is the identity of a backlink for deduplication.
func (b *Backlink) Key() string {
	return b.SourceDomain + "|" + b.TargetURL
}

// Richness scores how much information a record carries. During a
// dedupe collision the higher-richness record wins.
func (b *Backlink) Richness() int {
	score := b.DomainRating
	if b.Context != "" {
		score += 100
	}
	if b.AnchorText != "" {
		score += 50
	}
	return score
}

// DomainMetric is the authority snapshot for one registrable domain.
// Authority is the raw 0-10 score; DomainRating the 0-100 rescale.
type DomainMetric struct {
	Domain       string    `json:"domain"`
	DomainRating int       `json:"domain_rating"`
	Authority    float64   `json:"authority"`
	LastUpdated  time.Time `json:"last_updated"`
}

// DomainAggregate carries per-domain rollups consumed by the toxicity
// analyzer (link-farm heuristics, prior verdicts).
type DomainAggregate struct {
	Domain        string `json:"domain"`
	DomainRating  int    `json:"domain_rating"`
	BacklinkCount int    `json:"backlink_count"`
	IsToxic       bool   `json:"is_toxic"`
}

// CollectionStats summarizes one collection run.
type CollectionStats struct {
	TotalFound          int            `json:"total_found"`
	UniqueBacklinks     int            `json:"unique_backlinks"`
	UniqueDomains       int            `json:"unique_domains"`
	AverageDomainRating float64        `json:"average_domain_rating"`
	Sources             map[string]int `json:"sources"`
	Duration            time.Duration  `json:"duration"`
}

// ToxicityClass is the four-level toxicity verdict.
type ToxicityClass string

const (
	ToxicitySafe      ToxicityClass = "safe"
	ToxicityWarning   ToxicityClass = "warning"
	ToxicityToxic     ToxicityClass = "toxic"
	ToxicityDangerous ToxicityClass = "dangerous"
)

// ToxicityBreakdown holds the five weighted sub-scores.
type ToxicityBreakdown struct {
	DomainQuality  int `json:"domain_quality"`
	SpamIndicators int `json:"spam_indicators"`
	SuspiciousTLD  int `json:"suspicious_tld"`
	LinkPosition   int `json:"link_position"`
	AnchorText     int `json:"anchor_text"`
}

// ToxicityScore is the per-backlink toxicity verdict.
type ToxicityScore struct {
	Overall        int               `json:"overall"`
	Breakdown      ToxicityBreakdown `json:"breakdown"`
	Classification ToxicityClass     `json:"classification"`
	Reasons        []string          `json:"reasons"`
}

// AnchorCategory names one of the seven anchor-text buckets.
type AnchorCategory string

const (
	AnchorBranded AnchorCategory = "branded"
	AnchorExact   AnchorCategory = "exact"
	AnchorPartial AnchorCategory = "partial"
	AnchorGeneric AnchorCategory = "generic"
	AnchorNaked   AnchorCategory = "naked"
	AnchorImage   AnchorCategory = "image"
	AnchorOther   AnchorCategory = "other"
)

// AnchorDistribution counts backlinks per anchor category.
type AnchorDistribution struct {
	Branded int `json:"branded"`
	Exact   int `json:"exact"`
	Partial int `json:"partial"`
	Generic int `json:"generic"`
	Naked   int `json:"naked"`
	Image   int `json:"image"`
	Other   int `json:"other"`
}

// Total is the sum over all categories; equals the input set size.
func (d AnchorDistribution) Total() int {
	return d.Branded + d.Exact + d.Partial + d.Generic + d.Naked + d.Image + d.Other
}

// AnchorShare holds the distribution expressed as percentages.
type AnchorShare struct {
	Branded float64 `json:"branded"`
	Exact   float64 `json:"exact"`
	Partial float64 `json:"partial"`
	Generic float64 `json:"generic"`
	Naked   float64 `json:"naked"`
	Image   float64 `json:"image"`
	Other   float64 `json:"other"`
}

// AnchorCount is one entry of the top-anchors ranking.
type AnchorCount struct {
	Text       string  `json:"text"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// AnchorAnalysis is the aggregate anchor-text report for a set.
type AnchorAnalysis struct {
	Distribution    AnchorDistribution `json:"distribution"`
	Percentages     AnchorShare        `json:"percentages"`
	TopAnchors      []AnchorCount      `json:"top_anchors"`
	IsNatural       bool               `json:"is_natural"`
	HealthScore     int                `json:"health_score"`
	Recommendations []string           `json:"recommendations"`
}

// OverOptimization is the separate over-optimization verdict.
type OverOptimization struct {
	IsOverOptimized bool     `json:"is_over_optimized"`
	Score           int      `json:"score"`
	Warnings        []string `json:"warnings"`
}

// TrendType classifies the growth trend of a backlink profile.
type TrendType string

const (
	TrendRapid     TrendType = "rapid"
	TrendSteady    TrendType = "steady"
	TrendStable    TrendType = "stable"
	TrendDeclining TrendType = "declining"
	TrendVolatile  TrendType = "volatile"
)

// SpikeSeverity grades a velocity anomaly.
type SpikeSeverity string

const (
	SpikeLow      SpikeSeverity = "low"
	SpikeMedium   SpikeSeverity = "medium"
	SpikeHigh     SpikeSeverity = "high"
	SpikeCritical SpikeSeverity = "critical"
)

// VelocityPoint is one daily/weekly/monthly time-series sample.
type VelocityPoint struct {
	Date      time.Time `json:"date"`
	Count     int       `json:"count"`
	NewLinks  int       `json:"new_links"`
	LostLinks int       `json:"lost_links"`
	NetGrowth int       `json:"net_growth"`
}

// Spike is one dated velocity anomaly.
type Spike struct {
	Date            time.Time     `json:"date"`
	Count           int           `json:"count"`
	PercentIncrease float64       `json:"percent_increase"`
	Severity        SpikeSeverity `json:"severity"`
}

// SpikeDetection is the spike-scan result over a daily series.
type SpikeDetection struct {
	HasSuspiciousSpikes bool    `json:"has_suspicious_spikes"`
	Spikes              []Spike `json:"spikes"`
	NaturalGrowth       bool    `json:"natural_growth"`
}

// VelocityTrend is the trend classification with confidence.
type VelocityTrend struct {
	Type        TrendType `json:"type"`
	Confidence  float64   `json:"confidence"`
	Description string    `json:"description"`
}

// VelocityMetrics are the summary growth numbers.
type VelocityMetrics struct {
	AvgDailyGrowth     float64 `json:"avg_daily_growth"`
	AvgWeeklyGrowth    float64 `json:"avg_weekly_growth"`
	WeekOverWeekChange float64 `json:"week_over_week_change"`
	GrowthRate30d      float64 `json:"growth_rate_30d"`
	TotalLinks         int     `json:"total_links"`
}

// VelocityAnalysis is the full time-series report.
type VelocityAnalysis struct {
	Daily           []VelocityPoint `json:"daily"`
	Weekly          []VelocityPoint `json:"weekly"`
	Monthly         []VelocityPoint `json:"monthly"`
	Trend           VelocityTrend   `json:"trend"`
	Spikes          SpikeDetection  `json:"spikes"`
	Metrics         VelocityMetrics `json:"metrics"`
	Recommendations []string        `json:"recommendations"`
}

// OpportunityPriority tiers a gap link for outreach.
type OpportunityPriority string

const (
	PriorityHigh   OpportunityPriority = "high"
	PriorityMedium OpportunityPriority = "medium"
	PriorityLow    OpportunityPriority = "low"
)

// OpportunityDifficulty estimates acquisition effort.
type OpportunityDifficulty string

const (
	DifficultyEasy   OpportunityDifficulty = "easy"
	DifficultyMedium OpportunityDifficulty = "medium"
	DifficultyHard   OpportunityDifficulty = "hard"
)

// LinkOpportunity scores one gap backlink the competitor has.
type LinkOpportunity struct {
	Domain       string                `json:"domain"`
	URL          string                `json:"url"`
	DomainRating int                   `json:"domain_rating"`
	Traffic      int                   `json:"traffic"`
	Score        int                   `json:"score"`
	Priority     OpportunityPriority   `json:"priority"`
	Difficulty   OpportunityDifficulty `json:"difficulty"`
	Reasons      []string              `json:"reasons"`
}

// EffortBreakdown counts gap opportunities per difficulty grade.
type EffortBreakdown struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

// GapAnalysis tiers the scored gap opportunities for outreach
// planning. Each tier is sorted by score, best first.
type GapAnalysis struct {
	TotalGaps   int               `json:"total_gaps"`
	HighValue   []LinkOpportunity `json:"high_value"`
	MediumValue []LinkOpportunity `json:"medium_value"`
	LowValue    []LinkOpportunity `json:"low_value"`
	Effort      EffortBreakdown   `json:"estimated_effort"`
}

// AnchorComparison sets two anchor profiles side by side.
type AnchorComparison struct {
	Yours       AnchorAnalysis `json:"yours"`
	Theirs      AnchorAnalysis `json:"theirs"`
	Differences []string       `json:"differences"`
}

// ComparisonSummary holds the headline numbers of a comparison.
type ComparisonSummary struct {
	YourTotal           int     `json:"your_total"`
	YourDomains         int     `json:"your_domains"`
	YourAvgRating       float64 `json:"your_avg_rating"`
	TheirTotal          int     `json:"their_total"`
	TheirDomains        int     `json:"their_domains"`
	TheirAvgRating      float64 `json:"their_avg_rating"`
	CommonDomains       int     `json:"common_domains"`
	GapOpportunities    int     `json:"gap_opportunities"`
	YourUniqueBacklinks int     `json:"your_unique_backlinks"`
}

// CompetitorComparison is the full yours-vs-competitor report.
type CompetitorComparison struct {
	Summary         ComparisonSummary `json:"summary"`
	TopGaps         []Backlink        `json:"top_gaps"`
	CommonBacklinks []Backlink        `json:"common_backlinks"`
	YourUnique      []Backlink        `json:"your_unique"`
	Gaps            GapAnalysis       `json:"gaps"`
	Anchors         AnchorComparison  `json:"anchors"`
	Recommendations []string          `json:"recommendations"`
}

// SharedBacklink is a source domain held by several competitor sets.
type SharedBacklink struct {
	Backlink        Backlink `json:"backlink"`
	CompetitorCount int      `json:"competitor_count"`
	YouHaveIt       bool     `json:"you_have_it"`
	Priority        string   `json:"priority"`
}

// TLD returns the final label of a domain, dot-prefixed.
func TLD(domain string) string {
	for i := len(domain) - 1; i >= 0; i-- {
		if domain[i] == '.' {
			return domain[i:]
		}
	}
	return domain
}

// AverageDomainRating averages the ratings of links that have one.
func AverageDomainRating(links []Backlink) float64 {
	sum, n := 0, 0
	for i := range links {
		if links[i].DomainRating > 0 {
			sum += links[i].DomainRating
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// UniqueDomains returns the distinct source domains in order of first
// appearance.
func UniqueDomains(links []Backlink) []string {
	seen := make(map[string]struct{}, len(links))
	var out []string
	for i := range links {
		d := links[i].SourceDomain
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

func (s CollectionStats) String() string {
	return fmt.Sprintf("found=%d unique=%d domains=%d avg_dr=%.1f duration=%s",
		s.TotalFound, s.UniqueBacklinks, s.UniqueDomains, s.AverageDomainRating, s.Duration)
}
