// Package velocity turns backlink first-seen dates into growth time
// series. It builds daily, weekly and monthly curves, flags suspicious
// acquisition spikes and classifies the overall trend.
package velocity

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/seolens/linkscope/internal/types"
)

const (
	spikeThresholdPct = 20
	trendWindowWeeks  = 4
)

// Analyze builds the full velocity report from link first-seen dates.
// Links without a first-seen timestamp are ignored; an empty series
// yields a zeroed report.
func Analyze(links []types.Backlink) types.VelocityAnalysis {
	dated := make([]types.Backlink, 0, len(links))
	for i := range links {
		if !links[i].FirstSeen.IsZero() {
			dated = append(dated, links[i])
		}
	}
	if len(dated) == 0 {
		return types.VelocityAnalysis{
			Trend: types.VelocityTrend{
				Type:        types.TrendStable,
				Confidence:  0,
				Description: "No dated backlinks to analyze",
			},
			Spikes:          types.SpikeDetection{NaturalGrowth: true},
			Recommendations: []string{"No acquisition data yet; velocity tracking starts with the first dated backlink"},
		}
	}

	daily := dailySeries(dated)
	weekly := weeklySeries(daily)
	monthly := monthlySeries(daily)
	spikes := DetectSpikes(daily)
	trend := classifyTrend(weekly)
	metrics := summarize(dated, daily, weekly)

	return types.VelocityAnalysis{
		Daily:           daily,
		Weekly:          weekly,
		Monthly:         monthly,
		Trend:           trend,
		Spikes:          spikes,
		Metrics:         metrics,
		Recommendations: recommendations(trend, spikes, metrics),
	}
}

// Snapshot is one historical observation of the profile, identified by
// the dedupe keys present at that time.
type Snapshot struct {
	Date time.Time `json:"date"`
	Keys []string  `json:"keys"`
}

// AnalyzeWithHistory augments the first-seen series with lost links
// derived from snapshot diffs: a key present in one snapshot and gone
// in the next counts as lost on the later snapshot's day.
func AnalyzeWithHistory(links []types.Backlink, history []Snapshot) types.VelocityAnalysis {
	lost := make(map[string]int)
	sorted := append([]Snapshot(nil), history...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	for i := 1; i < len(sorted); i++ {
		now := make(map[string]struct{}, len(sorted[i].Keys))
		for _, k := range sorted[i].Keys {
			now[k] = struct{}{}
		}
		day := dayKey(sorted[i].Date)
		for _, k := range sorted[i-1].Keys {
			if _, ok := now[k]; !ok {
				lost[day]++
			}
		}
	}

	analysis := Analyze(links)
	if len(lost) == 0 || len(analysis.Daily) == 0 {
		return analysis
	}
	for i := range analysis.Daily {
		if n, ok := lost[dayKey(analysis.Daily[i].Date)]; ok {
			analysis.Daily[i].LostLinks = n
			analysis.Daily[i].NetGrowth = analysis.Daily[i].NewLinks - n
		}
	}
	analysis.Weekly = weeklySeries(analysis.Daily)
	analysis.Monthly = monthlySeries(analysis.Daily)
	return analysis
}

// Prediction is one projected week of acquisition.
type Prediction struct {
	Date        time.Time `json:"date"`
	ExpectedNew int       `json:"expected_new"`
	Confidence  float64   `json:"confidence"`
}

// Predict projects acquisition for the coming weeks by extending the
// recent weekly average. Confidence decays with horizon.
func Predict(analysis types.VelocityAnalysis, weeks int) []Prediction {
	if weeks <= 0 || len(analysis.Weekly) == 0 {
		return nil
	}
	recent := analysis.Weekly
	if len(recent) > trendWindowWeeks {
		recent = recent[len(recent)-trendWindowWeeks:]
	}
	avg := avgNewLinks(recent)

	last := analysis.Weekly[len(analysis.Weekly)-1].Date
	out := make([]Prediction, 0, weeks)
	confidence := 0.9
	for i := 1; i <= weeks; i++ {
		out = append(out, Prediction{
			Date:        last.AddDate(0, 0, 7*i),
			ExpectedNew: int(math.Round(avg)),
			Confidence:  confidence,
		})
		confidence *= 0.98
	}
	return out
}

// DetectSpikes scans consecutive daily cumulative counts for sudden
// jumps. Growth is natural when spikes are few and none severe.
func DetectSpikes(daily []types.VelocityPoint) types.SpikeDetection {
	var spikes []types.Spike
	for i := 1; i < len(daily); i++ {
		prev, cur := daily[i-1], daily[i]
		if prev.Count <= 0 {
			continue
		}
		pct := float64(cur.Count-prev.Count) / float64(prev.Count) * 100
		if pct <= spikeThresholdPct {
			continue
		}
		spikes = append(spikes, types.Spike{
			Date:            cur.Date,
			Count:           cur.NewLinks,
			PercentIncrease: pct,
			Severity:        severityFor(pct),
		})
	}

	natural := len(spikes) == 0
	if !natural && len(spikes) <= 3 {
		natural = true
		for _, s := range spikes {
			if s.Severity == types.SpikeHigh || s.Severity == types.SpikeCritical {
				natural = false
				break
			}
		}
	}
	return types.SpikeDetection{
		HasSuspiciousSpikes: len(spikes) > 0,
		Spikes:              spikes,
		NaturalGrowth:       natural,
	}
}

func severityFor(pct float64) types.SpikeSeverity {
	switch {
	case pct > 100:
		return types.SpikeCritical
	case pct > 50:
		return types.SpikeHigh
	case pct > 30:
		return types.SpikeMedium
	default:
		return types.SpikeLow
	}
}

// dailySeries builds one point per UTC calendar day from the first
// sighting to the last.
func dailySeries(dated []types.Backlink) []types.VelocityPoint {
	perDay := make(map[string]int)
	var first, last time.Time
	for i := range dated {
		day := dated[i].FirstSeen.UTC().Truncate(24 * time.Hour)
		perDay[dayKey(day)]++
		if first.IsZero() || day.Before(first) {
			first = day
		}
		if day.After(last) {
			last = day
		}
	}

	var out []types.VelocityPoint
	cumulative := 0
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		added := perDay[dayKey(day)]
		cumulative += added
		out = append(out, types.VelocityPoint{
			Date:      day,
			Count:     cumulative,
			NewLinks:  added,
			NetGrowth: added,
		})
	}
	return out
}

// weeklySeries folds daily points into seven-day chunks anchored on
// the first observed day.
func weeklySeries(daily []types.VelocityPoint) []types.VelocityPoint {
	var out []types.VelocityPoint
	for start := 0; start < len(daily); start += 7 {
		end := start + 7
		if end > len(daily) {
			end = len(daily)
		}
		chunk := daily[start:end]
		point := types.VelocityPoint{
			Date:  chunk[0].Date,
			Count: chunk[len(chunk)-1].Count,
		}
		for _, d := range chunk {
			point.NewLinks += d.NewLinks
			point.LostLinks += d.LostLinks
		}
		point.NetGrowth = point.NewLinks - point.LostLinks
		out = append(out, point)
	}
	return out
}

func monthlySeries(daily []types.VelocityPoint) []types.VelocityPoint {
	var out []types.VelocityPoint
	var cur *types.VelocityPoint
	curMonth := ""
	for _, d := range daily {
		month := d.Date.Format("2006-01")
		if month != curMonth {
			if cur != nil {
				out = append(out, *cur)
			}
			curMonth = month
			cur = &types.VelocityPoint{
				Date: time.Date(d.Date.Year(), d.Date.Month(), 1, 0, 0, 0, 0, time.UTC),
			}
		}
		cur.Count = d.Count
		cur.NewLinks += d.NewLinks
		cur.LostLinks += d.LostLinks
		cur.NetGrowth = cur.NewLinks - cur.LostLinks
	}
	if cur != nil {
		out = append(out, *cur)
	}
	return out
}

// classifyTrend grades the trailing weekly average and its volatility.
func classifyTrend(weekly []types.VelocityPoint) types.VelocityTrend {
	if len(weekly) < 3 {
		return types.VelocityTrend{
			Type:        types.TrendStable,
			Confidence:  0.3,
			Description: "Insufficient data for a reliable trend; keep collecting",
		}
	}

	recent := weekly
	if len(recent) > trendWindowWeeks {
		recent = recent[len(recent)-trendWindowWeeks:]
	}
	avg := avgNewLinks(recent)

	var tt types.TrendType
	switch {
	case avg > 20:
		tt = types.TrendRapid
	case avg > 5:
		tt = types.TrendSteady
	case avg > -2:
		tt = types.TrendStable
	default:
		tt = types.TrendDeclining
	}

	if avg > 0 {
		variance := 0.0
		for _, w := range recent {
			d := float64(w.NewLinks) - avg
			variance += d * d
		}
		stddev := math.Sqrt(variance / float64(len(recent)))
		if stddev/avg > 1.5 {
			tt = types.TrendVolatile
		}
	}

	confidence := math.Min(0.95, 0.5+float64(len(weekly))/20)
	return types.VelocityTrend{
		Type:        tt,
		Confidence:  confidence,
		Description: trendDescription(tt, avg),
	}
}

func trendDescription(tt types.TrendType, avg float64) string {
	switch tt {
	case types.TrendRapid:
		return fmt.Sprintf("Rapid growth averaging %.1f new links per week", avg)
	case types.TrendSteady:
		return fmt.Sprintf("Steady growth averaging %.1f new links per week", avg)
	case types.TrendDeclining:
		return "Profile is shrinking; losses outpace new links"
	case types.TrendVolatile:
		return "Acquisition is highly uneven week to week"
	default:
		return "Profile size is roughly flat"
	}
}

func summarize(dated []types.Backlink, daily, weekly []types.VelocityPoint) types.VelocityMetrics {
	recentDaily := daily
	if len(recentDaily) > 30 {
		recentDaily = recentDaily[len(recentDaily)-30:]
	}
	dailySum := 0
	for _, d := range recentDaily {
		dailySum += d.NewLinks
	}
	avgDaily := 0.0
	if len(recentDaily) > 0 {
		avgDaily = float64(dailySum) / float64(len(recentDaily))
	}

	wow := 0.0
	if n := len(weekly); n >= 2 && weekly[n-2].NewLinks > 0 {
		wow = float64(weekly[n-1].NewLinks-weekly[n-2].NewLinks) / float64(weekly[n-2].NewLinks) * 100
	}

	growth30 := 0.0
	if len(dated) > 0 {
		growth30 = float64(dailySum) / float64(len(dated)) * 100
	}

	return types.VelocityMetrics{
		AvgDailyGrowth:     avgDaily,
		AvgWeeklyGrowth:    avgNewLinks(weekly),
		WeekOverWeekChange: wow,
		GrowthRate30d:      growth30,
		TotalLinks:         len(dated),
	}
}

func avgNewLinks(points []types.VelocityPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	sum := 0
	for _, p := range points {
		sum += p.NewLinks
	}
	return float64(sum) / float64(len(points))
}

func recommendations(trend types.VelocityTrend, spikes types.SpikeDetection, m types.VelocityMetrics) []string {
	var out []string
	if !spikes.NaturalGrowth {
		out = append(out, "Unnatural acquisition spikes detected; audit recent links for paid or automated placement")
	}
	switch trend.Type {
	case types.TrendDeclining:
		out = append(out, "Link velocity is declining; investigate lost links and renew outreach")
	case types.TrendVolatile:
		out = append(out, "Smooth out acquisition; erratic velocity can look manipulated")
	case types.TrendRapid:
		out = append(out, "Rapid growth; verify new links come from relevant, quality sources")
	}
	if m.TotalLinks > 0 && m.AvgWeeklyGrowth < 1 {
		out = append(out, "Fewer than one new link per week; increase content and outreach cadence")
	}
	if len(out) == 0 {
		out = append(out, "Velocity looks healthy; maintain the current acquisition pace")
	}
	return out
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
