package learning

import (
	"fmt"
	"sort"

	"github.com/adaptive-learn/backend/internal/models"
)

// BuildAnalytics aggregates a period of sessions and the current
// progress rows into the analytics report. Sessions are expected in
// chronological order.
func BuildAnalytics(sessions []models.Session, progress []models.TopicProgress, days int) models.AnalyticsResponse {
	report := models.AnalyticsResponse{
		PeriodDays:    days,
		TotalSessions: len(sessions),
		TopicProgress: progress,
	}
	if len(sessions) == 0 {
		report.Recommendations = []string{"Record a few learning sessions to unlock analytics."}
		return report
	}

	perfSum, engSum := 0.0, 0.0
	byType := newBucketSet()
	byDifficulty := newBucketSet()
	byLength := newBucketSet()
	byDay := map[string][]float64{}

	for _, s := range sessions {
		minutes := s.Duration / 60
		report.TotalTimeMinutes += minutes
		perfSum += s.Performance
		engSum += s.Engagement

		byType.add(s.ContentType, s.Engagement)
		byDifficulty.add(difficultyBucket(s.Difficulty), s.Engagement)
		byLength.add(lengthBucket(minutes), s.Engagement)

		day := s.CreatedAt.Format("2006-01-02")
		byDay[day] = append(byDay[day], efficiency(s))
	}

	n := float64(len(sessions))
	report.AvgPerformance = perfSum / n
	report.AvgEngagement = engSum / n
	report.ByContentType = byType.buckets()
	report.ByDifficulty = byDifficulty.buckets()
	report.BySessionLength = byLength.buckets()
	report.EfficiencyTrend = efficiencyTrend(byDay)
	report.Recommendations = adviceFor(report)
	return report
}

// efficiency relates performance to time spent against a 30 minute
// reference session.
func efficiency(s models.Session) float64 {
	minutes := float64(s.Duration) / 60
	if minutes < 1 {
		minutes = 1
	}
	return s.Performance / maxFloat(1, minutes/30)
}

func difficultyBucket(d float64) string {
	switch {
	case d < 0.4:
		return "easy"
	case d < 0.7:
		return "medium"
	default:
		return "hard"
	}
}

func lengthBucket(minutes int) string {
	switch {
	case minutes < 15:
		return "short"
	case minutes < 45:
		return "medium"
	default:
		return "long"
	}
}

func efficiencyTrend(byDay map[string][]float64) []models.EfficiencyPoint {
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	trend := make([]models.EfficiencyPoint, 0, len(days))
	for _, day := range days {
		vals := byDay[day]
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		trend = append(trend, models.EfficiencyPoint{
			Day:        day,
			Efficiency: sum / float64(len(vals)),
		})
	}
	return trend
}

// adviceFor turns the aggregates into short plain-language suggestions.
func adviceFor(r models.AnalyticsResponse) []string {
	var advice []string

	if best := bestBucket(r.ByContentType); best != nil && best.Sessions >= 3 {
		advice = append(advice, fmt.Sprintf("You engage most with %s content. Consider requesting more of it.", best.Key))
	}
	if r.AvgPerformance > 0.8 {
		advice = append(advice, "Performance is consistently high. Try harder material to keep progressing.")
	} else if r.AvgPerformance < 0.5 {
		advice = append(advice, "Performance is below target. Easier material or more review sessions may help.")
	}
	if r.AvgEngagement < 0.5 {
		advice = append(advice, "Engagement is low. Shorter or more interactive sessions tend to help.")
	}
	if best := bestBucket(r.BySessionLength); best != nil && best.Sessions >= 3 {
		advice = append(advice, fmt.Sprintf("Your %s sessions are the most engaging. Plan around that length.", best.Key))
	}

	gapTopics := 0
	for _, p := range r.TopicProgress {
		if len(p.KnowledgeGaps) > 0 {
			gapTopics++
		}
	}
	if gapTopics > 0 {
		advice = append(advice, fmt.Sprintf("%d topic(s) have open knowledge gaps. The review queue prioritises them.", gapTopics))
	}

	if len(advice) == 0 {
		advice = append(advice, "Keep your current pace. No adjustments needed.")
	}
	return advice
}

func bestBucket(buckets []models.EngagementBucket) *models.EngagementBucket {
	var best *models.EngagementBucket
	for i := range buckets {
		if best == nil || buckets[i].Engagement > best.Engagement {
			best = &buckets[i]
		}
	}
	return best
}

// bucketSet accumulates engagement sums keyed by bucket name while
// preserving first-seen order.
type bucketSet struct {
	order []string
	count map[string]int
	sum   map[string]float64
}

func newBucketSet() *bucketSet {
	return &bucketSet{count: map[string]int{}, sum: map[string]float64{}}
}

func (b *bucketSet) add(key string, engagement float64) {
	if key == "" {
		key = "unknown"
	}
	if _, seen := b.count[key]; !seen {
		b.order = append(b.order, key)
	}
	b.count[key]++
	b.sum[key] += engagement
}

func (b *bucketSet) buckets() []models.EngagementBucket {
	out := make([]models.EngagementBucket, 0, len(b.order))
	for _, key := range b.order {
		out = append(out, models.EngagementBucket{
			Key:        key,
			Sessions:   b.count[key],
			Engagement: b.sum[key] / float64(b.count[key]),
		})
	}
	return out
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
