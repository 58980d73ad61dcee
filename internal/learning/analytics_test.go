package learning

import (
	"strings"
	"testing"
	"time"

	"github.com/adaptive-learn/backend/internal/models"
)

func sessionAt(day time.Time, contentType string, durationMin int, perf, eng, diff float64) models.Session {
	return models.Session{
		ContentType: contentType,
		Duration:    durationMin * 60,
		Performance: perf,
		Engagement:  eng,
		Difficulty:  diff,
		CreatedAt:   day,
	}
}

func TestBuildAnalyticsEmpty(t *testing.T) {
	report := BuildAnalytics(nil, nil, 30)
	if report.TotalSessions != 0 {
		t.Errorf("total sessions = %d, want 0", report.TotalSessions)
	}
	if len(report.Recommendations) == 0 {
		t.Error("empty report should still carry a recommendation")
	}
}

func TestBuildAnalyticsAggregates(t *testing.T) {
	day1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	sessions := []models.Session{
		sessionAt(day1, "video", 30, 0.8, 0.9, 0.3),
		sessionAt(day1, "quiz", 10, 0.6, 0.5, 0.5),
		sessionAt(day2, "video", 60, 0.4, 0.7, 0.8),
	}

	report := BuildAnalytics(sessions, nil, 7)

	if report.TotalSessions != 3 {
		t.Errorf("total sessions = %d, want 3", report.TotalSessions)
	}
	if report.TotalTimeMinutes != 100 {
		t.Errorf("total minutes = %d, want 100", report.TotalTimeMinutes)
	}
	if got, want := report.AvgPerformance, 0.6; !closeTo(got, want) {
		t.Errorf("avg performance = %v, want %v", got, want)
	}

	var video *models.EngagementBucket
	for i := range report.ByContentType {
		if report.ByContentType[i].Key == "video" {
			video = &report.ByContentType[i]
		}
	}
	if video == nil || video.Sessions != 2 {
		t.Fatalf("video bucket = %+v, want 2 sessions", video)
	}
	if !closeTo(video.Engagement, 0.8) {
		t.Errorf("video engagement = %v, want 0.8", video.Engagement)
	}
}

func TestBuildAnalyticsBuckets(t *testing.T) {
	now := time.Now()
	sessions := []models.Session{
		sessionAt(now, "quiz", 10, 0.5, 0.5, 0.2),  // easy, short
		sessionAt(now, "quiz", 30, 0.5, 0.5, 0.5),  // medium, medium
		sessionAt(now, "quiz", 50, 0.5, 0.5, 0.85), // hard, long
	}
	report := BuildAnalytics(sessions, nil, 7)

	keysOf := func(buckets []models.EngagementBucket) string {
		var keys []string
		for _, b := range buckets {
			keys = append(keys, b.Key)
		}
		return strings.Join(keys, ",")
	}
	if got := keysOf(report.ByDifficulty); got != "easy,medium,hard" {
		t.Errorf("difficulty buckets = %s", got)
	}
	if got := keysOf(report.BySessionLength); got != "short,medium,long" {
		t.Errorf("length buckets = %s", got)
	}
}

func TestEfficiencyTrendSortedByDay(t *testing.T) {
	day1 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)
	sessions := []models.Session{
		sessionAt(day2, "quiz", 30, 0.9, 0.5, 0.5),
		sessionAt(day1, "quiz", 30, 0.6, 0.5, 0.5),
		sessionAt(day1, "quiz", 60, 0.8, 0.5, 0.5),
	}
	report := BuildAnalytics(sessions, nil, 7)

	if len(report.EfficiencyTrend) != 2 {
		t.Fatalf("trend points = %d, want 2", len(report.EfficiencyTrend))
	}
	if report.EfficiencyTrend[0].Day != "2025-03-01" || report.EfficiencyTrend[1].Day != "2025-03-05" {
		t.Errorf("trend not sorted by day: %+v", report.EfficiencyTrend)
	}
	// Day one: 0.6/1 and 0.8/2 average to 0.5.
	if !closeTo(report.EfficiencyTrend[0].Efficiency, 0.5) {
		t.Errorf("day-one efficiency = %v, want 0.5", report.EfficiencyTrend[0].Efficiency)
	}
}

func TestAdviceReflectsAggregates(t *testing.T) {
	now := time.Now()
	var sessions []models.Session
	for i := 0; i < 4; i++ {
		sessions = append(sessions, sessionAt(now, "video", 20, 0.9, 0.9, 0.3))
	}
	sessions = append(sessions, sessionAt(now, "text", 20, 0.9, 0.2, 0.3))

	progress := []models.TopicProgress{
		{Topic: "algebra", KnowledgeGaps: []string{"factoring"}},
	}
	report := BuildAnalytics(sessions, progress, 30)

	joined := strings.Join(report.Recommendations, " | ")
	for _, want := range []string{"video", "harder material", "knowledge gaps"} {
		if !strings.Contains(joined, want) {
			t.Errorf("advice %q missing %q", joined, want)
		}
	}
}

func closeTo(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
