package recommend

import (
	"fmt"
	"math"
	"sort"

	"github.com/adaptive-learn/backend/internal/models"
)

// Ebbinghaus-style forgetting model with a seven-day memory strength
// constant. Strong past performance slows the modelled decay.

const (
	// MemoryStrengthDays controls the exponential decay rate.
	MemoryStrengthDays = 7.0

	// ReviewThreshold is the forgetting probability above which a
	// topic enters the review queue.
	ReviewThreshold = 0.3

	baseReviewMinutes = 10
)

// ForgettingProbability estimates how likely a topic has been
// forgotten after daysSince days. history holds the user's scored
// interactions; records for other topics are ignored.
func ForgettingProbability(daysSince float64, topic string, history []models.PerformanceRecord) float64 {
	if daysSince < 0 {
		daysSince = 0
	}
	base := 1 - math.Exp(-daysSince/MemoryStrengthDays)

	sum, n := 0.0, 0
	for _, r := range history {
		if r.Topic == topic {
			sum += r.Score
			n++
		}
	}
	if n > 0 {
		base *= 1 - 0.5*(sum/float64(n))
	}
	return clamp01(base)
}

// ReviewPlan builds a review item for a topic given its forgetting
// probability and the user's primary style. Higher urgency gets a more
// intensive method and a longer time estimate.
func ReviewPlan(style models.LearningStyle, topic string, prob float64) models.ReviewItem {
	intensive := prob > 0.7
	method := "mixed_review"
	switch style {
	case models.StyleVisual:
		if intensive {
			method = "interactive_recap"
		} else {
			method = "visual_summary"
		}
	case models.StyleAuditory:
		if intensive {
			method = "audio_summary"
		} else {
			method = "brief_audio_review"
		}
	case models.StyleKinesthetic:
		if intensive {
			method = "hands_on_practice"
		} else {
			method = "quick_exercise"
		}
	}

	minutes := baseReviewMinutes
	switch {
	case prob > 0.7:
		minutes *= 2
	case prob > 0.5:
		minutes = int(float64(minutes) * 1.5)
	}

	return models.ReviewItem{
		Topic:         topic,
		Urgency:       prob,
		Method:        method,
		EstimatedTime: minutes,
		Reasoning:     fmt.Sprintf("estimated %.0f%% chance of forgetting %s", prob*100, topic),
	}
}

// ReviewRecommendations filters topics past the review threshold and
// orders them by urgency, most urgent first.
func ReviewRecommendations(profile models.LearningProfile, daysSince map[string]float64) []models.ReviewItem {
	var items []models.ReviewItem
	for topic, days := range daysSince {
		prob := ForgettingProbability(days, topic, profile.RecentPerformance)
		if prob > ReviewThreshold {
			items = append(items, ReviewPlan(profile.PrimaryStyle, topic, prob))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Urgency != items[j].Urgency {
			return items[i].Urgency > items[j].Urgency
		}
		return items[i].Topic < items[j].Topic
	})
	return items
}
