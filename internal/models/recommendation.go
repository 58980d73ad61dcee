package models

import "time"

// Reasoning explains why a piece of content was recommended.
type Reasoning struct {
	PrimaryReason     string   `json:"primary_reason"`
	SupportingFactors []string `json:"supporting_factors,omitempty"`
	ConfidenceLevel   string   `json:"confidence_level"` // high | medium | low
}

// Recommendation is one ranked content suggestion. LogID identifies
// the logged recommendation for later feedback.
type Recommendation struct {
	LogID            int64       `json:"recommendation_id,omitempty"`
	ContentID        string      `json:"content_id"`
	Title            string      `json:"title"`
	ContentType      string      `json:"content_type"`
	Topic            string      `json:"topic"`
	Score            float64     `json:"score"`
	EstimatedBenefit float64     `json:"estimated_benefit"`
	Confidence       float64     `json:"confidence"`
	Reasoning        Reasoning   `json:"reasoning"`
}

type RecommendationsRequest struct {
	Count   int             `json:"count,omitempty"`
	Context *SessionContext `json:"context,omitempty"`
}

type RecommendationsResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
	Profile         LearningProfile  `json:"profile"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

type RecommendationFeedbackRequest struct {
	Rating int `json:"rating"` // 1..5
}

// ReviewItem is one entry in the forgetting-curve review queue.
// EstimatedTime is minutes.
type ReviewItem struct {
	Topic         string  `json:"topic"`
	Urgency       float64 `json:"urgency"`
	Method        string  `json:"recommended_method"`
	EstimatedTime int     `json:"estimated_time"`
	Reasoning     string  `json:"reasoning"`
}
