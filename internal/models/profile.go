package models

import "time"

type LearningStyle string

const (
	StyleVisual      LearningStyle = "visual"
	StyleAuditory    LearningStyle = "auditory"
	StyleKinesthetic LearningStyle = "kinesthetic"
)

// StyleOrder is the canonical iteration order. Ties in primary-style
// selection resolve to the first maximum in this order.
var StyleOrder = []LearningStyle{StyleVisual, StyleAuditory, StyleKinesthetic}

// StyleScores always carries all three styles; values live in [0,1].
type StyleScores struct {
	Visual      float64 `json:"visual"`
	Auditory    float64 `json:"auditory"`
	Kinesthetic float64 `json:"kinesthetic"`
}

func (s StyleScores) Get(style LearningStyle) float64 {
	switch style {
	case StyleAuditory:
		return s.Auditory
	case StyleKinesthetic:
		return s.Kinesthetic
	default:
		return s.Visual
	}
}

func (s *StyleScores) Set(style LearningStyle, v float64) {
	switch style {
	case StyleAuditory:
		s.Auditory = v
	case StyleKinesthetic:
		s.Kinesthetic = v
	default:
		s.Visual = v
	}
}

// Primary returns the highest-scoring style, first maximum winning.
func (s StyleScores) Primary() LearningStyle {
	best := StyleOrder[0]
	for _, style := range StyleOrder[1:] {
		if s.Get(style) > s.Get(best) {
			best = style
		}
	}
	return best
}

type Accommodations struct {
	NeedsBreaks              bool `json:"needs_breaks"`
	NeedsExtraTime           bool `json:"needs_extra_time"`
	BenefitsFromRepetition   bool `json:"benefits_from_repetition"`
	PrefersClearInstructions bool `json:"prefers_clear_instructions"`
	PrefersStructure         bool `json:"prefers_structure"`
	SensitiveToDistractions  bool `json:"sensitive_to_distractions"`
}

// PerformanceRecord is one scored interaction with a topic, used by the
// forgetting model and the recommendation scorer.
type PerformanceRecord struct {
	Topic string    `json:"topic"`
	Score float64   `json:"score"`
	At    time.Time `json:"at"`
}

// ProgressPoint is a skill-level sample used for learning-velocity
// estimation.
type ProgressPoint struct {
	SkillLevel float64   `json:"skill_level"`
	At         time.Time `json:"at"`
}

// LearningProfile is the full per-user picture the scorer and agent
// consume: style signal plus knowledge state and history.
type LearningProfile struct {
	PrimaryStyle      LearningStyle       `json:"primary_learning_style"`
	StyleScores       StyleScores         `json:"style_scores"`
	Confidence        float64             `json:"confidence"`
	Accommodations    Accommodations      `json:"accommodations"`
	SkillLevel        float64             `json:"current_skill_level"`
	KnowledgeGaps     []string            `json:"knowledge_gaps"`
	Strengths         []string            `json:"strengths"`
	CompletedContent  []string            `json:"completed_content"`
	CompletedTopics   []string            `json:"completed_topics"`
	RecentPerformance []PerformanceRecord `json:"recent_performance"`
	ProgressHistory   []ProgressPoint     `json:"progress_history"`
	Recommendations   []string            `json:"recommendations"`
	SessionsAnalyzed  int                 `json:"sessions_analyzed"`
	LastUpdated       time.Time           `json:"last_updated"`
}

// AveragePerformance is the mean of recent performance records, 0.5
// when there is no history.
func (p LearningProfile) AveragePerformance() float64 {
	if len(p.RecentPerformance) == 0 {
		return 0.5
	}
	sum := 0.0
	for _, r := range p.RecentPerformance {
		sum += r.Score
	}
	return sum / float64(len(p.RecentPerformance))
}
