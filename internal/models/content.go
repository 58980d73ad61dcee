package models

import "time"

// Content types understood by the style-affinity table. Anything else
// scores at the neutral default.
var ValidContentTypes = map[string]bool{
	"video":       true,
	"diagram":     true,
	"infographic": true,
	"image":       true,
	"chart":       true,
	"text":        true,
	"audio":       true,
	"podcast":     true,
	"lecture":     true,
	"discussion":  true,
	"interactive": true,
	"simulation":  true,
	"hands_on":    true,
	"exercise":    true,
	"lesson":      true,
	"quiz":        true,
}

// ContentItem is a candidate for recommendation scoring.
// EstimatedDuration is minutes; DifficultyLevel lives in [0,1].
type ContentItem struct {
	ID                   string   `json:"id"`
	Title                string   `json:"title"`
	Subject              string   `json:"subject"`
	Topic                string   `json:"topic"`
	Topics               []string `json:"topics"`
	ContentType          string   `json:"content_type"`
	DifficultyLevel      float64  `json:"difficulty_level"`
	EstimatedDuration    int      `json:"estimated_duration"`
	Objectives           []string `json:"objectives,omitempty"`
	InteractiveElements  int      `json:"interactive_elements"`
	MediaTypes           []string `json:"media_types"`
	PersonalizationLevel float64  `json:"personalization_level"`
	SocialFeatures       int      `json:"social_features"`
	GamificationElements int      `json:"gamification_elements"`
	Structured           bool     `json:"structured"`
}

// LearningContent is a stored, generated content row.
type LearningContent struct {
	ID                 int64           `json:"id"`
	Title              string          `json:"title"`
	Subject            string          `json:"subject"`
	Topic              string          `json:"topic"`
	ContentType        string          `json:"content_type"`
	DifficultyLevel    float64         `json:"difficulty_level"`
	EstimatedDuration  int             `json:"estimated_duration"`
	ContentData        map[string]any  `json:"content_data"`
	LearningObjectives []string        `json:"learning_objectives"`
	Personalization    map[string]any  `json:"personalization,omitempty"`
	GeneratedBy        string          `json:"generated_by"` // llm | template
	IsActive           bool            `json:"is_active"`
	CreatedAt          time.Time       `json:"created_at"`
}

type GenerateContentRequest struct {
	ContentType     string   `json:"content_type"` // lesson | quiz | exercise
	Subject         string   `json:"subject"`
	Topic           string   `json:"topic"`
	DifficultyLevel float64  `json:"difficulty_level"`
	Objectives      []string `json:"objectives,omitempty"`
	QuestionCount   int      `json:"question_count,omitempty"`
	TimeAvailable   int      `json:"time_available,omitempty"`
}
