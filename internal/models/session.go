package models

import "time"

// Session types. A review session replays previously studied material
// and is rewarded differently by the adaptation agent.
const (
	SessionStudy  = "study"
	SessionReview = "review"
)

// Interactions counts observable learner behaviour inside one session.
type Interactions struct {
	NoteTaking          bool `json:"note_taking"`
	AudioReplays        int  `json:"audio_replays"`
	InteractiveElements int  `json:"interactive_elements"`
}

// SessionFeedback is the learner's optional self-report for a session.
type SessionFeedback struct {
	Rating  int    `json:"rating"` // 1..5
	Comment string `json:"comment,omitempty"`
}

// AppliedAdaptation records an agent action applied mid-session.
type AppliedAdaptation struct {
	Action    string    `json:"action"`
	AppliedAt time.Time `json:"applied_at"`
}

// Session is one recorded learning session. Durations are seconds,
// scores live in [0,1].
type Session struct {
	ID                int64               `json:"id"`
	UserID            int64               `json:"user_id"`
	SessionType       string              `json:"session_type"`
	ContentType       string              `json:"content_type"`
	ContentID         string              `json:"content_id"`
	Topic             string              `json:"topic"`
	Duration          int                 `json:"duration"`
	EstimatedDuration int                 `json:"estimated_duration"`
	Performance       float64             `json:"performance_score"`
	Engagement        float64             `json:"engagement_score"`
	Difficulty        float64             `json:"difficulty_level"`
	Interactions      Interactions        `json:"interactions"`
	Adaptations       []AppliedAdaptation `json:"adaptations,omitempty"`
	Feedback          *SessionFeedback    `json:"feedback,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}

type RecordSessionRequest struct {
	SessionType       string           `json:"session_type"`
	ContentType       string           `json:"content_type"`
	ContentID         string           `json:"content_id"`
	Topic             string           `json:"topic"`
	Duration          int              `json:"duration"`
	EstimatedDuration int              `json:"estimated_duration"`
	Performance       float64          `json:"performance_score"`
	Engagement        float64          `json:"engagement_score"`
	Difficulty        float64          `json:"difficulty_level"`
	Interactions      Interactions     `json:"interactions"`
	Feedback          *SessionFeedback `json:"feedback,omitempty"`
}

type RecordSessionResponse struct {
	SessionID      int64           `json:"session_id"`
	Progress       *TopicProgress  `json:"progress,omitempty"`
	Profile        LearningProfile `json:"profile"`
	AgentTrained   bool            `json:"agent_trained"`
	ReplayedBatch  bool            `json:"replayed_batch"`
	SessionsOnFile int             `json:"sessions_on_file"`
}

// SessionContext describes the learner's immediate situation when
// asking for recommendations. TimeAvailable is minutes.
type SessionContext struct {
	TimeAvailable      int      `json:"time_available"`
	CurrentPerformance *float64 `json:"current_performance,omitempty"`
	EnergyLevel        string   `json:"energy_level,omitempty"` // low | medium | high
}
