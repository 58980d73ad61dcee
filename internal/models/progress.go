package models

import "time"

// TopicProgress is the persisted per-user, per-topic knowledge state.
// SkillLevel and CompletionRate live in [0,1]; TimeSpent is minutes.
type TopicProgress struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Subject        string    `json:"subject"`
	Topic          string    `json:"topic"`
	SkillLevel     float64   `json:"skill_level"`
	CompletionRate float64   `json:"completion_rate"`
	TimeSpent      int       `json:"time_spent"`
	KnowledgeGaps  []string  `json:"knowledge_gaps"`
	Strengths      []string  `json:"strengths"`
	LastAccessed   time.Time `json:"last_accessed"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// EngagementBucket aggregates engagement over one slice of sessions.
type EngagementBucket struct {
	Key        string  `json:"key"`
	Sessions   int     `json:"sessions"`
	Engagement float64 `json:"avg_engagement"`
}

// EfficiencyPoint is one day of the learning-efficiency trend.
type EfficiencyPoint struct {
	Day        string  `json:"day"`
	Efficiency float64 `json:"efficiency"`
}

// AnalyticsResponse summarises recent learning activity.
type AnalyticsResponse struct {
	PeriodDays        int                `json:"period_days"`
	TotalSessions     int                `json:"total_sessions"`
	TotalTimeMinutes  int                `json:"total_time_minutes"`
	AvgPerformance    float64            `json:"avg_performance"`
	AvgEngagement     float64            `json:"avg_engagement"`
	ByContentType     []EngagementBucket `json:"by_content_type"`
	ByDifficulty      []EngagementBucket `json:"by_difficulty"`
	BySessionLength   []EngagementBucket `json:"by_session_length"`
	EfficiencyTrend   []EfficiencyPoint  `json:"efficiency_trend"`
	TopicProgress     []TopicProgress    `json:"topic_progress"`
	Recommendations   []string           `json:"recommendations"`
}
