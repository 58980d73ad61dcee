package models

// ActionParams carries the concrete knobs for an adaptation action.
// Only the fields relevant to the action are set.
type ActionParams struct {
	Type            string   `json:"type"`
	DifficultyDelta float64  `json:"difficulty_delta,omitempty"`
	BreakMinutes    int      `json:"break_minutes,omitempty"`
	HintLevel       string   `json:"hint_level,omitempty"`
	NewContentType  string   `json:"new_content_type,omitempty"`
	Elements        []string `json:"elements,omitempty"`
}

// AdaptationOption is one ranked action the agent proposes.
type AdaptationOption struct {
	Action      string       `json:"action"`
	QValue      float64      `json:"q_value"`
	Explanation string       `json:"explanation"`
	Params      ActionParams `json:"implementation"`
}

type AdaptRequest struct {
	SessionID          int64   `json:"session_id"`
	CurrentPerformance float64 `json:"current_performance"`
	CurrentEngagement  float64 `json:"current_engagement"`
	ElapsedSeconds     int     `json:"elapsed_seconds"`
}

type AdaptResponse struct {
	State         string             `json:"state"`
	Applied       AdaptationOption   `json:"applied"`
	Alternatives  []AdaptationOption `json:"alternatives,omitempty"`
	NewDifficulty float64            `json:"new_difficulty"`
	Exploratory   bool               `json:"exploratory"`
}
