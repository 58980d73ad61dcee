package models

// PathCheckpoint is a formative assessment planned between steps of a
// learning path. Position is the index in the sequence it follows;
// EstimatedTime is minutes.
type PathCheckpoint struct {
	Position      int      `json:"position"`
	Type          string   `json:"type"`
	Topics        []string `json:"topics"`
	EstimatedTime int      `json:"estimated_time"`
}

// LearningPath is a sequenced study plan under a time budget.
// EstimatedTotalTime is minutes.
type LearningPath struct {
	Sequence              []ContentItem    `json:"recommended_sequence"`
	EstimatedTotalTime    int              `json:"estimated_total_time"`
	LearningObjectives    []string         `json:"learning_objectives"`
	DifficultyProgression []float64        `json:"difficulty_progression"`
	StyleAdaptations      []string         `json:"style_adaptations"`
	Checkpoints           []PathCheckpoint `json:"checkpoint_assessments"`
}
