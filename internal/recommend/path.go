package recommend

import (
	"fmt"

	"github.com/adaptive-learn/backend/internal/models"
)

const (
	maxPriorityAreas = 5

	// pathDifficultyStep is the gradual increase applied after each
	// sequenced item.
	pathDifficultyStep = 0.1

	checkpointInterval = 3
	checkpointMinutes  = 5
)

// KnowledgeState summarises per-topic progress for path planning.
type KnowledgeState struct {
	CurrentLevel float64
	StrongAreas  []string
	WeakAreas    []string
}

// AnalyzeKnowledgeState derives the overall level and strong/weak
// areas from progress rows. No history yields the neutral midpoint.
func AnalyzeKnowledgeState(progress []models.TopicProgress) KnowledgeState {
	state := KnowledgeState{CurrentLevel: 0.5}
	if len(progress) == 0 {
		return state
	}

	sum := 0.0
	for _, p := range progress {
		sum += p.SkillLevel
		if p.SkillLevel > 0.7 {
			state.StrongAreas = append(state.StrongAreas, p.Topic)
		} else if p.SkillLevel < 0.4 {
			state.WeakAreas = append(state.WeakAreas, p.Topic)
		}
	}
	state.CurrentLevel = sum / float64(len(progress))
	return state
}

// PriorityAreas orders the learning areas to study next: weak areas
// aligned with the goals first, then unmastered goals, prefixed with
// foundations when the user is struggling overall. At most five.
func PriorityAreas(state KnowledgeState, goals []string) []string {
	var areas []string

	goalSet := make(map[string]bool, len(goals))
	for _, g := range goals {
		goalSet[g] = true
	}
	for _, weak := range state.WeakAreas {
		if goalSet[weak] {
			areas = append(areas, weak)
		}
	}

	strong := make(map[string]bool, len(state.StrongAreas))
	for _, s := range state.StrongAreas {
		strong[s] = true
	}
	taken := make(map[string]bool, len(areas))
	for _, a := range areas {
		taken[a] = true
	}
	for _, g := range goals {
		if !strong[g] && !taken[g] {
			areas = append(areas, g)
			taken[g] = true
		}
	}

	if state.CurrentLevel < 0.4 {
		areas = append([]string{"basics", "fundamentals", "introduction"}, areas...)
	}

	if len(areas) > maxPriorityAreas {
		areas = areas[:maxPriorityAreas]
	}
	return areas
}

// contentForArea picks the best available item covering an area: style
// affinity first, then closeness to the target difficulty. Items
// longer than the remaining budget are out.
func contentForArea(area string, difficulty float64, style models.LearningStyle, items []models.ContentItem, remaining int, used map[string]bool) *models.ContentItem {
	var best *models.ContentItem
	var bestScore float64
	for i := range items {
		it := &items[i]
		if used[it.ID] || it.EstimatedDuration > remaining {
			continue
		}
		if !coversArea(*it, area) {
			continue
		}
		gap := it.DifficultyLevel - difficulty
		if gap < 0 {
			gap = -gap
		}
		score := StyleMatch(style, it.ContentType) + (1 - gap)
		if best == nil || score > bestScore {
			best, bestScore = it, score
		}
	}
	return best
}

func coversArea(item models.ContentItem, area string) bool {
	for _, t := range itemTopics(item) {
		if t == area {
			return true
		}
	}
	return false
}

// PathAdaptations lists the delivery adjustments the path should carry
// for this profile.
func PathAdaptations(profile models.LearningProfile) []string {
	var out []string
	if profile.Accommodations.NeedsBreaks {
		out = append(out, "break_reminders")
	}
	if profile.Accommodations.NeedsExtraTime {
		out = append(out, "extended_timeouts")
	}
	if profile.Accommodations.PrefersStructure {
		out = append(out, "clear_progress_indicators")
	}
	out = append(out, fmt.Sprintf("%s_optimized", profile.PrimaryStyle))
	return out
}

// PlanCheckpoints inserts a formative assessment after every few
// sequenced items, covering the topics of its slice.
func PlanCheckpoints(sequence []models.ContentItem) []models.PathCheckpoint {
	var checkpoints []models.PathCheckpoint
	for i := 0; i < len(sequence); i += checkpointInterval {
		end := i + checkpointInterval
		if end > len(sequence) {
			end = len(sequence)
		}
		topics := make([]string, 0, end-i)
		for _, item := range sequence[i:end] {
			topics = append(topics, item.Topic)
		}
		checkpoints = append(checkpoints, models.PathCheckpoint{
			Position:      i + 2,
			Type:          "formative_assessment",
			Topics:        topics,
			EstimatedTime: checkpointMinutes,
		})
	}
	return checkpoints
}

// BuildLearningPath sequences available content toward the given goals
// under a minute budget, raising difficulty gradually and planning
// checkpoint assessments.
func BuildLearningPath(profile models.LearningProfile, progress []models.TopicProgress, goals []string, timeAvailable int, items []models.ContentItem) models.LearningPath {
	path := models.LearningPath{
		Sequence:              []models.ContentItem{},
		LearningObjectives:    []string{},
		DifficultyProgression: []float64{},
		Checkpoints:           []models.PathCheckpoint{},
	}

	state := AnalyzeKnowledgeState(progress)
	areas := PriorityAreas(state, goals)

	remaining := timeAvailable
	difficulty := state.CurrentLevel
	used := make(map[string]bool)

	for _, area := range areas {
		if remaining <= 0 {
			break
		}
		item := contentForArea(area, difficulty, profile.PrimaryStyle, items, remaining, used)
		if item == nil {
			continue
		}
		path.Sequence = append(path.Sequence, *item)
		path.EstimatedTotalTime += item.EstimatedDuration
		path.LearningObjectives = append(path.LearningObjectives, item.Objectives...)
		path.DifficultyProgression = append(path.DifficultyProgression, difficulty)

		used[item.ID] = true
		remaining -= item.EstimatedDuration
		difficulty = clamp01(difficulty + pathDifficultyStep)
	}

	path.StyleAdaptations = PathAdaptations(profile)
	path.Checkpoints = PlanCheckpoints(path.Sequence)
	return path
}
