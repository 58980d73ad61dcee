package recommend

import (
	"fmt"
	"sort"
	"sync"

	"github.com/adaptive-learn/backend/internal/models"
)

// Weights are the scoring factor weights. They always sum to 1 after
// construction or adjustment.
type Weights struct {
	StyleMatch    float64 `json:"style_match"`
	DifficultyFit float64 `json:"difficulty_fit"`
	GapRelevance  float64 `json:"gap_relevance"`
	Engagement    float64 `json:"engagement"`
	Novelty       float64 `json:"novelty"`
}

func DefaultWeights() Weights {
	return Weights{
		StyleMatch:    0.30,
		DifficultyFit: 0.25,
		GapRelevance:  0.20,
		Engagement:    0.15,
		Novelty:       0.10,
	}
}

// Adjust nudges every weight in response to a 1..5 feedback rating:
// +0.01 for ratings of 4+, -0.01 for ratings of 2 or below. Weights are
// clamped to [0.05,0.5] before renormalising back to sum 1.
func (w *Weights) Adjust(rating int) {
	var delta float64
	switch {
	case rating >= 4:
		delta = 0.01
	case rating <= 2:
		delta = -0.01
	default:
		return
	}
	for _, f := range []*float64{&w.StyleMatch, &w.DifficultyFit, &w.GapRelevance, &w.Engagement, &w.Novelty} {
		*f = clampRange(*f+delta, 0.05, 0.5)
	}
	w.normalize()
}

func (w *Weights) normalize() {
	sum := w.StyleMatch + w.DifficultyFit + w.GapRelevance + w.Engagement + w.Novelty
	if sum <= 0 {
		*w = DefaultWeights()
		return
	}
	w.StyleMatch /= sum
	w.DifficultyFit /= sum
	w.GapRelevance /= sum
	w.Engagement /= sum
	w.Novelty /= sum
}

// Engine scores and ranks content for a user profile. Weight updates
// from feedback are serialised by the mutex.
type Engine struct {
	mu      sync.Mutex
	weights Weights
}

func NewEngine() *Engine {
	return &Engine{weights: DefaultWeights()}
}

func (e *Engine) Weights() Weights {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.weights
}

// RecordFeedback folds a recommendation rating into the factor weights.
func (e *Engine) RecordFeedback(rating int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.weights.Adjust(rating)
}

// Style-content affinity. Missing pairs score the neutral 0.5.
var styleAffinity = map[models.LearningStyle]map[string]float64{
	models.StyleVisual: {
		"video": 0.9, "diagram": 1.0, "infographic": 0.95, "image": 0.8,
		"chart": 0.85, "text": 0.3, "audio": 0.1,
	},
	models.StyleAuditory: {
		"audio": 1.0, "podcast": 0.95, "lecture": 0.9, "discussion": 0.85,
		"video": 0.6, "text": 0.4, "diagram": 0.2,
	},
	models.StyleKinesthetic: {
		"interactive": 1.0, "simulation": 0.95, "hands_on": 0.9,
		"exercise": 0.85, "video": 0.5, "text": 0.2, "audio": 0.3,
	},
}

// StyleMatch looks up the affinity between the user's primary style and
// a content type.
func StyleMatch(style models.LearningStyle, contentType string) float64 {
	if m, ok := styleAffinity[style]; ok {
		if v, ok := m[contentType]; ok {
			return v
		}
	}
	return 0.5
}

// DifficultyFit scores content difficulty against the zone of proximal
// development: optimal is slightly above current skill.
func DifficultyFit(skillLevel, contentDifficulty float64) float64 {
	optimal := skillLevel + 0.1
	diff := contentDifficulty - optimal
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= 0.1:
		return 1.0
	case diff <= 0.2:
		return 0.8
	case diff <= 0.3:
		return 0.6
	default:
		return 0.3
	}
}

// GapRelevance scores topic overlap with known knowledge gaps. Either
// side empty scores the neutral 0.5; content touching none of the gaps
// keeps a small floor rather than zeroing out.
func GapRelevance(gaps, topics []string) float64 {
	if len(gaps) == 0 || len(topics) == 0 {
		return 0.5
	}
	overlap := intersectCount(gaps, topics)
	if overlap == 0 {
		return 0.2
	}
	return float64(overlap) / float64(len(gaps))
}

// EngagementPrediction estimates how engaging a content item will be
// for this user. Each feature contributes count times its coefficient;
// the clamp bounds the sum.
func EngagementPrediction(profile models.LearningProfile, item models.ContentItem) float64 {
	score := float64(item.InteractiveElements) * 0.3
	media := float64(len(item.MediaTypes)) * 0.1
	if profile.Accommodations.SensitiveToDistractions {
		media *= 0.5
	}
	score += media
	score += item.PersonalizationLevel * 0.2
	score += float64(item.SocialFeatures) * 0.1
	score += float64(item.GamificationElements) * 0.2
	score += profile.AveragePerformance() * 0.1
	return clamp01(score)
}

// NoveltyScore is 0 for completed content, 1 for users without topic
// history, otherwise the unseen fraction of the item's topics.
func NoveltyScore(profile models.LearningProfile, item models.ContentItem) float64 {
	for _, id := range profile.CompletedContent {
		if id == item.ID {
			return 0
		}
	}
	if len(profile.CompletedTopics) == 0 {
		return 1
	}
	topics := itemTopics(item)
	if len(topics) == 0 {
		return 1
	}
	overlap := intersectCount(profile.CompletedTopics, topics)
	return 1 - float64(overlap)/float64(len(topics))
}

// Score computes the weighted factor blend for one item, adjusted for
// the current session context and clamped to [0,1].
func (e *Engine) Score(profile models.LearningProfile, item models.ContentItem, ctx *models.SessionContext) float64 {
	w := e.Weights()
	score := w.StyleMatch*StyleMatch(profile.PrimaryStyle, item.ContentType) +
		w.DifficultyFit*DifficultyFit(profile.SkillLevel, item.DifficultyLevel) +
		w.GapRelevance*GapRelevance(profile.KnowledgeGaps, itemTopics(item)) +
		w.Engagement*EngagementPrediction(profile, item) +
		w.Novelty*NoveltyScore(profile, item)
	return clamp01(applyContext(score, item, ctx))
}

func applyContext(score float64, item models.ContentItem, ctx *models.SessionContext) float64 {
	if ctx == nil {
		return score
	}
	if ctx.TimeAvailable > 0 {
		if item.EstimatedDuration > ctx.TimeAvailable {
			score *= 0.3
		} else if item.EstimatedDuration*2 <= ctx.TimeAvailable {
			score *= 1.1
		}
	}
	if ctx.CurrentPerformance != nil {
		if *ctx.CurrentPerformance < 0.5 && item.DifficultyLevel > 0.6 {
			score *= 0.7
		} else if *ctx.CurrentPerformance > 0.8 && item.DifficultyLevel < 0.4 {
			score *= 0.8
		}
	}
	demanding := item.ContentType == "interactive" || item.ContentType == "hands_on"
	if demanding {
		switch ctx.EnergyLevel {
		case "low":
			score *= 0.8
		case "high":
			score *= 1.2
		}
	}
	return score
}

// Rank scores all candidates, orders them, applies the diversity
// filter and attaches reasoning. At most k recommendations return.
func (e *Engine) Rank(profile models.LearningProfile, items []models.ContentItem, ctx *models.SessionContext, k int) []models.Recommendation {
	if k <= 0 || len(items) == 0 {
		return nil
	}

	type scored struct {
		item  models.ContentItem
		score float64
	}
	cands := make([]scored, 0, len(items))
	for _, it := range items {
		cands = append(cands, scored{item: it, score: e.Score(profile, it, ctx)})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].item.ID < cands[j].item.ID
	})

	// Diversity is judged over the top 2k candidates; a pool that
	// already fits the target needs no filtering.
	pool := cands
	if len(pool) > 2*k {
		pool = pool[:2*k]
	}
	var selected []scored
	if len(pool) <= k {
		selected = pool
	} else {
		usedTopics := make(map[string]bool)
		usedTypes := make(map[string]bool)
		for _, c := range pool {
			topics := itemTopics(c.item)
			overlap := 0
			for _, t := range topics {
				if usedTopics[t] {
					overlap++
				}
			}
			if len(selected) < k/2 || (overlap <= 1 && !usedTypes[c.item.ContentType]) {
				selected = append(selected, c)
				for _, t := range topics {
					usedTopics[t] = true
				}
				usedTypes[c.item.ContentType] = true
				if len(selected) >= k {
					break
				}
			}
		}
	}
	recs := make([]models.Recommendation, 0, len(selected))
	for _, s := range selected {
		recs = append(recs, models.Recommendation{
			ContentID:        s.item.ID,
			Title:            s.item.Title,
			ContentType:      s.item.ContentType,
			Topic:            s.item.Topic,
			Score:            s.score,
			EstimatedBenefit: EstimateBenefit(profile, s.item),
			Confidence:       Confidence(profile),
			Reasoning:        e.Explain(profile, s.item, s.score),
		})
	}
	return recs
}

// Explain builds the human-readable reasoning for one recommendation.
func (e *Engine) Explain(profile models.LearningProfile, item models.ContentItem, score float64) models.Reasoning {
	var reasons []string
	if StyleMatch(profile.PrimaryStyle, item.ContentType) > 0.8 {
		reasons = append(reasons, fmt.Sprintf("matches your %s learning style", profile.PrimaryStyle))
	}
	if overlap := intersect(profile.KnowledgeGaps, itemTopics(item)); len(overlap) > 0 {
		reasons = append(reasons, fmt.Sprintf("addresses knowledge gaps: %v", overlap))
	}
	if DifficultyFit(profile.SkillLevel, item.DifficultyLevel) >= 0.8 {
		reasons = append(reasons, "at the right difficulty for your current level")
	}

	r := models.Reasoning{PrimaryReason: "recommended for your learning goals"}
	if len(reasons) > 0 {
		r.PrimaryReason = reasons[0]
		r.SupportingFactors = reasons[1:]
	}
	switch {
	case score > 0.8:
		r.ConfidenceLevel = "high"
	case score > 0.6:
		r.ConfidenceLevel = "medium"
	default:
		r.ConfidenceLevel = "low"
	}
	return r
}

// EstimateBenefit predicts learning benefit independent of ranking
// score: gap coverage, skill advancement headroom, style match and
// engagement.
func EstimateBenefit(profile models.LearningProfile, item models.ContentItem) float64 {
	benefit := 0.0
	if intersectCount(profile.KnowledgeGaps, itemTopics(item)) > 0 {
		benefit += 0.4
	}
	if adv := item.DifficultyLevel - profile.SkillLevel; adv > 0 {
		if adv > 0.3 {
			adv = 0.3
		}
		benefit += adv
	}
	benefit += StyleMatch(profile.PrimaryStyle, item.ContentType) * 0.2
	benefit += EngagementPrediction(profile, item) * 0.1
	return clamp01(benefit)
}

// Confidence blends profile confidence with how much history backs it.
func Confidence(profile models.LearningProfile) float64 {
	history := float64(len(profile.CompletedContent)) / 10.0
	if history > 1 {
		history = 1
	}
	return clamp01((profile.Confidence + history) / 2)
}

func itemTopics(item models.ContentItem) []string {
	if len(item.Topics) > 0 {
		return item.Topics
	}
	if item.Topic != "" {
		return []string{item.Topic}
	}
	return nil
}

func intersect(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, x := range a {
		set[x] = true
	}
	var out []string
	for _, y := range b {
		if set[y] {
			out = append(out, y)
			set[y] = false
		}
	}
	return out
}

func intersectCount(a, b []string) int {
	return len(intersect(a, b))
}

func clamp01(v float64) float64 {
	return clampRange(v, 0, 1)
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
