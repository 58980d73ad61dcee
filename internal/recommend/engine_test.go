package recommend

import (
	"math"
	"testing"

	"github.com/adaptive-learn/backend/internal/models"
)

const tol = 1e-9

func visualProfile() models.LearningProfile {
	return models.LearningProfile{
		PrimaryStyle: models.StyleVisual,
		StyleScores:  models.StyleScores{Visual: 0.6, Auditory: 0.2, Kinesthetic: 0.2},
		Confidence:   0.5,
		SkillLevel:   0.5,
	}
}

func TestStyleMatch(t *testing.T) {
	tests := []struct {
		style       models.LearningStyle
		contentType string
		want        float64
	}{
		{models.StyleVisual, "diagram", 1.0},
		{models.StyleVisual, "audio", 0.1},
		{models.StyleAuditory, "podcast", 0.95},
		{models.StyleKinesthetic, "simulation", 0.95},
		{models.StyleVisual, "unknown_type", 0.5},
		{models.StyleKinesthetic, "diagram", 0.5},
	}
	for _, tt := range tests {
		if got := StyleMatch(tt.style, tt.contentType); math.Abs(got-tt.want) > tol {
			t.Errorf("StyleMatch(%s, %s) = %.2f, want %.2f", tt.style, tt.contentType, got, tt.want)
		}
	}
}

func TestDifficultyFit(t *testing.T) {
	tests := []struct {
		name       string
		skill      float64
		difficulty float64
		want       float64
	}{
		{"at optimal", 0.5, 0.6, 1.0},
		{"within one step", 0.5, 0.55, 1.0},
		{"slightly off", 0.5, 0.78, 0.8},
		{"moderately off", 0.5, 0.35, 0.6},
		{"far off", 0.5, 0.32, 0.6},
		{"way too hard", 0.2, 0.9, 0.3},
		{"way too easy", 0.8, 0.1, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DifficultyFit(tt.skill, tt.difficulty); math.Abs(got-tt.want) > tol {
				t.Errorf("DifficultyFit(%.2f, %.2f) = %.2f, want %.2f", tt.skill, tt.difficulty, got, tt.want)
			}
		})
	}
}

func TestGapRelevance(t *testing.T) {
	tests := []struct {
		name   string
		gaps   []string
		topics []string
		want   float64
	}{
		{"single gap fully covered", []string{"loops"}, []string{"loops"}, 1.0},
		{"half covered", []string{"loops", "recursion"}, []string{"loops"}, 0.5},
		{"no gaps neutral", nil, []string{"loops"}, 0.5},
		{"no topics neutral", []string{"loops"}, nil, 0.5},
		{"no overlap floor", []string{"loops"}, []string{"pointers"}, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GapRelevance(tt.gaps, tt.topics); math.Abs(got-tt.want) > tol {
				t.Errorf("GapRelevance = %.2f, want %.2f", got, tt.want)
			}
		})
	}
}

func TestNoveltyScore(t *testing.T) {
	p := visualProfile()
	p.CompletedContent = []string{"c1"}
	p.CompletedTopics = []string{"loops", "variables"}

	item := models.ContentItem{ID: "c1", Topics: []string{"pointers"}}
	if got := NoveltyScore(p, item); got != 0 {
		t.Errorf("completed content novelty = %.2f, want 0", got)
	}

	item = models.ContentItem{ID: "c2", Topics: []string{"loops", "pointers"}}
	if got := NoveltyScore(p, item); math.Abs(got-0.5) > tol {
		t.Errorf("half-seen topics novelty = %.2f, want 0.5", got)
	}

	fresh := visualProfile()
	if got := NoveltyScore(fresh, item); got != 1 {
		t.Errorf("no-history novelty = %.2f, want 1", got)
	}
}

func TestEngagementPredictionScalesWithCounts(t *testing.T) {
	p := visualProfile()

	item := models.ContentItem{ID: "a", InteractiveElements: 3}
	// 3 elements contribute 3x their coefficient, plus the 0.5 default
	// performance factor.
	want := 3*0.3 + 0.5*0.1
	if got := EngagementPrediction(p, item); math.Abs(got-want) > tol {
		t.Errorf("engagement = %.4f, want %.4f", got, want)
	}

	item = models.ContentItem{ID: "b", SocialFeatures: 2, GamificationElements: 2}
	want = clamp01(2*0.1 + 2*0.2 + 0.5*0.1)
	if got := EngagementPrediction(p, item); math.Abs(got-want) > tol {
		t.Errorf("engagement = %.4f, want %.4f", got, want)
	}

	// Richer features must not score below a sparser version of the
	// same item until the clamp saturates.
	sparse := models.ContentItem{ID: "c", GamificationElements: 1}
	rich := models.ContentItem{ID: "c", GamificationElements: 3}
	if EngagementPrediction(p, rich) <= EngagementPrediction(p, sparse) {
		t.Error("more gamification elements should predict more engagement")
	}
}

func TestSessionContextAdjustment(t *testing.T) {
	e := NewEngine()
	p := visualProfile()
	item := models.ContentItem{
		ID:                "c1",
		ContentType:       "video",
		DifficultyLevel:   0.6,
		EstimatedDuration: 60,
	}

	base := e.Score(p, item, nil)
	ctx := &models.SessionContext{TimeAvailable: 30}
	constrained := e.Score(p, item, ctx)
	if math.Abs(constrained-base*0.3) > tol {
		t.Errorf("over-length content: got %.4f, want %.4f", constrained, base*0.3)
	}

	// Short content relative to available time gets a mild boost.
	item.EstimatedDuration = 10
	short := e.Score(p, item, ctx)
	base = e.Score(p, item, nil)
	if math.Abs(short-clamp01(base*1.1)) > tol {
		t.Errorf("short content: got %.4f, want %.4f", short, base*1.1)
	}

	// Struggling right now: hard content penalised.
	perf := 0.3
	item.EstimatedDuration = 60
	item.DifficultyLevel = 0.8
	ctx = &models.SessionContext{CurrentPerformance: &perf}
	base = e.Score(p, item, nil)
	if got := e.Score(p, item, ctx); math.Abs(got-base*0.7) > tol {
		t.Errorf("struggling + hard content: got %.4f, want %.4f", got, base*0.7)
	}

	// Low energy penalises demanding content types.
	item = models.ContentItem{ID: "c2", ContentType: "hands_on", DifficultyLevel: 0.5, EstimatedDuration: 20}
	base = e.Score(p, item, nil)
	ctx = &models.SessionContext{EnergyLevel: "low"}
	if got := e.Score(p, item, ctx); math.Abs(got-base*0.8) > tol {
		t.Errorf("low energy: got %.4f, want %.4f", got, base*0.8)
	}
}

func TestScoreInUnitRange(t *testing.T) {
	e := NewEngine()
	p := visualProfile()
	p.KnowledgeGaps = []string{"loops"}
	items := []models.ContentItem{
		{ID: "a", ContentType: "diagram", DifficultyLevel: 0.6, Topics: []string{"loops"}, InteractiveElements: 3, MediaTypes: []string{"video", "audio", "text"}, PersonalizationLevel: 1, SocialFeatures: 2, GamificationElements: 2},
		{ID: "b", ContentType: "audio", DifficultyLevel: 0.95},
	}
	ctx := &models.SessionContext{TimeAvailable: 120, EnergyLevel: "high"}
	for _, it := range items {
		if s := e.Score(p, it, ctx); s < 0 || s > 1 {
			t.Errorf("score(%s) = %.4f out of [0,1]", it.ID, s)
		}
	}
}

func TestRankReturnsAtMostK(t *testing.T) {
	e := NewEngine()
	p := visualProfile()
	items := []models.ContentItem{
		{ID: "a", ContentType: "video", Topic: "loops", DifficultyLevel: 0.6},
		{ID: "b", ContentType: "diagram", Topic: "recursion", DifficultyLevel: 0.6},
		{ID: "c", ContentType: "text", Topic: "pointers", DifficultyLevel: 0.5},
		{ID: "d", ContentType: "interactive", Topic: "arrays", DifficultyLevel: 0.6},
		{ID: "e", ContentType: "chart", Topic: "maps", DifficultyLevel: 0.7},
	}

	recs := e.Rank(p, items, nil, 3)
	if len(recs) > 3 {
		t.Fatalf("got %d recommendations, want <= 3", len(recs))
	}
	ids := make(map[string]bool)
	for _, it := range items {
		ids[it.ID] = true
	}
	for _, r := range recs {
		if !ids[r.ContentID] {
			t.Errorf("recommendation %q is not a candidate", r.ContentID)
		}
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].Score > recs[i-1].Score {
			t.Errorf("recommendations not ordered by score at %d", i)
		}
	}
}

func TestRankDiversity(t *testing.T) {
	e := NewEngine()
	p := visualProfile()
	// Six near-identical items on the same topic and type; diversity
	// should stop the list from being all clones.
	var items []models.ContentItem
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		items = append(items, models.ContentItem{
			ID: id, ContentType: "video", Topic: "loops", DifficultyLevel: 0.6,
		})
	}
	recs := e.Rank(p, items, nil, 4)
	if len(recs) >= 4 {
		t.Errorf("expected diversity filter to reject same-type same-topic clones, got %d", len(recs))
	}
}

func TestRankDiversityCountsTopicOverlap(t *testing.T) {
	e := NewEngine()
	p := visualProfile()
	// The visual affinity table orders these diagram > video > text.
	// The video item shares two topics with the accumulated set, so the
	// filter must skip it in favour of the fresh-topic item.
	items := []models.ContentItem{
		{ID: "a", ContentType: "video", Topics: []string{"loops", "recursion"}, DifficultyLevel: 0.6},
		{ID: "b", ContentType: "diagram", Topics: []string{"loops", "recursion", "arrays"}, DifficultyLevel: 0.6},
		{ID: "c", ContentType: "text", Topics: []string{"pointers"}, DifficultyLevel: 0.6},
	}

	recs := e.Rank(p, items, nil, 2)
	if len(recs) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(recs))
	}
	if recs[0].ContentID != "b" || recs[1].ContentID != "c" {
		t.Errorf("selected %s, %s; want b, c", recs[0].ContentID, recs[1].ContentID)
	}
}

func TestRankSmallPoolSkipsDiversityFilter(t *testing.T) {
	e := NewEngine()
	p := visualProfile()
	// A pool no larger than the target returns whole, clones included.
	var items []models.ContentItem
	for _, id := range []string{"a", "b", "c"} {
		items = append(items, models.ContentItem{
			ID: id, ContentType: "video", Topic: "loops", DifficultyLevel: 0.6,
		})
	}
	recs := e.Rank(p, items, nil, 3)
	if len(recs) != 3 {
		t.Errorf("got %d recommendations, want all 3", len(recs))
	}
}

func TestAdjustWeights(t *testing.T) {
	w := DefaultWeights()
	w.Adjust(5)
	sum := w.StyleMatch + w.DifficultyFit + w.GapRelevance + w.Engagement + w.Novelty
	if math.Abs(sum-1.0) > tol {
		t.Errorf("weights sum = %.6f after positive feedback, want 1", sum)
	}

	w = DefaultWeights()
	for i := 0; i < 100; i++ {
		w.Adjust(1)
	}
	sum = w.StyleMatch + w.DifficultyFit + w.GapRelevance + w.Engagement + w.Novelty
	if math.Abs(sum-1.0) > tol {
		t.Errorf("weights sum = %.6f after repeated negative feedback, want 1", sum)
	}
	for _, v := range []float64{w.StyleMatch, w.DifficultyFit, w.GapRelevance, w.Engagement, w.Novelty} {
		if v <= 0 {
			t.Errorf("weight collapsed to %.4f", v)
		}
	}

	w = DefaultWeights()
	before := w
	w.Adjust(3)
	if w != before {
		t.Error("neutral rating should not change weights")
	}
}

func TestEstimateBenefit(t *testing.T) {
	p := visualProfile()
	p.KnowledgeGaps = []string{"loops"}

	item := models.ContentItem{ID: "a", ContentType: "diagram", Topics: []string{"loops"}, DifficultyLevel: 0.7}
	b := EstimateBenefit(p, item)
	// 0.4 gap + 0.2 advancement + 1.0*0.2 style, engagement adds a little.
	if b < 0.8 || b > 1 {
		t.Errorf("benefit = %.4f, want in [0.8, 1]", b)
	}

	dull := models.ContentItem{ID: "b", ContentType: "audio", Topics: []string{"pointers"}, DifficultyLevel: 0.2}
	if db := EstimateBenefit(p, dull); db >= b {
		t.Errorf("irrelevant easy content benefit %.4f should rank below %.4f", db, b)
	}
}
