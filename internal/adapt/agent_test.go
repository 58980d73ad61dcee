package adapt

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/adaptive-learn/backend/internal/models"
)

const tol = 1e-9

func TestDiscretize(t *testing.T) {
	tests := []struct {
		v    float64
		bins int
		want int
	}{
		{0.0, 5, 0},
		{0.19, 5, 0},
		{0.2, 5, 1},
		{0.99, 5, 4},
		{1.0, 5, 4},
		{1.7, 4, 3}, // time ratio spans [0,2]
		{2.0, 4, 3},
		{-0.5, 5, 0},
		{0.5, 3, 1},
	}
	for _, tt := range tests {
		if got := discretize(tt.v, tt.bins); got != tt.want {
			t.Errorf("discretize(%.2f, %d) = %d, want %d", tt.v, tt.bins, got, tt.want)
		}
	}
}

func TestStateKeyShape(t *testing.T) {
	s := models.Session{
		ContentType:       "video",
		Duration:          1800,
		EstimatedDuration: 1200,
		Performance:       0.75,
		Engagement:        0.6,
		Difficulty:        0.5,
	}
	p := models.LearningProfile{PrimaryStyle: models.StyleVisual}

	key := StateKey(s, p)
	parts := strings.Split(key, "_")
	if len(parts) != 8 {
		t.Fatalf("state key %q has %d features, want 8", key, len(parts))
	}
	// Same inputs, same key.
	if again := StateKey(s, p); again != key {
		t.Errorf("state key not deterministic: %q vs %q", key, again)
	}
	// A materially different session lands in a different state.
	s.Performance = 0.1
	if other := StateKey(s, p); other == key {
		t.Errorf("distinct performance bucketed into same state %q", key)
	}
}

func TestEpsilonDecaySchedule(t *testing.T) {
	a := NewAgent()
	for n := 1; n <= 1200; n++ {
		a.Update("s", ActionAddBreak, 0.5, "s2", false)
		want := math.Max(minEpsilon, defaultEpsilon*math.Pow(epsilonDecay, float64(n)))
		if math.Abs(a.Epsilon()-want) > tol {
			t.Fatalf("epsilon after %d updates = %.6f, want %.6f", n, a.Epsilon(), want)
		}
	}
	if a.Epsilon() != minEpsilon {
		t.Errorf("epsilon should floor at %.2f, got %.6f", minEpsilon, a.Epsilon())
	}
}

func TestQUpdateMovesTowardTarget(t *testing.T) {
	a := NewAgent()
	a.Update("s1", ActionProvideHint, 1.0, "s2", false)

	// Fresh next state has maxQ 0, so target is the raw reward.
	want := defaultLearningRate * 1.0
	if got := a.QValue("s1", ActionProvideHint); math.Abs(got-want) > tol {
		t.Errorf("q after first update = %.4f, want %.4f", got, want)
	}
}

func TestQUpdateNoOp(t *testing.T) {
	a := NewAgent()
	// Drive q("s", action) to a known value, then feed the exact
	// self-consistent reward: target == current leaves q unchanged.
	a.Update("s", ActionAddBreak, 0.5, "terminal", true)
	q := a.QValue("s", ActionAddBreak)

	reward := q - gamma*a.maxQ("next")
	a.Update("s", ActionAddBreak, reward, "next", false)
	if got := a.QValue("s", ActionAddBreak); math.Abs(got-q) > tol {
		t.Errorf("self-consistent update changed q: %.6f -> %.6f", q, got)
	}
}

func TestSelectActionGreedy(t *testing.T) {
	a := NewAgent()
	a.epsilon = 0

	a.q["s"] = map[Action]float64{
		ActionAddBreak:    0.2,
		ActionProvideHint: 0.9,
		ActionShowExample: 0.9, // tie with provide_hint
	}
	got, exploratory := a.SelectAction("s", []Action{ActionAddBreak, ActionProvideHint, ActionShowExample})
	if exploratory {
		t.Error("epsilon 0 should never explore")
	}
	if got != ActionProvideHint {
		t.Errorf("greedy tie-break = %s, want provide_hint (earliest max)", got)
	}

	// Unknown state: all q zero, earliest available action wins.
	got, _ = a.SelectAction("unseen", []Action{ActionGamifyContent, ActionAddBreak})
	if got != ActionGamifyContent {
		t.Errorf("unseen state pick = %s, want first available", got)
	}
}

func TestSelectActionExplores(t *testing.T) {
	a := NewAgent()
	a.epsilon = 1.0
	a.q["s"] = map[Action]float64{ActionAddBreak: 5.0}

	seen := make(map[Action]bool)
	for i := 0; i < 500; i++ {
		act, exploratory := a.SelectAction("s", Actions)
		if !exploratory {
			t.Fatal("epsilon 1 should always explore")
		}
		seen[act] = true
	}
	if len(seen) < 5 {
		t.Errorf("exploration visited only %d actions", len(seen))
	}
}

func TestRewardNeutralTransition(t *testing.T) {
	a := NewAgent()
	prev := models.Session{Performance: 0.6, Engagement: 0.6, Duration: 1200}
	curr := models.Session{Performance: 0.6, Engagement: 0.6, Duration: 1200}

	// All sigmoid components sit at 0.5, retention defaults to 0.5,
	// satisfaction is (0.6+0.6)/2.
	want := 0.3*0.5 + 0.25*0.5 + 0.2*0.5 + 0.15*0.5 + 0.1*0.6
	if got := a.Reward(prev, curr, ActionRepeatContent); math.Abs(got-want) > tol {
		t.Errorf("neutral reward = %.4f, want %.4f", got, want)
	}
}

func TestRewardImprovement(t *testing.T) {
	a := NewAgent()
	prev := models.Session{Performance: 0.4, Engagement: 0.4, Duration: 1200}
	better := models.Session{Performance: 0.9, Engagement: 0.8, Duration: 1200}
	worse := models.Session{Performance: 0.1, Engagement: 0.2, Duration: 1200}

	up := a.Reward(prev, better, ActionRepeatContent)
	down := a.Reward(prev, worse, ActionRepeatContent)
	if up <= down {
		t.Errorf("improvement reward %.4f should exceed regression reward %.4f", up, down)
	}
}

func TestRewardFeedbackOverridesSatisfaction(t *testing.T) {
	a := NewAgent()
	prev := models.Session{Performance: 0.5, Engagement: 0.5, Duration: 1200}
	curr := models.Session{Performance: 0.5, Engagement: 0.5, Duration: 1200}

	base := a.Reward(prev, curr, ActionRepeatContent)
	curr.Feedback = &models.SessionFeedback{Rating: 5}
	rated := a.Reward(prev, curr, ActionRepeatContent)

	// Satisfaction moves from 0.5 to 1.0, weighted 0.1.
	if math.Abs((rated-base)-0.05) > tol {
		t.Errorf("rating delta = %.4f, want 0.05", rated-base)
	}
}

func TestRewardReviewRetention(t *testing.T) {
	a := NewAgent()
	prev := models.Session{Performance: 0.5, Engagement: 0.5, Duration: 1200}
	curr := models.Session{Performance: 0.9, Engagement: 0.5, Duration: 1200, SessionType: models.SessionReview}

	study := curr
	study.SessionType = models.SessionStudy
	if a.Reward(prev, curr, ActionReviewPrevious) <= a.Reward(prev, study, ActionReviewPrevious) {
		t.Error("strong review performance should be rewarded above the study baseline")
	}
}

func TestActionBonus(t *testing.T) {
	tests := []struct {
		name    string
		action  Action
		session models.Session
		want    float64
	}{
		{"raise difficulty on strong performance", ActionIncreaseDifficulty, models.Session{Performance: 0.9}, 0.1},
		{"raise difficulty while struggling", ActionIncreaseDifficulty, models.Session{Performance: 0.5}, -0.1},
		{"lower difficulty while struggling", ActionDecreaseDifficulty, models.Session{Performance: 0.3}, 0.1},
		{"lower difficulty needlessly", ActionDecreaseDifficulty, models.Session{Performance: 0.7}, -0.1},
		{"break after a long session", ActionAddBreak, models.Session{Duration: 2400}, 0.05},
		{"break after a short session", ActionAddBreak, models.Session{Duration: 600}, 0},
		{"hint while struggling", ActionProvideHint, models.Session{Performance: 0.4}, 0.05},
		{"gamify disengaged session", ActionGamifyContent, models.Session{Engagement: 0.3}, 0.1},
		{"neutral action", ActionAdvanceTopic, models.Session{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := actionBonus(tt.action, tt.session); math.Abs(got-tt.want) > tol {
				t.Errorf("bonus = %.2f, want %.2f", got, tt.want)
			}
		})
	}
}

func TestReplayRequiresFullBatch(t *testing.T) {
	a := NewAgent()
	for i := 0; i < 5; i++ {
		a.Update(fmt.Sprintf("s%d", i), ActionAddBreak, 0.5, "next", false)
	}
	if n := a.Replay(32); n != 0 {
		t.Errorf("replay with underfull buffer replayed %d, want 0", n)
	}
	if n := a.Replay(5); n != 5 {
		t.Errorf("replay = %d, want 5", n)
	}
}

func TestReplayDoesNotGrowBufferOrDecayEpsilon(t *testing.T) {
	a := NewAgent()
	for i := 0; i < 40; i++ {
		a.Update(fmt.Sprintf("s%d", i), ActionProvideHint, 0.5, "next", false)
	}
	eps := a.Epsilon()
	before := a.BufferLen()

	a.Replay(32)
	if a.BufferLen() != before {
		t.Errorf("replay changed buffer length %d -> %d", before, a.BufferLen())
	}
	if a.Epsilon() != eps {
		t.Errorf("replay changed epsilon %.6f -> %.6f", eps, a.Epsilon())
	}
}

func TestExperienceBufferCap(t *testing.T) {
	a := NewAgent()
	for i := 0; i < bufferCapacity+50; i++ {
		a.Update("s", ActionAddBreak, 0.5, "next", false)
	}
	if a.BufferLen() != bufferCapacity {
		t.Errorf("buffer length = %d, want cap %d", a.BufferLen(), bufferCapacity)
	}
}

func TestQTableEviction(t *testing.T) {
	a := NewAgent()
	for i := 0; i < maxTrackedStates+200; i++ {
		a.Update(fmt.Sprintf("state_%d", i), ActionAddBreak, 0.5, "shared_next", false)
	}
	a.mu.Lock()
	size := len(a.q)
	a.mu.Unlock()
	if size > maxTrackedStates {
		t.Errorf("q table holds %d states, cap is %d", size, maxTrackedStates)
	}
}

func TestFatigueLevel(t *testing.T) {
	p := models.LearningProfile{}
	if got := FatigueLevel(models.Session{Duration: 1800}, p); math.Abs(got-0.5) > tol {
		t.Errorf("30min fatigue = %.2f, want 0.5", got)
	}
	if got := FatigueLevel(models.Session{Duration: 7200}, p); got != 1 {
		t.Errorf("2h fatigue = %.2f, want 1", got)
	}
	p.Accommodations.NeedsBreaks = true
	if got := FatigueLevel(models.Session{Duration: 1800}, p); math.Abs(got-0.75) > tol {
		t.Errorf("30min fatigue with breaks accommodation = %.2f, want 0.75", got)
	}
}

func TestRetentionLevel(t *testing.T) {
	p := models.LearningProfile{}
	if got := RetentionLevel(p); math.Abs(got-0.7) > tol {
		t.Errorf("no-history retention = %.2f, want 0.7", got)
	}
	for _, s := range []float64{0.1, 0.1, 0.8, 0.8, 0.8, 0.8, 0.8} {
		p.RecentPerformance = append(p.RecentPerformance, models.PerformanceRecord{Topic: "t", Score: s})
	}
	// Only the last five count.
	if got := RetentionLevel(p); math.Abs(got-0.8) > tol {
		t.Errorf("retention = %.2f, want 0.8", got)
	}
}

func TestLearningVelocity(t *testing.T) {
	p := models.LearningProfile{}
	if got := LearningVelocity(p); math.Abs(got-0.5) > tol {
		t.Errorf("no-history velocity = %.2f, want 0.5", got)
	}
	p.ProgressHistory = []models.ProgressPoint{
		{SkillLevel: 0.2}, {SkillLevel: 0.3}, {SkillLevel: 0.4},
	}
	if got := LearningVelocity(p); math.Abs(got-0.6) > tol {
		t.Errorf("rising velocity = %.2f, want 0.6", got)
	}
	p.ProgressHistory = []models.ProgressPoint{
		{SkillLevel: 0.6}, {SkillLevel: 0.5}, {SkillLevel: 0.4},
	}
	if got := LearningVelocity(p); math.Abs(got-0.4) > tol {
		t.Errorf("falling velocity = %.2f, want 0.4", got)
	}
}

func TestRecommendationsRankedByQ(t *testing.T) {
	a := NewAgent()
	a.q["s"] = map[Action]float64{
		ActionProvideHint:  0.9,
		ActionAddBreak:     0.4,
		ActionAdvanceTopic: -0.2,
	}
	opts := a.Recommendations("s", models.LearningProfile{PrimaryStyle: models.StyleKinesthetic}, 3)
	if len(opts) != 3 {
		t.Fatalf("got %d options, want 3", len(opts))
	}
	if opts[0].Action != string(ActionProvideHint) {
		t.Errorf("top action = %s, want provide_hint", opts[0].Action)
	}
	for i := 1; i < len(opts); i++ {
		if opts[i].QValue > opts[i-1].QValue {
			t.Errorf("options not sorted by q at %d", i)
		}
	}
	for _, o := range opts {
		if o.Explanation == "" {
			t.Errorf("action %s missing explanation", o.Action)
		}
	}
}

func TestActionParams(t *testing.T) {
	p := models.LearningProfile{PrimaryStyle: models.StyleAuditory}
	if got := actionParams(ActionChangeContentType, p).NewContentType; got != "audio" {
		t.Errorf("auditory content switch = %s, want audio", got)
	}
	if got := actionParams(ActionIncreaseDifficulty, p).DifficultyDelta; math.Abs(got-0.1) > tol {
		t.Errorf("difficulty delta = %.2f, want 0.1", got)
	}
	if got := actionParams(ActionAddBreak, p).BreakMinutes; got != 5 {
		t.Errorf("break minutes = %d, want 5", got)
	}
}

func TestExportRestoreRoundTrip(t *testing.T) {
	a := NewAgent()
	a.Update("s1", ActionProvideHint, 0.8, "s2", false)
	a.Update("s2", ActionAdvanceTopic, 0.6, "s3", false)

	st := a.Export()
	b := NewAgent()
	b.Restore(st)

	if got, want := b.QValue("s1", ActionProvideHint), a.QValue("s1", ActionProvideHint); math.Abs(got-want) > tol {
		t.Errorf("restored q = %.4f, want %.4f", got, want)
	}
	if b.Epsilon() != a.Epsilon() {
		t.Errorf("restored epsilon = %.6f, want %.6f", b.Epsilon(), a.Epsilon())
	}
	if b.Steps() != a.Steps() {
		t.Errorf("restored steps = %d, want %d", b.Steps(), a.Steps())
	}
}
