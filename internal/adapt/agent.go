package adapt

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adaptive-learn/backend/internal/models"
	"github.com/adaptive-learn/backend/internal/recommend"
)

// Tabular Q-learning over discretised session state. One agent per
// user; all methods are safe for concurrent use and updates for a
// given user are serialised by the agent's mutex.

type Action string

const (
	ActionIncreaseDifficulty Action = "increase_difficulty"
	ActionDecreaseDifficulty Action = "decrease_difficulty"
	ActionChangeContentType  Action = "change_content_type"
	ActionAddBreak           Action = "add_break"
	ActionProvideHint        Action = "provide_hint"
	ActionShowExample        Action = "show_example"
	ActionRepeatContent      Action = "repeat_content"
	ActionAdvanceTopic       Action = "advance_topic"
	ActionReviewPrevious     Action = "review_previous"
	ActionGamifyContent      Action = "gamify_content"
)

// Actions is the fixed action enumeration. Greedy ties resolve to the
// earliest entry.
var Actions = []Action{
	ActionIncreaseDifficulty,
	ActionDecreaseDifficulty,
	ActionChangeContentType,
	ActionAddBreak,
	ActionProvideHint,
	ActionShowExample,
	ActionRepeatContent,
	ActionAdvanceTopic,
	ActionReviewPrevious,
	ActionGamifyContent,
}

const (
	defaultEpsilon      = 0.1
	defaultLearningRate = 0.1
	gamma               = 0.95
	epsilonDecay        = 0.995
	minEpsilon          = 0.01
	minLearningRate     = 0.01
	maxLearningRate     = 0.3

	bufferCapacity   = 10000
	maxTrackedStates = 4096

	perfRewardScale = 2.0
	engRewardScale  = 2.0
	effRewardScale  = 1.0
)

// Experience is one stored transition for replay.
type Experience struct {
	State     string
	Action    Action
	Reward    float64
	NextState string
	Done      bool
}

type Agent struct {
	mu           sync.Mutex
	epsilon      float64
	learningRate float64
	q            map[string]map[Action]float64
	touched      map[string]int64
	tick         int64
	buffer       []Experience
	bufferNext   int
	bufferFull   bool
	recentReward []float64
	steps        int
	rng          *rand.Rand
}

func NewAgent() *Agent {
	return &Agent{
		epsilon:      defaultEpsilon,
		learningRate: defaultLearningRate,
		q:            make(map[string]map[Action]float64),
		touched:      make(map[string]int64),
		buffer:       make([]Experience, 0, 256),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (a *Agent) Epsilon() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.epsilon
}

func (a *Agent) LearningRate() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.learningRate
}

func (a *Agent) Steps() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.steps
}

// StateKey discretises a session plus profile into the agent's state
// string: eight features joined by underscores.
func StateKey(s models.Session, profile models.LearningProfile) string {
	timeRatio := 1.0
	if s.EstimatedDuration > 0 {
		timeRatio = float64(s.Duration) / float64(s.EstimatedDuration)
		if timeRatio > 2.0 {
			timeRatio = 2.0
		}
	}
	features := []int{
		discretize(s.Performance, 5),
		discretize(s.Engagement, 5),
		discretize(timeRatio, 4),
		discretize(s.Difficulty, 5),
		discretize(recommend.StyleMatch(profile.PrimaryStyle, s.ContentType), 3),
		discretize(FatigueLevel(s, profile), 3),
		discretize(RetentionLevel(profile), 4),
		discretize(LearningVelocity(profile), 4),
	}
	parts := make([]string, len(features))
	for i, f := range features {
		parts[i] = strconv.Itoa(f)
	}
	return strings.Join(parts, "_")
}

// discretize maps a value into one of bins buckets by flooring v*bins,
// clamped to the valid index range. Values above 1 land in the top
// bucket unless bins covers them (time ratio spans [0,2]).
func discretize(v float64, bins int) int {
	b := int(v * float64(bins))
	if b < 0 {
		return 0
	}
	if b > bins-1 {
		return bins - 1
	}
	return b
}

// FatigueLevel estimates fatigue from session length, amplified for
// users who need breaks.
func FatigueLevel(s models.Session, profile models.LearningProfile) float64 {
	f := float64(s.Duration) / 3600.0
	if f > 1 {
		f = 1
	}
	if profile.Accommodations.NeedsBreaks {
		f *= 1.5
		if f > 1 {
			f = 1
		}
	}
	return f
}

// RetentionLevel is the mean of the last five performance records,
// 0.7 without history.
func RetentionLevel(profile models.LearningProfile) float64 {
	recs := profile.RecentPerformance
	if len(recs) == 0 {
		return 0.7
	}
	if len(recs) > 5 {
		recs = recs[len(recs)-5:]
	}
	sum := 0.0
	for _, r := range recs {
		sum += r.Score
	}
	return sum / float64(len(recs))
}

// LearningVelocity maps recent skill-level deltas into [0,1] with 0.5
// meaning flat progress.
func LearningVelocity(profile models.LearningProfile) float64 {
	pts := profile.ProgressHistory
	if len(pts) > 5 {
		pts = pts[len(pts)-5:]
	}
	if len(pts) < 2 {
		return 0.5
	}
	sum := 0.0
	for i := 1; i < len(pts); i++ {
		sum += pts[i].SkillLevel - pts[i-1].SkillLevel
	}
	avg := sum / float64(len(pts)-1)
	v := avg + 0.5
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SelectAction picks epsilon-greedily from the available actions. The
// boolean reports whether the choice was exploratory.
func (a *Agent) SelectAction(state string, available []Action) (Action, bool) {
	if len(available) == 0 {
		available = Actions
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.rng.Float64() < a.epsilon {
		return available[a.rng.Intn(len(available))], true
	}

	best := available[0]
	bestQ := a.qValue(state, best)
	for _, act := range available[1:] {
		if q := a.qValue(state, act); q > bestQ {
			best, bestQ = act, q
		}
	}
	return best, false
}

// qValue reads with the lock held.
func (a *Agent) qValue(state string, action Action) float64 {
	if row, ok := a.q[state]; ok {
		return row[action]
	}
	return 0
}

func (a *Agent) QValue(state string, action Action) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.qValue(state, action)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// efficiency is performance per half-hour block, never rewarding
// stretching a session out.
func efficiency(s models.Session) float64 {
	blocks := float64(s.Duration) / 60.0 / 30.0
	if blocks < 1 {
		blocks = 1
	}
	return s.Performance / blocks
}

// Reward computes the multi-component reward for the transition from
// prev to curr under action. Sigmoid squashing keeps every delta
// component in (0,1).
func (a *Agent) Reward(prev, curr models.Session, action Action) float64 {
	perf := sigmoid((curr.Performance - prev.Performance) * perfRewardScale)
	eng := sigmoid((curr.Engagement - prev.Engagement) * engRewardScale)
	eff := sigmoid((efficiency(curr) - efficiency(prev)) * effRewardScale)

	retention := 0.5
	if curr.SessionType == models.SessionReview {
		retention = curr.Performance * 1.2
		if retention > 1 {
			retention = 1
		}
	}

	satisfaction := (curr.Engagement + curr.Performance) / 2
	if curr.Feedback != nil && curr.Feedback.Rating > 0 {
		satisfaction = float64(curr.Feedback.Rating) / 5.0
	}

	return 0.3*perf + 0.25*eng + 0.2*eff + 0.15*retention + 0.1*satisfaction +
		actionBonus(action, curr)
}

func actionBonus(action Action, s models.Session) float64 {
	switch action {
	case ActionIncreaseDifficulty:
		if s.Performance > 0.8 {
			return 0.1
		}
		return -0.1
	case ActionDecreaseDifficulty:
		if s.Performance < 0.4 {
			return 0.1
		}
		return -0.1
	case ActionAddBreak:
		if s.Duration > 1800 {
			return 0.05
		}
	case ActionProvideHint:
		if s.Performance < 0.6 {
			return 0.05
		}
	case ActionGamifyContent:
		if s.Engagement < 0.5 {
			return 0.1
		}
	}
	return 0
}

// Update applies one Q-learning step, stores the experience and runs
// the adaptive parameter schedule.
func (a *Agent) Update(state string, action Action, reward float64, nextState string, done bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.applyUpdate(state, action, reward, nextState, done, a.learningRate)
	a.remember(Experience{State: state, Action: action, Reward: reward, NextState: nextState, Done: done})

	a.steps++
	a.recentReward = append(a.recentReward, reward)
	if len(a.recentReward) > 10 {
		a.recentReward = a.recentReward[1:]
	}
	a.adaptParameters()
}

// applyUpdate runs the Bellman update with the lock held.
func (a *Agent) applyUpdate(state string, action Action, reward float64, nextState string, done bool, lr float64) {
	target := reward
	if !done {
		target += gamma * a.maxQ(nextState)
	}
	row, ok := a.q[state]
	if !ok {
		row = make(map[Action]float64, len(Actions))
		a.q[state] = row
	}
	row[action] += lr * (target - row[action])
	a.touch(state)
	if !done {
		a.touch(nextState)
	}
}

func (a *Agent) maxQ(state string) float64 {
	row, ok := a.q[state]
	if !ok || len(row) == 0 {
		return 0
	}
	best := math.Inf(-1)
	for _, v := range row {
		if v > best {
			best = v
		}
	}
	return best
}

// touch records state recency and evicts the coldest state when the
// table outgrows its cap.
func (a *Agent) touch(state string) {
	a.tick++
	a.touched[state] = a.tick
	if len(a.q) <= maxTrackedStates {
		return
	}
	coldest := ""
	coldestTick := int64(math.MaxInt64)
	for s := range a.q {
		if t := a.touched[s]; t < coldestTick {
			coldest, coldestTick = s, t
		}
	}
	if coldest != "" {
		delete(a.q, coldest)
		delete(a.touched, coldest)
	}
}

// remember appends to the FIFO ring, overwriting the oldest entry once
// capacity is reached.
func (a *Agent) remember(e Experience) {
	if !a.bufferFull && len(a.buffer) < bufferCapacity {
		a.buffer = append(a.buffer, e)
		if len(a.buffer) == bufferCapacity {
			a.bufferFull = true
		}
		return
	}
	a.buffer[a.bufferNext] = e
	a.bufferNext = (a.bufferNext + 1) % bufferCapacity
}

func (a *Agent) BufferLen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buffer)
}

// adaptParameters decays epsilon and tunes the learning rate from the
// recent reward trend, with the lock held.
func (a *Agent) adaptParameters() {
	a.epsilon *= epsilonDecay
	if a.epsilon < minEpsilon {
		a.epsilon = minEpsilon
	}
	if len(a.recentReward) < 10 {
		return
	}
	sum := 0.0
	for _, r := range a.recentReward {
		sum += r
	}
	avg := sum / float64(len(a.recentReward))
	if avg > 0.7 {
		a.learningRate *= 0.99
	} else if avg < 0.3 {
		a.learningRate *= 1.01
	}
	if a.learningRate < minLearningRate {
		a.learningRate = minLearningRate
	}
	if a.learningRate > maxLearningRate {
		a.learningRate = maxLearningRate
	}
}

// Replay re-applies a random batch of stored experiences at half the
// current learning rate, sampled without replacement. Returns how many
// experiences were replayed.
func (a *Agent) Replay(batchSize int) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if batchSize <= 0 || len(a.buffer) < batchSize {
		return 0
	}
	lr := a.learningRate * 0.5
	for _, idx := range a.rng.Perm(len(a.buffer))[:batchSize] {
		e := a.buffer[idx]
		a.applyUpdate(e.State, e.Action, e.Reward, e.NextState, e.Done, lr)
	}
	return batchSize
}

// Recommendations ranks all actions for a state by Q-value, attaching
// an explanation and implementation parameters.
func (a *Agent) Recommendations(state string, profile models.LearningProfile, topN int) []models.AdaptationOption {
	a.mu.Lock()
	opts := make([]models.AdaptationOption, 0, len(Actions))
	for _, act := range Actions {
		opts = append(opts, models.AdaptationOption{
			Action:      string(act),
			QValue:      a.qValue(state, act),
			Explanation: explainAction(act),
			Params:      actionParams(act, profile),
		})
	}
	a.mu.Unlock()

	// Stable insertion keeps enumeration order on ties.
	for i := 1; i < len(opts); i++ {
		for j := i; j > 0 && opts[j].QValue > opts[j-1].QValue; j-- {
			opts[j], opts[j-1] = opts[j-1], opts[j]
		}
	}
	if topN > 0 && len(opts) > topN {
		opts = opts[:topN]
	}
	return opts
}

func explainAction(a Action) string {
	switch a {
	case ActionIncreaseDifficulty:
		return "you are performing well, harder material will keep you challenged"
	case ActionDecreaseDifficulty:
		return "easier material should rebuild momentum"
	case ActionChangeContentType:
		return "a different content format may suit you better right now"
	case ActionAddBreak:
		return "a short break should restore focus"
	case ActionProvideHint:
		return "a hint can unblock the current problem"
	case ActionShowExample:
		return "a worked example can clarify the approach"
	case ActionRepeatContent:
		return "repeating this material should consolidate it"
	case ActionAdvanceTopic:
		return "you are ready to move to the next topic"
	case ActionReviewPrevious:
		return "revisiting earlier material should firm up the basics"
	case ActionGamifyContent:
		return "game elements can lift engagement"
	default:
		return ""
	}
}

func actionParams(a Action, profile models.LearningProfile) models.ActionParams {
	p := models.ActionParams{Type: string(a)}
	switch a {
	case ActionIncreaseDifficulty:
		p.DifficultyDelta = 0.1
	case ActionDecreaseDifficulty:
		p.DifficultyDelta = -0.1
	case ActionChangeContentType:
		p.NewContentType = preferredContentType(profile.PrimaryStyle)
	case ActionAddBreak:
		p.BreakMinutes = 5
	case ActionProvideHint:
		p.HintLevel = "gentle"
	case ActionShowExample:
		p.Elements = []string{"worked_example"}
	case ActionGamifyContent:
		p.Elements = []string{"points", "badges", "progress_bar"}
	}
	return p
}

func preferredContentType(style models.LearningStyle) string {
	switch style {
	case models.StyleAuditory:
		return "audio"
	case models.StyleKinesthetic:
		return "interactive"
	default:
		return "diagram"
	}
}
