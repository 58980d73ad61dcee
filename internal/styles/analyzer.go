package styles

import (
	"math"
	"time"

	"github.com/adaptive-learn/backend/internal/models"
)

// Learning-style analysis from session telemetry. Scores are additive
// per-session signals; the aggregate blends performance by content
// category (70%) with behavioural signals (30%).

const (
	// EMAAlpha weights a single new session in an incremental profile
	// update.
	EMAAlpha = 0.1

	// ConfidenceIncrement is added per incremental update, capped at 1.
	ConfidenceIncrement = 0.05

	// FullConfidenceSessions is the history size at which aggregate
	// confidence saturates.
	FullConfidenceSessions = 20
)

// Content-type category membership used for performance attribution.
var (
	visualContent      = map[string]bool{"video": true, "diagram": true, "infographic": true, "image": true, "chart": true}
	auditoryContent    = map[string]bool{"audio": true, "podcast": true, "lecture": true, "discussion": true}
	kinestheticContent = map[string]bool{"interactive": true, "simulation": true, "hands_on": true, "exercise": true}
)

// ScoreSession extracts per-style behavioural signals from one session.
// Contributions are additive and each component is bounded, so results
// stay well inside [0,1].
func ScoreSession(s models.Session) models.StyleScores {
	var sc models.StyleScores

	switch {
	case s.ContentType == "diagram" || s.ContentType == "chart" || s.ContentType == "infographic" || s.ContentType == "video":
		sc.Visual += 0.3
	case s.ContentType == "audio" || s.ContentType == "podcast" || s.ContentType == "lecture":
		sc.Auditory += 0.3
	case s.ContentType == "interactive" || s.ContentType == "simulation" || s.ContentType == "hands_on":
		sc.Kinesthetic += 0.3
	}

	if (s.ContentType == "video" || s.ContentType == "diagram") && s.Engagement > 0.7 {
		sc.Visual += 0.2
	}
	if (s.ContentType == "text" || s.ContentType == "lecture") && s.Duration < 300 {
		// Short text/lecture sessions suggest a preference for doing
		// over reading or listening.
		sc.Kinesthetic += 0.1
	}

	if s.Interactions.NoteTaking {
		sc.Visual += 0.1
	}
	if s.Interactions.AudioReplays > 1 {
		sc.Auditory += 0.1
	}
	if s.Interactions.InteractiveElements > 3 {
		sc.Kinesthetic += 0.1
	}

	sc.Visual = clamp01(sc.Visual)
	sc.Auditory = clamp01(sc.Auditory)
	sc.Kinesthetic = clamp01(sc.Kinesthetic)
	return sc
}

// AggregateProfile builds a full profile from session history. An empty
// history yields DefaultProfile.
func AggregateProfile(sessions []models.Session) models.LearningProfile {
	if len(sessions) == 0 {
		return DefaultProfile()
	}

	perf := performanceByStyle(sessions)

	var behavior models.StyleScores
	for _, s := range sessions {
		sc := ScoreSession(s)
		behavior.Visual += sc.Visual
		behavior.Auditory += sc.Auditory
		behavior.Kinesthetic += sc.Kinesthetic
	}
	n := float64(len(sessions))

	var combined models.StyleScores
	for _, style := range models.StyleOrder {
		v := 0.7*perf.Get(style) + 0.3*(behavior.Get(style)/n)
		combined.Set(style, clamp01(v))
	}

	acc := DetectAccommodations(sessions)
	primary := combined.Primary()

	return models.LearningProfile{
		PrimaryStyle:     primary,
		StyleScores:      combined,
		Confidence:       math.Min(1.0, n/FullConfidenceSessions),
		Accommodations:   acc,
		Recommendations:  StyleRecommendations(primary, acc),
		SessionsAnalyzed: len(sessions),
		LastUpdated:      time.Now().UTC(),
	}
}

// performanceByStyle averages performance over the sessions whose
// content type belongs to each style's category. A style with no
// matching sessions scores 0.
func performanceByStyle(sessions []models.Session) models.StyleScores {
	var sum models.StyleScores
	var count [3]int
	for _, s := range sessions {
		switch {
		case visualContent[s.ContentType]:
			sum.Visual += s.Performance
			count[0]++
		case auditoryContent[s.ContentType]:
			sum.Auditory += s.Performance
			count[1]++
		case kinestheticContent[s.ContentType]:
			sum.Kinesthetic += s.Performance
			count[2]++
		}
	}
	var out models.StyleScores
	if count[0] > 0 {
		out.Visual = sum.Visual / float64(count[0])
	}
	if count[1] > 0 {
		out.Auditory = sum.Auditory / float64(count[1])
	}
	if count[2] > 0 {
		out.Kinesthetic = sum.Kinesthetic / float64(count[2])
	}
	return out
}

// UpdateProfile folds one new session into an existing profile with an
// exponential moving average. Scores stay in [0,1] because both inputs
// are in [0,1].
func UpdateProfile(p models.LearningProfile, s models.Session) models.LearningProfile {
	sc := ScoreSession(s)
	for _, style := range models.StyleOrder {
		v := (1-EMAAlpha)*p.StyleScores.Get(style) + EMAAlpha*sc.Get(style)
		p.StyleScores.Set(style, clamp01(v))
	}
	p.Confidence = math.Min(1.0, p.Confidence+ConfidenceIncrement)
	p.PrimaryStyle = p.StyleScores.Primary()
	p.Recommendations = StyleRecommendations(p.PrimaryStyle, p.Accommodations)
	p.SessionsAnalyzed++
	p.LastUpdated = time.Now().UTC()
	return p
}

// DetectAccommodations derives learning accommodations from observed
// session patterns.
func DetectAccommodations(sessions []models.Session) models.Accommodations {
	var acc models.Accommodations
	if len(sessions) == 0 {
		return acc
	}

	durations := make([]float64, 0, len(sessions))
	perfs := make([]float64, 0, len(sessions))
	ratios := make([]float64, 0, len(sessions))
	seen := make(map[string]int)
	for _, s := range sessions {
		durations = append(durations, float64(s.Duration))
		perfs = append(perfs, s.Performance)
		if s.EstimatedDuration > 0 {
			ratios = append(ratios, float64(s.Duration)/float64(s.EstimatedDuration))
		}
		if s.ContentID != "" {
			seen[s.ContentID]++
		}
	}

	if mean(durations) < 600 {
		acc.NeedsBreaks = true
	}
	if stddev(perfs) > 0.3 {
		acc.SensitiveToDistractions = true
	}
	if len(ratios) > 0 && mean(ratios) > 1.5 {
		acc.NeedsExtraTime = true
	}
	for _, c := range seen {
		if c > 3 {
			acc.BenefitsFromRepetition = true
			break
		}
	}
	return acc
}

// DefaultProfile is the cold-start profile for users without history.
func DefaultProfile() models.LearningProfile {
	acc := models.Accommodations{
		PrefersStructure:         true,
		PrefersClearInstructions: true,
	}
	return models.LearningProfile{
		PrimaryStyle: models.StyleVisual,
		StyleScores: models.StyleScores{
			Visual:      0.4,
			Auditory:    0.3,
			Kinesthetic: 0.3,
		},
		Confidence:      0.1,
		Accommodations:  acc,
		Recommendations: StyleRecommendations(models.StyleVisual, acc),
		LastUpdated:     time.Now().UTC(),
	}
}

// StyleRecommendations returns plain-language study advice for a style,
// extended by detected accommodations.
func StyleRecommendations(style models.LearningStyle, acc models.Accommodations) []string {
	var recs []string
	switch style {
	case models.StyleAuditory:
		recs = []string{
			"Listen to audio explanations and podcasts on new topics",
			"Read material aloud or discuss it with others",
			"Use recorded summaries for review",
		}
	case models.StyleKinesthetic:
		recs = []string{
			"Prefer interactive exercises and simulations over reading",
			"Practice with hands-on examples as soon as possible",
			"Break study into short active blocks",
		}
	default:
		recs = []string{
			"Use diagrams, charts and concept maps when studying",
			"Watch video explanations before reading dense text",
			"Highlight and colour-code notes",
		}
	}
	if acc.NeedsBreaks {
		recs = append(recs, "Schedule short breaks between study blocks")
	}
	if acc.BenefitsFromRepetition {
		recs = append(recs, "Revisit material multiple times in spaced intervals")
	}
	if acc.SensitiveToDistractions {
		recs = append(recs, "Study in a quiet environment with minimal multimedia")
	}
	if acc.NeedsExtraTime {
		recs = append(recs, "Plan extra time beyond content estimates")
	}
	return recs
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the population standard deviation.
func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}
