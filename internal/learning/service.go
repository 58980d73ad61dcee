package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/adaptive-learn/backend/internal/adapt"
	"github.com/adaptive-learn/backend/internal/generator"
	"github.com/adaptive-learn/backend/internal/models"
	"github.com/adaptive-learn/backend/internal/recommend"
	"github.com/adaptive-learn/backend/internal/styles"
)

const (
	// skillAlpha weights a new session's performance in the per-topic
	// skill EMA.
	skillAlpha = 0.2

	completionIncrement = 0.1

	// styleWindow caps how much history a full style analysis reads.
	styleWindow = 50

	replayEvery = 10
	replayBatch = 32

	defaultRecommendationCount = 5
	maxRecommendationCount     = 20
	candidatePoolSize          = 200
)

// Service orchestrates session recording, profiling, recommendation,
// realtime adaptation and content generation.
type Service struct {
	store  *Store
	engine *recommend.Engine
	agents *adapt.Registry
	gen    *generator.Generator
}

func NewService(store *Store, gen *generator.Generator) *Service {
	s := &Service{
		store:  store,
		engine: recommend.NewEngine(),
		gen:    gen,
	}
	s.agents = adapt.NewRegistry(func(userID int64) (adapt.PersistedState, bool) {
		st, ok, err := store.LoadAgentState(userID)
		if err != nil {
			log.Printf("[learning] WARN: load agent state for user %d: %v", userID, err)
			return adapt.PersistedState{}, false
		}
		return st, ok
	})
	return s
}

// ── Session recording ───────────────────────────────────

// RecordSession persists a session and runs the learning pipeline:
// progress EMA, style profile refresh, agent training, periodic
// replay.
func (s *Service) RecordSession(userID int64, req models.RecordSessionRequest) (*models.RecordSessionResponse, error) {
	sess := models.Session{
		UserID:            userID,
		SessionType:       req.SessionType,
		ContentType:       req.ContentType,
		ContentID:         req.ContentID,
		Topic:             req.Topic,
		Duration:          req.Duration,
		EstimatedDuration: req.EstimatedDuration,
		Performance:       req.Performance,
		Engagement:        req.Engagement,
		Difficulty:        req.Difficulty,
		Interactions:      req.Interactions,
		Feedback:          req.Feedback,
	}
	if sess.SessionType == "" {
		sess.SessionType = models.SessionStudy
	}

	id, err := s.store.CreateSession(sess)
	if err != nil {
		return nil, fmt.Errorf("record session: %w", err)
	}
	sess.ID = id
	sess.CreatedAt = time.Now().UTC()

	progress, err := s.updateProgress(userID, sess)
	if err != nil {
		return nil, err
	}

	profile, err := s.refreshProfile(userID, sess)
	if err != nil {
		return nil, err
	}

	trained, err := s.trainAgent(userID, sess, profile)
	if err != nil {
		log.Printf("[learning] WARN: agent training for user %d: %v", userID, err)
	}

	count, err := s.store.CountSessions(userID)
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	replayed := false
	if trained && count%replayEvery == 0 {
		agent := s.agents.ForUser(userID)
		replayed = agent.Replay(replayBatch) > 0
	}
	if trained {
		if err := s.store.SaveAgentState(userID, s.agents.ForUser(userID).Export()); err != nil {
			log.Printf("[learning] WARN: persist agent state for user %d: %v", userID, err)
		}
	}

	return &models.RecordSessionResponse{
		SessionID:      id,
		Progress:       progress,
		Profile:        profile,
		AgentTrained:   trained,
		ReplayedBatch:  replayed,
		SessionsOnFile: count,
	}, nil
}

// updateProgress folds a session into the per-topic progress row:
// skill EMA, bounded completion increment, time accumulation and
// gap/strength bookkeeping.
func (s *Service) updateProgress(userID int64, sess models.Session) (*models.TopicProgress, error) {
	if sess.Topic == "" {
		return nil, nil
	}

	p, err := s.store.GetProgress(userID, sess.Topic)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &models.TopicProgress{
			UserID:     userID,
			Topic:      sess.Topic,
			SkillLevel: 0.5,
		}
	}
	if sess.ContentType != "" && p.Subject == "" {
		p.Subject = sess.ContentType
	}

	p.SkillLevel = clamp01((1-skillAlpha)*p.SkillLevel + skillAlpha*sess.Performance)
	p.CompletionRate = clamp01(p.CompletionRate + completionIncrement)
	p.TimeSpent += sess.Duration / 60

	switch {
	case sess.Performance < 0.4:
		p.KnowledgeGaps = appendUnique(p.KnowledgeGaps, sess.Topic)
		p.Strengths = removeString(p.Strengths, sess.Topic)
	case sess.Performance > 0.8:
		p.Strengths = appendUnique(p.Strengths, sess.Topic)
		p.KnowledgeGaps = removeString(p.KnowledgeGaps, sess.Topic)
	}

	if err := s.store.UpsertProgress(*p); err != nil {
		return nil, err
	}
	return p, nil
}

// refreshProfile folds the session into the stored style profile, or
// bootstraps one from history when none exists.
func (s *Service) refreshProfile(userID int64, sess models.Session) (models.LearningProfile, error) {
	profile, ok, err := s.store.GetProfile(userID)
	if err != nil {
		return models.LearningProfile{}, err
	}
	if ok {
		profile = styles.UpdateProfile(profile, sess)
	} else {
		sessions, err := s.store.RecentSessions(userID, styleWindow)
		if err != nil {
			return models.LearningProfile{}, err
		}
		profile = styles.AggregateProfile(sessions)
	}
	if err := s.store.SaveProfile(userID, profile); err != nil {
		return models.LearningProfile{}, err
	}
	return profile, nil
}

// trainAgent runs one Q-learning step on the transition from the
// previous session to this one. The action credited is the last
// adaptation applied to the previous session; without one, the
// transition is attributed to the implicit topic decision.
func (s *Service) trainAgent(userID int64, curr models.Session, profile models.LearningProfile) (bool, error) {
	prev, err := s.store.PreviousSession(userID, curr.ID)
	if err != nil {
		return false, err
	}
	if prev == nil {
		return false, nil
	}

	action := adapt.ActionRepeatContent
	if prev.Topic != curr.Topic {
		action = adapt.ActionAdvanceTopic
	}
	if n := len(prev.Adaptations); n > 0 {
		action = adapt.Action(prev.Adaptations[n-1].Action)
	}

	agent := s.agents.ForUser(userID)
	reward := agent.Reward(*prev, curr, action)
	agent.Update(adapt.StateKey(*prev, profile), action, reward, adapt.StateKey(curr, profile), false)
	return true, nil
}

// ── Style analysis ──────────────────────────────────────

// AnalyzeStyle rebuilds the learning-style profile from recent history
// and persists it.
func (s *Service) AnalyzeStyle(userID int64) (models.LearningProfile, error) {
	sessions, err := s.store.RecentSessions(userID, styleWindow)
	if err != nil {
		return models.LearningProfile{}, fmt.Errorf("analyze style: %w", err)
	}
	profile := styles.AggregateProfile(sessions)
	if err := s.store.SaveProfile(userID, profile); err != nil {
		return models.LearningProfile{}, fmt.Errorf("analyze style: %w", err)
	}
	return profile, nil
}

// StyleProfile returns the stored profile, or the default profile for
// users not yet analysed.
func (s *Service) StyleProfile(userID int64) (models.LearningProfile, error) {
	profile, ok, err := s.store.GetProfile(userID)
	if err != nil {
		return models.LearningProfile{}, err
	}
	if !ok {
		return styles.DefaultProfile(), nil
	}
	// Advice strings are derived, not stored.
	profile.Recommendations = styles.StyleRecommendations(profile.PrimaryStyle, profile.Accommodations)
	return profile, nil
}

// ── Profile assembly ────────────────────────────────────

// buildProfile assembles the full recommendation profile: stored style
// signal plus knowledge state from progress rows and session history.
func (s *Service) buildProfile(userID int64) (models.LearningProfile, error) {
	profile, ok, err := s.store.GetProfile(userID)
	if err != nil {
		return models.LearningProfile{}, err
	}
	if !ok {
		profile = styles.DefaultProfile()
	} else {
		profile.Recommendations = styles.StyleRecommendations(profile.PrimaryStyle, profile.Accommodations)
	}

	progress, err := s.store.ListProgress(userID)
	if err != nil {
		return models.LearningProfile{}, err
	}
	if len(progress) > 0 {
		sum := 0.0
		for _, p := range progress {
			sum += p.SkillLevel
			profile.KnowledgeGaps = appendAllUnique(profile.KnowledgeGaps, p.KnowledgeGaps)
			profile.Strengths = appendAllUnique(profile.Strengths, p.Strengths)
			if p.CompletionRate >= 0.8 {
				profile.CompletedTopics = appendUnique(profile.CompletedTopics, p.Topic)
			}
		}
		profile.SkillLevel = sum / float64(len(progress))
	} else {
		profile.SkillLevel = 0.5
	}

	completed, err := s.store.CompletedContent(userID, 100)
	if err != nil {
		return models.LearningProfile{}, err
	}
	profile.CompletedContent = completed

	recent, err := s.store.RecentSessions(userID, 20)
	if err != nil {
		return models.LearningProfile{}, err
	}
	for i := len(recent) - 1; i >= 0; i-- {
		profile.RecentPerformance = append(profile.RecentPerformance, models.PerformanceRecord{
			Topic: recent[i].Topic,
			Score: recent[i].Performance,
			At:    recent[i].CreatedAt,
		})
	}

	history, err := s.store.SkillHistory(userID, 20)
	if err != nil {
		return models.LearningProfile{}, err
	}
	profile.ProgressHistory = history

	return profile, nil
}

// ── Recommendations ─────────────────────────────────────

func (s *Service) Recommendations(userID int64, req models.RecommendationsRequest) (*models.RecommendationsResponse, error) {
	count := req.Count
	if count <= 0 {
		count = defaultRecommendationCount
	}
	if count > maxRecommendationCount {
		count = maxRecommendationCount
	}

	profile, err := s.buildProfile(userID)
	if err != nil {
		return nil, fmt.Errorf("recommendations: %w", err)
	}
	items, err := s.store.ListActiveContent(candidatePoolSize)
	if err != nil {
		return nil, fmt.Errorf("recommendations: %w", err)
	}

	recs := s.engine.Rank(profile, items, req.Context, count)
	for i := range recs {
		logID, err := s.store.LogRecommendation(userID, recs[i], req.Context)
		if err != nil {
			log.Printf("[learning] WARN: log recommendation for user %d: %v", userID, err)
			continue
		}
		recs[i].LogID = logID
	}

	return &models.RecommendationsResponse{
		Recommendations: recs,
		Profile:         profile,
		GeneratedAt:     time.Now().UTC(),
	}, nil
}

// RecommendationFeedback records a rating and folds it into the
// scoring weights. Returns false when the recommendation is unknown.
func (s *Service) RecommendationFeedback(userID, recID int64, rating int) (bool, error) {
	ok, err := s.store.RateRecommendation(recID, userID, rating)
	if err != nil || !ok {
		return ok, err
	}
	s.engine.RecordFeedback(rating)
	return true, nil
}

// LearningPath sequences available content toward the user's goals
// under a minute budget.
func (s *Service) LearningPath(userID int64, goals []string, timeAvailable int) (*models.LearningPath, error) {
	profile, err := s.buildProfile(userID)
	if err != nil {
		return nil, fmt.Errorf("learning path: %w", err)
	}
	progress, err := s.store.ListProgress(userID)
	if err != nil {
		return nil, fmt.Errorf("learning path: %w", err)
	}
	items, err := s.store.ListActiveContent(candidatePoolSize)
	if err != nil {
		return nil, fmt.Errorf("learning path: %w", err)
	}
	path := recommend.BuildLearningPath(profile, progress, goals, timeAvailable, items)
	return &path, nil
}

// ReviewQueue builds the forgetting-curve review queue.
func (s *Service) ReviewQueue(userID int64) ([]models.ReviewItem, error) {
	profile, err := s.buildProfile(userID)
	if err != nil {
		return nil, fmt.Errorf("review queue: %w", err)
	}
	daysSince, err := s.store.DaysSinceTopicAccess(userID)
	if err != nil {
		return nil, fmt.Errorf("review queue: %w", err)
	}
	return recommend.ReviewRecommendations(profile, daysSince), nil
}

// ── Realtime adaptation ─────────────────────────────────

// Adapt evaluates the current session snapshot and applies the agent's
// chosen action. Returns nil when the session does not exist.
func (s *Service) Adapt(userID int64, req models.AdaptRequest) (*models.AdaptResponse, error) {
	sess, err := s.store.GetSession(userID, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("adapt: %w", err)
	}
	if sess == nil {
		return nil, nil
	}

	snapshot := *sess
	snapshot.Performance = req.CurrentPerformance
	snapshot.Engagement = req.CurrentEngagement
	if req.ElapsedSeconds > 0 {
		snapshot.Duration = req.ElapsedSeconds
	}

	profile, err := s.buildProfile(userID)
	if err != nil {
		return nil, fmt.Errorf("adapt: %w", err)
	}

	agent := s.agents.ForUser(userID)
	state := adapt.StateKey(snapshot, profile)
	action, exploratory := agent.SelectAction(state, adapt.Actions)

	options := agent.Recommendations(state, profile, 0)
	var applied models.AdaptationOption
	var alternatives []models.AdaptationOption
	for _, o := range options {
		if o.Action == string(action) {
			applied = o
		} else if len(alternatives) < 2 {
			alternatives = append(alternatives, o)
		}
	}

	newDifficulty := snapshot.Difficulty
	if applied.Params.DifficultyDelta != 0 {
		newDifficulty = clampRange(snapshot.Difficulty+applied.Params.DifficultyDelta, 0.1, 1.0)
	}

	record := models.AppliedAdaptation{Action: string(action), AppliedAt: time.Now().UTC()}
	var diffPtr *float64
	if newDifficulty != snapshot.Difficulty {
		diffPtr = &newDifficulty
	}
	if err := s.store.AppendAdaptation(sess.ID, record, diffPtr); err != nil {
		return nil, fmt.Errorf("adapt: %w", err)
	}

	return &models.AdaptResponse{
		State:         state,
		Applied:       applied,
		Alternatives:  alternatives,
		NewDifficulty: newDifficulty,
		Exploratory:   exploratory,
	}, nil
}

// ── Content generation ──────────────────────────────────

// GenerateContent produces personalised content via the LLM, falling
// back to templates on failure. The stored row records which path
// produced it.
func (s *Service) GenerateContent(ctx context.Context, userID int64, req models.GenerateContentRequest) (*models.LearningContent, error) {
	profile, err := s.buildProfile(userID)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	genReq := generator.Request{
		ContentType:    req.ContentType,
		Subject:        req.Subject,
		Topic:          req.Topic,
		Difficulty:     req.DifficultyLevel,
		Style:          profile.PrimaryStyle,
		Accommodations: profile.Accommodations,
		KnowledgeGaps:  profile.KnowledgeGaps,
		Strengths:      profile.Strengths,
		Objectives:     req.Objectives,
		QuestionCount:  req.QuestionCount,
		TimeAvailable:  req.TimeAvailable,
	}

	generatedBy := "llm"
	content, _, err := s.gen.Generate(ctx, genReq)
	if err != nil {
		log.Printf("[learning] WARN: LLM generation failed, using template: %v", err)
		content = generator.BuildFromTemplate(genReq)
		generatedBy = "template"
	}

	data, err := contentToMap(content)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	row := models.LearningContent{
		Title:              content.Title,
		Subject:            req.Subject,
		Topic:              content.Topic,
		ContentType:        content.ContentType,
		DifficultyLevel:    content.DifficultyLevel,
		EstimatedDuration:  content.EstimatedDuration,
		ContentData:        data,
		LearningObjectives: content.LearningObjectives,
		Personalization: map[string]any{
			"style":          string(profile.PrimaryStyle),
			"accommodations": profile.Accommodations,
		},
		GeneratedBy: generatedBy,
		IsActive:    true,
	}
	id, err := s.store.InsertContent(row)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	row.ID = id
	row.CreatedAt = time.Now().UTC()
	return &row, nil
}

func (s *Service) Content(id int64) (*models.LearningContent, error) {
	return s.store.GetContent(id)
}

func (s *Service) Progress(userID int64) ([]models.TopicProgress, error) {
	return s.store.ListProgress(userID)
}

// Analytics aggregates recent activity into the analytics report.
func (s *Service) Analytics(userID int64, days int) (*models.AnalyticsResponse, error) {
	sessions, err := s.store.SessionsSince(userID, days)
	if err != nil {
		return nil, fmt.Errorf("analytics: %w", err)
	}
	progress, err := s.store.ListProgress(userID)
	if err != nil {
		return nil, fmt.Errorf("analytics: %w", err)
	}
	report := BuildAnalytics(sessions, progress, days)
	return &report, nil
}

// ── Background maintenance ──────────────────────────────

// StartMaintenanceWorker periodically persists in-memory agent state.
func (s *Service) StartMaintenanceWorker(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		log.Printf("[learning] maintenance worker started (interval %v)", interval)
		for {
			select {
			case <-ctx.Done():
				log.Println("[learning] maintenance worker stopped")
				return
			case <-ticker.C:
				for _, userID := range s.agents.Loaded() {
					if err := s.store.SaveAgentState(userID, s.agents.ForUser(userID).Export()); err != nil {
						log.Printf("[learning] WARN: persist agent state for user %d: %v", userID, err)
					}
				}
			}
		}
	}()
}

// ── Helpers ─────────────────────────────────────────────

func contentToMap(c *generator.GeneratedContent) (map[string]any, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

func appendAllUnique(list []string, vs []string) []string {
	for _, v := range vs {
		list = appendUnique(list, v)
	}
	return list
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
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
