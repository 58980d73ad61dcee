package learning

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/adaptive-learn/backend/internal/adapt"
	"github.com/adaptive-learn/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Sessions ────────────────────────────────────────────

func (s *Store) CreateSession(sess models.Session) (int64, error) {
	feedback, err := jsonOrNull(sess.Feedback)
	if err != nil {
		return 0, fmt.Errorf("marshal feedback: %w", err)
	}

	var id int64
	err = s.db.QueryRow(
		`INSERT INTO learning_sessions
		 (user_id, session_type, content_type, content_id, topic, duration, estimated_duration,
		  performance_score, engagement_score, difficulty_level,
		  note_taking, audio_replays, interactive_elements, user_feedback)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id`,
		sess.UserID, sess.SessionType, sess.ContentType, sess.ContentID, sess.Topic,
		sess.Duration, sess.EstimatedDuration,
		sess.Performance, sess.Engagement, sess.Difficulty,
		sess.Interactions.NoteTaking, sess.Interactions.AudioReplays,
		sess.Interactions.InteractiveElements, feedback,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

const sessionCols = `id, user_id, session_type, content_type, content_id, topic,
	duration, estimated_duration, performance_score, engagement_score, difficulty_level,
	note_taking, audio_replays, interactive_elements, adaptations, user_feedback, created_at`

func (s *Store) scanSession(row interface{ Scan(...any) error }) (*models.Session, error) {
	var sess models.Session
	var adaptations, feedback []byte
	err := row.Scan(&sess.ID, &sess.UserID, &sess.SessionType, &sess.ContentType,
		&sess.ContentID, &sess.Topic, &sess.Duration, &sess.EstimatedDuration,
		&sess.Performance, &sess.Engagement, &sess.Difficulty,
		&sess.Interactions.NoteTaking, &sess.Interactions.AudioReplays,
		&sess.Interactions.InteractiveElements, &adaptations, &feedback, &sess.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(adaptations) > 0 {
		if err := json.Unmarshal(adaptations, &sess.Adaptations); err != nil {
			return nil, fmt.Errorf("unmarshal adaptations: %w", err)
		}
	}
	if len(feedback) > 0 {
		if err := json.Unmarshal(feedback, &sess.Feedback); err != nil {
			return nil, fmt.Errorf("unmarshal feedback: %w", err)
		}
	}
	return &sess, nil
}

func (s *Store) GetSession(userID, sessionID int64) (*models.Session, error) {
	row := s.db.QueryRow(
		fmt.Sprintf(`SELECT %s FROM learning_sessions WHERE id = $1 AND user_id = $2`, sessionCols),
		sessionID, userID,
	)
	sess, err := s.scanSession(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// RecentSessions returns the user's latest sessions, newest first.
func (s *Store) RecentSessions(userID int64, limit int) ([]models.Session, error) {
	rows, err := s.db.Query(
		fmt.Sprintf(`SELECT %s FROM learning_sessions
		 WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, sessionCols),
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		sess, err := s.scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// SessionsSince returns sessions from the last N days, oldest first,
// for analytics aggregation.
func (s *Store) SessionsSince(userID int64, days int) ([]models.Session, error) {
	rows, err := s.db.Query(
		fmt.Sprintf(`SELECT %s FROM learning_sessions
		 WHERE user_id = $1 AND created_at >= NOW() - make_interval(days => $2)
		 ORDER BY created_at ASC, id ASC`, sessionCols),
		userID, days,
	)
	if err != nil {
		return nil, fmt.Errorf("sessions since: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		sess, err := s.scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// PreviousSession returns the session recorded immediately before the
// given one, or nil for the user's first session.
func (s *Store) PreviousSession(userID, beforeID int64) (*models.Session, error) {
	row := s.db.QueryRow(
		fmt.Sprintf(`SELECT %s FROM learning_sessions
		 WHERE user_id = $1 AND id < $2 ORDER BY id DESC LIMIT 1`, sessionCols),
		userID, beforeID,
	)
	sess, err := s.scanSession(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("previous session: %w", err)
	}
	return sess, nil
}

func (s *Store) CountSessions(userID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM learning_sessions WHERE user_id = $1`, userID,
	).Scan(&count)
	return count, err
}

// AppendAdaptation records an applied adaptation on the session row and
// optionally moves its difficulty.
func (s *Store) AppendAdaptation(sessionID int64, applied models.AppliedAdaptation, newDifficulty *float64) error {
	entry, err := json.Marshal([]models.AppliedAdaptation{applied})
	if err != nil {
		return fmt.Errorf("marshal adaptation: %w", err)
	}
	if newDifficulty != nil {
		_, err = s.db.Exec(
			`UPDATE learning_sessions
			 SET adaptations = COALESCE(adaptations, '[]'::jsonb) || $1::jsonb,
			     difficulty_level = $2
			 WHERE id = $3`,
			entry, *newDifficulty, sessionID,
		)
	} else {
		_, err = s.db.Exec(
			`UPDATE learning_sessions
			 SET adaptations = COALESCE(adaptations, '[]'::jsonb) || $1::jsonb
			 WHERE id = $2`,
			entry, sessionID,
		)
	}
	return err
}

// ── Learning style profile ──────────────────────────────

func (s *Store) SaveProfile(userID int64, p models.LearningProfile) error {
	scores, err := json.Marshal(p.StyleScores)
	if err != nil {
		return fmt.Errorf("marshal style scores: %w", err)
	}
	acc, err := json.Marshal(p.Accommodations)
	if err != nil {
		return fmt.Errorf("marshal accommodations: %w", err)
	}
	_, err = s.db.Exec(
		`UPDATE users
		 SET primary_style = $1, style_scores = $2, style_confidence = $3,
		     accommodations = $4, sessions_analyzed = $5, style_updated_at = NOW()
		 WHERE id = $6`,
		string(p.PrimaryStyle), scores, p.Confidence, acc, p.SessionsAnalyzed, userID,
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// GetProfile loads the persisted style profile. The boolean is false
// when no analysis has been stored yet.
func (s *Store) GetProfile(userID int64) (models.LearningProfile, bool, error) {
	var p models.LearningProfile
	var primary sql.NullString
	var scores, acc []byte
	var confidence sql.NullFloat64
	var analyzed sql.NullInt64
	var updated sql.NullTime

	err := s.db.QueryRow(
		`SELECT primary_style, style_scores, style_confidence, accommodations,
		        sessions_analyzed, style_updated_at
		 FROM users WHERE id = $1`,
		userID,
	).Scan(&primary, &scores, &confidence, &acc, &analyzed, &updated)
	if err != nil {
		return p, false, fmt.Errorf("get profile: %w", err)
	}
	if !primary.Valid || primary.String == "" {
		return p, false, nil
	}

	p.PrimaryStyle = models.LearningStyle(primary.String)
	p.Confidence = confidence.Float64
	p.SessionsAnalyzed = int(analyzed.Int64)
	if updated.Valid {
		p.LastUpdated = updated.Time
	}
	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &p.StyleScores); err != nil {
			return p, false, fmt.Errorf("unmarshal style scores: %w", err)
		}
	}
	if len(acc) > 0 {
		if err := json.Unmarshal(acc, &p.Accommodations); err != nil {
			return p, false, fmt.Errorf("unmarshal accommodations: %w", err)
		}
	}
	return p, true, nil
}

// ── Topic progress ──────────────────────────────────────

func (s *Store) GetProgress(userID int64, topic string) (*models.TopicProgress, error) {
	p, err := s.scanProgress(s.db.QueryRow(
		`SELECT id, user_id, COALESCE(subject, ''), topic, skill_level, completion_rate, time_spent,
		        knowledge_gaps, strengths, last_accessed, updated_at
		 FROM learning_progress WHERE user_id = $1 AND topic = $2`,
		userID, topic,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return p, nil
}

func (s *Store) ListProgress(userID int64) ([]models.TopicProgress, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, COALESCE(subject, ''), topic, skill_level, completion_rate, time_spent,
		        knowledge_gaps, strengths, last_accessed, updated_at
		 FROM learning_progress WHERE user_id = $1 ORDER BY last_accessed DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var progress []models.TopicProgress
	for rows.Next() {
		p, err := s.scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		progress = append(progress, *p)
	}
	return progress, rows.Err()
}

func (s *Store) scanProgress(row interface{ Scan(...any) error }) (*models.TopicProgress, error) {
	var p models.TopicProgress
	var gaps, strengths []byte
	err := row.Scan(&p.ID, &p.UserID, &p.Subject, &p.Topic, &p.SkillLevel,
		&p.CompletionRate, &p.TimeSpent, &gaps, &strengths, &p.LastAccessed, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(gaps) > 0 {
		if err := json.Unmarshal(gaps, &p.KnowledgeGaps); err != nil {
			return nil, fmt.Errorf("unmarshal gaps: %w", err)
		}
	}
	if len(strengths) > 0 {
		if err := json.Unmarshal(strengths, &p.Strengths); err != nil {
			return nil, fmt.Errorf("unmarshal strengths: %w", err)
		}
	}
	return &p, nil
}

// UpsertProgress writes the full per-topic progress row.
func (s *Store) UpsertProgress(p models.TopicProgress) error {
	gaps, err := json.Marshal(emptyIfNil(p.KnowledgeGaps))
	if err != nil {
		return fmt.Errorf("marshal gaps: %w", err)
	}
	strengths, err := json.Marshal(emptyIfNil(p.Strengths))
	if err != nil {
		return fmt.Errorf("marshal strengths: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO learning_progress
		 (user_id, subject, topic, skill_level, completion_rate, time_spent,
		  knowledge_gaps, strengths, last_accessed, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		 ON CONFLICT (user_id, topic)
		 DO UPDATE SET subject = $2, skill_level = $4, completion_rate = $5,
		               time_spent = $6, knowledge_gaps = $7, strengths = $8,
		               last_accessed = NOW(), updated_at = NOW()`,
		p.UserID, p.Subject, p.Topic, p.SkillLevel, p.CompletionRate, p.TimeSpent,
		gaps, strengths,
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// SkillHistory returns skill-level samples for a topic, oldest first,
// for learning-velocity estimation.
func (s *Store) SkillHistory(userID int64, limit int) ([]models.ProgressPoint, error) {
	rows, err := s.db.Query(
		`SELECT performance_score, created_at FROM learning_sessions
		 WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("skill history: %w", err)
	}
	defer rows.Close()

	var pts []models.ProgressPoint
	for rows.Next() {
		var p models.ProgressPoint
		if err := rows.Scan(&p.SkillLevel, &p.At); err != nil {
			return nil, fmt.Errorf("scan skill point: %w", err)
		}
		pts = append(pts, p)
	}
	// Reverse into chronological order.
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
	return pts, rows.Err()
}

// DaysSinceTopicAccess maps each studied topic to days since it was
// last accessed.
func (s *Store) DaysSinceTopicAccess(userID int64) (map[string]float64, error) {
	rows, err := s.db.Query(
		`SELECT topic, EXTRACT(EPOCH FROM (NOW() - last_accessed)) / 86400.0
		 FROM learning_progress WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("days since access: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var topic string
		var days float64
		if err := rows.Scan(&topic, &days); err != nil {
			return nil, fmt.Errorf("scan topic age: %w", err)
		}
		out[topic] = days
	}
	return out, rows.Err()
}

// ── Generated content ───────────────────────────────────

func (s *Store) InsertContent(c models.LearningContent) (int64, error) {
	data, err := json.Marshal(c.ContentData)
	if err != nil {
		return 0, fmt.Errorf("marshal content data: %w", err)
	}
	objectives, err := json.Marshal(emptyIfNil(c.LearningObjectives))
	if err != nil {
		return 0, fmt.Errorf("marshal objectives: %w", err)
	}
	personalization, err := jsonOrNull(c.Personalization)
	if err != nil {
		return 0, fmt.Errorf("marshal personalization: %w", err)
	}

	var id int64
	err = s.db.QueryRow(
		`INSERT INTO learning_content
		 (title, subject, topic, content_type, difficulty_level, estimated_duration,
		  content_data, learning_objectives, personalization, generated_by, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, true)
		 RETURNING id`,
		c.Title, c.Subject, c.Topic, c.ContentType, c.DifficultyLevel, c.EstimatedDuration,
		data, objectives, personalization, c.GeneratedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert content: %w", err)
	}
	return id, nil
}

func (s *Store) GetContent(id int64) (*models.LearningContent, error) {
	var c models.LearningContent
	var data, objectives, personalization []byte
	err := s.db.QueryRow(
		`SELECT id, title, subject, topic, content_type, difficulty_level, estimated_duration,
		        content_data, learning_objectives, personalization, generated_by, is_active, created_at
		 FROM learning_content WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Title, &c.Subject, &c.Topic, &c.ContentType, &c.DifficultyLevel,
		&c.EstimatedDuration, &data, &objectives, &personalization, &c.GeneratedBy,
		&c.IsActive, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get content: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &c.ContentData); err != nil {
			return nil, fmt.Errorf("unmarshal content data: %w", err)
		}
	}
	if len(objectives) > 0 {
		if err := json.Unmarshal(objectives, &c.LearningObjectives); err != nil {
			return nil, fmt.Errorf("unmarshal objectives: %w", err)
		}
	}
	if len(personalization) > 0 {
		if err := json.Unmarshal(personalization, &c.Personalization); err != nil {
			return nil, fmt.Errorf("unmarshal personalization: %w", err)
		}
	}
	return &c, nil
}

// ListActiveContent returns active content rows as recommendation
// candidates.
func (s *Store) ListActiveContent(limit int) ([]models.ContentItem, error) {
	rows, err := s.db.Query(
		`SELECT id, title, subject, topic, content_type, difficulty_level,
		        estimated_duration, content_data, learning_objectives
		 FROM learning_content WHERE is_active = true
		 ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	defer rows.Close()

	var items []models.ContentItem
	for rows.Next() {
		var item models.ContentItem
		var id int64
		var data, objectives []byte
		if err := rows.Scan(&id, &item.Title, &item.Subject, &item.Topic, &item.ContentType,
			&item.DifficultyLevel, &item.EstimatedDuration, &data, &objectives); err != nil {
			return nil, fmt.Errorf("scan content item: %w", err)
		}
		item.ID = fmt.Sprintf("%d", id)
		item.Topics = []string{item.Topic}
		if len(objectives) > 0 {
			if err := json.Unmarshal(objectives, &item.Objectives); err != nil {
				return nil, fmt.Errorf("unmarshal objectives: %w", err)
			}
		}
		if len(data) > 0 {
			var extras struct {
				InteractiveElements []string `json:"interactive_elements"`
				MediaTypes          []string `json:"media_types"`
			}
			if err := json.Unmarshal(data, &extras); err == nil {
				item.InteractiveElements = len(extras.InteractiveElements)
				item.MediaTypes = extras.MediaTypes
			}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ── Recommendation log ──────────────────────────────────

func (s *Store) LogRecommendation(userID int64, rec models.Recommendation, ctx *models.SessionContext) (int64, error) {
	reasoning, err := json.Marshal(rec.Reasoning)
	if err != nil {
		return 0, fmt.Errorf("marshal reasoning: %w", err)
	}
	contextJSON, err := jsonOrNull(ctx)
	if err != nil {
		return 0, fmt.Errorf("marshal context: %w", err)
	}

	var id int64
	err = s.db.QueryRow(
		`INSERT INTO recommendation_log
		 (user_id, content_id, score, estimated_benefit, confidence, reasoning, context)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		userID, rec.ContentID, rec.Score, rec.EstimatedBenefit, rec.Confidence,
		reasoning, contextJSON,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("log recommendation: %w", err)
	}
	return id, nil
}

// RateRecommendation records user feedback on a logged recommendation.
// Returns false when the recommendation does not belong to the user.
func (s *Store) RateRecommendation(recID, userID int64, rating int) (bool, error) {
	res, err := s.db.Exec(
		`UPDATE recommendation_log SET rating = $1, rated_at = NOW()
		 WHERE id = $2 AND user_id = $3`,
		rating, recID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("rate recommendation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── Agent state ─────────────────────────────────────────

func (s *Store) SaveAgentState(userID int64, st adapt.PersistedState) error {
	doc, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal agent state: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO agent_state (user_id, state, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET state = $2, updated_at = NOW()`,
		userID, doc,
	)
	if err != nil {
		return fmt.Errorf("save agent state: %w", err)
	}
	return nil
}

func (s *Store) LoadAgentState(userID int64) (adapt.PersistedState, bool, error) {
	var doc []byte
	err := s.db.QueryRow(
		`SELECT state FROM agent_state WHERE user_id = $1`, userID,
	).Scan(&doc)
	if err != nil {
		if err == sql.ErrNoRows {
			return adapt.PersistedState{}, false, nil
		}
		return adapt.PersistedState{}, false, fmt.Errorf("load agent state: %w", err)
	}
	var st adapt.PersistedState
	if err := json.Unmarshal(doc, &st); err != nil {
		return adapt.PersistedState{}, false, fmt.Errorf("unmarshal agent state: %w", err)
	}
	return st, true, nil
}

// CompletedContent returns the distinct content ids the user has
// studied, most recent first.
func (s *Store) CompletedContent(userID int64, limit int) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT content_id FROM learning_sessions
		 WHERE user_id = $1 AND content_id <> ''
		 GROUP BY content_id ORDER BY MAX(created_at) DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("completed content: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func jsonOrNull(v any) (any, error) {
	switch val := v.(type) {
	case *models.SessionFeedback:
		if val == nil {
			return nil, nil
		}
	case *models.SessionContext:
		if val == nil {
			return nil, nil
		}
	case map[string]any:
		if val == nil {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
