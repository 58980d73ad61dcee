package database

import (
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

func Connect() (*sql.DB, error) {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "learn_user")
	password := getEnv("DB_PASSWORD", "learn_password")
	dbname := getEnv("DB_NAME", "adaptive_learn")
	sslmode := getEnv("DB_SSLMODE", "disable")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func Migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		username VARCHAR(50) UNIQUE,
		password VARCHAR(255) NOT NULL,
		primary_style VARCHAR(20),
		style_scores JSONB,
		style_confidence REAL NOT NULL DEFAULT 0,
		accommodations JSONB,
		sessions_analyzed INT NOT NULL DEFAULT 0,
		style_updated_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	CREATE TABLE IF NOT EXISTS learning_sessions (
		id                   BIGSERIAL PRIMARY KEY,
		user_id              BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		session_type         VARCHAR(20) NOT NULL DEFAULT 'study',
		content_type         VARCHAR(50),
		content_id           VARCHAR(100),
		topic                VARCHAR(200),
		duration             INT NOT NULL DEFAULT 0,
		estimated_duration   INT NOT NULL DEFAULT 0,
		performance_score    REAL NOT NULL DEFAULT 0,
		engagement_score     REAL NOT NULL DEFAULT 0,
		difficulty_level     REAL NOT NULL DEFAULT 0.5,
		note_taking          BOOLEAN NOT NULL DEFAULT FALSE,
		audio_replays        INT NOT NULL DEFAULT 0,
		interactive_elements INT NOT NULL DEFAULT 0,
		adaptations          JSONB,
		user_feedback        JSONB,
		created_at           TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user ON learning_sessions(user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_sessions_topic ON learning_sessions(user_id, topic);

	CREATE TABLE IF NOT EXISTS learning_progress (
		id              BIGSERIAL PRIMARY KEY,
		user_id         BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		subject         VARCHAR(100),
		topic           VARCHAR(200) NOT NULL,
		skill_level     REAL NOT NULL DEFAULT 0.5,
		completion_rate REAL NOT NULL DEFAULT 0,
		time_spent      INT NOT NULL DEFAULT 0,
		knowledge_gaps  JSONB,
		strengths       JSONB,
		last_accessed   TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at      TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(user_id, topic)
	);

	CREATE INDEX IF NOT EXISTS idx_progress_user ON learning_progress(user_id);

	CREATE TABLE IF NOT EXISTS learning_content (
		id                  BIGSERIAL PRIMARY KEY,
		title               VARCHAR(255) NOT NULL,
		subject             VARCHAR(100),
		topic               VARCHAR(200) NOT NULL,
		content_type        VARCHAR(50) NOT NULL,
		difficulty_level    REAL NOT NULL DEFAULT 0.5,
		estimated_duration  INT NOT NULL DEFAULT 10,
		content_data        JSONB NOT NULL,
		learning_objectives JSONB,
		personalization     JSONB,
		generated_by        VARCHAR(20) NOT NULL DEFAULT 'template',
		is_active           BOOLEAN NOT NULL DEFAULT TRUE,
		created_at          TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_content_active ON learning_content(is_active, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_content_topic ON learning_content(topic, content_type);

	CREATE TABLE IF NOT EXISTS recommendation_log (
		id                BIGSERIAL PRIMARY KEY,
		user_id           BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		content_id        VARCHAR(100) NOT NULL,
		score             REAL NOT NULL,
		estimated_benefit REAL NOT NULL DEFAULT 0,
		confidence        REAL NOT NULL DEFAULT 0,
		reasoning         JSONB,
		context           JSONB,
		rating            INT,
		rated_at          TIMESTAMP WITH TIME ZONE,
		created_at        TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_reclog_user ON recommendation_log(user_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS agent_state (
		user_id    BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		state      JSONB NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);
	`

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// Idempotent column additions for databases created before the
	// style profile moved onto the users table.
	alterStatements := []string{
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS username VARCHAR(50) UNIQUE`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS primary_style VARCHAR(20)`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS style_scores JSONB`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS style_confidence REAL NOT NULL DEFAULT 0`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS accommodations JSONB`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS sessions_analyzed INT NOT NULL DEFAULT 0`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS style_updated_at TIMESTAMP WITH TIME ZONE`,
		`ALTER TABLE learning_sessions ADD COLUMN IF NOT EXISTS adaptations JSONB`,
		`ALTER TABLE learning_sessions ADD COLUMN IF NOT EXISTS user_feedback JSONB`,
		`ALTER TABLE learning_content ADD COLUMN IF NOT EXISTS generated_by VARCHAR(20) NOT NULL DEFAULT 'template'`,
		`ALTER TABLE recommendation_log ADD COLUMN IF NOT EXISTS rating INT`,
		`ALTER TABLE recommendation_log ADD COLUMN IF NOT EXISTS rated_at TIMESTAMP WITH TIME ZONE`,
	}
	for _, stmt := range alterStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("alter table failed: %w", err)
		}
	}

	// Backfill usernames for accounts that predate the column.
	var usersWithoutUsername int
	if err := db.QueryRow(`SELECT COUNT(*) FROM users WHERE username IS NULL`).Scan(&usersWithoutUsername); err == nil && usersWithoutUsername > 0 {
		rows, err := db.Query(`SELECT id, name FROM users WHERE username IS NULL`)
		if err == nil {
			defer rows.Close()
			for rows.Next() {
				var id int64
				var name string
				if rows.Scan(&id, &name) == nil {
					for attempt := 0; attempt < 10; attempt++ {
						_, err := db.Exec(
							`UPDATE users SET username = $1 WHERE id = $2 AND username IS NULL`,
							GenerateUsername(name), id,
						)
						if err == nil {
							break
						}
					}
				}
			}
		}
	}

	newIndexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_content ON learning_sessions(user_id, content_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reclog_rated ON recommendation_log(user_id, rating) WHERE rating IS NOT NULL`,
	}
	for _, stmt := range newIndexes {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create index failed: %w", err)
		}
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// generateUsernameBase creates a lowercase alphanumeric base from a user's name.
func generateUsernameBase(name string) string {
	var result []byte
	for _, c := range strings.ToLower(name) {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			result = append(result, byte(c))
		}
	}
	if len(result) == 0 {
		return "user"
	}
	if len(result) > 12 {
		result = result[:12]
	}
	return string(result)
}

// rng is a seeded random source for username generation.
var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

// GenerateUsername creates a username from a name by appending random digits.
// Caller should handle the unique constraint and retry.
func GenerateUsername(name string) string {
	return fmt.Sprintf("%s%04d", generateUsernameBase(name), rng.Intn(10000))
}
