package loaders

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foodschool/canteen-bot/internal/survey"
)

type PostgresClient struct {
	dsn  string
	pool *pgxpool.Pool
}

func NewPostgresClient(dsn string, maxConns int) (*PostgresClient, error) {
	client := &PostgresClient{
		dsn: dsn,
	}

	pool, err := client.createConnectionPool(maxConns)
	if err != nil {
		return nil, err
	}
	client.pool = pool

	if err := client.ensureSchema(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}

	log.Println("Successfully connected to PostgreSQL database with connection pool")
	return client, nil
}

func (c *PostgresClient) createConnectionPool(maxConns int) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(c.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Postgres DSN: %w", err)
	}

	if maxConns < 2 {
		maxConns = 2
	}
	cfg.MaxConns = int32(maxConns)
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second
	cfg.MaxConnLifetime = 60 * time.Minute
	cfg.MaxConnIdleTime = 15 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping Postgres: %w", err)
	}

	return pool, nil
}

func (c *PostgresClient) ensureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			telegram_id BIGINT UNIQUE NOT NULL,
			full_name TEXT NOT NULL DEFAULT '',
			class_name TEXT NOT NULL DEFAULT '',
			has_profile BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS surveys (
			id UUID PRIMARY KEY,
			telegram_id BIGINT NOT NULL REFERENCES users(telegram_id),
			survey_date DATE NOT NULL,
			eats_at_school BOOLEAN NOT NULL,
			no_school_reason TEXT,
			overall_rating INT,
			overall_comment TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (telegram_id, survey_date)
		)`,
		`CREATE TABLE IF NOT EXISTS meal_ratings (
			id UUID PRIMARY KEY,
			survey_id UUID NOT NULL REFERENCES surveys(id) ON DELETE CASCADE,
			meal_label TEXT NOT NULL,
			rating INT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS meal_comments (
			id UUID PRIMARY KEY,
			survey_id UUID NOT NULL REFERENCES surveys(id) ON DELETE CASCADE,
			meal_label TEXT NOT NULL,
			comment TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_surveys_date ON surveys(survey_date)`,
	}

	for _, stmt := range ddl {
		if _, err := c.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// UpsertProfile creates or updates the user row. A stub profile (HasProfile
// false) only guarantees the row exists and never clobbers stored names.
func (c *PostgresClient) UpsertProfile(ctx context.Context, p survey.Profile) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate user id: %w", err)
	}

	if !p.HasProfile {
		_, err = c.pool.Exec(ctx, `
			INSERT INTO users (id, telegram_id)
			VALUES ($1, $2)
			ON CONFLICT (telegram_id) DO NOTHING`,
			id.String(), p.UserID)
		if err != nil {
			return fmt.Errorf("failed to upsert user stub: %w", err)
		}
		return nil
	}

	_, err = c.pool.Exec(ctx, `
		INSERT INTO users (id, telegram_id, full_name, class_name, has_profile)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (telegram_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			class_name = EXCLUDED.class_name,
			has_profile = TRUE,
			updated_at = now()`,
		id.String(), p.UserID, p.FullName, p.Class)
	if err != nil {
		return fmt.Errorf("failed to upsert user profile: %w", err)
	}
	return nil
}

func (c *PostgresClient) HasProfile(ctx context.Context, userID int64) (bool, error) {
	var has bool
	err := c.pool.QueryRow(ctx,
		`SELECT has_profile FROM users WHERE telegram_id = $1`, userID).Scan(&has)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query user profile: %w", err)
	}
	return has, nil
}

// SaveResult persists one survey as a single transaction. A resubmission
// for the same (user, date) updates the survey row and replaces its item
// ratings and comments wholesale.
func (c *PostgresClient) SaveResult(ctx context.Context, r *survey.Result) (bool, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	surveyUUID, err := uuid.NewV7()
	if err != nil {
		return false, fmt.Errorf("failed to generate survey id: %w", err)
	}

	var surveyID string
	var created bool
	err = tx.QueryRow(ctx, `
		INSERT INTO surveys (id, telegram_id, survey_date, eats_at_school,
			no_school_reason, overall_rating, overall_comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (telegram_id, survey_date) DO UPDATE SET
			eats_at_school = EXCLUDED.eats_at_school,
			no_school_reason = EXCLUDED.no_school_reason,
			overall_rating = EXCLUDED.overall_rating,
			overall_comment = EXCLUDED.overall_comment,
			updated_at = now()
		RETURNING id, (created_at = updated_at)`,
		surveyUUID.String(), r.UserID, r.Date, r.EatsAtSchool,
		nullString(r.NoSchoolReason), nullInt(r.OverallRating), nullString(r.OverallComment),
	).Scan(&surveyID, &created)
	if err != nil {
		return false, fmt.Errorf("failed to upsert survey: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM meal_ratings WHERE survey_id = $1`, surveyID); err != nil {
		return false, fmt.Errorf("failed to clear old ratings: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM meal_comments WHERE survey_id = $1`, surveyID); err != nil {
		return false, fmt.Errorf("failed to clear old comments: %w", err)
	}

	for _, rating := range r.Ratings {
		rowID, err := uuid.NewV7()
		if err != nil {
			return false, fmt.Errorf("failed to generate rating id: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO meal_ratings (id, survey_id, meal_label, rating)
			VALUES ($1, $2, $3, $4)`,
			rowID.String(), surveyID, rating.Label, rating.Rating); err != nil {
			return false, fmt.Errorf("failed to insert rating: %w", err)
		}
	}

	for _, comment := range r.Comments {
		if comment.Comment == "" {
			continue
		}
		rowID, err := uuid.NewV7()
		if err != nil {
			return false, fmt.Errorf("failed to generate comment id: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO meal_comments (id, survey_id, meal_label, comment)
			VALUES ($1, $2, $3, $4)`,
			rowID.String(), surveyID, comment.Label, comment.Comment); err != nil {
			return false, fmt.Errorf("failed to insert comment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit survey: %w", err)
	}
	return created, nil
}

// DayStats aggregates one calendar day's survey rows.
type DayStats struct {
	TotalSurveys   int
	EatingCount    int
	NotEatingCount int
	AvgOverall     *float64
}

// MealStat aggregates ratings per meal label for a day.
type MealStat struct {
	Label   string
	Ratings int
	Average float64
}

// MealCommentRow is a single stored per-meal comment.
type MealCommentRow struct {
	Label   string
	Comment string
}

func (c *PostgresClient) GetDayStats(ctx context.Context, date time.Time) (*DayStats, error) {
	var stats DayStats
	err := c.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE eats_at_school),
			COUNT(*) FILTER (WHERE NOT eats_at_school),
			AVG(overall_rating)
		FROM surveys
		WHERE survey_date = $1`, date).Scan(
		&stats.TotalSurveys, &stats.EatingCount, &stats.NotEatingCount, &stats.AvgOverall)
	if err != nil {
		return nil, fmt.Errorf("failed to query day stats: %w", err)
	}
	return &stats, nil
}

func (c *PostgresClient) GetMealStats(ctx context.Context, date time.Time) ([]MealStat, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT mr.meal_label, COUNT(*), AVG(mr.rating)
		FROM meal_ratings mr
		JOIN surveys s ON s.id = mr.survey_id
		WHERE s.survey_date = $1
		GROUP BY mr.meal_label
		ORDER BY mr.meal_label`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query meal stats: %w", err)
	}
	defer rows.Close()

	var stats []MealStat
	for rows.Next() {
		var st MealStat
		if err := rows.Scan(&st.Label, &st.Ratings, &st.Average); err != nil {
			return nil, fmt.Errorf("failed to scan meal stat: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func (c *PostgresClient) GetMealComments(ctx context.Context, date time.Time) ([]MealCommentRow, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT mc.meal_label, mc.comment
		FROM meal_comments mc
		JOIN surveys s ON s.id = mc.survey_id
		WHERE s.survey_date = $1
		ORDER BY mc.meal_label`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query meal comments: %w", err)
	}
	defer rows.Close()

	var comments []MealCommentRow
	for rows.Next() {
		var row MealCommentRow
		if err := rows.Scan(&row.Label, &row.Comment); err != nil {
			return nil, fmt.Errorf("failed to scan meal comment: %w", err)
		}
		comments = append(comments, row)
	}
	return comments, rows.Err()
}

func (c *PostgresClient) GetNoSchoolReasons(ctx context.Context, date time.Time) ([]string, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT no_school_reason
		FROM surveys
		WHERE survey_date = $1
			AND NOT eats_at_school
			AND no_school_reason IS NOT NULL`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query reasons: %w", err)
	}
	defer rows.Close()

	var reasons []string
	for rows.Next() {
		var reason string
		if err := rows.Scan(&reason); err != nil {
			return nil, fmt.Errorf("failed to scan reason: %w", err)
		}
		reasons = append(reasons, reason)
	}
	return reasons, rows.Err()
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *PostgresClient) Close() {
	c.pool.Close()
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
