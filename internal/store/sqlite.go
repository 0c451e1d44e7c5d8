package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/kiranshivaraju/pawlogic/pkg/models"
)

// Timestamps are stored as fixed-width UTC text so that ORDER BY on the raw
// column is chronological.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements the Store interface on an embedded SQLite database.
// Array columns are stored as JSON text.
type SQLiteStore struct {
	conn *sql.DB
}

// NewSQLiteStore opens the database at dsn and creates the schema if needed.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps in-memory databases alive and serializes
	// writers.
	conn.SetMaxOpenConns(1)

	s := &SQLiteStore{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate sqlite database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	statements := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS pets (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			name       TEXT NOT NULL,
			species    TEXT NOT NULL CHECK (species IN ('cat', 'dog')),
			breed      TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS abc_logs (
			id                   TEXT PRIMARY KEY,
			pet_id               TEXT NOT NULL REFERENCES pets (id) ON DELETE CASCADE,
			user_id              TEXT NOT NULL,
			antecedent_category  TEXT NOT NULL,
			antecedent_tags      TEXT NOT NULL,
			antecedent_notes     TEXT,
			behavior_category    TEXT NOT NULL,
			behavior_tags        TEXT NOT NULL,
			behavior_severity    INTEGER NOT NULL CHECK (behavior_severity BETWEEN 1 AND 5),
			behavior_notes       TEXT,
			consequence_category TEXT NOT NULL,
			consequence_tags     TEXT NOT NULL,
			consequence_notes    TEXT,
			occurred_at          TEXT NOT NULL,
			location             TEXT,
			duration_seconds     INTEGER CHECK (duration_seconds IS NULL OR duration_seconds >= 0),
			other_pets_present   TEXT,
			created_at           TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_abc_logs_pet_occurred ON abc_logs (pet_id, occurred_at);`,
		`CREATE TABLE IF NOT EXISTS insights (
			id                TEXT PRIMARY KEY,
			pet_id            TEXT NOT NULL REFERENCES pets (id) ON DELETE CASCADE,
			user_id           TEXT NOT NULL,
			insight_type      TEXT NOT NULL
				CHECK (insight_type IN ('pattern', 'function', 'correlation', 'recommendation')),
			title             TEXT NOT NULL,
			body              TEXT NOT NULL,
			confidence        REAL NOT NULL CHECK (confidence BETWEEN 0 AND 1),
			abc_log_ids       TEXT,
			behavior_function TEXT
				CHECK (behavior_function IS NULL OR behavior_function IN ('attention', 'escape', 'tangible', 'sensory')),
			is_read           INTEGER NOT NULL DEFAULT 0,
			created_at        TEXT NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_insights_pet_type_title ON insights (pet_id, insight_type, title);`,
		`CREATE INDEX IF NOT EXISTS idx_insights_pet_unread ON insights (pet_id, is_read);`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL,
			pet_id         TEXT NOT NULL REFERENCES pets (id) ON DELETE CASCADE,
			type           TEXT NOT NULL,
			status         TEXT NOT NULL DEFAULT 'pending',
			patterns_found INTEGER,
			error_message  TEXT,
			started_at     TEXT,
			completed_at   TEXT,
			created_at     TEXT NOT NULL,
			updated_at     TEXT NOT NULL
		);`,
	}

	for _, stmt := range statements {
		if _, err := s.conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// --- Pets ---

func (s *SQLiteStore) CreatePet(ctx context.Context, pet *models.Pet) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO pets (id, user_id, name, species, breed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pet.ID.String(), pet.UserID.String(), pet.Name, pet.Species, pet.Breed,
		formatTime(pet.CreatedAt), formatTime(pet.UpdatedAt))
	if err != nil {
		if isSQLiteDuplicate(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create pet: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetPet(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Pet, error) {
	var (
		p                    models.Pet
		createdAt, updatedAt string
	)
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, user_id, name, species, breed, created_at, updated_at
		 FROM pets WHERE id = ? AND user_id = ?`, id.String(), userID.String(),
	).Scan(&p.ID, &p.UserID, &p.Name, &p.Species, &p.Breed, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pet: %w", err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// --- Incidents ---

func (s *SQLiteStore) CreateIncident(ctx context.Context, inc *models.Incident) error {
	var otherPets *string
	if inc.OtherPetsPresent != nil {
		v := mustJSON(inc.OtherPetsPresent)
		otherPets = &v
	}
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO abc_logs (`+incidentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inc.ID.String(), inc.PetID.String(), inc.UserID.String(),
		inc.AntecedentCategory, mustJSON(inc.AntecedentTags), inc.AntecedentNotes,
		inc.BehaviorCategory, mustJSON(inc.BehaviorTags), inc.BehaviorSeverity, inc.BehaviorNotes,
		inc.ConsequenceCategory, mustJSON(inc.ConsequenceTags), inc.ConsequenceNotes,
		formatTime(inc.OccurredAt), inc.Location, inc.DurationSeconds, otherPets, formatTime(inc.CreatedAt))
	if err != nil {
		if isSQLiteDuplicate(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CountIncidents(ctx context.Context, petID uuid.UUID) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM abc_logs WHERE pet_id = ?`, petID.String()).Scan(&n); err != nil {
		return 0, fmt.Errorf("count incidents: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) ListIncidents(ctx context.Context, petID uuid.UUID) ([]models.Incident, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+incidentColumns+` FROM abc_logs WHERE pet_id = ?
		 ORDER BY occurred_at ASC, created_at ASC, id ASC`, petID.String())
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return collectSQLiteIncidents(rows)
}

func (s *SQLiteStore) ListRecentIncidents(ctx context.Context, filter IncidentFilter) ([]models.Incident, error) {
	filter = filter.normalized()
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+incidentColumns+` FROM abc_logs WHERE pet_id = ?
		 ORDER BY occurred_at DESC, created_at DESC, id DESC LIMIT ? OFFSET ?`,
		filter.PetID.String(), filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list recent incidents: %w", err)
	}
	return collectSQLiteIncidents(rows)
}

func collectSQLiteIncidents(rows *sql.Rows) ([]models.Incident, error) {
	defer rows.Close()

	incidents := make([]models.Incident, 0)
	for rows.Next() {
		var (
			inc                       models.Incident
			antTags, behTags, conTags string
			otherPets                 sql.NullString
			occurredAt, createdAt     string
		)
		if err := rows.Scan(&inc.ID, &inc.PetID, &inc.UserID,
			&inc.AntecedentCategory, &antTags, &inc.AntecedentNotes,
			&inc.BehaviorCategory, &behTags, &inc.BehaviorSeverity, &inc.BehaviorNotes,
			&inc.ConsequenceCategory, &conTags, &inc.ConsequenceNotes,
			&occurredAt, &inc.Location, &inc.DurationSeconds, &otherPets, &createdAt); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}

		if err := unmarshalColumns(
			column{antTags, &inc.AntecedentTags},
			column{behTags, &inc.BehaviorTags},
			column{conTags, &inc.ConsequenceTags},
		); err != nil {
			return nil, err
		}
		if otherPets.Valid {
			if err := unmarshalColumns(column{otherPets.String, &inc.OtherPetsPresent}); err != nil {
				return nil, err
			}
		}

		var err error
		if inc.OccurredAt, err = parseTime(occurredAt); err != nil {
			return nil, err
		}
		if inc.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}

// --- Insights ---

func (s *SQLiteStore) ListInsightKeys(ctx context.Context, petID uuid.UUID) ([]models.InsightKey, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT insight_type, title FROM insights WHERE pet_id = ?`, petID.String())
	if err != nil {
		return nil, fmt.Errorf("list insight keys: %w", err)
	}
	defer rows.Close()

	keys := make([]models.InsightKey, 0)
	for rows.Next() {
		k := models.InsightKey{PetID: petID}
		if err := rows.Scan(&k.InsightType, &k.Title); err != nil {
			return nil, fmt.Errorf("scan insight key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) CreateInsight(ctx context.Context, insight *models.Insight) (bool, error) {
	insight.Confidence = roundConfidence(insight.Confidence)
	var ids *string
	if insight.IncidentIDs != nil {
		v := mustJSON(insight.IncidentIDs)
		ids = &v
	}
	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO insights (`+insightColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (pet_id, insight_type, title) DO NOTHING`,
		insight.ID.String(), insight.PetID.String(), insight.UserID.String(),
		insight.InsightType, insight.Title, insight.Body, insight.Confidence,
		ids, insight.BehaviorFunction, insight.IsRead, formatTime(insight.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("create insight: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create insight: %w", err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) ListInsights(ctx context.Context, filter InsightFilter) ([]*models.Insight, error) {
	query := `SELECT ` + insightColumns + ` FROM insights WHERE pet_id = ?`
	if filter.UnreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.conn.QueryContext(ctx, query, filter.PetID.String())
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	defer rows.Close()

	insights := make([]*models.Insight, 0)
	for rows.Next() {
		in, err := scanSQLiteInsight(rows)
		if err != nil {
			return nil, err
		}
		insights = append(insights, in)
	}
	return insights, rows.Err()
}

func (s *SQLiteStore) GetInsight(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Insight, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+insightColumns+` FROM insights WHERE id = ? AND user_id = ?`, id.String(), userID.String())
	in, err := scanSQLiteInsight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return in, err
}

func (s *SQLiteStore) SetInsightRead(ctx context.Context, id uuid.UUID, userID uuid.UUID, read bool) (*models.Insight, error) {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE insights SET is_read = ? WHERE id = ? AND user_id = ?`, read, id.String(), userID.String())
	if err != nil {
		return nil, fmt.Errorf("set insight read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetInsight(ctx, id, userID)
}

func (s *SQLiteStore) InsightSummary(ctx context.Context, petID uuid.UUID) (*InsightCounts, error) {
	var c InsightCounts
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_read = 0 THEN 1 ELSE 0 END), 0)
		 FROM insights WHERE pet_id = ?`, petID.String(),
	).Scan(&c.Total, &c.Unread)
	if err != nil {
		return nil, fmt.Errorf("summarize insights: %w", err)
	}
	return &c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteInsight(row scanner) (*models.Insight, error) {
	var (
		in        models.Insight
		ids       sql.NullString
		createdAt string
	)
	err := row.Scan(&in.ID, &in.PetID, &in.UserID, &in.InsightType, &in.Title, &in.Body,
		&in.Confidence, &ids, &in.BehaviorFunction, &in.IsRead, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan insight: %w", err)
	}
	if ids.Valid {
		if err := unmarshalColumns(column{ids.String, &in.IncidentIDs}); err != nil {
			return nil, err
		}
	}
	if in.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &in, nil
}

// --- Jobs ---

func (s *SQLiteStore) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO jobs (id, user_id, pet_id, type, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID.String(), job.UserID.String(), job.PetID.String(), job.Type, job.Status,
		formatTime(job.CreatedAt), formatTime(job.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Job, error) {
	var (
		j                      models.Job
		startedAt, completedAt sql.NullString
		createdAt, updatedAt   string
	)
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, user_id, pet_id, type, status, patterns_found, error_message,
		        started_at, completed_at, created_at, updated_at
		 FROM jobs WHERE id = ? AND user_id = ?`, id.String(), userID.String(),
	).Scan(&j.ID, &j.UserID, &j.PetID, &j.Type, &j.Status, &j.PatternsFound, &j.ErrorMessage,
		&startedAt, &completedAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	if j.StartedAt, err = parseNullTime(startedAt); err != nil {
		return nil, err
	}
	if j.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, err
	}
	if j.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if j.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *SQLiteStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error {
	params := &jobUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	var currentStatus string
	err := s.conn.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, id.String()).Scan(&currentStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get job status: %w", err)
	}
	if err := checkTransition(currentStatus, status); err != nil {
		return err
	}

	now := formatTime(time.Now())
	sets := []string{"status = ?", "updated_at = ?"}
	args := []any{status, now}

	if status == models.JobStatusRunning {
		sets = append(sets, "started_at = ?")
		args = append(args, now)
	}
	if status == models.JobStatusCompleted || status == models.JobStatusFailed {
		sets = append(sets, "completed_at = ?")
		args = append(args, now)
	}
	if params.ErrorMessage != nil {
		sets = append(sets, "error_message = ?")
		args = append(args, *params.ErrorMessage)
	}
	if params.PatternsFound != nil {
		sets = append(sets, "patterns_found = ?")
		args = append(args, *params.PatternsFound)
	}
	args = append(args, id.String(), currentStatus)

	res, err := s.conn.ExecContext(ctx,
		`UPDATE jobs SET `+strings.Join(sets, ", ")+` WHERE id = ? AND status = ?`, args...)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: job %s changed concurrently", ErrInvalidTransition, id)
	}
	return nil
}

// --- helpers ---

type column struct {
	raw  string
	dest any
}

func unmarshalColumns(cols ...column) error {
	for _, c := range cols {
		if err := json.Unmarshal([]byte(c.raw), c.dest); err != nil {
			return fmt.Errorf("decode json column: %w", err)
		}
	}
	return nil
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal json column: %v", err))
	}
	return string(b)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// isSQLiteDuplicate checks if a sqlite error is a unique or primary key violation.
func isSQLiteDuplicate(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
