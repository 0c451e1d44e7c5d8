package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kiranshivaraju/pawlogic/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// --- Pets ---

func (s *PostgresStore) CreatePet(ctx context.Context, pet *models.Pet) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pets (id, user_id, name, species, breed, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		pet.ID, pet.UserID, pet.Name, pet.Species, pet.Breed, pet.CreatedAt, pet.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create pet: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPet(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Pet, error) {
	var p models.Pet
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, name, species, breed, created_at, updated_at
		 FROM pets WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&p.ID, &p.UserID, &p.Name, &p.Species, &p.Breed, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pet: %w", err)
	}
	return &p, nil
}

// --- Incidents ---

const incidentColumns = `id, pet_id, user_id,
	antecedent_category, antecedent_tags, antecedent_notes,
	behavior_category, behavior_tags, behavior_severity, behavior_notes,
	consequence_category, consequence_tags, consequence_notes,
	occurred_at, location, duration_seconds, other_pets_present, created_at`

func (s *PostgresStore) CreateIncident(ctx context.Context, inc *models.Incident) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO abc_logs (`+incidentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		inc.ID, inc.PetID, inc.UserID,
		inc.AntecedentCategory, inc.AntecedentTags, inc.AntecedentNotes,
		inc.BehaviorCategory, inc.BehaviorTags, inc.BehaviorSeverity, inc.BehaviorNotes,
		inc.ConsequenceCategory, inc.ConsequenceTags, inc.ConsequenceNotes,
		inc.OccurredAt, inc.Location, inc.DurationSeconds, inc.OtherPetsPresent, inc.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountIncidents(ctx context.Context, petID uuid.UUID) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM abc_logs WHERE pet_id = $1`, petID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count incidents: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) ListIncidents(ctx context.Context, petID uuid.UUID) ([]models.Incident, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+incidentColumns+` FROM abc_logs WHERE pet_id = $1
		 ORDER BY occurred_at ASC, created_at ASC, id ASC`, petID)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return collectIncidents(rows)
}

func (s *PostgresStore) ListRecentIncidents(ctx context.Context, filter IncidentFilter) ([]models.Incident, error) {
	filter = filter.normalized()
	rows, err := s.pool.Query(ctx,
		`SELECT `+incidentColumns+` FROM abc_logs WHERE pet_id = $1
		 ORDER BY occurred_at DESC, created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		filter.PetID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list recent incidents: %w", err)
	}
	return collectIncidents(rows)
}

func collectIncidents(rows pgx.Rows) ([]models.Incident, error) {
	defer rows.Close()

	incidents := make([]models.Incident, 0)
	for rows.Next() {
		var inc models.Incident
		if err := rows.Scan(&inc.ID, &inc.PetID, &inc.UserID,
			&inc.AntecedentCategory, &inc.AntecedentTags, &inc.AntecedentNotes,
			&inc.BehaviorCategory, &inc.BehaviorTags, &inc.BehaviorSeverity, &inc.BehaviorNotes,
			&inc.ConsequenceCategory, &inc.ConsequenceTags, &inc.ConsequenceNotes,
			&inc.OccurredAt, &inc.Location, &inc.DurationSeconds, &inc.OtherPetsPresent, &inc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}

// --- Insights ---

const insightColumns = `id, pet_id, user_id, insight_type, title, body, confidence,
	abc_log_ids, behavior_function, is_read, created_at`

func (s *PostgresStore) ListInsightKeys(ctx context.Context, petID uuid.UUID) ([]models.InsightKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT insight_type, title FROM insights WHERE pet_id = $1`, petID)
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

func (s *PostgresStore) CreateInsight(ctx context.Context, insight *models.Insight) (bool, error) {
	insight.Confidence = roundConfidence(insight.Confidence)
	var createdAt time.Time
	err := s.pool.QueryRow(ctx,
		`INSERT INTO insights (`+insightColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (pet_id, insight_type, title) DO NOTHING
		 RETURNING created_at`,
		insight.ID, insight.PetID, insight.UserID, insight.InsightType, insight.Title, insight.Body,
		insight.Confidence, insight.IncidentIDs, insight.BehaviorFunction, insight.IsRead, insight.CreatedAt,
	).Scan(&createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create insight: %w", err)
	}
	insight.CreatedAt = createdAt
	return true, nil
}

func (s *PostgresStore) ListInsights(ctx context.Context, filter InsightFilter) ([]*models.Insight, error) {
	query := `SELECT ` + insightColumns + ` FROM insights WHERE pet_id = $1`
	if filter.UnreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, filter.PetID)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	defer rows.Close()

	insights := make([]*models.Insight, 0)
	for rows.Next() {
		in, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		insights = append(insights, in)
	}
	return insights, rows.Err()
}

func (s *PostgresStore) GetInsight(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Insight, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+insightColumns+` FROM insights WHERE id = $1 AND user_id = $2`, id, userID)
	in, err := scanInsight(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return in, err
}

func (s *PostgresStore) SetInsightRead(ctx context.Context, id uuid.UUID, userID uuid.UUID, read bool) (*models.Insight, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE insights SET is_read = $3 WHERE id = $1 AND user_id = $2
		 RETURNING `+insightColumns, id, userID, read)
	in, err := scanInsight(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return in, err
}

func (s *PostgresStore) InsightSummary(ctx context.Context, petID uuid.UUID) (*InsightCounts, error) {
	var c InsightCounts
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT is_read) FROM insights WHERE pet_id = $1`, petID,
	).Scan(&c.Total, &c.Unread)
	if err != nil {
		return nil, fmt.Errorf("summarize insights: %w", err)
	}
	return &c, nil
}

func scanInsight(row pgx.Row) (*models.Insight, error) {
	var in models.Insight
	err := row.Scan(&in.ID, &in.PetID, &in.UserID, &in.InsightType, &in.Title, &in.Body,
		&in.Confidence, &in.IncidentIDs, &in.BehaviorFunction, &in.IsRead, &in.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan insight: %w", err)
	}
	return &in, nil
}

// --- Jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, user_id, pet_id, type, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.UserID, job.PetID, job.Type, job.Status, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Job, error) {
	var j models.Job
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, pet_id, type, status, patterns_found, error_message,
		        started_at, completed_at, created_at, updated_at
		 FROM jobs WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&j.ID, &j.UserID, &j.PetID, &j.Type, &j.Status, &j.PatternsFound, &j.ErrorMessage,
		&j.StartedAt, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &j, nil
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error {
	params := &jobUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	var currentStatus string
	err := s.pool.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get job status: %w", err)
	}
	if err := checkTransition(currentStatus, status); err != nil {
		return err
	}

	now := time.Now().UTC()
	query := `UPDATE jobs SET status = $2, updated_at = $3`
	args := []any{id, status, now}
	argIdx := 4

	if status == models.JobStatusRunning {
		query += fmt.Sprintf(", started_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if status == models.JobStatusCompleted || status == models.JobStatusFailed {
		query += fmt.Sprintf(", completed_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if params.ErrorMessage != nil {
		query += fmt.Sprintf(", error_message = $%d", argIdx)
		args = append(args, *params.ErrorMessage)
		argIdx++
	}
	if params.PatternsFound != nil {
		query += fmt.Sprintf(", patterns_found = $%d", argIdx)
		args = append(args, *params.PatternsFound)
		argIdx++
	}

	// Guard against a concurrent transition between the read and the write.
	query += fmt.Sprintf(" WHERE id = $1 AND status = $%d", argIdx)
	args = append(args, currentStatus)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: job %s changed concurrently", ErrInvalidTransition, id)
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
