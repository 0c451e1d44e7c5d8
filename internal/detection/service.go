// Package detection runs the pattern-detection engine against stored
// incidents and persists the resulting insights, either inline or as a
// tracked background job.
package detection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kiranshivaraju/pawlogic/internal/analysis"
	"github.com/kiranshivaraju/pawlogic/internal/cache"
	"github.com/kiranshivaraju/pawlogic/internal/config"
	"github.com/kiranshivaraju/pawlogic/internal/metrics"
	"github.com/kiranshivaraju/pawlogic/internal/store"
	"github.com/kiranshivaraju/pawlogic/pkg/models"
)

// Result is the outcome of one detection run. Patterns holds only the
// insights written by this run.
type Result struct {
	PetID         uuid.UUID           `json:"pet_id"`
	LogsAnalyzed  int                 `json:"logs_analyzed"`
	PatternsFound int                 `json:"patterns_found"`
	Patterns      []models.NewInsight `json:"patterns"`
}

// JobView is a job row joined with the cached result of a completed run.
type JobView struct {
	*models.Job
	Result *Result `json:"result,omitempty"`
}

// Service orchestrates pattern detection.
type Service struct {
	store     store.Store
	cache     cache.Cache
	metrics   *metrics.Metrics
	logger    *zap.Logger
	timeout   time.Duration
	statusTTL time.Duration

	wg sync.WaitGroup
}

// NewService creates a Service. cfg supplies the background time budget and
// the lifetime of cached job state.
func NewService(st store.Store, ca cache.Cache, m *metrics.Metrics, logger *zap.Logger, cfg config.DetectionConfig) *Service {
	return &Service{
		store:     st,
		cache:     ca,
		metrics:   m,
		logger:    logger.Named("detection"),
		timeout:   cfg.Timeout,
		statusTTL: cfg.JobStatusTTL,
	}
}

// DetectPatterns runs detection synchronously for a pet owned by userID.
func (s *Service) DetectPatterns(ctx context.Context, petID, userID uuid.UUID) (*Result, error) {
	start := time.Now()
	res, err := s.detect(ctx, petID, userID)
	s.observe(start, err)
	return res, err
}

// TriggerDetection checks ownership and history size, records a pending job
// and returns it immediately. Detection then runs in a background goroutine.
func (s *Service) TriggerDetection(ctx context.Context, petID, userID uuid.UUID) (*models.Job, error) {
	if _, err := s.preflight(ctx, petID, userID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := &models.Job{
		ID:        uuid.New(),
		UserID:    userID,
		PetID:     petID,
		Type:      models.JobTypePatternDetection,
		Status:    models.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}
	s.cacheStatus(ctx, job.ID, models.JobStatusPending)

	s.wg.Add(1)
	go s.runJob(job.ID, petID, userID)

	return job, nil
}

// GetJob returns a job owned by userID. A completed job carries its result
// while the cached payload is still alive.
func (s *Service) GetJob(ctx context.Context, jobID, userID uuid.UUID) (*JobView, error) {
	job, err := s.store.GetJob(ctx, jobID, userID)
	if err != nil {
		return nil, err
	}
	view := &JobView{Job: job}
	if job.Status != models.JobStatusCompleted {
		return view, nil
	}

	payload, ok, err := s.cache.GetJobResult(ctx, jobID)
	if err != nil {
		s.logger.Warn("reading cached job result", zap.Stringer("job_id", jobID), zap.Error(err))
		return view, nil
	}
	if !ok {
		return view, nil
	}
	var res Result
	if err := json.Unmarshal(payload, &res); err != nil {
		s.logger.Warn("decoding cached job result", zap.Stringer("job_id", jobID), zap.Error(err))
		return view, nil
	}
	view.Result = &res
	return view, nil
}

// Wait blocks until every background run started by TriggerDetection has
// finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) preflight(ctx context.Context, petID, userID uuid.UUID) (int, error) {
	if _, err := s.store.GetPet(ctx, petID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrPetNotFound
		}
		return 0, fmt.Errorf("loading pet: %w", err)
	}

	n, err := s.store.CountIncidents(ctx, petID)
	if err != nil {
		return 0, fmt.Errorf("counting incidents: %w", err)
	}
	if n < analysis.MinLogsForPatterns {
		return n, &InsufficientDataError{Have: n, Need: analysis.MinLogsForPatterns}
	}
	return n, nil
}

func (s *Service) detect(ctx context.Context, petID, userID uuid.UUID) (*Result, error) {
	if _, err := s.preflight(ctx, petID, userID); err != nil {
		return nil, err
	}

	incidents, err := s.store.ListIncidents(ctx, petID)
	if err != nil {
		return nil, fmt.Errorf("listing incidents: %w", err)
	}
	existing, err := s.store.ListInsightKeys(ctx, petID)
	if err != nil {
		return nil, fmt.Errorf("listing insight keys: %w", err)
	}

	candidates := analysis.Detect(petID, userID, incidents, existing)
	created := make([]models.NewInsight, 0, len(candidates))
	for _, c := range candidates {
		ok, err := s.store.CreateInsight(ctx, toInsight(c))
		if err != nil {
			return nil, fmt.Errorf("creating insight %q: %w", c.Title, err)
		}
		if !ok {
			// Written by a concurrent run between ListInsightKeys and here.
			s.metrics.DuplicatesSkipped.Inc()
			continue
		}
		s.metrics.InsightsCreated.WithLabelValues(c.InsightType).Inc()
		created = append(created, c)
	}

	s.metrics.IncidentsAnalyzed.Observe(float64(len(incidents)))
	s.logger.Info("pattern detection finished",
		zap.Stringer("pet_id", petID),
		zap.Int("logs_analyzed", len(incidents)),
		zap.Int("candidates", len(candidates)),
		zap.Int("patterns_found", len(created)),
	)

	return &Result{
		PetID:         petID,
		LogsAnalyzed:  len(incidents),
		PatternsFound: len(created),
		Patterns:      created,
	}, nil
}

// runJob drives a background job to completed or failed. It recovers from
// panics and is bounded by the configured timeout.
func (s *Service) runJob(jobID, petID, userID uuid.UUID) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	log := s.logger.With(zap.Stringer("job_id", jobID), zap.Stringer("pet_id", petID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic in detection job", zap.Any("panic", r), zap.Stack("stack"))
			s.metrics.DetectionRuns.WithLabelValues(metrics.OutcomeFailed).Inc()
			s.fail(jobID, fmt.Sprintf("panic: %v", r))
		}
	}()

	if err := s.store.UpdateJobStatus(ctx, jobID, models.JobStatusRunning); err != nil {
		log.Error("marking job running", zap.Error(err))
		s.fail(jobID, fmt.Sprintf("starting job: %v", err))
		return
	}
	s.cacheStatus(ctx, jobID, models.JobStatusRunning)

	res, err := s.DetectPatterns(ctx, petID, userID)
	if err != nil {
		log.Warn("detection job failed", zap.Error(err))
		s.fail(jobID, err.Error())
		return
	}

	// The result is cached before the row flips to completed so a poller
	// that sees completed can read it.
	if payload, err := json.Marshal(res); err == nil {
		if err := s.cache.SetJobResult(ctx, jobID, payload, s.statusTTL); err != nil {
			log.Warn("caching job result", zap.Error(err))
		}
	}

	if err := s.store.UpdateJobStatus(ctx, jobID, models.JobStatusCompleted,
		store.WithPatternsFound(res.PatternsFound)); err != nil {
		log.Error("marking job completed", zap.Error(err))
		s.fail(jobID, fmt.Sprintf("completing job: %v", err))
		return
	}
	s.cacheStatus(ctx, jobID, models.JobStatusCompleted)
	log.Info("detection job completed", zap.Int("patterns_found", res.PatternsFound))
}

// fail uses a fresh context so a job whose budget ran out is still recorded.
func (s *Service) fail(jobID uuid.UUID, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.store.UpdateJobStatus(ctx, jobID, models.JobStatusFailed, store.WithErrorMessage(msg)); err != nil {
		s.logger.Error("marking job failed", zap.Stringer("job_id", jobID), zap.Error(err))
	}
	s.cacheStatus(ctx, jobID, models.JobStatusFailed)
}

func (s *Service) cacheStatus(ctx context.Context, jobID uuid.UUID, status string) {
	if err := s.cache.SetJobStatus(ctx, jobID, status, s.statusTTL); err != nil {
		s.logger.Warn("caching job status", zap.Stringer("job_id", jobID), zap.String("status", status), zap.Error(err))
	}
}

func (s *Service) observe(start time.Time, err error) {
	s.metrics.DetectionDuration.Observe(time.Since(start).Seconds())
	outcome := metrics.OutcomeCompleted
	switch {
	case err == nil:
	case errors.Is(err, ErrPetNotFound):
		outcome = metrics.OutcomePetNotFound
	case errors.Is(err, ErrInsufficientData):
		outcome = metrics.OutcomeInsufficientData
	default:
		outcome = metrics.OutcomeFailed
	}
	s.metrics.DetectionRuns.WithLabelValues(outcome).Inc()
}

func toInsight(c models.NewInsight) *models.Insight {
	return &models.Insight{
		ID:               uuid.New(),
		PetID:            c.PetID,
		UserID:           c.UserID,
		InsightType:      c.InsightType,
		Title:            c.Title,
		Body:             c.Body,
		Confidence:       c.Confidence,
		IncidentIDs:      c.IncidentIDs,
		BehaviorFunction: c.BehaviorFunction,
		CreatedAt:        time.Now().UTC(),
	}
}
