package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/pawlogic/internal/store"
	"github.com/kiranshivaraju/pawlogic/pkg/models"
)

// opener returns a fresh, empty store for one test.
type opener func(t *testing.T) store.Store

// runContract exercises the behavior every Store implementation must share.
func runContract(t *testing.T, open opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"PetCreateAndGet", testPetCreateAndGet},
		{"PetOwnerScoped", testPetOwnerScoped},
		{"PetDuplicateID", testPetDuplicateID},
		{"IncidentRoundTrip", testIncidentRoundTrip},
		{"IncidentOrdering", testIncidentOrdering},
		{"RecentIncidentsPaged", testRecentIncidentsPaged},
		{"InsightInsertIfAbsent", testInsightInsertIfAbsent},
		{"InsightConcurrentInsert", testInsightConcurrentInsert},
		{"InsightListAndSummary", testInsightListAndSummary},
		{"InsightReadFlag", testInsightReadFlag},
		{"JobLifecycle", testJobLifecycle},
		{"JobFailure", testJobFailure},
		{"JobInvalidTransition", testJobInvalidTransition},
		{"JobNotFound", testJobNotFound},
		{"Ping", testPing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, open(t))
		})
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func seedPet(t *testing.T, s store.Store, userID uuid.UUID) *models.Pet {
	t.Helper()
	ts := now()
	pet := &models.Pet{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      "Miso",
		Species:   models.SpeciesCat,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	require.NoError(t, s.CreatePet(context.Background(), pet))
	return pet
}

func newIncident(pet *models.Pet, occurredAt time.Time) *models.Incident {
	return &models.Incident{
		ID:                  uuid.New(),
		PetID:               pet.ID,
		UserID:              pet.UserID,
		AntecedentCategory:  "environmental_change",
		AntecedentTags:      []string{"doorbell", "loud_noise"},
		BehaviorCategory:    "avoidance",
		BehaviorTags:        []string{"hid"},
		BehaviorSeverity:    2,
		ConsequenceCategory: "attention_given",
		ConsequenceTags:     []string{"went_to_pet"},
		OccurredAt:          occurredAt,
		CreatedAt:           now(),
	}
}

func newInsight(pet *models.Pet, title string) *models.Insight {
	return &models.Insight{
		ID:          uuid.New(),
		PetID:       pet.ID,
		UserID:      pet.UserID,
		InsightType: models.InsightTypePattern,
		Title:       title,
		Body:        "body",
		Confidence:  0.4,
		IncidentIDs: []uuid.UUID{uuid.New(), uuid.New()},
		CreatedAt:   now(),
	}
}

// --- Pets ---

func testPetCreateAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	userID := uuid.New()
	pet := seedPet(t, s, userID)

	got, err := s.GetPet(ctx, pet.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, pet.ID, got.ID)
	assert.Equal(t, "Miso", got.Name)
	assert.Equal(t, models.SpeciesCat, got.Species)
	assert.Nil(t, got.Breed)
	assert.True(t, pet.CreatedAt.Equal(got.CreatedAt))
}

func testPetOwnerScoped(t *testing.T, s store.Store) {
	pet := seedPet(t, s, uuid.New())

	_, err := s.GetPet(context.Background(), pet.ID, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetPet(context.Background(), uuid.New(), pet.UserID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testPetDuplicateID(t *testing.T, s store.Store) {
	pet := seedPet(t, s, uuid.New())

	err := s.CreatePet(context.Background(), pet)
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

// --- Incidents ---

func testIncidentRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	pet := seedPet(t, s, uuid.New())

	notes := "hid under the bed"
	location := "bedroom"
	duration := 120
	inc := newIncident(pet, now().Add(-time.Hour))
	inc.BehaviorNotes = &notes
	inc.Location = &location
	inc.DurationSeconds = &duration
	inc.OtherPetsPresent = []uuid.UUID{uuid.New()}
	require.NoError(t, s.CreateIncident(ctx, inc))

	n, err := s.CountIncidents(ctx, pet.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := s.ListIncidents(ctx, pet.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	got := list[0]
	assert.Equal(t, inc.ID, got.ID)
	assert.Equal(t, []string{"doorbell", "loud_noise"}, got.AntecedentTags)
	assert.Equal(t, 2, got.BehaviorSeverity)
	require.NotNil(t, got.BehaviorNotes)
	assert.Equal(t, notes, *got.BehaviorNotes)
	assert.Nil(t, got.AntecedentNotes)
	require.NotNil(t, got.DurationSeconds)
	assert.Equal(t, 120, *got.DurationSeconds)
	assert.Equal(t, inc.OtherPetsPresent, got.OtherPetsPresent)
	assert.True(t, inc.OccurredAt.Equal(got.OccurredAt))

	assert.ErrorIs(t, s.CreateIncident(ctx, inc), store.ErrDuplicateKey)
}

func testIncidentOrdering(t *testing.T, s store.Store) {
	ctx := context.Background()
	pet := seedPet(t, s, uuid.New())
	base := now().Add(-24 * time.Hour)

	// Inserted out of order; two share an occurred_at.
	offsets := []time.Duration{3 * time.Hour, time.Hour, 2 * time.Hour, time.Hour}
	for i, off := range offsets {
		inc := newIncident(pet, base.Add(off))
		inc.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.CreateIncident(ctx, inc))
	}

	list, err := s.ListIncidents(ctx, pet.ID)
	require.NoError(t, err)
	require.Len(t, list, 4)
	for i := 1; i < len(list); i++ {
		prev, cur := list[i-1], list[i]
		assert.False(t, cur.OccurredAt.Before(prev.OccurredAt), "incidents must be ascending")
		if cur.OccurredAt.Equal(prev.OccurredAt) {
			assert.True(t, prev.CreatedAt.Before(cur.CreatedAt), "ties break on created_at")
		}
	}

	other := seedPet(t, s, pet.UserID)
	n, err := s.CountIncidents(ctx, other.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testRecentIncidentsPaged(t *testing.T, s store.Store) {
	ctx := context.Background()
	pet := seedPet(t, s, uuid.New())
	base := now().Add(-24 * time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.CreateIncident(ctx, newIncident(pet, base.Add(time.Duration(i)*time.Hour))))
	}

	page, err := s.ListRecentIncidents(ctx, store.IncidentFilter{PetID: pet.ID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, page[0].OccurredAt.Equal(base.Add(4*time.Hour)))
	assert.True(t, page[1].OccurredAt.Equal(base.Add(3*time.Hour)))

	page, err = s.ListRecentIncidents(ctx, store.IncidentFilter{PetID: pet.ID, Limit: 2, Offset: 4})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.True(t, page[0].OccurredAt.Equal(base))
}

// --- Insights ---

func testInsightInsertIfAbsent(t *testing.T, s store.Store) {
	ctx := context.Background()
	pet := seedPet(t, s, uuid.New())

	first := newInsight(pet, "Pattern: doorbell triggers avoidance")
	first.Confidence = 1.0 / 3.0
	created, err := s.CreateInsight(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	dup := newInsight(pet, first.Title)
	dup.Body = "different body"
	created, err = s.CreateInsight(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)

	// Same title under another type is a different key.
	fn := newInsight(pet, first.Title)
	fn.InsightType = models.InsightTypeCorrelation
	created, err = s.CreateInsight(ctx, fn)
	require.NoError(t, err)
	assert.True(t, created)

	keys, err := s.ListInsightKeys(ctx, pet.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.InsightKey{
		{PetID: pet.ID, InsightType: models.InsightTypePattern, Title: first.Title},
		{PetID: pet.ID, InsightType: models.InsightTypeCorrelation, Title: first.Title},
	}, keys)

	got, err := s.GetInsight(ctx, first.ID, pet.UserID)
	require.NoError(t, err)
	assert.Equal(t, "body", got.Body)
	assert.InDelta(t, 0.33, got.Confidence, 1e-9)
	assert.Equal(t, first.IncidentIDs, got.IncidentIDs)
	assert.False(t, got.IsRead)

	// 3 of 24 is exactly 0.125; ties round to the even digit.
	tie := newInsight(pet, "Pattern: vacuum triggers hiding")
	tie.Confidence = 3.0 / 24.0
	created, err = s.CreateInsight(ctx, tie)
	require.NoError(t, err)
	require.True(t, created)

	got, err = s.GetInsight(ctx, tie.ID, pet.UserID)
	require.NoError(t, err)
	assert.InDelta(t, 0.12, got.Confidence, 1e-9)
}

func testInsightConcurrentInsert(t *testing.T, s store.Store) {
	ctx := context.Background()
	pet := seedPet(t, s, uuid.New())

	const writers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.CreateInsight(ctx, newInsight(pet, "Severity trend: behaviors are increasing"))
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	counts, err := s.InsightSummary(ctx, pet.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Total)
}

func testInsightListAndSummary(t *testing.T, s store.Store) {
	ctx := context.Background()
	pet := seedPet(t, s, uuid.New())
	base := now().Add(-time.Hour)

	var ids []uuid.UUID
	for i, title := range []string{"first", "second", "third"} {
		in := newInsight(pet, title)
		in.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		_, err := s.CreateInsight(ctx, in)
		require.NoError(t, err)
		ids = append(ids, in.ID)
	}
	_, err := s.SetInsightRead(ctx, ids[1], pet.UserID, true)
	require.NoError(t, err)

	all, err := s.ListInsights(ctx, store.InsightFilter{PetID: pet.ID})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Title)
	assert.Equal(t, "first", all[2].Title)

	unread, err := s.ListInsights(ctx, store.InsightFilter{PetID: pet.ID, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 2)
	for _, in := range unread {
		assert.False(t, in.IsRead)
	}

	counts, err := s.InsightSummary(ctx, pet.ID)
	require.NoError(t, err)
	assert.Equal(t, &store.InsightCounts{Total: 3, Unread: 2}, counts)

	empty, err := s.InsightSummary(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, &store.InsightCounts{}, empty)
}

func testInsightReadFlag(t *testing.T, s store.Store) {
	ctx := context.Background()
	pet := seedPet(t, s, uuid.New())
	in := newInsight(pet, "Pattern: a triggers b")
	_, err := s.CreateInsight(ctx, in)
	require.NoError(t, err)

	got, err := s.SetInsightRead(ctx, in.ID, pet.UserID, true)
	require.NoError(t, err)
	assert.True(t, got.IsRead)
	assert.Equal(t, in.Title, got.Title)

	got, err = s.SetInsightRead(ctx, in.ID, pet.UserID, false)
	require.NoError(t, err)
	assert.False(t, got.IsRead)

	_, err = s.SetInsightRead(ctx, in.ID, uuid.New(), true)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetInsight(ctx, in.ID, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// --- Jobs ---

func newJob(t *testing.T, s store.Store) *models.Job {
	t.Helper()
	pet := seedPet(t, s, uuid.New())
	ts := now()
	job := &models.Job{
		ID:        uuid.New(),
		UserID:    pet.UserID,
		PetID:     pet.ID,
		Type:      models.JobTypePatternDetection,
		Status:    models.JobStatusPending,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	require.NoError(t, s.CreateJob(context.Background(), job))
	return job
}

func testJobLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()
	job := newJob(t, s)

	got, err := s.GetJob(ctx, job.ID, job.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, got.Status)
	assert.Equal(t, job.PetID, got.PetID)
	assert.Nil(t, got.StartedAt)

	require.NoError(t, s.UpdateJobStatus(ctx, job.ID, models.JobStatusRunning))
	got, err = s.GetJob(ctx, job.ID, job.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRunning, got.Status)
	assert.NotNil(t, got.StartedAt)
	assert.Nil(t, got.CompletedAt)

	require.NoError(t, s.UpdateJobStatus(ctx, job.ID, models.JobStatusCompleted, store.WithPatternsFound(4)))
	got, err = s.GetJob(ctx, job.ID, job.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
	require.NotNil(t, got.PatternsFound)
	assert.Equal(t, 4, *got.PatternsFound)
	assert.Nil(t, got.ErrorMessage)
}

func testJobFailure(t *testing.T, s store.Store) {
	ctx := context.Background()
	job := newJob(t, s)

	require.NoError(t, s.UpdateJobStatus(ctx, job.ID, models.JobStatusRunning))
	require.NoError(t, s.UpdateJobStatus(ctx, job.ID, models.JobStatusFailed, store.WithErrorMessage("boom")))

	got, err := s.GetJob(ctx, job.ID, job.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "boom", *got.ErrorMessage)
}

func testJobInvalidTransition(t *testing.T, s store.Store) {
	ctx := context.Background()
	job := newJob(t, s)

	err := s.UpdateJobStatus(ctx, job.ID, models.JobStatusCompleted)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrInvalidTransition))

	require.NoError(t, s.UpdateJobStatus(ctx, job.ID, models.JobStatusRunning))
	require.NoError(t, s.UpdateJobStatus(ctx, job.ID, models.JobStatusCompleted))
	assert.ErrorIs(t, s.UpdateJobStatus(ctx, job.ID, models.JobStatusRunning), store.ErrInvalidTransition)
}

func testJobNotFound(t *testing.T, s store.Store) {
	ctx := context.Background()
	job := newJob(t, s)

	_, err := s.GetJob(ctx, job.ID, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.UpdateJobStatus(ctx, uuid.New(), models.JobStatusRunning)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testPing(t *testing.T, s store.Store) {
	assert.NoError(t, s.Ping(context.Background()))
}
