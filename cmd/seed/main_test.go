package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kiranshivaraju/pawlogic/internal/config"
	"github.com/kiranshivaraju/pawlogic/internal/detection"
	"github.com/kiranshivaraju/pawlogic/internal/metrics"
	"github.com/kiranshivaraju/pawlogic/internal/store"
	"github.com/kiranshivaraju/pawlogic/internal/taxonomy"
	"github.com/kiranshivaraju/pawlogic/pkg/models"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLiteStore(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestParseFlags(t *testing.T) {
	user := uuid.NewString()

	t.Run("defaults", func(t *testing.T) {
		opts, err := parseFlags([]string{"-user", user})
		require.NoError(t, err)
		assert.Equal(t, user, opts.userID.String())
		assert.Equal(t, models.SpeciesCat, opts.species)
		assert.Equal(t, "Mochi", opts.name)
		assert.True(t, opts.detect)
	})

	t.Run("dog with env user", func(t *testing.T) {
		t.Setenv("SEED_USER_ID", user)
		opts, err := parseFlags([]string{"-species", "dog", "-detect=false"})
		require.NoError(t, err)
		assert.Equal(t, "Biscuit", opts.name)
		assert.False(t, opts.detect)
	})

	t.Run("errors", func(t *testing.T) {
		t.Setenv("SEED_USER_ID", "")
		_, err := parseFlags(nil)
		assert.ErrorContains(t, err, "required")

		_, err = parseFlags([]string{"-user", "not-a-uuid"})
		assert.ErrorContains(t, err, "invalid user ID")

		_, err = parseFlags([]string{"-user", user, "-species", "parrot"})
		assert.ErrorContains(t, err, "no demo scenario")
	})
}

func TestSeed_ScenariosPassTaxonomyAndDetect(t *testing.T) {
	tax, err := taxonomy.Load()
	require.NoError(t, err)

	for _, species := range []string{models.SpeciesCat, models.SpeciesDog} {
		t.Run(species, func(t *testing.T) {
			ctx := context.Background()
			st := newTestStore(t)
			now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
			opts := options{userID: uuid.New(), name: defaultNames[species], species: species}

			pet, n, err := seed(ctx, st, tax, opts, now)
			require.NoError(t, err)
			assert.Equal(t, 14, n)

			count, err := st.CountIncidents(ctx, pet.ID)
			require.NoError(t, err)
			assert.Equal(t, 14, count)

			incidents, err := st.ListIncidents(ctx, pet.ID)
			require.NoError(t, err)
			seen := make(map[time.Time]bool)
			for _, inc := range incidents {
				assert.True(t, inc.OccurredAt.Before(now))
				seen[inc.OccurredAt.UTC()] = true
			}
			assert.Len(t, seen, 14, "timestamps are distinct")

			cfg := config.DetectionConfig{Timeout: time.Minute, JobStatusTTL: time.Minute}
			svc := detection.NewService(st, nil, metrics.New(prometheus.NewRegistry()), zap.NewNop(), cfg)
			res, err := svc.DetectPatterns(ctx, pet.ID, opts.userID)
			require.NoError(t, err)
			assert.Equal(t, 14, res.LogsAnalyzed)

			types := make(map[string]bool)
			for _, p := range res.Patterns {
				types[p.InsightType] = true
			}
			assert.True(t, types[models.InsightTypePattern])
			assert.True(t, types[models.InsightTypeCorrelation])
			assert.True(t, types[models.InsightTypeFunction])
		})
	}
}
