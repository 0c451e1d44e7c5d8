// Command seed writes a demo pet with a realistic ABC history for one user
// and optionally runs pattern detection over it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kiranshivaraju/pawlogic/internal/cache"
	"github.com/kiranshivaraju/pawlogic/internal/config"
	"github.com/kiranshivaraju/pawlogic/internal/detection"
	"github.com/kiranshivaraju/pawlogic/internal/logging"
	"github.com/kiranshivaraju/pawlogic/internal/metrics"
	"github.com/kiranshivaraju/pawlogic/internal/store"
	"github.com/kiranshivaraju/pawlogic/internal/taxonomy"
	"github.com/kiranshivaraju/pawlogic/pkg/models"
)

type options struct {
	userID  uuid.UUID
	name    string
	species string
	detect  bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	user := fs.String("user", os.Getenv("SEED_USER_ID"), "owner user ID (defaults to $SEED_USER_ID)")
	name := fs.String("name", "", "pet name (defaults to Mochi for cats, Biscuit for dogs)")
	species := fs.String("species", models.SpeciesCat, "pet species: cat or dog")
	detect := fs.Bool("detect", true, "run pattern detection after seeding")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if *user == "" {
		return options{}, errors.New("-user or SEED_USER_ID is required")
	}
	userID, err := uuid.Parse(*user)
	if err != nil {
		return options{}, fmt.Errorf("invalid user ID %q: %w", *user, err)
	}
	if _, ok := scenarios[*species]; !ok {
		return options{}, fmt.Errorf("no demo scenario for species %q", *species)
	}
	if *name == "" {
		*name = defaultNames[*species]
	}
	return options{userID: userID, name: *name, species: *species, detect: *detect}, nil
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Server.Env, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	tax, err := taxonomy.LoadFile(cfg.Detection.TaxonomyPath)
	if err != nil {
		return fmt.Errorf("load taxonomy: %w", err)
	}
	st, err := store.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	pet, n, err := seed(ctx, st, tax, opts, time.Now().UTC())
	if err != nil {
		return err
	}
	logger.Info("seeded demo pet",
		zap.Stringer("pet_id", pet.ID),
		zap.String("name", pet.Name),
		zap.Int("incidents", n))

	if !opts.detect {
		return nil
	}

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	svc := detection.NewService(st, redisCache, metrics.New(prometheus.NewRegistry()), logger, cfg.Detection)
	res, err := svc.DetectPatterns(ctx, pet.ID, opts.userID)
	if err != nil {
		return fmt.Errorf("detect patterns: %w", err)
	}
	for _, p := range res.Patterns {
		logger.Info("insight", zap.String("type", p.InsightType), zap.String("title", p.Title))
	}
	return nil
}
