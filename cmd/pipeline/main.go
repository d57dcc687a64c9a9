// Package main provides the one-shot ETL runner: load raw crawler drops,
// score them and write the results to the export directory and the lookup
// cache.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lvonguyen/scamforge/internal/config"
	"github.com/lvonguyen/scamforge/internal/importer"
	"github.com/lvonguyen/scamforge/internal/ingest"
	"github.com/lvonguyen/scamforge/internal/observability"
	"github.com/lvonguyen/scamforge/internal/pipeline"
	"github.com/lvonguyen/scamforge/internal/reportstats"
	"github.com/lvonguyen/scamforge/internal/scoring"
	"github.com/lvonguyen/scamforge/internal/similarity"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	rawDir := flag.String("raw", "", "Raw directory override")
	exportDir := flag.String("export", "", "Export directory override")
	dryRun := flag.Bool("dry-run", false, "Score and export without importing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		cfg = config.DefaultConfig()
	}

	telemetry, err := observability.New(observability.Config{
		ServiceName:    "scamforge-pipeline",
		LogLevel:       cfg.Logging.Level,
		LogFormat:      cfg.Logging.Format,
		MetricsEnabled: false,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry init failed: %v\n", err)
		os.Exit(1)
	}
	logger := telemetry.Logger()
	defer telemetry.Shutdown()

	ctx := context.Background()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password(),
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, continuing without it", zap.Error(err))
			redisClient = nil
		}
	}

	var dbPool *pgxpool.Pool
	if cfg.Database.Enabled && !*dryRun {
		dbPool, err = pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			logger.Fatal("database connect failed", zap.Error(err))
		}
		defer dbPool.Close()
	}

	var seen *ingest.SeenStore
	if redisClient != nil {
		seen = ingest.NewSeenStore(redisClient, cfg.Redis.SeenKey, cfg.Redis.SeenTTL, logger)
	}

	var statsLoader reportstats.Loader
	var imp *importer.Importer
	if dbPool != nil {
		statsLoader = reportstats.NewDBLoader(dbPool)
		if redisClient != nil {
			statsLoader = reportstats.NewCachedLoader(statsLoader, redisClient, cfg.Redis.StatsKey, cfg.Redis.StatsTTL, logger)
		}
		imp = importer.New(dbPool, cfg.Pipeline.ImportChunkSize, logger)
	}

	var simScorer *similarity.Scorer
	if cfg.Similarity.Enabled {
		simScorer = similarity.NewScorer(similarity.NewEmbedder(), similarity.NewIndex(),
			cfg.Similarity.Threshold, cfg.Similarity.TopK, logger)
	}

	engine := scoring.NewEngine(cfg.Scoring, cfg.Pipeline.Stages, logger)
	pipe := pipeline.New(ingest.NewLoader(logger), seen, engine, simScorer, statsLoader, imp, nil, logger)

	opts := pipeline.Options{
		RawDir:      cfg.Pipeline.RawDir,
		ExportDir:   cfg.Pipeline.ExportDir,
		ExportJSONL: cfg.Pipeline.ExportJSONL,
		ExportCSV:   cfg.Pipeline.ExportCSV,
	}
	if *rawDir != "" {
		opts.RawDir = *rawDir
	}
	if *exportDir != "" {
		opts.ExportDir = *exportDir
	}

	result, err := pipe.Run(ctx, opts)
	if err != nil {
		logger.Fatal("pipeline run failed", zap.Error(err))
	}

	logger.Info("pipeline done",
		zap.String("run_id", result.RunID),
		zap.Int("raw", result.RawRecords),
		zap.Int("valid", result.Valid),
		zap.Int("aggregated", result.Aggregated),
		zap.Int("imported", result.Imported),
		zap.Duration("duration", result.Duration),
		zap.Strings("exports", result.ExportPaths))

	if redisClient != nil {
		redisClient.Close()
	}
}
