// Package main provides the entry point for the ScamForge server.
// It exposes scoring and lookup APIs over the same engine the batch
// pipeline uses.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lvonguyen/scamforge/internal/api/gateway"
	"github.com/lvonguyen/scamforge/internal/config"
	"github.com/lvonguyen/scamforge/internal/entity"
	"github.com/lvonguyen/scamforge/internal/importer"
	"github.com/lvonguyen/scamforge/internal/ingest"
	"github.com/lvonguyen/scamforge/internal/normalize"
	"github.com/lvonguyen/scamforge/internal/observability"
	"github.com/lvonguyen/scamforge/internal/pipeline"
	"github.com/lvonguyen/scamforge/internal/reportstats"
	"github.com/lvonguyen/scamforge/internal/scoring"
	"github.com/lvonguyen/scamforge/internal/similarity"
	"github.com/lvonguyen/scamforge/internal/validate"
)

// Version information (injected at build time via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Global dependencies. Optional ones stay nil when their backend is
// disabled; handlers guard and answer 503.
var (
	cfg       *config.Config
	telemetry *observability.Telemetry
	logger    *zap.Logger
	engine    *scoring.Engine
	dbPool    *pgxpool.Pool
	pipe      *pipeline.Pipeline
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ScamForge %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
		os.Exit(0)
	}

	var err error
	cfg, err = config.Load(*configPath)
	if err != nil {
		cfg = config.DefaultConfig()
	}

	telemetry, err = observability.New(observability.Config{
		ServiceName:    "scamforge",
		ServiceVersion: Version,
		Environment:    os.Getenv("SCAMFORGE_ENV"),
		LogLevel:       cfg.Logging.Level,
		LogFormat:      cfg.Logging.Format,
		MetricsEnabled: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry init failed: %v\n", err)
		os.Exit(1)
	}
	logger = telemetry.Logger()
	defer telemetry.Shutdown()

	logger.Info("starting scamforge", zap.String("version", Version), zap.String("config", *configPath))

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password(),
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis unreachable, continuing without it", zap.Error(err))
			redisClient = nil
		}
	}

	if cfg.Database.Enabled {
		dbPool, err = pgxpool.New(context.Background(), cfg.Database.DSN())
		if err != nil {
			logger.Warn("database unavailable, lookup and import disabled", zap.Error(err))
			dbPool = nil
		}
	}

	engine = scoring.NewEngine(cfg.Scoring, cfg.Pipeline.Stages, logger)
	pipe = buildPipeline(redisClient)

	telemetry.StartSystemMetricsCollector()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(telemetry.HTTPMetricsMiddleware())

	if redisClient != nil {
		limiter := gateway.NewRateLimiter(redisClient, gateway.RateLimitConfig{
			Endpoints:      gateway.DefaultEndpointLimits(),
			IncludeHeaders: true,
		}, logger)
		r.Use(limiter.Middleware(clientTier, clientID))
	}

	r.Get("/health", handleHealth)
	r.Get("/ready", handleReady)
	r.Handle("/metrics", telemetry.MetricsHandler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/score", handleScore)
		r.Get("/lookup", handleLookup)
		r.Post("/pipeline/run", handlePipelineRun)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := <-sigChan
	logger.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	if dbPool != nil {
		dbPool.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("server stopped")
}

// buildPipeline wires the batch pipeline from whatever backends came up.
func buildPipeline(redisClient *redis.Client) *pipeline.Pipeline {
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

	return pipeline.New(
		ingest.NewLoader(logger),
		seen,
		engine,
		simScorer,
		statsLoader,
		imp,
		telemetry.Metrics(),
		logger,
	)
}

func clientTier(r *http.Request) string {
	if tier := r.Header.Get("X-Api-Tier"); tier != "" {
		return tier
	}
	return "free"
}

func clientID(r *http.Request) string {
	return r.Header.Get("X-Api-Key")
}

// Health and readiness handlers

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "version": Version})
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	if dbPool != nil {
		if err := dbPool.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": "database unreachable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Scoring handlers

// ScoreRequest carries a batch of raw observations to score ad hoc.
type ScoreRequest struct {
	Items []ScoreItem `json:"items"`
}

// ScoreItem is one raw observation.
type ScoreItem struct {
	Type    string `json:"type"`
	Value   string `json:"value"`
	Source  string `json:"source"`
	Context string `json:"context,omitempty"`
	URL     string `json:"url,omitempty"`
}

func handleScore(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	var records []*entity.Record
	dropped := 0
	for _, item := range req.Items {
		rec, ok := normalize.Record(normalize.Item{
			Type:     entity.Type(strings.ToUpper(item.Type)),
			RawValue: item.Value,
			Source:   item.Source,
			Context:  item.Context,
			URL:      item.URL,
		})
		if !ok || !validate.Record(rec) {
			dropped++
			continue
		}
		records = append(records, rec)
	}

	engine.ScoreBatch(records)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"scored":  len(records),
		"dropped": dropped,
	})
}

// Lookup handlers

// LookupResponse is one lookup_cache row.
type LookupResponse struct {
	Found       bool      `json:"found"`
	Type        string    `json:"type,omitempty"`
	Value       string    `json:"value,omitempty"`
	RiskScore   int       `json:"risk_score,omitempty"`
	RiskLevel   string    `json:"risk_level,omitempty"`
	Confidence  float64   `json:"confidence,omitempty"`
	ReportCount int       `json:"report_count,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

func handleLookup(w http.ResponseWriter, r *http.Request) {
	if dbPool == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "lookup backend not available"})
		return
	}

	entityType := entity.Type(strings.ToUpper(r.URL.Query().Get("type")))
	rawValue := r.URL.Query().Get("value")
	if !entityType.Valid() || rawValue == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "type and value are required"})
		return
	}

	value, _, ok := normalize.Entity(entityType, rawValue)
	if !ok {
		writeJSON(w, http.StatusOK, LookupResponse{Found: false})
		return
	}

	var (
		reportCount int
		levelID     int
		riskScore   int
		confidence  float64
		updatedAt   time.Time
	)
	err := dbPool.QueryRow(r.Context(),
		`SELECT report_count, risk_level_id, risk_score, confidence, updated_at
		 FROM lookup_cache WHERE value = $1 AND type_id = $2`,
		value, entityType.ID(),
	).Scan(&reportCount, &levelID, &riskScore, &confidence, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		writeJSON(w, http.StatusOK, LookupResponse{Found: false})
		return
	}
	if err != nil {
		logger.Error("lookup query failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
		return
	}

	writeJSON(w, http.StatusOK, LookupResponse{
		Found:       true,
		Type:        string(entityType),
		Value:       value,
		RiskScore:   riskScore,
		RiskLevel:   string(levelFromID(levelID)),
		Confidence:  confidence,
		ReportCount: reportCount,
		UpdatedAt:   updatedAt,
	})
}

func levelFromID(id int) entity.RiskLevel {
	switch id {
	case entity.RiskSafe.ID():
		return entity.RiskSafe
	case entity.RiskMedium.ID():
		return entity.RiskMedium
	case entity.RiskHigh.ID():
		return entity.RiskHigh
	default:
		return entity.RiskUnknown
	}
}

// Pipeline handlers

// PipelineRunRequest overrides the configured directories for one run.
type PipelineRunRequest struct {
	RawDir    string `json:"raw_dir,omitempty"`
	ExportDir string `json:"export_dir,omitempty"`
}

func handlePipelineRun(w http.ResponseWriter, r *http.Request) {
	if pipe == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "pipeline not initialized"})
		return
	}

	var req PipelineRunRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	opts := pipeline.Options{
		RawDir:      cfg.Pipeline.RawDir,
		ExportDir:   cfg.Pipeline.ExportDir,
		ExportJSONL: cfg.Pipeline.ExportJSONL,
		ExportCSV:   cfg.Pipeline.ExportCSV,
	}
	if req.RawDir != "" {
		opts.RawDir = req.RawDir
	}
	if req.ExportDir != "" {
		opts.ExportDir = req.ExportDir
	}

	result, err := pipe.Run(r.Context(), opts)
	if err != nil {
		logger.Error("pipeline run failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
