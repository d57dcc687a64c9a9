// Package pipeline orchestrates a full ETL run: load raw crawler drops,
// normalize and validate, score, aggregate duplicates, attach human
// reports, rescore with the aggregate context, then export and import.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lvonguyen/scamforge/internal/entity"
	"github.com/lvonguyen/scamforge/internal/importer"
	"github.com/lvonguyen/scamforge/internal/ingest"
	"github.com/lvonguyen/scamforge/internal/observability"
	"github.com/lvonguyen/scamforge/internal/reportstats"
	"github.com/lvonguyen/scamforge/internal/scoring"
	"github.com/lvonguyen/scamforge/internal/similarity"
	"github.com/lvonguyen/scamforge/internal/validate"
)

// Options configures one pipeline run.
type Options struct {
	RawDir      string
	ExportDir   string
	ExportJSONL bool
	ExportCSV   bool
}

// Result summarizes a completed run.
type Result struct {
	RunID       string        `json:"run_id"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	RawRecords  int           `json:"raw_records"`
	NewRecords  int           `json:"new_records"`
	Valid       int           `json:"valid"`
	Aggregated  int           `json:"aggregated"`
	Imported    int           `json:"imported"`
	ExportPaths []string      `json:"export_paths,omitempty"`
	Warnings    []string      `json:"warnings,omitempty"`
}

// Pipeline wires the stages together. Every collaborator except the
// loader and engine is optional: a nil seen-store, similarity scorer,
// stats loader or importer simply disables that stage.
type Pipeline struct {
	loader      *ingest.Loader
	seen        *ingest.SeenStore
	engine      *scoring.Engine
	simScorer   *similarity.Scorer
	statsLoader reportstats.Loader
	importer    *importer.Importer
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// New creates a pipeline. loader and engine must be non-nil.
func New(
	loader *ingest.Loader,
	seen *ingest.SeenStore,
	engine *scoring.Engine,
	simScorer *similarity.Scorer,
	statsLoader reportstats.Loader,
	imp *importer.Importer,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		loader:      loader,
		seen:        seen,
		engine:      engine,
		simScorer:   simScorer,
		statsLoader: statsLoader,
		importer:    imp,
		metrics:     metrics,
		logger:      logger,
	}
}

// Run executes one full ETL pass. The batch is scored twice on purpose:
// the first pass assigns per-observation scores and rule trails, then
// duplicates collapse and report stats attach, and the second pass scores
// the aggregated view the lookup cache actually serves.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	logger := p.logger.With(zap.String("run_id", res.RunID))
	logger.Info("pipeline run starting", zap.String("raw_dir", opts.RawDir))

	defer func() {
		res.Duration = time.Since(res.StartedAt)
		if p.metrics != nil {
			p.metrics.PipelineDuration.Observe(res.Duration.Seconds())
		}
	}()

	raw, stats, err := p.loader.LoadDir(opts.RawDir)
	if err != nil {
		p.countRun("error")
		return nil, fmt.Errorf("load raw records: %w", err)
	}
	res.RawRecords = len(raw)
	res.Warnings = stats.Warnings
	if p.metrics != nil {
		p.metrics.RawFilesRead.Add(float64(stats.FilesRead))
		p.metrics.RawFilesSkipped.Add(float64(stats.FilesSkipped))
		for _, r := range raw {
			p.metrics.RecordsIngested.WithLabelValues(r.Source, string(r.Type)).Inc()
		}
	}

	fresh := p.seen.FilterNew(ctx, raw)
	res.NewRecords = len(fresh)
	p.countDropped("seen", len(raw)-len(fresh))

	valid := validate.Filter(fresh)
	res.Valid = len(valid)
	p.countDropped("validate", len(fresh)-len(valid))

	if len(valid) == 0 {
		logger.Info("no valid records, run finished early")
		p.countRun("empty")
		return res, nil
	}

	start := time.Now()
	p.engine.ScoreBatch(valid)

	if p.simScorer != nil {
		p.simScorer.AttachBatch(valid)
	}

	aggregated := Aggregate(valid)
	res.Aggregated = len(aggregated)

	if p.statsLoader != nil {
		reportStats, err := p.statsLoader.Load(ctx)
		if err != nil {
			logger.Warn("report stats unavailable, scoring without them", zap.Error(err))
			res.Warnings = append(res.Warnings, fmt.Sprintf("report stats: %v", err))
		} else {
			reportstats.Attach(aggregated, reportStats)
		}
	}

	p.engine.ScoreBatch(aggregated)
	if p.metrics != nil {
		p.metrics.ScoringDuration.Observe(time.Since(start).Seconds())
		for _, r := range aggregated {
			p.metrics.RecordsScored.WithLabelValues(string(r.RiskLevel)).Inc()
			for _, rule := range r.RiskSignals {
				p.metrics.RulesTriggered.WithLabelValues(rule).Inc()
			}
		}
	}

	paths, err := p.export(aggregated, opts)
	if err != nil {
		p.countRun("error")
		return nil, err
	}
	res.ExportPaths = paths

	if p.importer != nil {
		if err := p.importer.Import(ctx, aggregated); err != nil {
			p.countRun("error")
			return nil, fmt.Errorf("import scored records: %w", err)
		}
		res.Imported = len(aggregated)
		if p.metrics != nil {
			p.metrics.RecordsImported.Add(float64(len(aggregated)))
		}
	}

	if err := p.seen.MarkSeen(ctx, aggregated); err != nil {
		logger.Warn("seen-store update failed", zap.Error(err))
		res.Warnings = append(res.Warnings, fmt.Sprintf("seen store: %v", err))
	}

	p.countRun("ok")
	logger.Info("pipeline run finished",
		zap.Int("raw", res.RawRecords),
		zap.Int("valid", res.Valid),
		zap.Int("aggregated", res.Aggregated),
		zap.Int("imported", res.Imported))
	return res, nil
}

// Aggregate collapses duplicate fingerprints into one record per entity.
// The first observation is the representative; it absorbs the observation
// count and the full source set.
func Aggregate(records []*entity.Record) []*entity.Record {
	byFP := make(map[string]*entity.Record)
	var out []*entity.Record

	for _, r := range records {
		rep, ok := byFP[r.Fingerprint]
		if !ok {
			byFP[r.Fingerprint] = r
			r.Agg.Frequency = 1
			r.AddSource(r.Source)
			out = append(out, r)
			continue
		}
		rep.Agg.Frequency++
		rep.AddSource(r.Source)
	}
	return out
}

func (p *Pipeline) export(records []*entity.Record, opts Options) ([]string, error) {
	if opts.ExportDir == "" || (!opts.ExportJSONL && !opts.ExportCSV) {
		return nil, nil
	}
	if err := os.MkdirAll(opts.ExportDir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	stamp := time.Now().UTC().Format("20060102T150405Z")
	var paths []string

	if opts.ExportJSONL {
		path := filepath.Join(opts.ExportDir, fmt.Sprintf("scored_%s.jsonl", stamp))
		if err := writeFile(path, records, entity.WriteJSONL); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	if opts.ExportCSV {
		path := filepath.Join(opts.ExportDir, fmt.Sprintf("scored_%s.csv", stamp))
		if err := writeFile(path, records, entity.WriteCSV); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, records []*entity.Record, write func(w io.Writer, records []*entity.Record) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file %s: %w", path, err)
	}
	defer f.Close()

	if err := write(f, records); err != nil {
		return fmt.Errorf("write export file %s: %w", path, err)
	}
	return f.Close()
}

func (p *Pipeline) countRun(status string) {
	if p.metrics != nil {
		p.metrics.PipelineRuns.WithLabelValues(status).Inc()
	}
}

func (p *Pipeline) countDropped(stage string, n int) {
	if p.metrics != nil && n > 0 {
		p.metrics.RecordsDropped.WithLabelValues(stage).Add(float64(n))
	}
}
