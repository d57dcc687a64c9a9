package scoring

import (
	"go.uber.org/zap"

	"github.com/lvonguyen/scamforge/internal/entity"
)

// Stage is one scorer in the chain. Stages mutate the record in place and
// return it for chaining.
type Stage interface {
	Name() string
	Score(r *entity.Record) *entity.Record
}

// Options selects which optional stages run ahead of the aggregator. The
// aggregator itself always runs.
type Options struct {
	Pattern bool `yaml:"pattern"`
	Trust   bool `yaml:"trust"`
	Report  bool `yaml:"report"`
	AI      bool `yaml:"ai"`
}

// DefaultOptions enables the pattern layer only.
func DefaultOptions() Options {
	return Options{Pattern: true}
}

// Engine runs the scorer chain over batches. The multi-source rules need
// visibility across the whole batch, so the engine indexes the batch by
// fingerprint before any record is scored.
type Engine struct {
	cfg    Config
	opts   Options
	logger *zap.Logger
}

// NewEngine creates a scoring engine with the given rule tables and stage
// selection.
func NewEngine(cfg Config, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, opts: opts, logger: logger}
}

// ScoreBatch scores every record in the batch through the enabled stages
// in order, finishing with the aggregator. Records are mutated in place;
// the same slice is returned.
func (e *Engine) ScoreBatch(records []*entity.Record) []*entity.Record {
	if len(records) == 0 {
		return records
	}

	idx := BuildSourceIndex(records)
	stages := e.stages(idx)

	for _, r := range records {
		for _, stage := range stages {
			stage.Score(r)
		}
	}

	e.logger.Debug("batch scored",
		zap.Int("records", len(records)),
		zap.Int("stages", len(stages)))
	return records
}

// ScoreOne scores a single record as a batch of one.
func (e *Engine) ScoreOne(r *entity.Record) *entity.Record {
	if r == nil {
		return nil
	}
	e.ScoreBatch([]*entity.Record{r})
	return r
}

func (e *Engine) stages(idx SourceIndex) []Stage {
	var stages []Stage
	if e.opts.Pattern {
		stages = append(stages, NewPatternScorer(e.cfg, idx))
	}
	if e.opts.Trust {
		stages = append(stages, NewTrustScorer(e.cfg, idx))
	}
	if e.opts.Report {
		stages = append(stages, NewReportScorer())
	}
	if e.opts.AI {
		stages = append(stages, NewAIScorer())
	}
	return append(stages, NewAggregator(e.cfg))
}
