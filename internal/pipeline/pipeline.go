// Package pipeline drives raw fee records through validation, scoring,
// duplicate detection and merging, and keeps run statistics.
package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/taxakollen/taxa-cli/internal/config"
	"github.com/taxakollen/taxa-cli/internal/dedupe"
	"github.com/taxakollen/taxa-cli/internal/model"
	"github.com/taxakollen/taxa-cli/internal/reference"
	"github.com/taxakollen/taxa-cli/internal/score"
	"github.com/taxakollen/taxa-cli/internal/validate"
)

// Outcome reports what happened to one processed record.
type Outcome struct {
	ClusterID      string
	Strategy       string // strategy that matched; empty for new clusters
	Duplicate      bool
	Representative model.FeeRecord
}

// Pipeline is the orchestrator. Validation and scoring are pure and run
// without locking; the match+merge step against the live cluster index
// is serialized behind mu so two concurrent records cannot both open a
// cluster for the same fee.
type Pipeline struct {
	cfg       config.PipelineConfig
	validator *validate.Validator
	scorer    *score.Scorer

	mu       sync.Mutex
	detector *dedupe.Detector
	resolver *dedupe.Resolver
	stats    *model.RunStats
}

// New creates a Pipeline for one run.
func New(cfg config.PipelineConfig, tables *reference.Tables) *Pipeline {
	validator := validate.New(cfg, tables)
	scorer := score.New(cfg.QualityWeights, tables)
	return &Pipeline{
		cfg:       cfg,
		validator: validator,
		scorer:    scorer,
		detector:  dedupe.NewDetector(cfg),
		resolver:  dedupe.NewResolver(validator, scorer, cfg.EnableMerging),
		stats:     model.NewRunStats(),
	}
}

// Prepare runs the pure per-record stages: validation and scoring. Safe
// to call from multiple workers.
func (p *Pipeline) Prepare(rec model.FeeRecord) model.FeeRecord {
	rec = p.validator.Validate(rec)
	rec.QualityScore = p.scorer.Score(rec).Final
	return rec
}

// Commit runs the serialized match+merge step for a prepared record and
// updates run statistics.
func (p *Pipeline) Commit(rec model.FeeRecord) Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tally(rec)

	if id, strategy, ok := p.detector.Match(rec); ok {
		p.stats.DuplicateItems++
		if p.cfg.EnableMerging {
			p.stats.MergedItems++
		}
		rep := p.resolver.Resolve(p.detector, id, rec, strategy)
		return Outcome{ClusterID: id, Strategy: strategy, Duplicate: true, Representative: rep}
	}

	p.stats.UniqueItems++
	c := p.detector.Open(rec)
	return Outcome{ClusterID: c.ID, Representative: c.Representative}
}

// Process runs one record through the full pipeline.
func (p *Pipeline) Process(rec model.FeeRecord) Outcome {
	return p.Commit(p.Prepare(rec))
}

// ProcessStream consumes records from a channel, preparing them on
// `workers` goroutines and committing them on a single one. It returns
// when the channel is drained or the context is canceled.
func (p *Pipeline) ProcessStream(ctx context.Context, records <-chan model.FeeRecord, workers int) error {
	if workers < 1 {
		workers = 1
	}

	prepared := make(chan model.FeeRecord, workers)

	g, gctx := errgroup.WithContext(ctx)

	var prepGroup errgroup.Group
	for i := 0; i < workers; i++ {
		prepGroup.Go(func() error {
			for rec := range records {
				select {
				case prepared <- p.Prepare(rec):
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(prepared)
		return prepGroup.Wait()
	})

	g.Go(func() error {
		for rec := range prepared {
			p.Commit(rec)
		}
		return nil
	})

	return g.Wait()
}

// tally updates run counters for one prepared record. Caller holds mu.
func (p *Pipeline) tally(rec model.FeeRecord) {
	s := p.stats
	s.TotalProcessed++

	if len(rec.ValidationErrors) > 0 {
		s.InvalidItems++
		muni := rec.Municipality
		if muni == "" {
			muni = "(okänd)"
		}
		s.ErrorsByMunicipality[muni] += len(rec.ValidationErrors)
		for _, code := range rec.ValidationErrors {
			s.ErrorsByCode[string(code)]++
		}
	}

	switch {
	case rec.ExtractionConfidence >= 0.8:
		s.ConfidenceHigh++
	case rec.ExtractionConfidence >= 0.6:
		s.ConfidenceMedium++
	default:
		s.ConfidenceLow++
	}

	if rec.ExtractionMethod != "" {
		s.ByExtractionMethod[rec.ExtractionMethod]++
	}
	if rec.Category != "" {
		s.ByCategory[rec.Category]++
	}
}

// Clusters returns all clusters in creation order.
func (p *Pipeline) Clusters() []*model.Cluster {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detector.Clusters()
}

// Representatives returns the current representative of every cluster
// in cluster creation order.
func (p *Pipeline) Representatives() []model.FeeRecord {
	p.mu.Lock()
	defer p.mu.Unlock()

	clusters := p.detector.Clusters()
	out := make([]model.FeeRecord, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, c.Representative)
	}
	return out
}

// Stats returns a snapshot of the run statistics.
func (p *Pipeline) Stats() model.RunStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := *p.stats
	snap.ErrorsByMunicipality = copyMap(p.stats.ErrorsByMunicipality)
	snap.ErrorsByCode = copyMap(p.stats.ErrorsByCode)
	snap.ByExtractionMethod = copyMap(p.stats.ByExtractionMethod)
	snap.ByCategory = copyMap(p.stats.ByCategory)
	return snap
}

// LogSummary writes the end-of-run statistics to the global logger.
func (p *Pipeline) LogSummary() {
	stats := p.Stats()
	zap.L().Info("pipeline: run complete",
		zap.Int("total_processed", stats.TotalProcessed),
		zap.Int("unique_items", stats.UniqueItems),
		zap.Int("duplicate_items", stats.DuplicateItems),
		zap.Int("merged_items", stats.MergedItems),
		zap.Int("invalid_items", stats.InvalidItems),
		zap.Float64("duplicate_rate", stats.DuplicateRate()),
		zap.Float64("validity_rate", stats.ValidityRate()),
	)
}

func copyMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
