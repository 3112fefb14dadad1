// Package planner gathers candidates and benchmark signals from their
// sources and turns them into dynamic plans.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/af-corp/aegis-modelplan/internal/catalog"
	"github.com/af-corp/aegis-modelplan/internal/config"
	"github.com/af-corp/aegis-modelplan/internal/policy"
	"github.com/af-corp/aegis-modelplan/internal/router"
	"github.com/af-corp/aegis-modelplan/internal/scoring"
	"github.com/af-corp/aegis-modelplan/internal/signals"
	"github.com/af-corp/aegis-modelplan/internal/telemetry"
	"github.com/af-corp/aegis-modelplan/internal/types"
)

// Admitter filters candidates before ranking.
type Admitter interface {
	Admit(ctx context.Context, models []types.DiscoveredModel) ([]types.DiscoveredModel, []policy.Rejection)
}

// Inputs is everything one plan build reads.
type Inputs struct {
	Candidates []types.DiscoveredModel
	Signals    types.SignalMap
	Rejected   []policy.Rejection
}

type Options struct {
	Catalogs []catalog.Source
	Signals  []signals.Source
	// Admitter may be nil, in which case every candidate is admitted.
	Admitter Admitter
	Install  func() config.InstallConfig
	Metrics  *telemetry.Metrics
	Logger   *slog.Logger
}

// Service builds dynamic plans on demand. Plans are never cached;
// concurrent callers share one in-flight build.
type Service struct {
	catalogs []catalog.Source
	signals  []signals.Source
	admitter Admitter
	install  func() config.InstallConfig
	metrics  *telemetry.Metrics
	logger   *slog.Logger

	builds singleflight.Group
}

func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	install := opts.Install
	if install == nil {
		install = func() config.InstallConfig { return config.DefaultConfig().Install }
	}
	return &Service{
		catalogs: opts.Catalogs,
		signals:  opts.Signals,
		admitter: opts.Admitter,
		install:  install,
		metrics:  opts.Metrics,
		logger:   logger,
	}
}

// Gather loads every catalog and signal source concurrently. A failing
// catalog source fails the gather; a failing signal source is logged and
// skipped since missing signals only remove boosts. Catalog lists merge in
// source order with the first entry per model winning, and signal entries
// keep the same precedence.
func (s *Service) Gather(ctx context.Context) (Inputs, error) {
	g, gctx := errgroup.WithContext(ctx)

	lists := make([][]types.DiscoveredModel, len(s.catalogs))
	for i, src := range s.catalogs {
		g.Go(func() error {
			models, err := src.Models(gctx)
			if err != nil {
				return fmt.Errorf("catalog source %d: %w", i, err)
			}
			lists[i] = models
			return nil
		})
	}

	entries := make([][]signals.Entry, len(s.signals))
	for i, src := range s.signals {
		g.Go(func() error {
			e, err := src.Entries(gctx)
			if err != nil {
				s.logger.Warn("signal source failed, continuing without it", "source", i, "error", err)
				return nil
			}
			entries[i] = e
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Inputs{}, err
	}

	var all []signals.Entry
	for _, e := range entries {
		all = append(all, e...)
	}
	in := Inputs{
		Candidates: catalog.Merge(lists...),
		Signals:    signals.BuildMap(all),
	}

	if s.admitter != nil {
		in.Candidates, in.Rejected = s.admitter.Admit(ctx, in.Candidates)
		for _, r := range in.Rejected {
			provider, _, _ := types.SplitModelID(r.Model)
			s.logger.Info("candidate rejected by policy", "model", r.Model, "reason", r.Reason)
			if s.metrics != nil {
				s.metrics.RecordPolicyRejection(provider)
			}
		}
	}
	return in, nil
}

// Scorer returns the scorer selected by the install configuration.
func Scorer(engine string) scoring.Scorer {
	if engine == config.ScoringV2 {
		return scoring.NewEngine()
	}
	return scoring.CapabilityScorer{}
}

// Plan gathers inputs and builds the dynamic plan. A nil plan with a nil
// error means no enabled provider had a candidate. The returned plan may be
// shared with concurrent callers and must not be modified.
func (s *Service) Plan(ctx context.Context) (*types.DynamicPlan, error) {
	// the build outlives any single caller's cancellation
	v, err, _ := s.builds.Do("plan", func() (any, error) {
		return s.build(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.DynamicPlan), nil
}

func (s *Service) build(ctx context.Context) (*types.DynamicPlan, error) {
	start := time.Now()
	install := s.install()
	engine := install.ScoringEngine
	if engine == "" {
		engine = config.ScoringV1
	}

	in, err := s.Gather(ctx)
	if err != nil {
		s.record(engine, "error", start)
		return nil, fmt.Errorf("gather planning inputs: %w", err)
	}

	plan := router.BuildPlan(in.Candidates, install.InstallConfig, in.Signals, Scorer(engine))
	if plan == nil {
		s.record(engine, "empty", start)
		s.logger.Warn("no plan: no enabled provider has a candidate", "candidates", len(in.Candidates))
		return nil, nil
	}
	s.record(engine, "ok", start)
	s.logger.Debug("dynamic plan built", "engine", engine, "candidates", len(in.Candidates), "elapsed", time.Since(start))
	return plan, nil
}

func (s *Service) record(engine, result string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordPlanBuild(engine, result, time.Since(start))
	}
}

// Explain ranks the candidate pool for role with the v2 engine and returns
// every candidate with its score breakdown, best first.
func (s *Service) Explain(ctx context.Context, role types.Role) ([]scoring.ScoredCandidate, error) {
	in, err := s.Gather(ctx)
	if err != nil {
		return nil, fmt.Errorf("gather planning inputs: %w", err)
	}
	pool := router.CandidatePool(in.Candidates, s.install().InstallConfig)
	return scoring.NewEngine().RankV2(pool, role, in.Signals), nil
}
