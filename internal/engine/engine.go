// Package engine runs one migration end to end: refresh the index, plan,
// commit atomically, reindex what changed and check reference integrity.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/0x5457/stitcher/internal/bus"
	"github.com/0x5457/stitcher/internal/errs"
	"github.com/0x5457/stitcher/internal/graph"
	"github.com/0x5457/stitcher/internal/indexer"
	"github.com/0x5457/stitcher/internal/models"
	"github.com/0x5457/stitcher/internal/parser"
	"github.com/0x5457/stitcher/internal/refactor"
	"github.com/0x5457/stitcher/internal/storage"
	"github.com/0x5457/stitcher/internal/transaction"
	"github.com/0x5457/stitcher/internal/workspace"
)

// Result reports one Apply call. Integrity holds an advisory
// IndexIntegrity error; it never turns a committed run into a failure.
type Result struct {
	Success   bool
	DryRun    bool
	Plan      *refactor.Plan
	Preview   []string
	Stats     models.IndexStats
	Integrity error
}

type Engine struct {
	ws       *workspace.Workspace
	store    storage.IndexStore
	registry *parser.Registry
	indexer  indexer.Indexer
	bus      bus.MessageBus
}

func New(
	ws *workspace.Workspace,
	store storage.IndexStore,
	registry *parser.Registry,
	idx indexer.Indexer,
	b bus.MessageBus,
) *Engine {
	return &Engine{ws: ws, store: store, registry: registry, indexer: idx, bus: bus.OrNop(b)}
}

func (e *Engine) Workspace() *workspace.Workspace { return e.ws }

func (e *Engine) Index(ctx context.Context) (models.IndexStats, error) {
	stats, err := e.indexer.Build(ctx)
	if err != nil {
		return stats, err
	}
	e.bus.Success(bus.IndexDone, bus.Params{
		"parsed":    stats.Parsed,
		"unchanged": stats.Unchanged,
		"removed":   stats.Removed,
		"failed":    len(stats.Failed),
	})
	return stats, nil
}

// Graph loads a fresh SemanticGraph over the current index.
func (e *Engine) Graph() (*graph.SemanticGraph, error) {
	g, err := graph.New(e.store)
	if err != nil {
		return nil, err
	}
	if err := g.Load(""); err != nil {
		return nil, err
	}
	return g, nil
}

// Plan refreshes the index and plans spec without touching the workspace.
func (e *Engine) Plan(ctx context.Context, spec *refactor.MigrationSpec) (*refactor.Plan, error) {
	e.bus.Info(bus.PlanStart, bus.Params{"operations": spec.Len()})
	if _, err := e.Index(ctx); err != nil {
		return nil, fmt.Errorf("refresh index: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g, err := e.Graph()
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	plan, err := refactor.NewPlanner(&refactor.Context{
		Workspace: e.ws,
		Graph:     g,
		Store:     e.store,
		Registry:  e.registry,
	}).Plan(spec)
	if err != nil {
		return nil, err
	}
	e.bus.Info(bus.PlanDone, bus.Params{"ops": len(plan.Ops)})
	return plan, nil
}

// Apply plans spec and, unless dryRun, commits it. A failed commit leaves
// the workspace as it was.
func (e *Engine) Apply(ctx context.Context, spec *refactor.MigrationSpec, dryRun bool) (*Result, error) {
	res := &Result{DryRun: dryRun}
	plan, err := e.Plan(ctx, spec)
	if err != nil {
		e.bus.Error(bus.CommitFailed, bus.Params{"error": err})
		return res, err
	}
	res.Plan = plan

	tx := transaction.NewManager(e.ws.Fs, e.ws.Root)
	for _, op := range plan.Ops {
		tx.Add(op)
	}
	res.Preview = tx.Preview()
	if dryRun || plan.Empty() {
		res.Success = true
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	if err := tx.Commit(); err != nil {
		e.bus.Error(bus.CommitFailed, bus.Params{"error": err})
		return res, err
	}
	res.Success = true
	e.bus.Success(bus.CommitSuccess, bus.Params{"ops": len(plan.Ops)})

	// the commit stands from here on; later problems are advisory
	stats, err := e.indexer.Refresh(context.WithoutCancel(ctx), plan.Touched())
	res.Stats = stats
	if err != nil {
		res.Integrity = fmt.Errorf("reindex after commit: %w", err)
		e.bus.Warning(bus.IntegrityWarning, bus.Params{"error": err})
		return res, nil
	}
	if err := e.indexer.CheckIntegrity(); err != nil {
		res.Integrity = err
		params := bus.Params{"error": err}
		var ie *errs.Error
		if errors.As(err, &ie) {
			params["count"] = len(ie.Details)
		}
		e.bus.Warning(bus.IntegrityWarning, params)
	}
	return res, nil
}

// FindUsages lists located references to fqn and everything nested in it.
func (e *Engine) FindUsages(ctx context.Context, fqn string, nested bool) ([]models.UsageLocation, error) {
	if _, err := e.Index(ctx); err != nil {
		return nil, err
	}
	g, err := e.Graph()
	if err != nil {
		return nil, err
	}
	if nested {
		return g.FindUsagesUnder(fqn)
	}
	return g.FindUsages(fqn)
}
