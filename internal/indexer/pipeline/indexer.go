package pipeline

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/0x5457/stitcher/internal/bus"
	"github.com/0x5457/stitcher/internal/errs"
	"github.com/0x5457/stitcher/internal/models"
	"github.com/0x5457/stitcher/internal/parser"
	"github.com/0x5457/stitcher/internal/storage"
	"github.com/0x5457/stitcher/internal/util"
	"github.com/0x5457/stitcher/internal/workspace"
)

const stagePointer = "index.stage"

type Options struct {
	ParseWorkers int
	Bus          bus.MessageBus
}

type Indexer struct {
	ws    *workspace.Workspace
	reg   *parser.Registry
	store storage.IndexStore
	opt   Options
}

func New(ws *workspace.Workspace, reg *parser.Registry, store storage.IndexStore, opt Options) *Indexer {
	if opt.ParseWorkers <= 0 {
		opt.ParseWorkers = runtime.NumCPU()
	}
	opt.Bus = bus.OrNop(opt.Bus)
	return &Indexer{ws: ws, reg: reg, store: store, opt: opt}
}

type job struct {
	path    string
	content []byte
}

type result struct {
	path string
	idx  *models.FileIndex
	err  error
}

func (i *Indexer) Build(ctx context.Context) (models.IndexStats, error) {
	var stats models.IndexStats
	i.stage(models.IndexStageScan, 0)
	files, err := i.ws.ListFiles(".", i.reg.Extensions())
	if err != nil {
		return stats, fmt.Errorf("scan workspace: %w", err)
	}
	stats.Scanned = len(files)

	jobs, err := i.changed(files, &stats)
	if err != nil {
		return stats, err
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if err := i.parseAndStore(jobs, &stats); err != nil {
		return stats, err
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	i.stage(models.IndexStagePrune, 0)
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f] = true
	}
	indexed, err := i.store.ListFiles()
	if err != nil {
		return stats, err
	}
	for _, f := range indexed {
		if present[f] {
			continue
		}
		if err := i.store.DeleteFile(f); err != nil {
			return stats, fmt.Errorf("delete %s: %w", f, err)
		}
		stats.Removed++
	}
	i.stage(models.IndexStageDone, stats.Parsed)
	return stats, nil
}

func (i *Indexer) Refresh(ctx context.Context, paths []string) (models.IndexStats, error) {
	var stats models.IndexStats
	var present []string
	for _, p := range dedupeSorted(paths) {
		if _, ok := i.reg.ForFile(p); !ok {
			continue
		}
		stats.Scanned++
		if i.ws.IsFile(p) {
			present = append(present, p)
			continue
		}
		if err := i.store.DeleteFile(p); err != nil {
			return stats, fmt.Errorf("delete %s: %w", p, err)
		}
		stats.Removed++
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	jobs, err := i.changed(present, &stats)
	if err != nil {
		return stats, err
	}
	return stats, i.parseAndStore(jobs, &stats)
}

// changed reads files and keeps the ones whose hash differs from the store.
func (i *Indexer) changed(files []string, stats *models.IndexStats) ([]job, error) {
	var jobs []job
	for _, f := range files {
		content, err := i.ws.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		hash, ok, err := i.store.GetContentHash(f)
		if err != nil {
			return nil, err
		}
		if ok && hash == util.ContentHash(content) {
			stats.Unchanged++
			continue
		}
		jobs = append(jobs, job{path: f, content: content})
	}
	return jobs, nil
}

// parseAndStore parses concurrently and upserts on the calling goroutine so
// each file lands in the store as one unit.
func (i *Indexer) parseAndStore(jobs []job, stats *models.IndexStats) error {
	if len(jobs) == 0 {
		return nil
	}
	i.stage(models.IndexStageParse, len(jobs))

	jobCh := make(chan job, len(jobs))
	resCh := make(chan result, len(jobs))
	var wg sync.WaitGroup
	for w := 0; w < min(i.opt.ParseWorkers, len(jobs)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				idx, err := i.reg.Parse(j.path, i.ws.ModuleFQN(j.path), j.content)
				resCh <- result{path: j.path, idx: idx, err: err}
			}
		}()
	}
	for _, j := range jobs {
		jobCh <- j
	}
	close(jobCh)
	go func() { wg.Wait(); close(resCh) }()

	results := make([]result, 0, len(jobs))
	for r := range resCh {
		results = append(results, r)
	}
	sort.Slice(results, func(a, b int) bool { return results[a].path < results[b].path })

	i.stage(models.IndexStageStore, len(results))
	for _, r := range results {
		if r.err != nil {
			// the previous entry stays; a rewrite of this file is refused later
			log.Printf("index: skip %s: %v", r.path, r.err)
			stats.Failed = append(stats.Failed, r.path)
			continue
		}
		if err := i.store.UpsertFile(*r.idx); err != nil {
			return fmt.Errorf("store %s: %w", r.path, err)
		}
		stats.Parsed++
	}
	return nil
}

func (i *Indexer) stage(s models.IndexStage, files int) {
	i.opt.Bus.Info(stagePointer, bus.Params{"stage": s, "files": files})
}

// CheckIntegrity flags located symbol and sidecar references whose target
// is missing while its nearest indexed ancestor is a module or class.
// Targets outside the index and members of functions or attributes are
// dynamic and tolerated.
func (i *Indexer) CheckIntegrity() error {
	refs, err := i.store.AllReferences()
	if err != nil {
		return err
	}
	kinds := make(map[string]models.SymbolKind)
	lookup := func(fqn string) (models.SymbolKind, bool, error) {
		if k, ok := kinds[fqn]; ok {
			return k, k != "", nil
		}
		sym, err := i.store.FindSymbol(fqn)
		if err != nil {
			return "", false, err
		}
		if sym == nil {
			kinds[fqn] = ""
			return "", false, nil
		}
		kinds[fqn] = sym.Kind
		return sym.Kind, true, nil
	}

	var dangling []string
	for _, r := range refs {
		if r.Range == nil || r.Kind == models.RefImportPath || r.TargetFQN == "" {
			continue
		}
		if _, ok, err := lookup(r.TargetFQN); err != nil {
			return err
		} else if ok {
			continue
		}
		for anc := parent(r.TargetFQN); anc != ""; anc = parent(anc) {
			kind, ok, err := lookup(anc)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if kind == models.SymbolModule || kind == models.SymbolClass {
				dangling = append(dangling, fmt.Sprintf("%s:%d %s (%s)",
					r.SourceFile, r.Range.StartLine, r.TargetFQN, r.Kind))
			}
			break
		}
	}
	if len(dangling) > 0 {
		return errs.IndexIntegrity(dangling)
	}
	return nil
}

func parent(fqn string) string {
	if i := strings.LastIndexByte(fqn, '.'); i >= 0 {
		return fqn[:i]
	}
	return ""
}

func dedupeSorted(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = workspace.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
