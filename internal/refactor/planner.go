package refactor

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/0x5457/stitcher/internal/errs"
	"github.com/0x5457/stitcher/internal/models"
	"github.com/0x5457/stitcher/internal/refactor/transform"
	"github.com/0x5457/stitcher/internal/sidecar"
	"github.com/0x5457/stitcher/internal/transaction"
	"github.com/0x5457/stitcher/internal/util"
)

// Plan is the ordered FileOp list for one migration: code writes at the
// current paths, moves, sidecar writes at the post-move paths, deletes,
// scaffolds, then lock files.
type Plan struct {
	Intents []Intent
	Ops     []transaction.FileOp
	Renames map[string]string
	Moves   map[string]string
}

func (p *Plan) Empty() bool { return p == nil || len(p.Ops) == 0 }

// Touched lists every path the plan reads or mutates, sorted and unique.
func (p *Plan) Touched() []string {
	seen := make(map[string]bool)
	for _, op := range p.Ops {
		for _, path := range transaction.Paths(op) {
			seen[path] = true
		}
	}
	out := make([]string, 0, len(seen))
	for path := range seen {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

type Planner struct {
	ctx   *Context
	locks *sidecar.LockManager
}

func NewPlanner(ctx *Context) *Planner {
	return &Planner{ctx: ctx, locks: sidecar.NewLockManager(ctx.Workspace)}
}

// Plan collects intents from every operation in order, checks them for
// conflicts and turns them into FileOps. Nothing is written.
func (p *Planner) Plan(spec *MigrationSpec) (*Plan, error) {
	var all []Intent
	for _, op := range spec.Operations() {
		intents, err := op.CollectIntents(p.ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op.Describe(), err)
		}
		all = append(all, intents...)
	}
	intents := dedupe(all)

	plan := &Plan{Intents: intents, Renames: map[string]string{}, Moves: map[string]string{}}
	if err := p.collectRenames(plan); err != nil {
		return nil, err
	}
	moveOrder, err := p.collectMoves(plan)
	if err != nil {
		return nil, err
	}

	codeOps, err := p.planCode(plan)
	if err != nil {
		return nil, err
	}
	plan.Ops = append(plan.Ops, codeOps...)

	update := p.sidecarUpdate(plan, moveOrder)
	sidecarOps, lockRoots, err := p.planSidecars(plan, update)
	if err != nil {
		return nil, err
	}

	for _, src := range moveOrder {
		plan.Ops = append(plan.Ops, transaction.MoveFile{Src: src, Dest: plan.Moves[src]})
	}
	plan.Ops = append(plan.Ops, sidecarOps...)
	for _, in := range intents {
		switch it := in.(type) {
		case DeleteFileIntent:
			plan.Ops = append(plan.Ops, transaction.DeleteFile{Path: it.Path})
		case DeleteDirectoryIntent:
			plan.Ops = append(plan.Ops, transaction.DeletePath{Path: it.Path, Recursive: true})
		}
	}
	for _, in := range intents {
		if it, ok := in.(ScaffoldIntent); ok && !p.ctx.Workspace.Exists(it.Path) && !isMoveDest(plan, it.Path) {
			plan.Ops = append(plan.Ops, transaction.WriteFile{Path: it.Path, Content: []byte(it.Content)})
		}
	}

	locks, err := p.locks.PlanLocks(update, lockRoots)
	if err != nil {
		return nil, fmt.Errorf("plan locks: %w", err)
	}
	lockPaths := make([]string, 0, len(locks))
	for lp := range locks {
		lockPaths = append(lockPaths, lp)
	}
	sort.Strings(lockPaths)
	for _, lp := range lockPaths {
		plan.Ops = append(plan.Ops, transaction.WriteFile{Path: lp, Content: locks[lp]})
	}
	return plan, nil
}

func dedupe(in []Intent) []Intent {
	seen := make(map[Intent]bool, len(in))
	out := make([]Intent, 0, len(in))
	for _, it := range in {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

// collectRenames builds the rename map. A rename spelled with a name that
// only exists after a move is applied to the symbol the move renames into
// it, and a name change plus a package change of the same symbol compose.
func (p *Planner) collectRenames(plan *Plan) error {
	var renames []RenameIntent
	producer := make(map[string]int)
	for _, in := range plan.Intents {
		r, ok := in.(RenameIntent)
		if !ok || r.OldFQN == r.NewFQN {
			continue
		}
		if _, seen := producer[r.NewFQN]; !seen {
			producer[r.NewFQN] = len(renames)
		}
		renames = append(renames, r)
	}

	dropped := make(map[int]bool)
	for i, r := range renames {
		j, ok := producer[r.OldFQN]
		if !ok || j == i || dropped[j] {
			continue
		}
		if sym, err := p.ctx.Graph.FindSymbol(r.OldFQN); err != nil || sym != nil {
			continue
		}
		src := renames[j].OldFQN
		retarget(renames, src, r.OldFQN, r.NewFQN)
		dropped[i] = true
		p.chainSidecars(plan, src, r.NewFQN)
	}

	type composed struct{ old, a, b, merged string }
	var merges []composed
	for i, r := range renames {
		if dropped[i] {
			continue
		}
		prev, ok := plan.Renames[r.OldFQN]
		if !ok || prev == r.NewFQN {
			plan.Renames[r.OldFQN] = r.NewFQN
			continue
		}
		merged, ok := compose(r.OldFQN, prev, r.NewFQN)
		if !ok {
			return errs.IntentConflict("%s renamed to both %s and %s", r.OldFQN, prev, r.NewFQN)
		}
		plan.Renames[r.OldFQN] = merged
		merges = append(merges, composed{r.OldFQN, prev, r.NewFQN, merged})
	}
	for _, m := range merges {
		for old, cur := range plan.Renames {
			rest, ok := transform.StripPrefix(old, m.old)
			if !ok || rest == "" {
				continue
			}
			if cur == m.a+rest || cur == m.b+rest {
				plan.Renames[old] = m.merged + rest
			}
		}
	}
	return nil
}

// retarget points the rename of src, and of every member of src that
// followed it, from the name moved to the name wanted.
func retarget(renames []RenameIntent, src, moved, wanted string) {
	for k := range renames {
		rest, ok := transform.StripPrefix(renames[k].OldFQN, src)
		if ok && renames[k].NewFQN == moved+rest {
			renames[k].NewFQN = wanted + rest
		}
	}
}

// chainSidecars adds the sidecar key updates a rename of a post-move name
// could not add itself, since only the pre-move symbol is indexed.
func (p *Planner) chainSidecars(plan *Plan, old, newFQN string) {
	sym, err := p.ctx.Graph.FindSymbol(old)
	if err != nil || sym == nil {
		return
	}
	module := p.ctx.Workspace.ModuleFQN(sym.FilePath)
	for _, sc := range sidecarsOf(p.ctx.Workspace, sym.FilePath) {
		plan.Intents = append(plan.Intents, SidecarUpdateIntent{
			SidecarPath: sc,
			ModuleFQN:   module,
			OldFQN:      old,
			NewFQN:      newFQN,
		})
	}
}

// compose merges a name change and a package change of old into one rename.
func compose(old, a, b string) (string, bool) {
	sameParent := func(n string) bool { return parentFQN(n) == parentFQN(old) }
	sameName := func(n string) bool { return lastSegment(n) == lastSegment(old) }
	switch {
	case sameParent(a) && sameName(b):
		return joinFQN(parentFQN(b), lastSegment(a)), true
	case sameParent(b) && sameName(a):
		return joinFQN(parentFQN(a), lastSegment(b)), true
	}
	return "", false
}

func lastSegment(fqn string) string {
	return fqn[strings.LastIndexByte(fqn, '.')+1:]
}

func joinFQN(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func (p *Planner) collectMoves(plan *Plan) ([]string, error) {
	var order []string
	byDest := make(map[string]string)
	for _, in := range plan.Intents {
		m, ok := in.(MoveFileIntent)
		if !ok || m.Src == m.Dest {
			continue
		}
		if prev, ok := plan.Moves[m.Src]; ok {
			if prev != m.Dest {
				return nil, errs.IntentConflict("%s moved to both %s and %s", m.Src, prev, m.Dest)
			}
			continue
		}
		if prev, ok := byDest[m.Dest]; ok {
			return nil, errs.IntentConflict("%s and %s both move to %s", prev, m.Src, m.Dest)
		}
		plan.Moves[m.Src] = m.Dest
		byDest[m.Dest] = m.Src
		order = append(order, m.Src)
	}
	for _, src := range order {
		dest := plan.Moves[src]
		if _, movedAway := plan.Moves[dest]; p.ctx.Workspace.Exists(dest) && !movedAway {
			return nil, errs.IntentConflict("move %s: destination %s already exists", src, dest)
		}
	}
	return orderMoves(plan.Moves, order)
}

// orderMoves runs a move that frees a destination before the move into it.
// Cycles such as swaps have no such order.
func orderMoves(moves map[string]string, order []string) ([]string, error) {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int, len(order))
	out := make([]string, 0, len(order))
	var visit func(src string) error
	visit = func(src string) error {
		switch state[src] {
		case done:
			return nil
		case visiting:
			return errs.IntentConflict("moves through %s form a cycle", src)
		}
		state[src] = visiting
		if dest := moves[src]; dest != "" {
			if _, frees := moves[dest]; frees {
				if err := visit(dest); err != nil {
					return err
				}
			}
		}
		state[src] = done
		out = append(out, src)
		return nil
	}
	for _, src := range order {
		if err := visit(src); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func isMoveDest(plan *Plan, p string) bool {
	for _, dest := range plan.Moves {
		if dest == p {
			return true
		}
	}
	return false
}

// longestRename finds the longest renamed FQN equal to target or enclosing it.
func longestRename(renames map[string]string, target string) (string, bool) {
	for cur := target; cur != ""; {
		if _, ok := renames[cur]; ok {
			return cur, true
		}
		i := strings.LastIndexByte(cur, '.')
		if i < 0 {
			break
		}
		cur = cur[:i]
	}
	return "", false
}

type fileLocations struct {
	symbols    []models.UsageLocation
	namespaces map[string][]models.UsageLocation
}

// planCode rewrites every source file holding a usage of a renamed FQN. Files
// are written at their current path; moves run afterwards.
func (p *Planner) planCode(plan *Plan) ([]transaction.FileOp, error) {
	olds := make([]string, 0, len(plan.Renames))
	for old := range plan.Renames {
		olds = append(olds, old)
	}
	sort.Strings(olds)

	byFile := make(map[string]*fileLocations)
	at := func(file string) *fileLocations {
		fl, ok := byFile[file]
		if !ok {
			fl = &fileLocations{namespaces: map[string][]models.UsageLocation{}}
			byFile[file] = fl
		}
		return fl
	}
	for _, old := range olds {
		uses, err := p.ctx.Graph.FindUsagesUnder(old)
		if err != nil {
			return nil, fmt.Errorf("usages of %s: %w", old, err)
		}
		for _, u := range uses {
			switch u.Kind {
			case models.RefSymbol:
				if u.TargetFQN == old {
					at(u.FilePath).symbols = append(at(u.FilePath).symbols, u)
				}
			case models.RefImportPath:
				if best, _ := longestRename(plan.Renames, u.TargetFQN); best == old {
					fl := at(u.FilePath)
					fl.namespaces[old] = append(fl.namespaces[old], u)
				}
			}
		}
	}

	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	var ops []transaction.FileOp
	for _, file := range files {
		content, err := p.checkedContent(file)
		if err != nil {
			return nil, err
		}
		fl := byFile[file]
		edits, handled, err := p.fromImportEdits(file, content, plan.Renames)
		if err != nil {
			return nil, err
		}
		sr := &transform.SymbolRenamer{RenameMap: plan.Renames, Locations: fl.symbols}
		edits = append(edits, sr.Edits(content)...)
		for old, locs := range fl.namespaces {
			var kept []models.UsageLocation
			for _, l := range locs {
				if !handled[l.Range] {
					kept = append(kept, l)
				}
			}
			ns := &transform.NamespaceRenamer{OldPrefix: old, NewPrefix: plan.Renames[old], Locations: kept}
			edits = append(edits, ns.Edits(content)...)
		}
		if len(edits) == 0 {
			continue
		}
		out, err := transform.ApplyEdits(content, edits)
		if err != nil {
			return nil, errs.IntentConflict("%s: %v", file, err)
		}
		if string(out) != string(content) {
			ops = append(ops, transaction.WriteFile{Path: file, Content: out})
		}
	}
	return ops, nil
}

// checkedContent reads a file scheduled for rewrite and makes sure the index
// still describes it and the adapter can parse it.
func (p *Planner) checkedContent(file string) ([]byte, error) {
	ws := p.ctx.Workspace
	content, err := ws.ReadFile(file)
	if err != nil {
		return nil, errs.Parse(file, err)
	}
	if hash, ok, err := p.ctx.Store.GetContentHash(file); err == nil && ok && hash != util.ContentHash(content) {
		return nil, errs.Parse(file, fmt.Errorf("file changed since it was indexed"))
	}
	if _, err := p.ctx.Registry.Parse(file, ws.ModuleFQN(file), content); err != nil {
		if errs.IsKind(err, errs.KindParse) {
			return nil, err
		}
		return nil, errs.Parse(file, err)
	}
	return content, nil
}

// sidecarUpdate builds the SURI rewrite shared by every sidecar and lock.
func (p *Planner) sidecarUpdate(plan *Plan, moveOrder []string) sidecar.Update {
	var u sidecar.Update
	olds := make([]string, 0, len(plan.Renames))
	for old := range plan.Renames {
		olds = append(olds, old)
	}
	sort.Strings(olds)
	for _, old := range olds {
		sym, err := p.ctx.Graph.FindSymbol(old)
		if err != nil || sym == nil || sym.Kind == models.SymbolModule {
			continue
		}
		module := p.ctx.Workspace.ModuleFQN(sym.FilePath)
		newModule := module
		if dest, moving := plan.Moves[sym.FilePath]; moving {
			newModule = p.ctx.Workspace.ModuleFQN(dest)
		}
		oldFrag, ok1 := fragment(old, module)
		newFrag, ok2 := fragment(plan.Renames[old], newModule)
		if ok1 && ok2 && oldFrag != newFrag {
			u.Symbols = append(u.Symbols, sidecar.SymbolRename{
				Path:        sym.FilePath,
				OldFragment: oldFrag,
				NewFragment: newFrag,
			})
		}
	}
	for _, src := range moveOrder {
		u.Moves = append(u.Moves, sidecar.PathMove{Old: src, New: plan.Moves[src]})
	}
	return u
}

func fragment(fqn, module string) (string, bool) {
	if module == "" || !strings.HasPrefix(fqn, module+".") {
		return "", false
	}
	return fqn[len(module)+1:], true
}

// planSidecars merges the updates per document or signature sidecar and
// returns the package roots whose locks need planning. Content is read at
// the current path and written where the sidecar lives after the moves.
func (p *Planner) planSidecars(plan *Plan, global sidecar.Update) ([]transaction.FileOp, []string, error) {
	var order []string
	keyRenames := make(map[string]map[string]string)
	var lockRoots []string
	seenRoot := make(map[string]bool)

	for _, in := range plan.Intents {
		s, ok := in.(SidecarUpdateIntent)
		if !ok {
			continue
		}
		if sidecar.KindOf(s.SidecarPath) == sidecar.KindLock {
			root := path.Dir(s.SidecarPath)
			if !seenRoot[root] {
				seenRoot[root] = true
				lockRoots = append(lockRoots, root)
			}
			continue
		}
		if _, ok := keyRenames[s.SidecarPath]; !ok {
			keyRenames[s.SidecarPath] = map[string]string{}
			order = append(order, s.SidecarPath)
		}
		// keys are relative to the module the sidecar describes after the
		// migration
		target, ok := plan.Renames[s.OldFQN]
		if !ok {
			target = s.NewFQN
		}
		module := s.ModuleFQN
		if m, ok := plan.Renames[module]; ok {
			module = m
		}
		oldKey, ok1 := fragment(s.OldFQN, s.ModuleFQN)
		newKey, ok2 := fragment(target, module)
		if ok1 && ok2 {
			keyRenames[s.SidecarPath][oldKey] = newKey
		}
	}

	var ops []transaction.FileOp
	for _, sc := range order {
		if !p.ctx.Workspace.IsFile(sc) {
			continue
		}
		content, err := p.ctx.Workspace.ReadFile(sc)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", sc, err)
		}
		u := global.Merge(sidecar.Update{KeyRenames: keyRenames[sc]})
		var out []byte
		var changed bool
		switch sidecar.KindOf(sc) {
		case sidecar.KindDoc:
			out, changed, err = sidecar.UpdateYAML(content, u)
		case sidecar.KindSignature:
			out, changed, err = sidecar.UpdateJSON(content, u)
		default:
			continue
		}
		var conflict *errs.Error
		switch {
		case errors.As(err, &conflict) && conflict.Kind == errs.KindIntentConflict:
			conflict.Path = sc
			return nil, nil, conflict
		case err != nil:
			return nil, nil, errs.Parse(sc, err)
		}
		if changed {
			dest := sc
			if moved, ok := plan.Moves[sc]; ok {
				dest = moved
			}
			ops = append(ops, transaction.WriteFile{Path: dest, Content: out})
		}
	}
	return ops, lockRoots, nil
}
