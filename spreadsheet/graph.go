package spreadsheet

import (
	"context"
	"errors"

	"github.com/katalvlaran/lvlath/bfs"
	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/dfs"
)

// DependencyGraph is a mapping from each formula cell to the cells it
// depends on. It is rebuilt from scratch on every edit, never mutated in
// place and never shared across edits — the dependency graph is always
// computed from the store, never cached.
//
// Internally it is backed by lvlath's core.Graph, with edges stored
// dependency -> dependent (the reverse of the logical "C depends on D"
// relation) so that both topological order and forward reachability
// from a changed cell fall out of the library's existing DFS/BFS
// algorithms without a second, hand-rolled reversal step.
type DependencyGraph struct {
	g    *core.Graph
	deps map[Address]map[Address]struct{} // G[C] = C's dependencies
}

// NewDependencyGraph builds G from the FORMULA cells in cells. Every
// address appearing anywhere — as a formula cell or merely as something
// a formula references — becomes a vertex; leaves with no dependencies
// of their own still appear as values in another cell's dependency set.
func NewDependencyGraph(cells []Cell) (*DependencyGraph, error) {
	dg := &DependencyGraph{
		g:    core.NewGraph(core.WithDirected(true)),
		deps: make(map[Address]map[Address]struct{}),
	}
	for _, c := range cells {
		dg.ensureVertex(c.Addr)
	}
	for _, c := range cells {
		if c.Kind != KindFormula {
			continue
		}
		refs, err := ExtractRefs(c.Raw)
		if err != nil {
			return nil, err
		}
		if err := dg.setDeps(c.Addr, refs); err != nil {
			return nil, err
		}
	}
	return dg, nil
}

func (dg *DependencyGraph) ensureVertex(a Address) {
	key := a.String()
	if !dg.g.HasVertex(key) {
		_ = dg.g.AddVertex(key)
	}
	if _, ok := dg.deps[a]; !ok {
		dg.deps[a] = make(map[Address]struct{})
	}
}

// setDeps records that addr depends on every address in refs, adding the
// corresponding dependency->dependent edges.
func (dg *DependencyGraph) setDeps(addr Address, refs map[Address]struct{}) error {
	dg.ensureVertex(addr)
	dg.deps[addr] = make(map[Address]struct{}, len(refs))
	for ref := range refs {
		dg.ensureVertex(ref)
		dg.deps[addr][ref] = struct{}{}
		if ref == addr {
			return &CoreError{Kind: ErrCycle, Message: "formula references itself", Addr: addr.String()}
		}
		if _, err := dg.g.AddEdge(ref.String(), addr.String(), 0); err != nil {
			return newError(ErrRef, "could not record dependency %s -> %s: %v", ref, addr, err)
		}
	}
	return nil
}

// Deps returns the dependency set of addr.
func (dg *DependencyGraph) Deps(addr Address) map[Address]struct{} {
	return dg.deps[addr]
}

// TopoSort returns a linear order in which every address appears after
// all of its dependencies. Fails with CYCLE_ERROR carrying the offending
// address if g is not acyclic.
func (dg *DependencyGraph) TopoSort() ([]Address, error) {
	order, err := dfs.TopologicalSort(dg.g)
	if err != nil {
		if errors.Is(err, dfs.ErrCycleDetected) {
			return nil, &CoreError{Kind: ErrCycle, Message: "dependency cycle detected", Addr: dg.findCycleMember()}
		}
		return nil, newError(ErrCycle, "topological sort failed: %v", err)
	}
	out := make([]Address, 0, len(order))
	for _, id := range order {
		addr, parseErr := NewAddress(id)
		if parseErr != nil {
			continue
		}
		out = append(out, addr)
	}
	return out, nil
}

// findCycleMember re-walks the dependency map with its own white/gray/black
// DFS to name one address on the cycle lvlath reported: the vertex it
// revisits while that vertex is still Gray (on the current recursion
// stack). dfs.TopologicalSort itself only returns ErrCycleDetected, with
// no offending vertex, so this runs independently of the lvlath graph.
func (dg *DependencyGraph) findCycleMember() string {
	const (
		white = iota
		gray
		black
	)
	state := make(map[Address]int, len(dg.deps))
	var offender string
	var visit func(a Address) bool
	visit = func(a Address) bool {
		switch state[a] {
		case gray:
			offender = a.String()
			return true
		case black:
			return false
		}
		state[a] = gray
		for dep := range dg.deps[a] {
			if visit(dep) {
				return true
			}
		}
		state[a] = black
		return false
	}
	for a := range dg.deps {
		if state[a] == white {
			if visit(a) {
				return offender
			}
		}
	}
	return ""
}

// WouldCreateCycle reports whether setting src's dependencies to newDeps
// would make the graph cyclic, including the trivial self-reference case
// (src appearing in its own newDeps). It clones the graph built from
// cells, overrides src's dependency set, and re-runs TopoSort.
func WouldCreateCycle(cells []Cell, src Address, newDeps map[Address]struct{}) (bool, error) {
	if _, self := newDeps[src]; self {
		return true, nil
	}
	base, err := NewDependencyGraph(cells)
	if err != nil {
		var ce *CoreError
		if errors.As(err, &ce) && ce.Kind == ErrCycle {
			return true, nil
		}
		return false, err
	}

	clone := &DependencyGraph{
		g:    core.NewGraph(core.WithDirected(true)),
		deps: make(map[Address]map[Address]struct{}),
	}
	for addr := range base.deps {
		clone.ensureVertex(addr)
	}
	clone.ensureVertex(src)
	for addr, refs := range base.deps {
		if addr == src {
			continue
		}
		if err := clone.setDeps(addr, refs); err != nil {
			return true, nil // self-loop or similar structural issue: treat as cyclic
		}
	}
	if err := clone.setDeps(src, newDeps); err != nil {
		var ce *CoreError
		if errors.As(err, &ce) && ce.Kind == ErrCycle {
			return true, nil
		}
		return false, err
	}

	if _, err := clone.TopoSort(); err != nil {
		var ce *CoreError
		if errors.As(err, &ce) && ce.Kind == ErrCycle {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// TransitiveDependents returns every address reachable from target by
// following dependency->dependent edges, i.e. every cell whose value
// (transitively) depends on target. It terminates even over a
// momentarily-inconsistent graph because BFS never revisits a vertex.
func (dg *DependencyGraph) TransitiveDependents(target Address) (map[Address]struct{}, error) {
	key := target.String()
	out := make(map[Address]struct{})
	if !dg.g.HasVertex(key) {
		return out, nil
	}
	res, err := bfs.BFS(dg.g, key, bfs.WithContext(context.Background()))
	if err != nil {
		return nil, newError(ErrCycle, "dependent traversal failed: %v", err)
	}
	for _, id := range res.Order {
		if id == key {
			continue
		}
		addr, parseErr := NewAddress(id)
		if parseErr != nil {
			continue
		}
		out[addr] = struct{}{}
	}
	return out, nil
}
