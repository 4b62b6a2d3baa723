package spreadsheet

import "testing"

func cellsFrom(t *testing.T, formulas map[string]string) []Cell {
	t.Helper()
	cells := make([]Cell, 0, len(formulas))
	for addr, raw := range formulas {
		cells = append(cells, Cell{Addr: mustAddr(t, addr), Kind: KindFormula, Raw: raw})
	}
	return cells
}

func TestDependencyGraphTopoSort(t *testing.T) {
	cells := cellsFrom(t, map[string]string{
		"A3": "=A1+A2",
		"A4": "=A3*2",
	})
	dg, err := NewDependencyGraph(cells)
	if err != nil {
		t.Fatalf("NewDependencyGraph: %v", err)
	}
	order, err := dg.TopoSort()
	if err != nil {
		t.Fatalf("TopoSort: %v", err)
	}
	pos := make(map[Address]int, len(order))
	for i, a := range order {
		pos[a] = i
	}
	if pos[mustAddr(t, "A3")] >= pos[mustAddr(t, "A4")] {
		t.Errorf("A3 must come before A4 in topo order: %v", order)
	}
}

func TestDependencyGraphTopoSortCycleCarriesAddress(t *testing.T) {
	cells := cellsFrom(t, map[string]string{
		"A1": "=A2",
		"A2": "=A1",
	})
	dg, err := NewDependencyGraph(cells)
	if err != nil {
		t.Fatalf("NewDependencyGraph: %v", err)
	}
	_, err = dg.TopoSort()
	ce, ok := err.(*CoreError)
	if !ok || ce.Kind != ErrCycle {
		t.Fatalf("expected CYCLE_ERROR, got %v", err)
	}
	if ce.Addr != "A1" && ce.Addr != "A2" {
		t.Errorf("expected the cycle error to carry A1 or A2, got %q", ce.Addr)
	}
}

func TestWouldCreateCycleDirect(t *testing.T) {
	cells := cellsFrom(t, map[string]string{"A1": "=A2"})
	newDeps := map[Address]struct{}{mustAddr(t, "A1"): {}}
	cyclic, err := WouldCreateCycle(cells, mustAddr(t, "A2"), newDeps)
	if err != nil {
		t.Fatalf("WouldCreateCycle: %v", err)
	}
	if !cyclic {
		t.Error("expected A2 = A1 to be rejected as a cycle given A1 = A2")
	}
}

func TestWouldCreateCycleSelfReference(t *testing.T) {
	cyclic, err := WouldCreateCycle(nil, mustAddr(t, "A1"), map[Address]struct{}{mustAddr(t, "A1"): {}})
	if err != nil {
		t.Fatalf("WouldCreateCycle: %v", err)
	}
	if !cyclic {
		t.Error("self-reference must be treated as a cycle")
	}
}

func TestWouldCreateCycleAcceptsAcyclicEdit(t *testing.T) {
	cells := cellsFrom(t, map[string]string{"A3": "=A1+A2"})
	cyclic, err := WouldCreateCycle(cells, mustAddr(t, "A4"), map[Address]struct{}{mustAddr(t, "A3"): {}})
	if err != nil {
		t.Fatalf("WouldCreateCycle: %v", err)
	}
	if cyclic {
		t.Error("A4 depending on A3 should not be cyclic")
	}
}

func TestTransitiveDependents(t *testing.T) {
	cells := cellsFrom(t, map[string]string{
		"B1": "=A1+1",
		"C1": "=B1*2",
	})
	dg, err := NewDependencyGraph(cells)
	if err != nil {
		t.Fatalf("NewDependencyGraph: %v", err)
	}
	dependents, err := dg.TransitiveDependents(mustAddr(t, "A1"))
	if err != nil {
		t.Fatalf("TransitiveDependents: %v", err)
	}
	for _, want := range []string{"B1", "C1"} {
		if _, ok := dependents[mustAddr(t, want)]; !ok {
			t.Errorf("expected %s to be a transitive dependent of A1: %v", want, dependents)
		}
	}
}
