package spreadsheet

import (
	"context"
	"testing"
)

func TestMemStoreUpsertVersioning(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	addr := mustAddr(t, "A1")

	cell := Cell{SheetID: 1, Addr: addr, Kind: KindNumber, Raw: "10", Computed: "10"}
	stored, err := store.Upsert(ctx, cell, 0)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if stored.Version != 1 {
		t.Errorf("got version %d, want 1", stored.Version)
	}

	cell.Raw, cell.Computed = "20", "20"
	stored, err = store.Upsert(ctx, cell, 1)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if stored.Version != 2 {
		t.Errorf("got version %d, want 2", stored.Version)
	}
}

func TestMemStoreUpsertVersionConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	addr := mustAddr(t, "A1")
	if _, err := store.Upsert(ctx, Cell{SheetID: 1, Addr: addr, Raw: "10"}, 0); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	_, err := store.Upsert(ctx, Cell{SheetID: 1, Addr: addr, Raw: "20"}, 0)
	ce, ok := err.(*CoreError)
	if !ok || ce.Kind != ErrVersionConflict {
		t.Fatalf("expected VERSION_CONFLICT, got %v", err)
	}
}

func TestMemStoreDeleteClearsRow(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	addr := mustAddr(t, "A1")
	stored, err := store.Upsert(ctx, Cell{SheetID: 1, Addr: addr, Raw: "10"}, 0)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Delete(ctx, 1, addr, stored.Version); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := store.Get(ctx, 1, addr)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("expected cell to be gone after delete, got %v", got)
	}
}

func TestMemStoreListFormulas(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	if _, err := store.Upsert(ctx, Cell{SheetID: 1, Addr: mustAddr(t, "A1"), Kind: KindNumber, Raw: "10", Computed: "10"}, 0); err != nil {
		t.Fatalf("Upsert A1: %v", err)
	}
	if _, err := store.Upsert(ctx, Cell{SheetID: 1, Addr: mustAddr(t, "A2"), Kind: KindFormula, Raw: "=A1+1", Computed: "11"}, 0); err != nil {
		t.Fatalf("Upsert A2: %v", err)
	}
	if _, err := store.Upsert(ctx, Cell{SheetID: 1, Addr: mustAddr(t, "A3"), Kind: KindText, Raw: "label", Computed: "label"}, 0); err != nil {
		t.Fatalf("Upsert A3: %v", err)
	}

	formulas, err := store.ListFormulas(ctx, 1)
	if err != nil {
		t.Fatalf("ListFormulas: %v", err)
	}
	if len(formulas) != 1 {
		t.Fatalf("got %d formula cells, want 1", len(formulas))
	}
	if formulas[0].Addr.String() != "A2" || formulas[0].Kind != KindFormula {
		t.Errorf("got %+v, want the A2 formula cell", formulas[0])
	}
}

func TestMemStoreSparsity(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	if _, err := store.Upsert(ctx, Cell{SheetID: 1, Addr: mustAddr(t, "A1"), Raw: "10"}, 0); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	cells, err := store.List(ctx, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(cells) != 1 {
		t.Fatalf("got %d cells, want 1", len(cells))
	}
	if cells[0].Raw == "" {
		t.Error("sparsity violated: empty-raw cell present")
	}
}
