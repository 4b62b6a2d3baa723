package spreadsheet

import (
	"context"
	"sort"
	"sync"
	"time"
)

// CellStore is a sparse persistent key/value store keyed by
// (sheet, row, col), carrying a monotonically increasing per-row
// version. Every operation is atomic with respect to other CellStore
// operations; the Update Coordinator is the only thing that composes
// several of them into a higher-level transaction.
type CellStore interface {
	Get(ctx context.Context, sheetID int64, addr Address) (*Cell, error)
	List(ctx context.Context, sheetID int64) ([]Cell, error)
	ListFormulas(ctx context.Context, sheetID int64) ([]Cell, error)
	// Upsert creates or overwrites a cell. expectedVersion is the version
	// the caller last observed (0 for a cell it believes doesn't exist
	// yet); on mismatch the store returns VERSION_CONFLICT and makes no
	// change. On success the stored version becomes expectedVersion+1
	// and the updated Cell (with its new Version/UpdatedAt) is returned.
	Upsert(ctx context.Context, cell Cell, expectedVersion int64) (Cell, error)
	// Delete removes a cell; a no-op if absent. If expectedVersion > 0
	// it is checked the same way Upsert checks it.
	Delete(ctx context.Context, sheetID int64, addr Address, expectedVersion int64) error
}

// MemStore is an in-memory CellStore, safe for concurrent use. It is the
// default backend (no DSN configured) and what every unit test in this
// package runs against; PostgresStore (store_postgres.go) implements the
// identical contract against a real database.
type MemStore struct {
	mu    sync.Mutex
	cells map[int64]map[Address]*Cell
}

// NewMemStore returns an empty in-memory CellStore.
func NewMemStore() *MemStore {
	return &MemStore{cells: make(map[int64]map[Address]*Cell)}
}

func (s *MemStore) Get(_ context.Context, sheetID int64, addr Address) (*Cell, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sheet := s.cells[sheetID]
	if sheet == nil {
		return nil, nil
	}
	c, ok := sheet[addr]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *MemStore) List(_ context.Context, sheetID int64) ([]Cell, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sheet := s.cells[sheetID]
	out := make([]Cell, 0, len(sheet))
	for _, c := range sheet {
		out = append(out, *c)
	}
	sortCells(out)
	return out, nil
}

func (s *MemStore) ListFormulas(ctx context.Context, sheetID int64) ([]Cell, error) {
	all, err := s.List(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, c := range all {
		if c.Kind == KindFormula {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MemStore) Upsert(_ context.Context, cell Cell, expectedVersion int64) (Cell, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sheet := s.cells[cell.SheetID]
	if sheet == nil {
		sheet = make(map[Address]*Cell)
		s.cells[cell.SheetID] = sheet
	}
	existing, ok := sheet[cell.Addr]
	var currentVersion int64
	if ok {
		currentVersion = existing.Version
	}
	if currentVersion != expectedVersion {
		return Cell{}, &CoreError{Kind: ErrVersionConflict, Message: "version mismatch", Addr: cell.Addr.String()}
	}

	cell.Version = expectedVersion + 1
	cell.UpdatedAt = time.Now()
	stored := cell
	sheet[cell.Addr] = &stored
	return stored, nil
}

func (s *MemStore) Delete(_ context.Context, sheetID int64, addr Address, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sheet := s.cells[sheetID]
	if sheet == nil {
		return nil
	}
	existing, ok := sheet[addr]
	if !ok {
		return nil
	}
	if expectedVersion > 0 && existing.Version != expectedVersion {
		return &CoreError{Kind: ErrVersionConflict, Message: "version mismatch", Addr: addr.String()}
	}
	delete(sheet, addr)
	return nil
}

func sortCells(cells []Cell) {
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Addr.Row != cells[j].Addr.Row {
			return cells[i].Addr.Row < cells[j].Addr.Row
		}
		return cells[i].Addr.Col < cells[j].Addr.Col
	})
}
