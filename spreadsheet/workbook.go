package spreadsheet

import (
	"context"
	"sync"
)

// WorkbookStore handles workbook/sheet CRUD with cascading deletes down
// to cells. It is deliberately separate from CellStore so a persistence
// backend can implement one without the other. MemWorkbookStore is the
// only WorkbookStore; PostgresStore implements CellStore alone and has
// no workbook or sheet operations.
type WorkbookStore interface {
	CreateWorkbook(ctx context.Context, name string) (Workbook, error)
	CreateSheet(ctx context.Context, workbookID int64, name string, rowCount, columnCount int) (Sheet, error)
	GetSheet(ctx context.Context, sheetID int64) (Sheet, error)
	ListSheets(ctx context.Context, workbookID int64) ([]Sheet, error)
	DeleteWorkbook(ctx context.Context, workbookID int64) error
	DeleteSheet(ctx context.Context, sheetID int64) error
}

// MemWorkbookStore is the in-memory WorkbookStore, paired with MemStore
// for cell data; DeleteWorkbook/DeleteSheet reach into the paired
// CellStore to honor the cascading-delete invariant (deleting a sheet
// deletes all its cells) since a bare map of Sheet values has no
// foreign-key engine to do it for us.
type MemWorkbookStore struct {
	mu        sync.Mutex
	nextID    int64
	workbooks map[int64]*Workbook
	sheets    map[int64]*Sheet
	cells     CellStore
}

// NewMemWorkbookStore returns an empty WorkbookStore that cascades
// deletes into cells via the supplied CellStore.
func NewMemWorkbookStore(cells CellStore) *MemWorkbookStore {
	return &MemWorkbookStore{
		workbooks: make(map[int64]*Workbook),
		sheets:    make(map[int64]*Sheet),
		cells:     cells,
	}
}

func (s *MemWorkbookStore) nextIDLocked() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemWorkbookStore) CreateWorkbook(_ context.Context, name string) (Workbook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wb := Workbook{ID: s.nextIDLocked(), Name: name, Version: 1}
	s.workbooks[wb.ID] = &wb
	return wb, nil
}

func (s *MemWorkbookStore) CreateSheet(_ context.Context, workbookID int64, name string, rowCount, columnCount int) (Sheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workbooks[workbookID]; !ok {
		return Sheet{}, &CoreError{Kind: ErrNotFound, Message: "workbook not found"}
	}
	if rowCount <= 0 {
		rowCount = DefaultRowCount
	}
	if columnCount <= 0 {
		columnCount = DefaultColumnCount
	}
	sheet := Sheet{ID: s.nextIDLocked(), WorkbookID: workbookID, Name: name, RowCount: rowCount, ColumnCount: columnCount}
	s.sheets[sheet.ID] = &sheet
	return sheet, nil
}

func (s *MemWorkbookStore) GetSheet(_ context.Context, sheetID int64) (Sheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sheet, ok := s.sheets[sheetID]
	if !ok {
		return Sheet{}, &CoreError{Kind: ErrNotFound, Message: "sheet not found"}
	}
	return *sheet, nil
}

func (s *MemWorkbookStore) ListSheets(_ context.Context, workbookID int64) ([]Sheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Sheet
	for _, sheet := range s.sheets {
		if sheet.WorkbookID == workbookID {
			out = append(out, *sheet)
		}
	}
	return out, nil
}

func (s *MemWorkbookStore) DeleteWorkbook(ctx context.Context, workbookID int64) error {
	s.mu.Lock()
	var owned []int64
	for id, sheet := range s.sheets {
		if sheet.WorkbookID == workbookID {
			owned = append(owned, id)
		}
	}
	delete(s.workbooks, workbookID)
	for _, id := range owned {
		delete(s.sheets, id)
	}
	s.mu.Unlock()

	for _, id := range owned {
		if err := s.deleteSheetCells(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemWorkbookStore) DeleteSheet(ctx context.Context, sheetID int64) error {
	s.mu.Lock()
	delete(s.sheets, sheetID)
	s.mu.Unlock()
	return s.deleteSheetCells(ctx, sheetID)
}

func (s *MemWorkbookStore) deleteSheetCells(ctx context.Context, sheetID int64) error {
	cells, err := s.cells.List(ctx, sheetID)
	if err != nil {
		return err
	}
	for _, c := range cells {
		if err := s.cells.Delete(ctx, sheetID, c.Addr, 0); err != nil {
			return err
		}
	}
	return nil
}
