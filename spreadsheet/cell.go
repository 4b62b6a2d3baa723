package spreadsheet

import "time"

// Kind is a cell's content classification.
type Kind string

const (
	KindText    Kind = "TEXT"
	KindNumber  Kind = "NUMBER"
	KindFormula Kind = "FORMULA"
	KindBoolean Kind = "BOOLEAN"
	KindError   Kind = "ERROR"
)

// Cell is the persisted record for one (sheet, row, col) coordinate.
// Only cells with non-empty Raw are ever stored (sparsity).
type Cell struct {
	SheetID   int64
	Addr      Address
	Kind      Kind
	Raw       string // user-entered text, e.g. "=SUM(A1:A3)", "42", "hello"
	Computed  string // displayable result; equals Raw for non-formulas
	Version   int64
	UpdatedAt time.Time
}

// Workbook is a named collection of sheets.
type Workbook struct {
	ID      int64
	Name    string
	Version int64
}

// Sheet is a bounded cell namespace owned by exactly one workbook.
type Sheet struct {
	ID          int64
	WorkbookID  int64
	Name        string
	RowCount    int
	ColumnCount int
}

// DefaultRowCount and DefaultColumnCount are the default sheet bounds.
const (
	DefaultRowCount    = 1000
	DefaultColumnCount = 26
)

// InBounds reports whether addr falls within the sheet's declared bounds.
func (s Sheet) InBounds(addr Address) bool {
	return addr.Row >= 1 && addr.Row <= s.RowCount && addr.Col >= 0 && addr.Col < s.ColumnCount
}

// CellView is the external, RPC-facing projection of a Cell.
type CellView struct {
	Row       int       `json:"row"`
	Col       int       `json:"col"`
	Addr      string    `json:"addr"`
	Kind      Kind      `json:"kind"`
	Raw       string    `json:"raw"`
	Computed  string    `json:"computed"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toView(c Cell) CellView {
	return CellView{
		Row:       c.Addr.Row,
		Col:       c.Addr.Col,
		Addr:      c.Addr.String(),
		Kind:      c.Kind,
		Raw:       c.Raw,
		Computed:  c.Computed,
		Version:   c.Version,
		UpdatedAt: c.UpdatedAt,
	}
}
