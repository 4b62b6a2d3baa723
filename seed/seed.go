// Package seed loads demonstration data into a sheet, exercising plain
// arithmetic and the SUM/AVERAGE/COUNT grammar this engine evaluates.
package seed

import (
	"context"
	"fmt"

	"sheetcore/spreadsheet"
)

// LoadIntro populates a small, human-readable demo exercising a simple
// formula, a range aggregate, and cascade re-evaluation — S1 through S3.
func LoadIntro(ctx context.Context, coordinator *spreadsheet.Coordinator, sheet spreadsheet.Sheet) error {
	set := func(addr string, value string) error {
		a, err := spreadsheet.NewAddress(addr)
		if err != nil {
			return err
		}
		_, err = coordinator.Update(ctx, sheet, spreadsheet.UpdateRequest{Row: a.Row, Col: a.Col, Value: value})
		return err
	}

	entries := []struct{ addr, value string }{
		{"A1", "10"},
		{"A2", "20"},
		{"A3", "=A1+A2"},
		{"A5", "30"},
		{"A6", "=SUM(A1:A5)+5"},
		{"A8", "=10/0"},
		{"B1", "Quarter"},
		{"B2", "Revenue"},
		{"C1", "Q1"},
		{"C2", "1000"},
		{"D1", "Q2"},
		{"D2", "1500"},
		{"E1", "Total"},
		{"E2", "=SUM(C2:D2)"},
		{"F1", "Average"},
		{"F2", "=AVERAGE(C2:D2)"},
	}
	for _, e := range entries {
		if err := set(e.addr, e.value); err != nil {
			return fmt.Errorf("seed: set %s: %w", e.addr, err)
		}
	}
	return nil
}

// LoadMatrix populates an N x N matrix of numeric cells alongside a
// second matrix of formulas that double each source cell, plus a row of
// column sums.
func LoadMatrix(ctx context.Context, coordinator *spreadsheet.Coordinator, sheet spreadsheet.Sheet, size int) error {
	set := func(row, col int, value string) error {
		_, err := coordinator.Update(ctx, sheet, spreadsheet.UpdateRequest{Row: row, Col: col, Value: value})
		return err
	}

	const startRow = 2
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			val := r*size + c + 1
			if err := set(startRow+r, c, fmt.Sprintf("%d", val)); err != nil {
				return fmt.Errorf("seed: matrix source (%d,%d): %w", r, c, err)
			}
		}
	}

	resultCol := size + 2
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			src := spreadsheet.Address{Row: startRow + r, Col: c}
			formula := fmt.Sprintf("=%s*2", src.String())
			if err := set(startRow+r, resultCol+c, formula); err != nil {
				return fmt.Errorf("seed: matrix result (%d,%d): %w", r, c, err)
			}
		}
	}

	sumRow := startRow + size + 1
	for c := 0; c < size; c++ {
		top := spreadsheet.Address{Row: startRow, Col: resultCol + c}
		bottom := spreadsheet.Address{Row: startRow + size - 1, Col: resultCol + c}
		formula := fmt.Sprintf("=SUM(%s:%s)", top.String(), bottom.String())
		if err := set(sumRow, resultCol+c, formula); err != nil {
			return fmt.Errorf("seed: matrix column sum %d: %w", c, err)
		}
	}
	return nil
}
