package spreadsheet

import (
	"regexp"
	"strings"
)

// rangePattern recognizes a rectangular range like "A1:C3".
// cellPattern recognizes a single cell reference. Because it requires a
// trailing digit run, function names such as SUM/AVERAGE/COUNT never
// match it — they carry no digits.
var (
	rangePattern = regexp.MustCompile(`([A-Z]+[0-9]+):([A-Z]+[0-9]+)`)
	cellPattern  = regexp.MustCompile(`[A-Z]+[0-9]+`)
)

// IsFormula reports whether the trimmed input begins with "=".
func IsFormula(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "=")
}

// ValidateFormula fails with PARSE_ERROR if s does not begin with "=",
// is exactly "=", or has unbalanced parentheses.
func ValidateFormula(s string) error {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "=") {
		return newError(ErrParse, "formula must begin with '='")
	}
	if trimmed == "=" {
		return newError(ErrParse, "formula body is empty")
	}
	depth := 0
	for _, ch := range trimmed {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return newError(ErrParse, "unbalanced parentheses")
			}
		}
	}
	if depth != 0 {
		return newError(ErrParse, "unbalanced parentheses")
	}
	return nil
}

// ExtractRefs returns every cell address textually reachable from the
// formula body: ranges are expanded to their full rectangular cover and
// single-cell references are parsed directly. The result is deduplicated
// (a range's own endpoints also match the single-cell pattern).
func ExtractRefs(formula string) (map[Address]struct{}, error) {
	body := strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(formula), "="))

	refs := make(map[Address]struct{})
	for _, m := range rangePattern.FindAllStringSubmatch(body, -1) {
		start, err1 := NewAddress(m[1])
		end, err2 := NewAddress(m[2])
		if err1 != nil || err2 != nil {
			return nil, newError(ErrRef, "invalid range %q", m[0])
		}
		for _, a := range expandRange(start, end) {
			refs[a] = struct{}{}
		}
	}
	for _, m := range cellPattern.FindAllString(body, -1) {
		addr, err := NewAddress(m)
		if err != nil {
			// The regex guarantees letters+digits, so NewAddress only
			// fails here when the digit run starts with 0 (e.g. "A0"),
			// which is not a valid row; skip rather than abort the whole
			// extraction.
			continue
		}
		refs[addr] = struct{}{}
	}
	return refs, nil
}

// expandRange covers the rectangle between start and end inclusively,
// tolerating either corner ordering ("A3:A1" behaves like "A1:A3").
func expandRange(start, end Address) []Address {
	minRow, maxRow := start.Row, end.Row
	if minRow > maxRow {
		minRow, maxRow = maxRow, minRow
	}
	minCol, maxCol := start.Col, end.Col
	if minCol > maxCol {
		minCol, maxCol = maxCol, minCol
	}

	out := make([]Address, 0, (maxRow-minRow+1)*(maxCol-minCol+1))
	for r := minRow; r <= maxRow; r++ {
		for c := minCol; c <= maxCol; c++ {
			out = append(out, Address{Row: r, Col: c})
		}
	}
	return out
}
