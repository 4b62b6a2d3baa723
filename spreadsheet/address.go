package spreadsheet

import (
	"regexp"
	"strconv"
	"strings"
)

// Address identifies a single cell by its 1-based row and 0-based column.
type Address struct {
	Row int
	Col int
}

var addrPattern = regexp.MustCompile(`^[A-Z]+[1-9][0-9]*$`)

// String renders the address in upper-case A1 notation, e.g. Address{Row: 10, Col: 26}.String() == "AA10".
func (a Address) String() string {
	return encodeColumn(a.Col) + strconv.Itoa(a.Row)
}

// NewAddress decodes an A1-notation string such as "A1" or "AA10".
// Input is case-insensitive; the returned address always round-trips
// through String(). Fails with ErrInvalidAddress if s does not match
// ^[A-Z]+[1-9][0-9]*$ once upper-cased.
func NewAddress(s string) (Address, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	if !addrPattern.MatchString(up) {
		return Address{}, &CoreError{Kind: ErrInvalidAddress, Message: "invalid cell address: " + s}
	}
	i := 0
	for i < len(up) && up[i] >= 'A' && up[i] <= 'Z' {
		i++
	}
	col, err := decodeColumn(up[:i])
	if err != nil {
		return Address{}, &CoreError{Kind: ErrInvalidAddress, Message: "invalid cell address: " + s}
	}
	row, err := strconv.Atoi(up[i:])
	if err != nil {
		return Address{}, &CoreError{Kind: ErrInvalidAddress, Message: "invalid cell address: " + s}
	}
	return Address{Row: row, Col: col}, nil
}

// encodeColumn converts a 0-based column index to its A1 letters: 0->A, 25->Z, 26->AA.
func encodeColumn(col int) string {
	n := col + 1 // work in the 1-based, zero-less base-26 alphabet
	buf := make([]byte, 0, 4)
	for n > 0 {
		n--
		buf = append(buf, byte('A'+n%26))
		n /= 26
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// decodeColumn converts A1 letters (upper-case, non-empty) to a 0-based column index.
func decodeColumn(letters string) (int, error) {
	if letters == "" {
		return 0, &CoreError{Kind: ErrInvalidAddress, Message: "empty column letters"}
	}
	n := 0
	for _, ch := range letters {
		if ch < 'A' || ch > 'Z' {
			return 0, &CoreError{Kind: ErrInvalidAddress, Message: "bad column letter"}
		}
		n = n*26 + int(ch-'A') + 1
	}
	return n - 1, nil
}
