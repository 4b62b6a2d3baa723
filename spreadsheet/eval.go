package spreadsheet

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// aggregatePattern finds the start of a SUM/AVERAGE/COUNT call; the
// matching close paren is then found by depth-counting from there,
// since the argument list (a range like A1:A10) never itself contains
// parentheses but a fully general scan is cheap and future-proof.
var aggregatePattern = regexp.MustCompile(`(?i)(SUM|AVERAGE|COUNT)\s*\(`)

// evalAbort short-circuits evaluation to propagate an upstream error
// symbol unchanged, whether it came from a referenced error value or
// from a value-level failure detected during substitution.
type evalAbort struct{ symbol string }

func (e *evalAbort) Error() string { return "evaluation aborted: " + e.symbol }

// Evaluate computes a formula's displayable result against a snapshot of
// its dependencies' computed values. Non-formulas are returned verbatim.
// Evaluate never returns an error: every failure mode renders as one of
// the error symbols in the returned string, which is what gets persisted
// as the cell's Computed value.
func Evaluate(formula string, values map[Address]string) string {
	if !IsFormula(formula) {
		return formula
	}

	body := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(formula), "=")))

	body, err := substituteAggregates(body, values)
	if err != nil {
		return errorSymbol(err)
	}

	body, err = substituteCellRefs(body, values)
	if err != nil {
		return errorSymbol(err)
	}

	result, err := evalArithmetic(body)
	if err != nil {
		return "#ERROR!"
	}
	return classify(result)
}

func errorSymbol(err error) string {
	if ab, ok := err.(*evalAbort); ok {
		return ab.symbol
	}
	return "#ERROR!"
}

// substituteAggregates replaces every SUM(...)/AVERAGE(...)/COUNT(...)
// call with a numeric literal, repeatedly, until none remain.
func substituteAggregates(body string, values map[Address]string) (string, error) {
	for {
		loc := aggregatePattern.FindStringSubmatchIndex(body)
		if loc == nil {
			return body, nil
		}
		name := strings.ToUpper(body[loc[2]:loc[3]])
		parenOpen := loc[1] - 1 // loc[1] is just past the '(' the pattern consumed

		depth := 0
		closeIdx := -1
		for i := parenOpen; i < len(body); i++ {
			switch body[i] {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					closeIdx = i
				}
			}
			if closeIdx != -1 {
				break
			}
		}
		if closeIdx == -1 {
			return "", fmt.Errorf("unterminated %s(", name)
		}

		args := body[parenOpen+1 : closeIdx]
		literal, err := evalAggregate(name, args, values)
		if err != nil {
			return "", err
		}
		body = body[:loc[0]] + literal + body[closeIdx+1:]
	}
}

func evalAggregate(name, args string, values map[Address]string) (string, error) {
	refs, err := ExtractRefs("=" + args)
	if err != nil {
		return "", err
	}
	addrs := make([]Address, 0, len(refs))
	for a := range refs {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool {
		if addrs[i].Row != addrs[j].Row {
			return addrs[i].Row < addrs[j].Row
		}
		return addrs[i].Col < addrs[j].Col
	})

	var sum float64
	var count int
	for _, a := range addrs {
		v, ok := values[a]
		if !ok {
			v = "0"
		}
		if strings.HasPrefix(v, "#") {
			return "", &evalAbort{symbol: v}
		}
		f, perr := strconv.ParseFloat(v, 64)
		if perr != nil {
			continue // non-numeric is skipped, not an error, for SUM/AVERAGE/COUNT
		}
		sum += f
		count++
	}

	switch name {
	case "SUM":
		return strconv.FormatFloat(sum, 'f', -1, 64), nil
	case "AVERAGE":
		if count == 0 {
			return "0", nil
		}
		return strconv.FormatFloat(sum/float64(count), 'f', -1, 64), nil
	case "COUNT":
		return strconv.Itoa(count), nil
	default:
		return "", fmt.Errorf("unknown aggregate function %s", name)
	}
}

// substituteCellRefs replaces each remaining cell reference with the
// numeric form of its value: "0" if missing or non-numeric, or an abort
// if the value is itself an error symbol.
func substituteCellRefs(body string, values map[Address]string) (string, error) {
	var abortErr error
	out := cellPattern.ReplaceAllStringFunc(body, func(m string) string {
		if abortErr != nil {
			return m
		}
		addr, err := NewAddress(m)
		if err != nil {
			return "0"
		}
		v, ok := values[addr]
		if !ok {
			return "0"
		}
		if strings.HasPrefix(v, "#") {
			abortErr = &evalAbort{symbol: v}
			return "0"
		}
		if _, perr := strconv.ParseFloat(v, 64); perr != nil {
			return "0"
		}
		return v
	})
	if abortErr != nil {
		return "", abortErr
	}
	return out, nil
}

// classify renders the arithmetic result as the final computed string,
// mapping non-finite results to their error symbols.
func classify(result float64) string {
	switch {
	case math.IsInf(result, 0):
		return "#DIV/0!"
	case math.IsNaN(result):
		return "#NUM!"
	default:
		return strconv.FormatFloat(result, 'f', -1, 64)
	}
}

// arithParser is a small recursive-descent evaluator for the expression
// grammar left after aggregate/reference substitution: double literals,
// the four standard operators, and parenthetical grouping.
type arithParser struct {
	s   string
	pos int
}

func evalArithmetic(s string) (float64, error) {
	p := &arithParser{s: s}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return 0, fmt.Errorf("unexpected trailing input at offset %d", p.pos)
	}
	return v, nil
}

func (p *arithParser) skipSpace() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t') {
		p.pos++
	}
}

func (p *arithParser) parseExpr() (float64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.s) {
			return v, nil
		}
		switch p.s[p.pos] {
		case '+':
			p.pos++
			t, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v += t
		case '-':
			p.pos++
			t, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v -= t
		default:
			return v, nil
		}
	}
}

func (p *arithParser) parseTerm() (float64, error) {
	v, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.s) {
			return v, nil
		}
		switch p.s[p.pos] {
		case '*':
			p.pos++
			f, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			v *= f
		case '/':
			p.pos++
			f, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			v /= f // +/-Inf or NaN is handled by classify, not here
		default:
			return v, nil
		}
	}
}

func (p *arithParser) parseFactor() (float64, error) {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return 0, fmt.Errorf("unexpected end of expression")
	}
	switch p.s[p.pos] {
	case '+':
		p.pos++
		return p.parseFactor()
	case '-':
		p.pos++
		v, err := p.parseFactor()
		return -v, err
	case '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.pos >= len(p.s) || p.s[p.pos] != ')' {
			return 0, fmt.Errorf("expected ')' at offset %d", p.pos)
		}
		p.pos++
		return v, nil
	default:
		return p.parseNumber()
	}
}

func (p *arithParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.s) && (isASCIIDigit(p.s[p.pos]) || p.s[p.pos] == '.') {
		p.pos++
	}
	if p.pos == start {
		return 0, fmt.Errorf("expected number at offset %d", p.pos)
	}
	return strconv.ParseFloat(p.s[start:p.pos], 64)
}

func isASCIIDigit(b byte) bool { return b >= '0' && b <= '9' }
