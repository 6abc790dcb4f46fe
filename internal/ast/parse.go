package ast

import (
	"fmt"
	"strconv"
)

// ParseError carries the original text, the length of input still
// unconsumed at the furthest position any alternative reached before
// giving up (Remaining), and a message built from the alternatives tried
// at that position.
type ParseError struct {
	Text      string
	Remaining int
	Message   string
}

func (e *ParseError) Error() string {
	pos := len(e.Text) - e.Remaining
	return fmt.Sprintf("%s####%s %s", e.Text[:pos], e.Text[pos:], e.Message)
}

// perr is the internal, in-progress error accumulator. remaining mirrors
// ParseError.Remaining: the length of input still unconsumed at the point
// this particular attempt gave up. Smaller remaining means more progress.
type perr struct {
	remaining int
	message   string
}

// combine implements the original parser's furthest-position-wins rule:
// whichever of a, b made more progress (smaller remaining) wins outright;
// an exact tie OR-joins the two messages, in the order they were tried.
func combine(a, b perr) perr {
	switch {
	case a.remaining == b.remaining:
		return perr{remaining: a.remaining, message: a.message + " | " + b.message}
	case b.remaining < a.remaining:
		return b
	default:
		return a
	}
}

func expectedErr(text string, pos int, what string) perr {
	return perr{remaining: len(text) - pos, message: fmt.Sprintf("expected %s", what)}
}

// Parse parses the entire text as one expression. A successful parse must
// consume the whole input (trailing whitespace allowed); leading
// whitespace is skipped too.
func Parse(text string) (Expr, error) {
	pos := skipWS(text, 0)
	pos, e, err := parseExpr(text, pos)
	if err != nil {
		return Expr{}, &ParseError{Text: text, Remaining: err.remaining, Message: err.message}
	}
	if pos != len(text) {
		return Expr{}, &ParseError{
			Text:      text,
			Remaining: len(text) - pos,
			Message:   "expected end of input",
		}
	}
	return e, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || isDigit(c) || c == '_'
}

func skipWS(text string, pos int) int {
	for pos < len(text) {
		switch text[pos] {
		case ' ', '\t', '\n', '\r':
			pos++
		default:
			return pos
		}
	}
	return pos
}

// matchSymbol consumes sym at pos if present, then trailing whitespace
// (mirroring the original parser's terminated(tag(sym), whitespace)).
func matchSymbol(text string, pos int, sym string) (int, bool) {
	if pos+len(sym) > len(text) || text[pos:pos+len(sym)] != sym {
		return pos, false
	}
	return skipWS(text, pos+len(sym)), true
}

func scanIdent(text string, pos int) int {
	i := pos
	for i < len(text) && isIdentChar(text[i]) {
		i++
	}
	return i
}

func scanNumber(text string, pos int) (int, bool) {
	i := pos
	for i < len(text) && isDigit(text[i]) {
		i++
	}
	if i == pos {
		return pos, false
	}
	if i < len(text) && text[i] == '.' {
		j := i + 1
		k := j
		for k < len(text) && isDigit(text[k]) {
			k++
		}
		if k > j {
			i = k
		}
	}
	return i, true
}

// expr := add_expr ( cmp add_expr )?
func parseExpr(text string, pos int) (int, Expr, *perr) {
	pos, lhs, err := parseAdd(text, pos)
	if err != nil {
		return pos, Expr{}, err
	}
	for _, sym := range []string{"<=", ">=", "<", ">"} {
		if next, ok := matchSymbol(text, pos, sym); ok {
			next, rhs, err := parseAdd(text, next)
			if err != nil {
				return pos, Expr{}, err
			}
			return next, NewCall(sym, lhs, rhs), nil
		}
	}
	return pos, lhs, nil
}

// add_expr := mul_expr ( ('+'|'-') mul_expr )*
func parseAdd(text string, pos int) (int, Expr, *perr) {
	pos, lhs, err := parseMul(text, pos)
	if err != nil {
		return pos, Expr{}, err
	}
	for {
		matched := false
		for _, sym := range []string{"+", "-"} {
			if next, ok := matchSymbol(text, pos, sym); ok {
				next, rhs, err := parseMul(text, next)
				if err != nil {
					return pos, Expr{}, err
				}
				lhs = NewCall(sym, lhs, rhs)
				pos = next
				matched = true
				break
			}
		}
		if !matched {
			return pos, lhs, nil
		}
	}
}

// mul_expr := tight_expr ( ('*'|'/') tight_expr )*
func parseMul(text string, pos int) (int, Expr, *perr) {
	pos, lhs, err := parseTight(text, pos)
	if err != nil {
		return pos, Expr{}, err
	}
	for {
		matched := false
		for _, sym := range []string{"*", "/"} {
			if next, ok := matchSymbol(text, pos, sym); ok {
				next, rhs, err := parseTight(text, next)
				if err != nil {
					return pos, Expr{}, err
				}
				lhs = NewCall(sym, lhs, rhs)
				pos = next
				matched = true
				break
			}
		}
		if !matched {
			return pos, lhs, nil
		}
	}
}

var unaryKeywords = []string{"sqabs", "real", "conj", "neg"}

// tight_expr := '(' expr ')'
//             | keyword('sqabs'|'real'|'conj'|'neg') '(' expr ')'
//             | number
//             | identifier
func parseTight(text string, pos int) (int, Expr, *perr) {
	if next, ok := matchSymbol(text, pos, "("); ok {
		next, e, err := parseExpr(text, next)
		if err != nil {
			return pos, Expr{}, err
		}
		next, ok := matchSymbol(text, next, ")")
		if !ok {
			return pos, Expr{}, perrPtr(expectedErr(text, next, `")"`))
		}
		return next, e, nil
	}
	var farthest *perr

	end := scanIdent(text, pos)
	if end > pos {
		word := text[pos:end]
		for _, kw := range unaryKeywords {
			if word == kw {
				next := skipWS(text, end)
				if argsStart, ok := matchSymbol(text, next, "("); ok {
					argsStart, arg, err := parseExpr(text, argsStart)
					if err != nil {
						return pos, Expr{}, err
					}
					argsEnd, ok := matchSymbol(text, argsStart, ")")
					if !ok {
						return pos, Expr{}, perrPtr(expectedErr(text, argsStart, `")"`))
					}
					return argsEnd, NewCall(kw, arg), nil
				}
				e := expectedErr(text, next, `"("`)
				farthest = combinePtr(farthest, &e)
				break
			}
		}
	}

	if next, ok := scanNumber(text, pos); ok {
		s := text[pos:next]
		v, convErr := strconv.ParseFloat(s, 64)
		if convErr != nil {
			e := expectedErr(text, pos, "a number")
			farthest = combinePtr(farthest, &e)
		} else {
			return skipWS(text, next), NewNumber(v), nil
		}
	} else {
		e := expectedErr(text, pos, "a number")
		farthest = combinePtr(farthest, &e)
	}

	if end > pos {
		return skipWS(text, end), NewVar(text[pos:end]), nil
	}
	e := expectedErr(text, pos, "an identifier")
	farthest = combinePtr(farthest, &e)

	return pos, Expr{}, farthest
}

func perrPtr(e perr) *perr { return &e }

func combinePtr(a, b *perr) *perr {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	c := combine(*a, *b)
	return &c
}
