// Package pattern compiles a small filename template language into a token
// program and renders it against one document's fields.
//
// Grammar:
//
//	[literal]  bracketed text, inserted verbatim in source order
//	YYYY / YY  four-digit year / last two digits
//	MMM / MM   three-letter month abbreviation / two-digit month
//	DD         two-digit day
//	c...c      correspondent name truncated to the run length; a single
//	           c is the no-truncation sentinel (full name)
//	d...d      document type name, same truncation rule
//	t...t      up to run-length tag names, one segment each, in tag order
//	other      passed through literally
//
// Bare c, d, and t outside brackets are always treated as tokens; literal
// text containing them must be bracketed. Runs are matched greedily
// (longest first) so "ccc" is one three-character token, never three
// single-character ones, and YYYY/MMM win over their YY/MM prefixes.
package pattern

import "strings"

// maxRun caps greedy run matching for c/d/t tokens.
const maxRun = 32

type tokenKind int

const (
	tokLiteralRef tokenKind = iota
	tokYear
	tokYearShort
	tokMonthName
	tokMonthNum
	tokDay
	tokCorrespondent
	tokDocType
	tokTags
	tokChar
)

type token struct {
	kind tokenKind
	// n is the run length for correspondent/doctype/tag tokens.
	n int
	// index points into the captured literal sequence for tokLiteralRef.
	index int
	ch    rune
}

// Fields carries the document values a pattern can reference.
type Fields struct {
	Year          string
	Month         string // two-digit month number
	MonthName     string // three-letter abbreviation
	Day           string
	Correspondent string
	DocType       string
	Tags          []string // in document tag order
}

// Program is a compiled pattern.
type Program struct {
	tokens   []token
	literals []string
}

// Compile scans the pattern left to right into a token program. Compilation
// never fails: unrecognized characters become literal tokens and an
// unterminated bracket captures through the end of the pattern.
func Compile(pattern string) *Program {
	p := &Program{}
	runes := []rune(pattern)
	for i := 0; i < len(runes); {
		r := runes[i]

		if r == '[' {
			end := i + 1
			for end < len(runes) && runes[end] != ']' {
				end++
			}
			p.tokens = append(p.tokens, token{kind: tokLiteralRef, index: len(p.literals)})
			p.literals = append(p.literals, string(runes[i+1:end]))
			if end < len(runes) {
				end++ // consume ']'
			}
			i = end
			continue
		}

		if kind, width, ok := matchDateToken(runes[i:]); ok {
			p.tokens = append(p.tokens, token{kind: kind})
			i += width
			continue
		}

		if r == 'c' || r == 'd' || r == 't' {
			n := runLength(runes[i:], r)
			kind := tokCorrespondent
			switch r {
			case 'd':
				kind = tokDocType
			case 't':
				kind = tokTags
			}
			p.tokens = append(p.tokens, token{kind: kind, n: n})
			i += n
			continue
		}

		p.tokens = append(p.tokens, token{kind: tokChar, ch: r})
		i++
	}
	return p
}

// matchDateToken matches the fixed date tokens, longest first to avoid
// prefix ambiguity (YYYY before YY, MMM before MM).
func matchDateToken(rest []rune) (tokenKind, int, bool) {
	s := string(rest)
	switch {
	case strings.HasPrefix(s, "YYYY"):
		return tokYear, 4, true
	case strings.HasPrefix(s, "YY"):
		return tokYearShort, 2, true
	case strings.HasPrefix(s, "MMM"):
		return tokMonthName, 3, true
	case strings.HasPrefix(s, "MM"):
		return tokMonthNum, 2, true
	case strings.HasPrefix(s, "DD"):
		return tokDay, 2, true
	}
	return 0, 0, false
}

func runLength(rest []rune, r rune) int {
	n := 0
	for n < len(rest) && n < maxRun && rest[n] == r {
		n++
	}
	return n
}

// Render executes the program against one document's fields in a single
// left-to-right pass. There is no error path: tokens referencing absent
// data contribute nothing.
func (p *Program) Render(f Fields) string {
	var b strings.Builder
	for _, tok := range p.tokens {
		switch tok.kind {
		case tokLiteralRef:
			b.WriteString(p.literals[tok.index])
		case tokYear:
			b.WriteString(f.Year)
		case tokYearShort:
			if len(f.Year) >= 2 {
				b.WriteString(f.Year[len(f.Year)-2:])
			} else {
				b.WriteString(f.Year)
			}
		case tokMonthName:
			b.WriteString(f.MonthName)
		case tokMonthNum:
			b.WriteString(f.Month)
		case tokDay:
			b.WriteString(f.Day)
		case tokCorrespondent:
			b.WriteString(truncate(f.Correspondent, tok.n))
		case tokDocType:
			b.WriteString(truncate(f.DocType, tok.n))
		case tokTags:
			limit := tok.n
			if limit > len(f.Tags) {
				limit = len(f.Tags)
			}
			for i := 0; i < limit; i++ {
				if i > 0 {
					b.WriteByte('-')
				}
				b.WriteString(f.Tags[i])
			}
		case tokChar:
			b.WriteRune(tok.ch)
		}
	}
	return b.String()
}

// truncate cuts name to n runes. A run length of 1 is the no-truncation
// sentinel: the full name is used.
func truncate(name string, n int) string {
	if n <= 1 {
		return name
	}
	runes := []rune(name)
	if len(runes) <= n {
		return name
	}
	return string(runes[:n])
}
