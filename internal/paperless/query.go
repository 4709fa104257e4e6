package paperless

import (
	"net/url"
	"strconv"
	"strings"
)

// Query composes the filter criteria for one documents request as a
// structured list of key/value pairs. Parameter repetition is load-bearing:
// the server intersects repeated tags__id parameters, so emitting one pair
// per tag is the documented way to AND tags together.
type Query struct {
	pairs []queryPair
}

type queryPair struct {
	key   string
	value string
	// raw values are emitted verbatim; they were escaped at build time.
	raw bool
}

// NewQuery creates an empty composer. An empty composer encodes to "".
func NewQuery() *Query {
	return &Query{}
}

// Correspondent filters by a resolved correspondent ID.
func (q *Query) Correspondent(id int) *Query {
	return q.add("correspondent__id", strconv.Itoa(id))
}

// DocType filters by a resolved document type ID.
func (q *Query) DocType(id int) *Query {
	return q.add("document_type__id", strconv.Itoa(id))
}

// Tag adds one resolved tag ID. Call once per tag; the server ANDs the
// repeated parameters.
func (q *Query) Tag(id int) *Query {
	return q.add("tags__id", strconv.Itoa(id))
}

// ContentTerms adds a full-text query built from comma-separated terms.
// Each term is URL-escaped and the terms are joined with a literal %20,
// which the server treats as an implicit AND over content words.
func (q *Query) ContentTerms(terms string) *Query {
	var escaped []string
	for _, term := range strings.Split(terms, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		escaped = append(escaped, url.QueryEscape(term))
	}
	if len(escaped) == 0 {
		return q
	}
	q.pairs = append(q.pairs, queryPair{key: "query", value: strings.Join(escaped, "%20"), raw: true})
	return q
}

// Created adds a partial date filter. Separators (- and /) are stripped;
// the first four digits select the year, digits 5-6 the month, and digits
// 7-8 the day. Shorter inputs filter on fewer components.
func (q *Query) Created(partial string) *Query {
	digits := strings.NewReplacer("-", "", "/", "").Replace(strings.TrimSpace(partial))
	if !isDigits(digits) {
		return q
	}
	if len(digits) >= 4 {
		q.add("created__year", digits[:4])
	}
	if len(digits) >= 6 {
		q.add("created__month", digits[4:6])
	}
	if len(digits) >= 8 {
		q.add("created__day", digits[6:8])
	}
	return q
}

// Empty reports whether no criteria have been added.
func (q *Query) Empty() bool {
	return len(q.pairs) == 0
}

// Encode renders the composed criteria as a query-string suffix including
// the leading "?", or "" when the composer is empty.
func (q *Query) Encode() string {
	if len(q.pairs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('?')
	for i, p := range q.pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		if p.raw {
			b.WriteString(p.value)
		} else {
			b.WriteString(url.QueryEscape(p.value))
		}
	}
	return b.String()
}

func (q *Query) add(key, value string) *Query {
	q.pairs = append(q.pairs, queryPair{key: key, value: value})
	return q
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
