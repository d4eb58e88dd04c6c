package repository

import (
	"fmt"
	"strings"
)

// predicates accumulates parameterized WHERE clauses. Values are never
// interpolated into SQL text; each one gets the next $n placeholder.
type predicates struct {
	clauses []string
	args    []any
}

// add appends a clause whose single %d verb becomes the value's placeholder.
func (p *predicates) add(format string, value any) {
	p.args = append(p.args, value)
	p.clauses = append(p.clauses, fmt.Sprintf(format, len(p.args)))
}

func (p *predicates) where() string {
	if len(p.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(p.clauses, " AND ")
}

// page appends LIMIT/OFFSET placeholders. A non-positive limit means no limit.
func (p *predicates) page(limit, offset int) string {
	var b strings.Builder
	if limit > 0 {
		p.args = append(p.args, limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(p.args))
	}
	if offset > 0 {
		p.args = append(p.args, offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(p.args))
	}
	return b.String()
}
