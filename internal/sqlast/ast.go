// Package sqlast is a small SELECT expression tree. Queries are assembled
// as values and turned into text only by Render.
package sqlast

import "strings"

// Column is a possibly qualified column reference.
type Column struct {
	Qualifier string
	Name      string
}

// Col returns a column qualified by an alias or table name.
func Col(qualifier, name string) Column {
	return Column{Qualifier: qualifier, Name: name}
}

func (c Column) String() string {
	if c.Qualifier == "" {
		return c.Name
	}
	return c.Qualifier + "." + c.Name
}

// Source is an entry of a FROM list.
type Source interface {
	// Name is the identifier the rest of the query uses for this source.
	Name() string
	render(b *strings.Builder)
}

// Table is a base relation used by its own name.
type Table struct {
	Table string
}

func (t *Table) Name() string { return t.Table }

func (t *Table) render(b *strings.Builder) { b.WriteString(t.Table) }

// Subquery is a nested query bound to an alias.
type Subquery struct {
	Query *Query
	Alias string
}

func (s *Subquery) Name() string { return s.Alias }

func (s *Subquery) render(b *strings.Builder) {
	b.WriteByte('(')
	s.Query.render(b)
	b.WriteString(") AS ")
	b.WriteString(s.Alias)
}

// Predicate is a WHERE condition.
type Predicate interface {
	render(b *strings.Builder)
}

// Equals compares two columns for equality.
type Equals struct {
	Left  Column
	Right Column
}

func (p *Equals) render(b *strings.Builder) {
	b.WriteString(p.Left.String())
	b.WriteString(" = ")
	b.WriteString(p.Right.String())
}

// Raw is a caller-supplied predicate fragment. A non-empty Qualifier is
// prefixed as "<Qualifier>.", otherwise the text is used verbatim.
type Raw struct {
	Qualifier string
	Text      string
}

func (p *Raw) render(b *strings.Builder) {
	if p.Qualifier != "" {
		b.WriteString(p.Qualifier)
		b.WriteByte('.')
	}
	b.WriteString(p.Text)
}

// Query is a single SELECT. An empty Columns list selects *.
type Query struct {
	Columns []Column
	From    []Source
	Where   Predicate
}

// Render returns the SQL text of q.
func Render(q *Query) string {
	var b strings.Builder
	q.render(&b)
	return b.String()
}

func (q *Query) String() string { return Render(q) }

func (q *Query) render(b *strings.Builder) {
	b.WriteString("SELECT ")
	if len(q.Columns) == 0 {
		b.WriteByte('*')
	}
	for i, c := range q.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.String())
	}

	b.WriteString(" FROM ")
	for i, s := range q.From {
		if i > 0 {
			b.WriteString(", ")
		}
		s.render(b)
	}

	if q.Where != nil {
		b.WriteString(" WHERE ")
		q.Where.render(b)
	}
}

// Depth returns how many SELECTs are nested in q, counting q itself.
func Depth(q *Query) int {
	deepest := 0
	for _, s := range q.From {
		if sub, ok := s.(*Subquery); ok {
			deepest = max(deepest, Depth(sub.Query))
		}
	}
	return deepest + 1
}
