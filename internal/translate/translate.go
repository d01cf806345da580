// Package translate compiles a validated plan into one SQL query, nesting
// derived inputs as aliased subqueries.
package translate

import (
	"strings"

	"github.com/matthewbaird/relplan/internal/plan"
	"github.com/matthewbaird/relplan/internal/sqlast"
)

// DefaultMaxDepth leaves nesting unbounded. The on-path set already stops
// traversal after every node has been entered once.
const DefaultMaxDepth = 0

// Translator compiles plans. It holds no per-plan state and is safe for
// concurrent use.
type Translator struct {
	maxDepth int
}

// Option configures a Translator.
type Option func(*Translator)

// WithMaxDepth caps how deeply subqueries may nest. Zero or a negative value
// means no limit.
func WithMaxDepth(n int) Option {
	return func(t *Translator) {
		t.maxDepth = max(n, 0)
	}
}

// New creates a translator.
func New(opts ...Option) *Translator {
	t := &Translator{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// MaxDepth returns the nesting bound in effect, 0 when unbounded.
func (t *Translator) MaxDepth() int { return t.maxDepth }

// Translate compiles p with a default translator.
func Translate(p *plan.Plan) (string, error) {
	return New().Translate(p)
}

// Translate compiles p and renders it to SQL text.
func (t *Translator) Translate(p *plan.Plan) (string, error) {
	q, err := t.Compile(p)
	if err != nil {
		return "", err
	}
	return sqlast.Render(q), nil
}

// Compile resolves the root of p into a query tree.
func (t *Translator) Compile(p *plan.Plan) (*sqlast.Query, error) {
	if p == nil || p.Root == "" {
		return nil, plan.Errorf(plan.MissingRoot, "", "plan has no root")
	}
	if p.Node(p.Root) == nil {
		return nil, plan.Errorf(plan.MissingRoot, p.Root, "root is not a node of the plan")
	}

	c := &compiler{plan: p, maxDepth: t.maxDepth, onPath: make(map[string]bool)}
	return c.resolve(p.Root)
}

// compiler carries the traversal state of one Compile call.
type compiler struct {
	plan     *plan.Plan
	maxDepth int
	path     []string
	onPath   map[string]bool
}

func (c *compiler) resolve(name string) (*sqlast.Query, error) {
	node := c.plan.Node(name)
	if node == nil {
		return nil, plan.Errorf(plan.UnresolvedReference, c.current(), "node '%s' is not part of the plan", name)
	}
	if c.onPath[name] {
		cycle := append(append([]string{}, c.path...), name)
		return nil, plan.Errorf(plan.CyclicPlan, c.current(), "reference cycle %s", strings.Join(cycle, " -> "))
	}
	if c.maxDepth > 0 && len(c.path) >= c.maxDepth {
		return nil, plan.Errorf(plan.MalformedNode, name, "nesting exceeds %d levels", c.maxDepth)
	}

	c.onPath[name] = true
	c.path = append(c.path, name)
	defer func() {
		c.path = c.path[:len(c.path)-1]
		delete(c.onPath, name)
	}()

	switch op := node.Op.(type) {
	case *plan.Project:
		return c.compileProject(name, op)
	case *plan.Join:
		return c.compileJoin(op)
	case *plan.Select:
		return c.compileSelect(op)
	default:
		return nil, plan.Errorf(plan.UnknownOperator, name, "unsupported operator %T", node.Op)
	}
}

// current returns the node being compiled, or "" at the top level.
func (c *compiler) current() string {
	if len(c.path) == 0 {
		return ""
	}
	return c.path[len(c.path)-1]
}

// ── Operators ───────────────────────────────────────────────────────────────

func (c *compiler) compileProject(name string, op *plan.Project) (*sqlast.Query, error) {
	if len(op.Columns) == 0 {
		return nil, plan.Errorf(plan.MalformedNode, name, "Project needs at least one column")
	}
	src, err := c.source(op.Input)
	if err != nil {
		return nil, err
	}

	cols := make([]sqlast.Column, len(op.Columns))
	for i, col := range op.Columns {
		cols[i] = sqlast.Col(op.Input.Name, col)
	}
	return &sqlast.Query{
		Columns: cols,
		From:    []sqlast.Source{src},
	}, nil
}

// compileJoin does not reject identical names on both sides; the engine
// reports the ambiguous reference when the query runs.
func (c *compiler) compileJoin(op *plan.Join) (*sqlast.Query, error) {
	left, err := c.source(op.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.source(op.Right)
	if err != nil {
		return nil, err
	}

	return &sqlast.Query{
		From: []sqlast.Source{left, right},
		Where: &sqlast.Equals{
			Left:  sqlast.Col(op.Left.Name, op.Column),
			Right: sqlast.Col(op.Right.Name, op.Column),
		},
	}, nil
}

// compileSelect qualifies the condition with the input alias only when the
// input is derived.
func (c *compiler) compileSelect(op *plan.Select) (*sqlast.Query, error) {
	src, err := c.source(op.Input)
	if err != nil {
		return nil, err
	}

	where := &sqlast.Raw{Text: op.Condition}
	if op.Input.IsNode() {
		where.Qualifier = op.Input.Name
	}
	return &sqlast.Query{
		From:  []sqlast.Source{src},
		Where: where,
	}, nil
}

// source turns a reference into a FROM entry: base tables by name, derived
// inputs as a subquery aliased with the node name.
func (c *compiler) source(ref plan.Reference) (sqlast.Source, error) {
	if !ref.IsNode() {
		return &sqlast.Table{Table: ref.Name}, nil
	}
	inner, err := c.resolve(ref.Name)
	if err != nil {
		return nil, err
	}
	return &sqlast.Subquery{Query: inner, Alias: ref.Name}, nil
}
