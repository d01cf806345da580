// Package plan holds the validated, typed form of a relational query plan:
// a set of named operator nodes plus the name of the root node.
package plan

import "sort"

// OpKind identifies the operator carried by a node.
type OpKind int

const (
	OpProject OpKind = iota
	OpJoin
	OpSelect
)

// String returns the operator name as it appears in plan documents.
func (k OpKind) String() string {
	switch k {
	case OpProject:
		return "Project"
	case OpJoin:
		return "Join"
	case OpSelect:
		return "Select"
	default:
		return "?"
	}
}

// RefKind says whether a reference names another node or a base table.
type RefKind int

const (
	RefLeaf RefKind = iota
	RefNode
)

// Reference points at the input of an operator. It is classified once,
// when the plan is built.
type Reference struct {
	Kind RefKind
	Name string
}

// Leaf returns a reference to a base table.
func Leaf(name string) Reference { return Reference{Kind: RefLeaf, Name: name} }

// NodeRef returns a reference to another node of the same plan.
func NodeRef(name string) Reference { return Reference{Kind: RefNode, Name: name} }

// IsNode reports whether the reference is derived from another node.
func (r Reference) IsNode() bool { return r.Kind == RefNode }

func (r Reference) String() string {
	if r.Kind == RefNode {
		return "node:" + r.Name
	}
	return "table:" + r.Name
}

// Operator is implemented by *Project, *Join and *Select only.
type Operator interface {
	Kind() OpKind
	Inputs() []Reference
	operator()
}

// ── Operators ───────────────────────────────────────────────────────────────

// Project keeps the listed columns of its input, in order.
type Project struct {
	Input   Reference
	Columns []string
}

func (o *Project) Kind() OpKind        { return OpProject }
func (o *Project) Inputs() []Reference { return []Reference{o.Input} }
func (o *Project) operator()           {}

// Join is an equality join of two inputs on a column both sides share.
type Join struct {
	Left   Reference
	Right  Reference
	Column string
}

func (o *Join) Kind() OpKind        { return OpJoin }
func (o *Join) Inputs() []Reference { return []Reference{o.Left, o.Right} }
func (o *Join) operator()           {}

// Select filters its input by a raw predicate fragment.
//
// When Input is derived the condition is rendered qualified by the input's
// alias, so it must be a bare suffix such as "a_id == 1". When Input is a
// base table the condition is rendered verbatim.
type Select struct {
	Input     Reference
	Condition string
}

func (o *Select) Kind() OpKind        { return OpSelect }
func (o *Select) Inputs() []Reference { return []Reference{o.Input} }
func (o *Select) operator()           {}

// ── Plan ────────────────────────────────────────────────────────────────────

// Node is one named operator instance.
type Node struct {
	Name string
	Op   Operator
}

// Plan is a validated query plan. Build and Parse return plans whose
// references are classified and whose node graph is acyclic.
type Plan struct {
	Root  string
	Nodes map[string]*Node
}

// Node returns the node with the given name, or nil.
func (p *Plan) Node(name string) *Node {
	if p == nil {
		return nil
	}
	return p.Nodes[name]
}

// Names returns the node names in sorted order.
func (p *Plan) Names() []string {
	names := make([]string, 0, len(p.Nodes))
	for name := range p.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
