package plan

import (
	"regexp"
	"sort"
	"strings"
)

var (
	identRe  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	columnRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*|\*)$`)
)

// Catalog lists the base tables a leaf reference may name.
type Catalog interface {
	HasTable(name string) bool
	TableNames() []string
}

type buildOptions struct {
	catalog Catalog
}

// Option configures Build.
type Option func(*buildOptions)

// WithCatalog makes references that are neither node names nor catalog
// tables fail with UnresolvedReference. Without a catalog every unknown
// name is treated as a base table.
func WithCatalog(c Catalog) Option {
	return func(o *buildOptions) { o.catalog = c }
}

// Build validates a document and returns the typed plan. Every node is
// checked, not only those reachable from the root.
func Build(doc *Document, opts ...Option) (*Plan, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	b := &builder{doc: doc, catalog: o.catalog}
	return b.build()
}

type builder struct {
	doc     *Document
	catalog Catalog
}

func (b *builder) build() (*Plan, error) {
	if b.doc == nil {
		return nil, Errorf(MissingRoot, "", "plan is empty")
	}
	names := b.nodeNames()

	if b.doc.Root == "" {
		return nil, Errorf(MissingRoot, "", "plan has no root")
	}
	if _, ok := b.doc.Nodes[b.doc.Root]; !ok {
		err := Errorf(MissingRoot, b.doc.Root, "root is not a node of the plan")
		err.Suggestion = SuggestFrom(b.doc.Root, names, 2)
		return nil, err
	}

	p := &Plan{
		Root:  b.doc.Root,
		Nodes: make(map[string]*Node, len(b.doc.Nodes)),
	}
	for _, name := range names {
		if !identRe.MatchString(name) {
			return nil, Errorf(MalformedNode, name, "node name is not a valid identifier")
		}
		op, err := b.buildOperator(name, b.doc.Nodes[name])
		if err != nil {
			return nil, err
		}
		p.Nodes[name] = &Node{Name: name, Op: op}
	}

	if err := checkAcyclic(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (b *builder) nodeNames() []string {
	names := make([]string, 0, len(b.doc.Nodes))
	for name := range b.doc.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ── Operators ───────────────────────────────────────────────────────────────

func (b *builder) buildOperator(name string, spec NodeSpec) (Operator, error) {
	switch spec.Operator {
	case "Project":
		return b.buildProject(name, spec)
	case "Join":
		return b.buildJoin(name, spec)
	case "Select":
		return b.buildSelect(name, spec)
	case "":
		return nil, Errorf(MalformedNode, name, "operator is missing")
	default:
		err := Errorf(UnknownOperator, name, "operator '%s' is not one of Project, Join, Select", spec.Operator)
		err.Suggestion = SuggestFrom(spec.Operator, []string{"Project", "Join", "Select"}, 2)
		return nil, err
	}
}

func (b *builder) buildProject(name string, spec NodeSpec) (Operator, error) {
	input, err := b.singleInput(name, spec)
	if err != nil {
		return nil, err
	}
	if len(spec.ColNames) == 0 {
		return nil, Errorf(MalformedNode, name, "Project needs at least one column in colNames")
	}
	cols := make([]string, len(spec.ColNames))
	for i, c := range spec.ColNames {
		if !columnRe.MatchString(c) {
			return nil, Errorf(MalformedNode, name, "column '%s' is not a valid identifier", c)
		}
		cols[i] = c
	}
	return &Project{Input: input, Columns: cols}, nil
}

func (b *builder) buildJoin(name string, spec NodeSpec) (Operator, error) {
	if !spec.Input.List || len(spec.Input.Names) != 2 {
		return nil, Errorf(MalformedNode, name, "Join needs an input list of exactly two names")
	}
	left, err := b.resolve(name, spec.Input.Names[0])
	if err != nil {
		return nil, err
	}
	right, err := b.resolve(name, spec.Input.Names[1])
	if err != nil {
		return nil, err
	}
	if !identRe.MatchString(spec.JoinColumn) {
		return nil, Errorf(MalformedNode, name, "joinColumn '%s' is not a valid identifier", spec.JoinColumn)
	}
	return &Join{Left: left, Right: right, Column: spec.JoinColumn}, nil
}

func (b *builder) buildSelect(name string, spec NodeSpec) (Operator, error) {
	input, err := b.singleInput(name, spec)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(spec.Condition) == "" {
		return nil, Errorf(MalformedNode, name, "Select needs a condition")
	}
	return &Select{Input: input, Condition: spec.Condition}, nil
}

func (b *builder) singleInput(name string, spec NodeSpec) (Reference, error) {
	if spec.Input.List || len(spec.Input.Names) != 1 {
		return Reference{}, Errorf(MalformedNode, name, "%s needs a single input name", spec.Operator)
	}
	return b.resolve(name, spec.Input.Names[0])
}

// resolve classifies a referenced name once: plan keys are derived sources,
// everything else is a base table.
func (b *builder) resolve(node, ref string) (Reference, error) {
	if !identRe.MatchString(ref) {
		return Reference{}, Errorf(MalformedNode, node, "input '%s' is not a valid identifier", ref)
	}
	if _, ok := b.doc.Nodes[ref]; ok {
		return NodeRef(ref), nil
	}
	if b.catalog != nil && !b.catalog.HasTable(ref) {
		err := Errorf(UnresolvedReference, node, "'%s' is neither a node of the plan nor a known table", ref)
		candidates := append(b.catalog.TableNames(), b.nodeNames()...)
		err.Suggestion = SuggestFrom(ref, candidates, 2)
		return Reference{}, err
	}
	return Leaf(ref), nil
}

// ── Cycle detection ─────────────────────────────────────────────────────────

const (
	unvisited = iota
	visiting
	visited
)

// checkAcyclic walks every node depth first and reports the first back edge.
func checkAcyclic(p *Plan) error {
	state := make(map[string]int, len(p.Nodes))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visited:
			return nil
		case visiting:
			start := 0
			for i, n := range path {
				if n == name {
					start = i
					break
				}
			}
			cycle := append(append([]string{}, path[start:]...), name)
			return Errorf(CyclicPlan, path[len(path)-1], "reference cycle %s", strings.Join(cycle, " -> "))
		}

		state[name] = visiting
		path = append(path, name)
		for _, ref := range p.Nodes[name].Op.Inputs() {
			if !ref.IsNode() {
				continue
			}
			if err := visit(ref.Name); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[name] = visited
		return nil
	}

	for _, name := range p.Names() {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}
