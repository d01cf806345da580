package plan

import (
	"fmt"
	"strings"
)

// Kind classifies a plan failure. Kind values are errors themselves so that
// callers can match with errors.Is(err, plan.CyclicPlan).
type Kind int

const (
	MissingRoot Kind = iota + 1
	UnknownOperator
	MalformedNode
	UnresolvedReference
	CyclicPlan
)

func (k Kind) Error() string {
	switch k {
	case MissingRoot:
		return "missing root"
	case UnknownOperator:
		return "unknown operator"
	case MalformedNode:
		return "malformed node"
	case UnresolvedReference:
		return "unresolved reference"
	case CyclicPlan:
		return "cyclic plan"
	default:
		return "plan error"
	}
}

// Code returns the machine-readable code reported by the transports.
func (k Kind) Code() string {
	switch k {
	case MissingRoot:
		return "MISSING_ROOT"
	case UnknownOperator:
		return "UNKNOWN_OPERATOR"
	case MalformedNode:
		return "MALFORMED_NODE"
	case UnresolvedReference:
		return "UNRESOLVED_REFERENCE"
	case CyclicPlan:
		return "CYCLIC_PLAN"
	default:
		return "PLAN_ERROR"
	}
}

// Error is a plan failure tied to the node it was detected on.
type Error struct {
	Kind       Kind
	Node       string
	Message    string
	Suggestion string // "did you mean 'B'?" or ""
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Node != "" {
		fmt.Fprintf(&b, " at node '%s'", e.Node)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Suggestion != "" {
		b.WriteString(" (" + e.Suggestion + ")")
	}
	return b.String()
}

// Unwrap exposes the Kind for errors.Is.
func (e *Error) Unwrap() error { return e.Kind }

// Errorf creates an Error of the given kind for a node.
func Errorf(kind Kind, node, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Node:    node,
		Message: fmt.Sprintf(format, args...),
	}
}

// Levenshtein computes the edit distance between two strings.
func Levenshtein(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr := make([]int, lb+1)
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev = curr
	}
	return prev[lb]
}

// SuggestFrom finds the closest candidate within maxDist edits. A candidate
// differing only in case always wins; equal distances go to the candidate
// closer once case is ignored, then to the earlier one.
// Returns "" if no candidate is close enough.
func SuggestFrom(input string, candidates []string, maxDist int) string {
	for _, c := range candidates {
		if strings.EqualFold(input, c) {
			return fmt.Sprintf("did you mean '%s'?", c)
		}
	}

	folded := strings.ToLower(input)
	best := ""
	bestDist, bestFold := maxDist+1, 0
	for _, c := range candidates {
		d := Levenshtein(input, c)
		f := Levenshtein(folded, strings.ToLower(c))
		if d < bestDist || (d == bestDist && f < bestFold) {
			bestDist, bestFold = d, f
			best = c
		}
	}
	if bestDist <= maxDist {
		return fmt.Sprintf("did you mean '%s'?", best)
	}
	return ""
}
