package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/relplan/internal/plan"
)

type fakeLister struct {
	tables []Table
	err    error
}

func (f fakeLister) Tables(context.Context) ([]Table, error) { return f.tables, f.err }

func TestRegistry_Basics(t *testing.T) {
	r := New("B", "A")

	assert.True(t, r.HasTable("A"))
	assert.False(t, r.HasTable("C"))
	assert.Equal(t, []string{"A", "B"}, r.TableNames())
	assert.Nil(t, r.Table("C"))

	r.Register(Table{Name: "C", Columns: []string{"x"}})
	assert.Equal(t, []string{"x"}, r.Table("C").Columns)
	assert.Len(t, r.All(), 3)
	assert.Equal(t, "A", r.All()[0].Name)
}

func TestRegistry_CaseInsensitive(t *testing.T) {
	r := New("Orders")

	assert.True(t, r.HasTable("orders"))
	assert.True(t, r.HasTable("ORDERS"))
	require.NotNil(t, r.Table("oRdErS"))
	assert.Equal(t, "Orders", r.Table("orders").Name)

	r.Register(Table{Name: "ORDERS", Columns: []string{"id"}})
	assert.Equal(t, []string{"ORDERS"}, r.TableNames())
	assert.Equal(t, []string{"id"}, r.Table("orders").Columns)
}

func TestLoad(t *testing.T) {
	r, err := Load(context.Background(), fakeLister{tables: []Table{
		{Name: "A", Columns: []string{"a_id", "a", "b"}},
		{Name: "B", Columns: []string{"b_id", "b", "c"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, r.TableNames())

	_, err = Load(context.Background(), fakeLister{err: errors.New("boom")})
	assert.ErrorContains(t, err, "listing tables: boom")
}

func TestRegistry_IsPlanCatalog(t *testing.T) {
	var c plan.Catalog = New("A", "B")

	_, err := plan.Parse([]byte(`{"root": "S", "S": {"operator": "Select", "input": "C", "condition": "x"}}`),
		plan.FormatJSON, plan.WithCatalog(c))
	assert.True(t, errors.Is(err, plan.UnresolvedReference))

	p, err := plan.Parse([]byte(`{"root": "S", "S": {"operator": "Select", "input": "a", "condition": "a_id == 1"}}`),
		plan.FormatJSON, plan.WithCatalog(c))
	require.NoError(t, err)
	assert.Equal(t, plan.Leaf("a"), p.Node("S").Op.(*plan.Select).Input)

	// A near miss on a table is suggested ahead of an equally distant node.
	_, err = plan.Parse([]byte(`{"root": "S", "S": {"operator": "Select", "input": "Q", "condition": "x"}}`),
		plan.FormatJSON, plan.WithCatalog(c))
	var perr *plan.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "did you mean 'A'?", perr.Suggestion)
}
