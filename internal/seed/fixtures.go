// Package seed provides the demo tables loaded into the throwaway store.
package seed

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ColumnDef is one column of a fixture table.
type ColumnDef struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Constraints string `yaml:"constraints,omitempty"` // e.g. "PRIMARY KEY", "NOT NULL"
}

// Fixture is a table definition plus the rows inserted into it.
type Fixture struct {
	Name    string      `yaml:"name"`
	Columns []ColumnDef `yaml:"columns"`
	Rows    [][]any     `yaml:"rows"`
}

// CreateSQL returns the CREATE TABLE statement for the fixture.
func (f Fixture) CreateSQL() string {
	defs := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		def := c.Name + " " + c.Type
		if c.Constraints != "" {
			def += " " + c.Constraints
		}
		defs[i] = def
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", f.Name, strings.Join(defs, ", "))
}

// DropSQL returns the statement removing any previous copy of the table.
func (f Fixture) DropSQL() string {
	return "DROP TABLE IF EXISTS " + f.Name
}

// InsertSQL returns a parameterised INSERT for one row.
func (f Fixture) InsertSQL() string {
	marks := make([]string, len(f.Columns))
	for i := range marks {
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s VALUES (%s)", f.Name, strings.Join(marks, ", "))
}

// Validate checks that every row matches the column count.
func (f Fixture) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("fixture has no table name")
	}
	if len(f.Columns) == 0 {
		return fmt.Errorf("fixture %s has no columns", f.Name)
	}
	for i, row := range f.Rows {
		if len(row) != len(f.Columns) {
			return fmt.Errorf("fixture %s row %d has %d values, want %d", f.Name, i, len(row), len(f.Columns))
		}
	}
	return nil
}

// Default returns the demo tables A and B.
func Default() []Fixture {
	return []Fixture{
		{
			Name: "A",
			Columns: []ColumnDef{
				{Name: "a_id", Type: "integer", Constraints: "PRIMARY KEY"},
				{Name: "a", Type: "integer", Constraints: "NOT NULL"},
				{Name: "b", Type: "text", Constraints: "NOT NULL"},
			},
			Rows: [][]any{
				{1, 1, "SF"},
				{2, 2, "MONT"},
				{3, 3, "SF"},
				{4, 5, "SF"},
				{5, 6, "TX"},
				{6, 7, "SJ"},
			},
		},
		{
			Name: "B",
			Columns: []ColumnDef{
				{Name: "b_id", Type: "integer", Constraints: "PRIMARY KEY"},
				{Name: "b", Type: "text", Constraints: "NOT NULL"},
				{Name: "c", Type: "integer", Constraints: "NOT NULL"},
			},
			Rows: [][]any{
				{1, "SF", 5},
				{2, "SJ", 5},
				{3, "TX", 5},
			},
		},
	}
}

type fixtureFile struct {
	Tables []Fixture `yaml:"tables"`
}

// Load reads fixtures from a YAML file of the form
//
//	tables:
//	  - name: A
//	    columns: [{name: a_id, type: integer, constraints: PRIMARY KEY}]
//	    rows: [[1]]
func Load(path string) ([]Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixtures: %w", err)
	}
	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding fixtures %s: %w", path, err)
	}
	for _, fx := range f.Tables {
		if err := fx.Validate(); err != nil {
			return nil, err
		}
	}
	return f.Tables, nil
}
