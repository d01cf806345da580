package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/relplan/internal/plan"
)

const samplePlan = `{
	"root": "x1",
	"x1": {"operator": "Project", "input": "x2", "colNames": ["a"]},
	"x2": {"operator": "Join", "input": ["x3", "x4"], "joinColumn": "b"},
	"x3": {"operator": "Select", "input": "A", "condition": "a>3"},
	"x4": {"operator": "Select", "input": "B", "condition": "c==5"}
}`

const sampleSQL = "SELECT x2.a FROM (SELECT * FROM (SELECT * FROM A WHERE a>3) AS x3, " +
	"(SELECT * FROM B WHERE c==5) AS x4 WHERE x3.b = x4.b) AS x2"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(io.Discard)
	RootCmd.SetArgs(args)
	t.Cleanup(func() {
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
		RootCmd.SetArgs(nil)
	})
	err := RootCmd.Execute()
	return out.String(), err
}

func TestTranslateCommand(t *testing.T) {
	path := writeFile(t, "plan.json", samplePlan)

	out, err := run(t, "translate", path)
	require.NoError(t, err)
	assert.Equal(t, sampleSQL+"\n", out)
}

func TestTranslateCommand_StrictTables(t *testing.T) {
	path := writeFile(t, "plan.json", samplePlan)
	defer func() { translateTables = nil }()

	_, err := run(t, "translate", "--tables", "A", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, plan.UnresolvedReference)
}

func TestTranslateCommand_YAML(t *testing.T) {
	path := writeFile(t, "plan.yaml", "root: P\nP:\n  operator: Project\n  input: T\n  colNames: [a, b]\n")

	out, err := run(t, "translate", path)
	require.NoError(t, err)
	assert.Equal(t, "SELECT T.a, T.b FROM T\n", out)
}

func TestExecCommand(t *testing.T) {
	path := writeFile(t, "plan.json", `{"root": "S", "S": {"operator": "Select", "input": "A", "condition": "a_id == 1"}}`)

	out, err := run(t, "exec", "--output", "tuples", path)
	require.NoError(t, err)
	assert.Equal(t, "final query = SELECT * FROM A WHERE a_id == 1\n(1, 1, 'SF')\n", out)
}

func TestExecCommand_JSON(t *testing.T) {
	path := writeFile(t, "plan.json", `{"root": "S", "S": {"operator": "Select", "input": "B", "condition": "b = 'TX'"}}`)

	out, err := run(t, "exec", "-o", "json", path)
	require.NoError(t, err)

	var result struct {
		SQL     string   `json:"sql"`
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []string{"b_id", "b", "c"}, result.Columns)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "TX", result.Rows[0][1])
}

func TestExecCommand_UnknownOutput(t *testing.T) {
	path := writeFile(t, "plan.json", samplePlan)

	_, err := run(t, "exec", "-o", "xml", path)
	assert.Error(t, err)
}

func TestExplicitConfigFile(t *testing.T) {
	origCfgFile := cfgFile
	origConfig := Config
	defer func() {
		cfgFile = origCfgFile
		Config = origConfig
		viper.Reset()
	}()

	cfgFile = writeFile(t, "relplan.yml", `
server:
  port: 9191
  shutdown_timeout: 2s
translate:
  max_depth: 8
`)
	viper.Reset()
	initConfig()

	assert.Equal(t, 9191, Config.Server.Port)
	assert.Equal(t, "2s", Config.Server.ShutdownTimeout.String())
	assert.Equal(t, 8, Config.Translate.MaxDepth)
	assert.True(t, Config.Translate.StrictReferences)
}
