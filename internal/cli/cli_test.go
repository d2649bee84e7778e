package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/sqlmap/page"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want reflect.Type
	}{
		{"int64", reflect.TypeFor[int64]()},
		{"[]string", reflect.TypeFor[[]string]()},
		{"[3]int", reflect.TypeFor[[3]int]()},
		{"*row", reflect.TypeFor[*map[string]any]()},
		{"set[int64]", reflect.TypeFor[map[int64]struct{}]()},
		{"[]row", reflect.TypeFor[[]map[string]any]()},
		{"paged", reflect.TypeFor[page.Result[map[string]any]]()},
		{"time", reflect.TypeFor[time.Time]()},
		{"page", page.Type},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "decimal", "[x]int", "[2int", "set[row]"} {
		_, err := parseType(bad)
		assert.Error(t, err, bad)
	}
}

func TestDecodeArgs(t *testing.T) {
	types := []reflect.Type{reflect.TypeFor[[]int64](), reflect.TypeFor[string](), page.Type}
	args, err := decodeArgs(`[[1,2], "active", {"number": 2, "size": 10}]`, types)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, args[0])
	assert.Equal(t, "active", args[1])
	assert.Equal(t, page.Of(2, 10), args[2])

	_, err = decodeArgs(`[1]`, types)
	assert.ErrorContains(t, err, "got 1 args for 3 parameters")

	_, err = decodeArgs(`{}`, types)
	assert.ErrorContains(t, err, "args must be a JSON array")

	_, err = decodeArgs(`["x", "y", {}]`, types)
	assert.ErrorContains(t, err, "arg 1 as []int64")
}

func TestExplainQuery(t *testing.T) {
	out, err := run(t, "explain",
		"--sql", "SELECT id, name FROM #table WHERE id IN (:ids)",
		"-p", "ids:[]int64",
		"--returns", "[]row",
		"--table", "users",
		"--args", "[[1,2,3]]")
	require.NoError(t, err)

	assert.Contains(t, out, "Explain.method")
	assert.Contains(t, out, "kind:         query")
	assert.Contains(t, out, "destination:  replica")
	assert.Contains(t, out, "global users")
	assert.Contains(t, out, "result:       list of map[string]interface {}")
	assert.Contains(t, out, "sql: SELECT id, name FROM users WHERE id IN (1, 2, 3)")
}

func TestExplainUsePrimary(t *testing.T) {
	out, err := run(t, "explain", "--sql", "SELECT 1", "--returns", "int64", "--use-primary")
	require.NoError(t, err)
	assert.Contains(t, out, "destination:  primary")
	assert.Contains(t, out, "scalar of int64")
}

func TestExplainBatch(t *testing.T) {
	out, err := run(t, "explain",
		"--sql", "UPDATE users SET name = :name WHERE id = :id",
		"-p", "users:[]row",
		"--returns", "[]int64",
		"--dialect", "mysql",
		"--args", `[[{"id":1,"name":"a"},{"id":2,"name":"b"}]]`)
	require.NoError(t, err)

	assert.Contains(t, out, "kind:         batch_update")
	assert.Contains(t, out, "destination:  primary")
	assert.Contains(t, out, "sql[0]: UPDATE users SET name = 'a' WHERE id = 1")
	assert.Contains(t, out, "sql[1]: UPDATE users SET name = 'b' WHERE id = 2")
}

func TestExplainEmptyBatch(t *testing.T) {
	out, err := run(t, "explain",
		"--sql", "UPDATE users SET name = :name WHERE id = :id",
		"-p", "users:[]row",
		"--args", `[[]]`)
	require.NoError(t, err)
	assert.Contains(t, out, "no statements: empty batch")
}

func TestExplainPaged(t *testing.T) {
	out, err := run(t, "explain",
		"--sql", "SELECT id, name FROM users WHERE status = :status",
		"-p", "status:string",
		"-p", "p:page",
		"--returns", "paged",
		"--args", `["active", {"number": 3, "size": 5}]`)
	require.NoError(t, err)

	assert.Contains(t, out, "result:       page of map[string]interface {}")
	assert.Contains(t, out, "count: SELECT COUNT(*) FROM users WHERE status = 'active'")
	assert.Contains(t, out, "sql: SELECT id, name FROM users WHERE status = 'active' LIMIT 5 OFFSET 10")
}

func TestExplainErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing sql", []string{"explain"}, `required flag(s) "sql" not set`},
		{"bad param", []string{"explain", "--sql", "SELECT 1", "-p", "id"}, `parameter "id": want name:type`},
		{"unknown type", []string{"explain", "--sql", "SELECT 1", "-p", "id:decimal"}, `unknown type "decimal"`},
		{"unknown dialect", []string{"explain", "--sql", "SELECT 1", "--dialect", "oracle"}, `unknown dialect "oracle"`},
		{"unbound placeholder", []string{"explain", "--sql", "SELECT * FROM users WHERE id = :id", "--returns", "[]row"}, "bind placeholders"},
		{"void query", []string{"explain", "--sql", "SELECT 1"}, "result mapping"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestPingSQLite(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sqlmap.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
datasources:
  default: local
  groups:
    local:
      provider: sqlite
      primary:
        database: `+filepath.Join(dir, "local.db")+`
`), 0o600))

	out, err := run(t, "--config", cfgPath, "ping")
	require.NoError(t, err)
	assert.Contains(t, out, "GROUP")
	assert.Contains(t, out, "local")
	assert.Contains(t, out, "ok")
}

func TestPingWithoutGroups(t *testing.T) {
	_, err := run(t, "ping")
	assert.ErrorContains(t, err, "no store groups configured")
}
