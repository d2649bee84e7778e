package operator

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/sqlmap/datasource"
	"github.com/Konsultn-Engineering/sqlmap/descriptor"
	"github.com/Konsultn-Engineering/sqlmap/page"
	"github.com/Konsultn-Engineering/sqlmap/testutil"
)

type account struct {
	ID     int64
	Name   string
	Status string
}

func TestSQLiteEndToEnd(t *testing.T) {
	reg, err := datasource.Open(ctx, datasource.RegistryConfig{
		Groups: map[string]datasource.ClusterConfig{"main": {Provider: "sqlite"}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	g, _ := reg.Group("main")
	_, err = g.Primary.Executor.Exec(ctx,
		"CREATE TABLE accounts (id INTEGER PRIMARY KEY, name TEXT NOT NULL, status TEXT NOT NULL)", nil)
	require.NoError(t, err)

	f, err := NewFactory(reg, WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)
	owner := descriptor.Owner{ID: "AccountMapper", Entity: reflect.TypeFor[account]()}
	def := func(name, sql string, params []descriptor.Parameter, opts ...descriptor.Option) Operator {
		m, err := descriptor.NewMethod(owner, name, sql, params, opts...)
		require.NoError(t, err)
		op, err := f.Operator(m)
		require.NoError(t, err)
		return op
	}

	insert := def("insert", "INSERT INTO #table (id, name, status) VALUES (:id, :name, :status)",
		[]descriptor.Parameter{descriptor.ParamOf[[]account]("accounts")},
		descriptor.ReturnsOf[[]int64]())
	require.Equal(t, BatchUpdate, insert.Kind())

	var accounts []account
	for i := 1; i <= 25; i++ {
		status := "active"
		if i%5 == 0 {
			status = "closed"
		}
		accounts = append(accounts, account{ID: int64(i), Name: string(rune('a' + i - 1)), Status: status})
	}
	counts, err := Call[[]int64](ctx, insert, accounts)
	require.NoError(t, err)
	assert.Len(t, counts, 25)

	byIDs := def("byIDs", "SELECT id, name, status FROM #table WHERE id IN (:ids) ORDER BY id",
		[]descriptor.Parameter{descriptor.ParamOf[[]int64]("ids")},
		descriptor.ReturnsOf[[]account]())
	got, err := Call[[]account](ctx, byIDs, []int64{2, 5})
	require.NoError(t, err)
	assert.Equal(t, []account{{ID: 2, Name: "b", Status: "active"}, {ID: 5, Name: "e", Status: "closed"}}, got)

	got, err = Call[[]account](ctx, byIDs, []int64{})
	require.NoError(t, err)
	assert.Empty(t, got)

	paged := def("paged", "SELECT id, name, status FROM #table WHERE status = :status",
		[]descriptor.Parameter{descriptor.ParamOf[string]("status"), descriptor.ParamOf[page.Page]("page")},
		descriptor.ReturnsOf[page.Result[account]]())
	res, err := Call[page.Result[account]](ctx, paged, "active", page.Of(2, 5, page.ByDesc("id")))
	require.NoError(t, err)
	assert.Equal(t, int64(20), res.Total)
	require.Len(t, res.Data, 5)
	assert.Equal(t, int64(18), res.Data[0].ID)

	name := def("name", "SELECT name FROM #table WHERE id = :id",
		[]descriptor.Parameter{descriptor.ParamOf[int64]("id")},
		descriptor.ReturnsOf[string]())
	n, err := Call[string](ctx, name, int64(3))
	require.NoError(t, err)
	assert.Equal(t, "c", n)

	closeAll := def("close", "UPDATE #table SET status = 'closed' WHERE id IN (:ids)",
		[]descriptor.Parameter{descriptor.ParamOf[[]int64]("ids")},
		descriptor.ReturnsOf[int]())
	affected, err := Call[int](ctx, closeAll, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, affected)

	res, err = Call[page.Result[account]](ctx, paged, "active", page.Of(1, 100))
	require.NoError(t, err)
	assert.Equal(t, int64(17), res.Total)
	assert.Len(t, res.Data, 17)
}
