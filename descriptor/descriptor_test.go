package descriptor

import (
	"database/sql"
	"iter"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/sqlmap/sharding"
)

type user struct {
	ID   int64
	Name string
}

type fakePage[T any] struct {
	Data  []T
	Total int64
}

func (fakePage[T]) PageElem() reflect.Type { return reflect.TypeFor[T]() }

func TestReturnOf(t *testing.T) {
	tests := []struct {
		name      string
		typ       reflect.Type
		shape     Shape
		container Container
		elem      reflect.Type
	}{
		{"slice", reflect.TypeFor[[]user](), ShapeList, ContainerSlice, reflect.TypeFor[user]()},
		{"seq", reflect.TypeFor[iter.Seq[int64]](), ShapeList, ContainerSeq, reflect.TypeFor[int64]()},
		{"array", reflect.TypeFor[[3]string](), ShapeArray, ContainerSlice, reflect.TypeFor[string]()},
		{"set", reflect.TypeFor[map[int64]struct{}](), ShapeSet, ContainerSlice, reflect.TypeFor[int64]()},
		{"optional", reflect.TypeFor[sql.Null[user]](), ShapeOptional, ContainerSlice, reflect.TypeFor[user]()},
		{"page", reflect.TypeFor[fakePage[user]](), ShapePage, ContainerSlice, reflect.TypeFor[user]()},
		{"struct", reflect.TypeFor[user](), ShapeScalar, ContainerSlice, reflect.TypeFor[user]()},
		{"pointer", reflect.TypeFor[*user](), ShapeScalar, ContainerSlice, reflect.TypeFor[*user]()},
		{"bytes", reflect.TypeFor[[]byte](), ShapeScalar, ContainerSlice, reflect.TypeFor[[]byte]()},
		{"plain map", reflect.TypeFor[map[string]any](), ShapeScalar, ContainerSlice, reflect.TypeFor[map[string]any]()},
		{"null string", reflect.TypeFor[sql.NullString](), ShapeScalar, ContainerSlice, reflect.TypeFor[sql.NullString]()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ReturnOf(tt.typ)
			assert.Equal(t, tt.shape, r.Shape)
			assert.Equal(t, tt.container, r.Container)
			assert.Equal(t, tt.elem, r.Elem)
			assert.Equal(t, tt.typ, r.Type)
		})
	}

	assert.True(t, ReturnOf(nil).Void())
}

func TestParameterIterable(t *testing.T) {
	assert.True(t, ParamOf[[]int64]("ids").Iterable())
	assert.True(t, ParamOf[[2]string]("pair").Iterable())
	assert.False(t, ParamOf[[]byte]("blob").Iterable())
	assert.False(t, ParamOf[int64]("id").Iterable())
	assert.False(t, ParamOf[map[string]int]("m").Iterable())
}

func TestElementOfLeavesOriginalUntouched(t *testing.T) {
	p := ParamOf[[]user]("users", ShardBy(ShardTable, "id"))
	elem, err := p.ElementOf()
	require.NoError(t, err)

	assert.Equal(t, reflect.TypeFor[user](), elem.Type)
	assert.Equal(t, "users", elem.Name)
	assert.Equal(t, ShardKey{Scope: ShardTable, Property: "id"}, elem.Shard)
	assert.Equal(t, reflect.TypeFor[[]user](), p.Type)

	_, err = ParamOf[int]("n").ElementOf()
	assert.Error(t, err)
}

func TestNewMethod(t *testing.T) {
	mod, err := sharding.NewModTable(2)
	require.NoError(t, err)

	owner := Owner{ID: "UserDao", Table: "users"}
	m, err := NewMethod(owner, "FindByID", "select * from #table where id = :id",
		[]Parameter{
			ParamOf[int64]("id", ShardBy(ShardBoth, "")),
			ParamOf[string]("name"),
		},
		ReturnsOf[[]user](),
		WithSharding(mod, nil),
		Results(map[string]string{"Name": "user_name"}),
	)
	require.NoError(t, err)

	assert.Equal(t, "UserDao.FindByID", m.FullName())
	assert.Equal(t, "users", m.GlobalTable())
	assert.Equal(t, ShapeList, m.Return().Shape)
	assert.Equal(t, 1, m.Params()[1].Position)

	key, ok := m.ShardKey(ShardStore)
	require.True(t, ok)
	assert.Equal(t, "id", key.Name)

	params := m.Params()
	params[0].Name = "changed"
	assert.Equal(t, "id", m.Params()[0].Name)

	results := m.Results()
	results["Name"] = "other"
	assert.Equal(t, "user_name", m.Results()["Name"])

	m2, err := NewMethod(owner, "Other", "select 1", nil, GlobalTable("accounts"), UsePrimary(), Store("archive"))
	require.NoError(t, err)
	assert.Equal(t, "accounts", m2.GlobalTable())
	assert.True(t, m2.UsePrimary())
	assert.Equal(t, "archive", m2.StoreName())
	assert.True(t, m2.Return().Void())
	_, ok = m2.ShardKey(ShardTable)
	assert.False(t, ok)
}

func TestNewMethodValidation(t *testing.T) {
	_, err := NewMethod(Owner{}, "", "select 1", nil)
	assert.Error(t, err)

	_, err = NewMethod(Owner{}, "M", "  ", nil)
	assert.Error(t, err)

	_, err = NewMethod(Owner{}, "M", "select 1", []Parameter{ParamOf[int]("a"), ParamOf[int]("a")})
	assert.ErrorContains(t, err, "duplicate")

	_, err = NewMethod(Owner{}, "M", "select 1", []Parameter{{Name: "x"}})
	assert.ErrorContains(t, err, "no type")
}
