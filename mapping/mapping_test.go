package mapping

import (
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	cols []string
	vals []any
}

func (r row) Columns() ([]string, error) { return r.cols, nil }

func (r row) Scan(dest ...any) error {
	if len(dest) != len(r.vals) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		*(d.(*any)) = r.vals[i]
	}
	return nil
}

type Audit struct {
	CreatedAt time.Time
}

type User struct {
	Audit
	ID       int64
	Name     string `db:"user_name"`
	Email    sql.NullString
	Password string `db:"-"`
	Role     Role   `db:"column:role_name;index"`
	ExtID    uuid.UUID
	internal int
}

type Role string

func TestNaming(t *testing.T) {
	tests := []struct {
		in, snake, camel, pascal string
	}{
		{"UserID", "user_id", "userId", "UserId"},
		{"HTTPServer", "http_server", "httpServer", "HttpServer"},
		{"Name", "name", "name", "Name"},
		{"already_snake", "already_snake", "alreadySnake", "AlreadySnake"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.snake, NewColumnNamingStrategy(ColumnSnakeCase).ColumnName(tt.in))
			assert.Equal(t, tt.camel, NewColumnNamingStrategy(ColumnCamelCase).ColumnName(tt.in))
			assert.Equal(t, tt.pascal, NewColumnNamingStrategy(ColumnPascalCase).ColumnName(tt.in))
		})
	}

	naming := DefaultNamingStrategy()
	assert.Equal(t, "users", naming.TableName("User"))
	assert.Equal(t, "blog_posts", naming.TableName("BlogPost"))
	assert.Equal(t, "people", naming.TableName("Person"))
	assert.Equal(t, "BlogPosts", NamingStrategyByName("pascal").TableName("BlogPost"))
	assert.Equal(t, "blog_post", NamingStrategyByName("snake_singular").TableName("BlogPost"))
}

func TestParseTag(t *testing.T) {
	assert.Equal(t, FieldTag{}, ParseTag(`json:"x"`))
	assert.Equal(t, FieldTag{Skip: true}, ParseTag(`db:"-"`))
	assert.Equal(t, FieldTag{Column: "col"}, ParseTag(`db:"col"`))
	assert.Equal(t, FieldTag{Column: "col"}, ParseTag(`db:"primary;column:col"`))
}

func TestConvert(t *testing.T) {
	v, err := Convert(reflect.TypeFor[int32](), int64(42))
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)

	_, err = Convert(reflect.TypeFor[int8](), int64(300))
	assert.Error(t, err)

	v, err = Convert(reflect.TypeFor[string](), []byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	v, err = Convert(reflect.TypeFor[*int64](), nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = Convert(reflect.TypeFor[*int64](), int64(7))
	require.NoError(t, err)
	assert.Equal(t, int64(7), *(v.(*int64)))

	v, err = Convert(reflect.TypeFor[Role](), "admin")
	require.NoError(t, err)
	assert.Equal(t, Role("admin"), v)

	v, err = Convert(reflect.TypeFor[sql.NullInt64](), nil)
	require.NoError(t, err)
	assert.Equal(t, sql.NullInt64{}, v)

	v, err = Convert(reflect.TypeFor[time.Time](), "2024-05-01 10:00:00")
	require.NoError(t, err)
	assert.Equal(t, 2024, v.(time.Time).Year())

	id := uuid.New()
	v, err = Convert(reflect.TypeFor[uuid.UUID](), id.String())
	require.NoError(t, err)
	assert.Equal(t, id, v)

	uid := ulid.Make()
	v, err = Convert(reflect.TypeFor[ulid.ULID](), uid.String())
	require.NoError(t, err)
	assert.Equal(t, uid, v)

	_, err = Convert(reflect.TypeFor[bool](), struct{}{})
	assert.Error(t, err)
}

func TestHasConverter(t *testing.T) {
	assert.True(t, HasConverter(reflect.TypeFor[int64]()))
	assert.True(t, HasConverter(reflect.TypeFor[*string]()))
	assert.True(t, HasConverter(reflect.TypeFor[time.Time]()))
	assert.True(t, HasConverter(reflect.TypeFor[sql.NullString]()))
	assert.True(t, HasConverter(reflect.TypeFor[uuid.UUID]()))
	assert.True(t, HasConverter(reflect.TypeFor[Role]()))
	assert.False(t, HasConverter(reflect.TypeFor[User]()))
}

func TestSingleColumnMapper(t *testing.T) {
	m, err := NewSingleColumnMapper(reflect.TypeFor[int64]())
	require.NoError(t, err)
	v, err := m.MapRow(row{cols: []string{"count(*)"}, vals: []any{int64(12)}})
	require.NoError(t, err)
	assert.Equal(t, int64(12), v)

	_, err = NewSingleColumnMapper(reflect.TypeFor[User]())
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	d, err := Describe(reflect.TypeFor[User](), map[string]string{"ExtID": "external_id"}, nil)
	require.NoError(t, err)

	cols := make(map[string]string)
	for _, f := range d.Fields {
		cols[f.Name] = f.Column
	}
	assert.Equal(t, map[string]string{
		"ID":        "id",
		"Name":      "user_name",
		"Email":     "email",
		"Role":      "role_name",
		"ExtID":     "external_id",
		"CreatedAt": "created_at",
	}, cols)

	f, ok := d.Lookup("USERNAME")
	require.True(t, ok)
	assert.Equal(t, "Name", f.Name)

	_, err = Describe(reflect.TypeFor[User](), map[string]string{"Nope": "x"}, nil)
	assert.ErrorContains(t, err, "Nope")

	_, err = Describe(reflect.TypeFor[int](), nil, nil)
	assert.Error(t, err)
}

func TestStructMapper(t *testing.T) {
	d, err := Describe(reflect.TypeFor[*User](), nil, nil)
	require.NoError(t, err)
	id := uuid.New()
	r := row{
		cols: []string{"id", "user_name", "email", "role_name", "ext_id", "created_at", "extra"},
		vals: []any{int64(1), []byte("ann"), nil, "admin", id.String(), "2024-01-02 03:04:05", 1},
	}

	v, err := NewStructMapper(d, false).MapRow(r)
	require.NoError(t, err)
	u := v.(*User)
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "ann", u.Name)
	assert.False(t, u.Email.Valid)
	assert.Equal(t, Role("admin"), u.Role)
	assert.Equal(t, id, u.ExtID)
	assert.Equal(t, 2024, u.CreatedAt.Year())

	_, err = NewStructMapper(d, true).MapRow(r)
	assert.ErrorContains(t, err, "extra")
}

func TestMapperFunc(t *testing.T) {
	m := MapperFunc(func(rs RowScanner) (string, error) { return "fixed", nil })
	assert.Equal(t, reflect.TypeFor[string](), m.Type())
	v, err := m.MapRow(row{})
	require.NoError(t, err)
	assert.Equal(t, "fixed", v)

	v, err = MapMapper{}.MapRow(row{cols: []string{"a"}, vals: []any{int64(1)}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": int64(1)}, v)
}
