package operator

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/Konsultn-Engineering/sqlmap/binding"
	"github.com/Konsultn-Engineering/sqlmap/datasource"
	"github.com/Konsultn-Engineering/sqlmap/descriptor"
	"github.com/Konsultn-Engineering/sqlmap/mapping"
	"github.com/Konsultn-Engineering/sqlmap/sharding"
	"github.com/Konsultn-Engineering/sqlmap/template"
)

// TableResolver computes the table substituted for #table in one call.
type TableResolver interface {
	Resolve(inv *binding.Invocation) (string, error)
	String() string
}

type noTable struct{}

func (noTable) Resolve(*binding.Invocation) (string, error) { return "", nil }
func (noTable) String() string { return "none" }

type literalTable struct {
	table string
}

func (t literalTable) Resolve(*binding.Invocation) (string, error) { return t.table, nil }
func (t literalTable) String() string { return "global " + t.table }

type shardedTable struct {
	owner    string
	table    string
	strategy sharding.TableStrategy
	key      *binding.Getter
}

func (t *shardedTable) Resolve(inv *binding.Invocation) (string, error) {
	key, err := shardKey(t.key, inv)
	if err != nil {
		return "", err
	}
	if key == nil {
		return "", &datasource.RoutingError{Owner: t.owner, Table: t.table, Reason: "shard key :" + t.key.Ref + " is nil"}
	}
	table, err := t.strategy.Table(t.table, key)
	if err != nil {
		return "", &datasource.RoutingError{Owner: t.owner, Table: t.table, Reason: "table strategy failed", Err: err}
	}
	return table, nil
}

func (t *shardedTable) String() string {
	return fmt.Sprintf("sharded %s by :%s", t.table, t.key.Ref)
}

// newTableResolver picks the table policy of a method. The first match
// wins: no #table in the template, a table sharding strategy, a literal
// global table (the method's, the owner's, or one named after the owner's
// entity).
func newTableResolver(m *descriptor.Method, tmpl *template.Template, ctx *binding.Context, tables mapping.TableNamingStrategy) (TableResolver, error) {
	if !tmpl.UsesGlobalTable() {
		return noTable{}, nil
	}

	table := m.GlobalTable()
	if table == "" && m.Owner().Entity != nil {
		entity := m.Owner().Entity
		for entity.Kind() == reflect.Pointer {
			entity = entity.Elem()
		}
		table = tables.TableName(entity.Name())
	}

	if sh := m.Sharding(); sh != nil && sh.Table != nil {
		if table == "" {
			return nil, fmt.Errorf("sharded #table needs a base table name")
		}
		key, err := shardGetter(ctx, descriptor.ShardTable)
		if err != nil {
			return nil, err
		}
		return &shardedTable{owner: m.Owner().ID, table: table, strategy: sh.Table, key: key}, nil
	}
	if table != "" {
		return literalTable{table: table}, nil
	}
	return nil, fmt.Errorf("template uses #table but the method declares no global table or sharding")
}

// shardGetter resolves the shard key parameter for scope against ctx.
func shardGetter(ctx *binding.Context, scope descriptor.ShardScope) (*binding.Getter, error) {
	for _, p := range ctx.Params() {
		if !p.Shard.Scope.Routes(scope) {
			continue
		}
		ref := strconv.Itoa(p.Position + 1)
		if p.Shard.Property != "" {
			ref += "." + p.Shard.Property
		}
		g, err := ctx.Resolve(ref)
		if err != nil {
			return nil, fmt.Errorf("%s shard key: %w", scope, err)
		}
		return g, nil
	}
	return nil, fmt.Errorf("sharding by %s declared but no parameter is marked as its shard key", scope)
}

// shardKey reads the key for one call, dereferencing pointers. A nil key
// is returned as nil.
func shardKey(g *binding.Getter, inv *binding.Invocation) (any, error) {
	v, err := g.Get(inv)
	if err != nil || v == nil {
		return nil, err
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	return rv.Interface(), nil
}
