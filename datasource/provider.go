package datasource

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Konsultn-Engineering/sqlmap/database"
	"github.com/Konsultn-Engineering/sqlmap/dialect"
)

// Provider opens stores of one database kind.
type Provider interface {
	Name() string
	Dialect() dialect.Dialect
	Open(ctx context.Context, cfg Config) (database.Executor, error)
}

var (
	providersMu sync.RWMutex
	providers   = map[string]Provider{}
)

// RegisterProvider makes p available under p.Name().
func RegisterProvider(p Provider) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[p.Name()] = p
}

// ProviderFor returns the provider registered under name.
func ProviderFor(name string) (Provider, error) {
	providersMu.RLock()
	defer providersMu.RUnlock()
	p, ok := providers[name]
	if !ok {
		names := make([]string, 0, len(providers))
		for n := range providers {
			names = append(names, n)
		}
		slices.Sort(names)
		return nil, fmt.Errorf("provider %s not registered (available: %v)", name, names)
	}
	return p, nil
}

func init() {
	RegisterProvider(PostgresProvider{})
	RegisterProvider(SQLiteProvider{})
	RegisterProvider(MySQLProvider{name: "mysql", dialect: dialect.NewMySQLDialect()})
	RegisterProvider(MySQLProvider{name: "tidb", dialect: dialect.NewTiDBDialect()})
}

// Open connects every configured group and builds the registry. Stores
// opened before a failure are closed again.
func Open(ctx context.Context, rc RegistryConfig) (*Registry, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}

	var opened []*Store
	fail := func(err error) (*Registry, error) {
		for _, s := range opened {
			_ = s.Executor.Close()
		}
		return nil, err
	}

	names := make([]string, 0, len(rc.Groups))
	for name := range rc.Groups {
		names = append(names, name)
	}
	slices.Sort(names)

	groups := make([]*Group, 0, len(names))
	for _, name := range names {
		cc := rc.Groups[name]
		p, err := ProviderFor(cc.Provider)
		if err != nil {
			return fail(fmt.Errorf("group %s: %w", name, err))
		}

		open := func(label string, cfg Config) (*Store, error) {
			exec, err := p.Open(ctx, cfg)
			if err != nil {
				return nil, fmt.Errorf("group %s: open %s: %w", name, label, err)
			}
			s := &Store{Name: label, Executor: exec, Dialect: p.Dialect()}
			opened = append(opened, s)
			return s, nil
		}

		primary, err := open("primary", cc.Primary)
		if err != nil {
			return fail(err)
		}
		replicas := make([]*Store, 0, len(cc.Replicas))
		for i, rcfg := range cc.Replicas {
			r, err := open(fmt.Sprintf("replica-%d", i), rcfg)
			if err != nil {
				return fail(err)
			}
			replicas = append(replicas, r)
		}

		b, err := NewBalancer(cc.ReadStrategy)
		if err != nil {
			return fail(err)
		}
		g, err := NewGroup(name, primary, replicas, b)
		if err != nil {
			return fail(err)
		}
		groups = append(groups, g)
	}

	opts := []RegistryOption{DefaultGroup(rc.Default)}
	for owner, group := range rc.Owners {
		opts = append(opts, BindOwner(owner, group))
	}
	reg, err := NewRegistry(groups, opts...)
	if err != nil {
		return fail(err)
	}
	return reg, nil
}
