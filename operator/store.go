package operator

import (
	"fmt"

	"github.com/Konsultn-Engineering/sqlmap/binding"
	"github.com/Konsultn-Engineering/sqlmap/datasource"
	"github.com/Konsultn-Engineering/sqlmap/descriptor"
	"github.com/Konsultn-Engineering/sqlmap/sharding"
)

// StoreResolver picks the physical store of one call.
type StoreResolver interface {
	Resolve(inv *binding.Invocation) (*datasource.Store, error)
	Class() datasource.Class
	String() string
}

type ownerStore struct {
	registry *datasource.Registry
	owner    string
	class    datasource.Class
	name     string
}

func (s *ownerStore) Resolve(*binding.Invocation) (*datasource.Store, error) {
	return s.registry.Resolve(s.owner, s.class, s.name)
}

func (s *ownerStore) Class() datasource.Class { return s.class }

func (s *ownerStore) String() string {
	if s.name != "" {
		return fmt.Sprintf("%s of group %s", s.class, s.name)
	}
	return fmt.Sprintf("%s of %s's group", s.class, s.owner)
}

type shardedStore struct {
	registry *datasource.Registry
	owner    string
	class    datasource.Class
	strategy sharding.StoreStrategy
	key      *binding.Getter
}

func (s *shardedStore) Resolve(inv *binding.Invocation) (*datasource.Store, error) {
	key, err := shardKey(s.key, inv)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, &datasource.RoutingError{Owner: s.owner, Class: s.class, Reason: "shard key :" + s.key.Ref + " is nil"}
	}
	group, err := s.strategy.Store(key)
	if err != nil {
		return nil, &datasource.RoutingError{Owner: s.owner, Class: s.class, Reason: "store strategy failed", Err: err}
	}
	return s.registry.Resolve(s.owner, s.class, group)
}

func (s *shardedStore) Class() datasource.Class { return s.class }

func (s *shardedStore) String() string {
	return fmt.Sprintf("%s of sharded group by :%s", s.class, s.key.Ref)
}

// destination is primary for writes and for reads forced onto the primary.
func destination(kind Kind, m *descriptor.Method) datasource.Class {
	if kind != Query || m.UsePrimary() {
		return datasource.Primary
	}
	return datasource.Replica
}

// newStoreResolver picks the store policy of a method. registry may be nil
// when the plan is only inspected.
func newStoreResolver(kind Kind, m *descriptor.Method, ctx *binding.Context, registry *datasource.Registry) (StoreResolver, error) {
	class := destination(kind, m)
	owner := m.Owner().ID

	if sh := m.Sharding(); sh != nil && sh.Store != nil {
		key, err := shardGetter(ctx, descriptor.ShardStore)
		if err != nil {
			return nil, err
		}
		return &shardedStore{registry: registry, owner: owner, class: class, strategy: sh.Store, key: key}, nil
	}

	if registry != nil {
		if _, err := registry.GroupFor(owner, m.StoreName()); err != nil {
			return nil, err
		}
	}
	return &ownerStore{registry: registry, owner: owner, class: class, name: m.StoreName()}, nil
}
