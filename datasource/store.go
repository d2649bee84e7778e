// Package datasource holds the physical stores statements are routed to:
// groups of a primary and replicas, the registry that maps owners to
// groups, and the providers that open them.
package datasource

import (
	"fmt"

	"github.com/Konsultn-Engineering/sqlmap/database"
	"github.com/Konsultn-Engineering/sqlmap/dialect"
)

// Class is the destination class of a statement.
type Class int

const (
	Primary Class = iota
	Replica
)

func (c Class) String() string {
	if c == Primary {
		return "primary"
	}
	return "replica"
}

// Store is one physical database.
type Store struct {
	Name     string
	Executor database.Executor
	Dialect  dialect.Dialect
}

// Group is a primary with zero or more read replicas.
type Group struct {
	Name     string
	Primary  *Store
	Replicas []*Store
	Balancer Balancer
}

// NewGroup validates and builds a group. A nil balancer means round robin.
func NewGroup(name string, primary *Store, replicas []*Store, b Balancer) (*Group, error) {
	if primary == nil || primary.Executor == nil {
		return nil, fmt.Errorf("group %s: primary store is required", name)
	}
	for i, r := range replicas {
		if r == nil || r.Executor == nil {
			return nil, fmt.Errorf("group %s: replica %d has no executor", name, i)
		}
	}
	if b == nil {
		b = &RoundRobin{}
	}
	return &Group{Name: name, Primary: primary, Replicas: replicas, Balancer: b}, nil
}

// Pick returns the store for class. Reads fall back to the primary when
// the group has no replicas.
func (g *Group) Pick(class Class) *Store {
	if class == Primary || len(g.Replicas) == 0 {
		return g.Primary
	}
	i := g.Balancer.Pick(len(g.Replicas))
	if i < 0 || i >= len(g.Replicas) {
		return g.Primary
	}
	return g.Replicas[i]
}

// Stores returns the primary followed by the replicas.
func (g *Group) Stores() []*Store {
	return append([]*Store{g.Primary}, g.Replicas...)
}
