package datasource

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Registry maps owners to store groups. It is immutable once built and
// safe for concurrent use.
type Registry struct {
	groups map[string]*Group
	owners map[string]string
	def    string
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// BindOwner routes an owner's statements to group.
func BindOwner(owner, group string) RegistryOption {
	return func(r *Registry) { r.owners[owner] = group }
}

// DefaultGroup routes owners without a binding to group.
func DefaultGroup(group string) RegistryOption {
	return func(r *Registry) { r.def = group }
}

// NewRegistry builds a registry. With a single group and no explicit
// default, that group is the default.
func NewRegistry(groups []*Group, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{groups: make(map[string]*Group, len(groups)), owners: map[string]string{}}
	for _, g := range groups {
		if _, dup := r.groups[g.Name]; dup {
			return nil, fmt.Errorf("duplicate store group %q", g.Name)
		}
		r.groups[g.Name] = g
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.def == "" && len(groups) == 1 {
		r.def = groups[0].Name
	}
	for owner, g := range r.owners {
		if _, ok := r.groups[g]; !ok {
			return nil, fmt.Errorf("owner %s bound to unknown group %q", owner, g)
		}
	}
	if _, ok := r.groups[r.def]; r.def != "" && !ok {
		return nil, fmt.Errorf("unknown default group %q", r.def)
	}
	return r, nil
}

// Group returns the named group.
func (r *Registry) Group(name string) (*Group, bool) {
	g, ok := r.groups[name]
	return g, ok
}

// GroupNames returns the group names in order.
func (r *Registry) GroupNames() []string {
	return slices.Sorted(maps.Keys(r.groups))
}

// GroupFor returns the group name an owner resolves to: the named override,
// the owner's binding, then the default.
func (r *Registry) GroupFor(owner, name string) (string, error) {
	switch {
	case name != "":
		if _, ok := r.groups[name]; !ok {
			return "", &RoutingError{Owner: owner, Group: name, Reason: "no such store group"}
		}
		return name, nil
	case r.owners[owner] != "":
		return r.owners[owner], nil
	case r.def != "":
		return r.def, nil
	}
	return "", &RoutingError{Owner: owner, Reason: "no store group bound and no default"}
}

// Resolve returns the store for owner and class. name, when set, overrides
// the owner's binding.
func (r *Registry) Resolve(owner string, class Class, name string) (*Store, error) {
	group, err := r.GroupFor(owner, name)
	if err != nil {
		var re *RoutingError
		if errors.As(err, &re) {
			re.Class = class
		}
		return nil, err
	}
	return r.groups[group].Pick(class), nil
}

// Ping pings every store concurrently.
func (r *Registry) Ping(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range r.GroupNames() {
		for _, s := range r.groups[name].Stores() {
			g.Go(func() error {
				if err := s.Executor.Ping(ctx); err != nil {
					return fmt.Errorf("ping %s/%s: %w", name, s.Name, err)
				}
				return nil
			})
		}
	}
	return g.Wait()
}

// Close closes every store and joins the errors.
func (r *Registry) Close() error {
	var g errgroup.Group
	errs := make(chan error, r.storeCount())
	for _, group := range r.groups {
		for _, s := range group.Stores() {
			g.Go(func() error {
				if err := s.Executor.Close(); err != nil {
					errs <- fmt.Errorf("close %s/%s: %w", group.Name, s.Name, err)
				}
				return nil
			})
		}
	}
	_ = g.Wait()
	close(errs)

	var all []error
	for err := range errs {
		all = append(all, err)
	}
	return errors.Join(all...)
}

func (r *Registry) storeCount() int {
	n := 0
	for _, g := range r.groups {
		n += 1 + len(g.Replicas)
	}
	return n
}
