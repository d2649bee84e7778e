// Package sharding holds the pluggable strategies that map a shard key to a
// physical table name or to a store group name.
package sharding

import (
	"fmt"
	"sort"
	"sync"
)

// TableStrategy derives the physical table for a logical table and key.
type TableStrategy interface {
	Table(table string, key any) (string, error)
}

// StoreStrategy derives the name of the store group that holds key.
type StoreStrategy interface {
	Store(key any) (string, error)
}

// TableFunc adapts a function to TableStrategy.
type TableFunc func(table string, key any) (string, error)

func (f TableFunc) Table(table string, key any) (string, error) { return f(table, key) }

// StoreFunc adapts a function to StoreStrategy.
type StoreFunc func(key any) (string, error)

func (f StoreFunc) Store(key any) (string, error) { return f(key) }

var (
	registryMu    sync.RWMutex
	tableRegistry = map[string]func(map[string]any) (TableStrategy, error){}
	storeRegistry = map[string]func(map[string]any) (StoreStrategy, error){}
)

// RegisterTable makes a table strategy constructor available by name.
func RegisterTable(name string, ctor func(params map[string]any) (TableStrategy, error)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	tableRegistry[name] = ctor
}

// RegisterStore makes a store strategy constructor available by name.
func RegisterStore(name string, ctor func(params map[string]any) (StoreStrategy, error)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	storeRegistry[name] = ctor
}

// NewTable builds the table strategy registered under name.
func NewTable(name string, params map[string]any) (TableStrategy, error) {
	registryMu.RLock()
	ctor, ok := tableRegistry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownStrategyError{Name: name, Available: names(tableRegistry)}
	}
	return ctor(params)
}

// NewStore builds the store strategy registered under name.
func NewStore(name string, params map[string]any) (StoreStrategy, error) {
	registryMu.RLock()
	ctor, ok := storeRegistry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownStrategyError{Name: name, Available: names(storeRegistry)}
	}
	return ctor(params)
}

func names[T any](m map[string]T) []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// UnknownStrategyError is returned when a strategy name has no constructor.
type UnknownStrategyError struct {
	Name      string
	Available []string
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown sharding strategy %q (available: %v)", e.Name, e.Available)
}
