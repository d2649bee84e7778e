package datasource

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"
)

// Balancer picks one of n replicas. A negative index sends the read to the
// primary instead.
type Balancer interface {
	Pick(n int) int
}

// NewBalancer returns the balancer for a read strategy name. An empty name
// means round_robin.
func NewBalancer(strategy string) (Balancer, error) {
	switch strategy {
	case "", "round_robin":
		return &RoundRobin{}, nil
	case "random":
		return Random{}, nil
	case "primary":
		return PrimaryOnly{}, nil
	default:
		return nil, fmt.Errorf("invalid read strategy: %s", strategy)
	}
}

// RoundRobin cycles through the replicas.
type RoundRobin struct {
	next atomic.Uint64
}

func (r *RoundRobin) Pick(n int) int {
	return int((r.next.Add(1) - 1) % uint64(n))
}

// Random picks a replica uniformly.
type Random struct{}

func (Random) Pick(n int) int { return rand.IntN(n) }

// PrimaryOnly keeps reads on the primary.
type PrimaryOnly struct{}

func (PrimaryOnly) Pick(int) int { return -1 }
