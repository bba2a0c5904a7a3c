// Package walk implements the pedestrian A* of spec §4.2 (C2): shortest
// path between two street nodes on the graph built by internal/street.
// Grounded in the teacher's internal/routing/astar.go container/heap
// search, but scoring state (gScore/parent/closed) lives in per-query
// maps keyed by node id instead of being copied into each expanded
// path or stored on the node itself, so the shared Graph never needs
// resetting between concurrent calls (spec §4.2, §9).
package walk

import (
	"container/heap"
	"context"
	"errors"
	"math"

	"github.com/hanroute/transit-engine/internal/geo"
	"github.com/hanroute/transit-engine/internal/street"
)

const (
	// DefaultMaxIterations bounds the number of nodes popped off the
	// open set before the search gives up (spec §4.2).
	DefaultMaxIterations = 15000
	// DefaultMaxSearchDistanceMeters bounds how far from the origin the
	// search is allowed to explore (spec §4.2).
	DefaultMaxSearchDistanceMeters = 500.0
	// walkSpeedMPS is the average pedestrian speed used to turn meters
	// into seconds for the returned path.
	walkSpeedMPS = 1.2
)

var ErrNoPath = errors.New("walk: no path found")
var ErrAbandoned = errors.New("walk: search abandoned (iteration or distance cap reached)")

// Options bounds a single search.
type Options struct {
	MaxIterations           int
	MaxSearchDistanceMeters float64
}

func DefaultOptions() Options {
	return Options{
		MaxIterations:           DefaultMaxIterations,
		MaxSearchDistanceMeters: DefaultMaxSearchDistanceMeters,
	}
}

// Result is a found path between two street nodes.
type Result struct {
	DistanceMeters float64
	DurationSec    int
	Nodes          []street.NodeID
}

// openItem is one entry in the A* priority queue.
type openItem struct {
	node   street.NodeID
	gScore float64
	fScore float64
	index  int
}

type openQueue []*openItem

func (q openQueue) Len() int            { return len(q) }
func (q openQueue) Less(i, j int) bool  { return q[i].fScore < q[j].fScore }
func (q openQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i]; q[i].index = i; q[j].index = j }
func (q *openQueue) Push(x interface{}) {
	item := x.(*openItem)
	item.index = len(*q)
	*q = append(*q, item)
}
func (q *openQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}

// Search runs A* from `from` to `to` on g. gScore/parent/closed are
// held in local maps (fScore on the open-set entries) for the
// duration of this call only; g itself is
// never mutated, so concurrent searches on the same graph are safe.
// The deadline on ctx is checked on every popped node.
func Search(ctx context.Context, g *street.Graph, from, to street.NodeID, opts Options) (*Result, error) {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.MaxSearchDistanceMeters <= 0 {
		opts.MaxSearchDistanceMeters = DefaultMaxSearchDistanceMeters
	}

	goalLat, goalLon := g.NodeLat(to), g.NodeLon(to)

	gScore := map[street.NodeID]float64{from: 0}
	parent := map[street.NodeID]street.NodeID{}
	closed := map[street.NodeID]bool{}

	open := &openQueue{}
	heap.Init(open)
	heap.Push(open, &openItem{
		node:   from,
		gScore: 0,
		fScore: geo.HaversineMeters(g.NodeLat(from), g.NodeLon(from), goalLat, goalLon),
	})

	iterations := 0
	distanceCapped := false
	for open.Len() > 0 {
		if iterations >= opts.MaxIterations {
			return nil, ErrAbandoned
		}
		if ctx.Err() != nil {
			return nil, ErrAbandoned
		}
		iterations++

		current := heap.Pop(open).(*openItem)
		if closed[current.node] {
			continue
		}
		if current.gScore > gScore[current.node] {
			continue
		}
		closed[current.node] = true

		if current.node == to {
			return reconstruct(g, parent, from, to, gScore[to]), nil
		}

		if current.gScore > opts.MaxSearchDistanceMeters {
			continue
		}

		for _, edge := range g.NeighborsOf(current.node) {
			if closed[edge.To] {
				continue
			}
			tentativeG := current.gScore + edge.LengthMeter
			if tentativeG > opts.MaxSearchDistanceMeters {
				distanceCapped = true
				continue
			}
			if existing, ok := gScore[edge.To]; ok && tentativeG >= existing {
				continue
			}
			gScore[edge.To] = tentativeG
			parent[edge.To] = current.node
			h := geo.HaversineMeters(g.NodeLat(edge.To), g.NodeLon(edge.To), goalLat, goalLon)
			heap.Push(open, &openItem{node: edge.To, gScore: tentativeG, fScore: tentativeG + h})
		}
	}

	if distanceCapped {
		return nil, ErrAbandoned
	}
	return nil, ErrNoPath
}

// FallbackDistance estimates a walk distance when a search is
// abandoned or no street graph is attached, per spec §4.6: straight
// line inflated by a detour factor.
func FallbackDistance(fromLat, fromLon, toLat, toLon float64) float64 {
	return geo.HaversineMeters(fromLat, fromLon, toLat, toLon) * 1.3
}

func reconstruct(g *street.Graph, parent map[street.NodeID]street.NodeID, from, to street.NodeID, distance float64) *Result {
	nodes := []street.NodeID{to}
	cur := to
	for cur != from {
		p, ok := parent[cur]
		if !ok {
			break
		}
		nodes = append(nodes, p)
		cur = p
	}
	// reverse into from->to order
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	return &Result{
		DistanceMeters: distance,
		DurationSec:    int(math.Ceil(distance / walkSpeedMPS)),
		Nodes:          nodes,
	}
}
