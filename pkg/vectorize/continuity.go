package vectorize

import (
	"container/heap"
	"math"
)

// Cell states of a swath window.
const (
	// StateOuter marks swath cells not connected to the talweg.
	StateOuter uint8 = 0
	// StateTalweg marks swath cells on the talweg.
	StateTalweg uint8 = 1
	// StateInner marks swath cells connected to the talweg.
	StateInner uint8 = 2
	// StateOutside marks cells of other swaths or axes.
	StateOutside uint8 = 255
)

// jitterAt returns a deterministic pseudo random value in [-0.5, 0.5) for
// cell (col, row).
func jitterAt(col, row int) float64 {
	h := uint64(uint32(col))<<32 | uint64(uint32(row))
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return float64(h>>11)/float64(1<<53) - 0.5
}

type queued struct {
	index int
	dist  float64
}

type queue []queued

func (q queue) Len() int            { return len(q) }
func (q queue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q queue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x interface{}) { *q = append(*q, x.(queued)) }
func (q *queue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

var neighbours = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// Continuity propagates outward from the talweg cells of state through the
// outer cells with 8-neighbour steps. Each step costs its length plus
// jitter times a per cell perturbation, so that the propagation front does
// not follow the raster axes. Reached outer cells become StateInner.
//
// It returns the propagation distance of every reached cell and -1
// elsewhere. Outer cells not reached from any talweg cell, including every
// cell of a window without talweg, stay StateOuter.
func Continuity(state []uint8, width, height int, jitter float64) []float64 {
	dist := make([]float64, len(state))
	for i := range dist {
		dist[i] = -1
	}

	q := &queue{}
	for i, s := range state {
		if s == StateTalweg {
			dist[i] = 0
			heap.Push(q, queued{index: i})
		}
	}
	for q.Len() > 0 {
		cur := heap.Pop(q).(queued)
		if cur.dist > dist[cur.index] {
			continue
		}
		col, row := cur.index%width, cur.index/width
		for _, n := range neighbours {
			c, r := col+n[0], row+n[1]
			if c < 0 || r < 0 || c >= width || r >= height {
				continue
			}
			i := c + r*width
			if state[i] != StateOuter && state[i] != StateInner {
				continue
			}
			step := 1.0
			if n[0] != 0 && n[1] != 0 {
				step = math.Sqrt2
			}
			step = math.Max(step+jitter*jitterAt(c, r), 0.01)
			d := cur.dist + step
			if dist[i] >= 0 && dist[i] <= d {
				continue
			}
			dist[i] = d
			state[i] = StateInner
			heap.Push(q, queued{index: i, dist: d})
		}
	}
	return dist
}
