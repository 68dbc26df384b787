package simplify

import "github.com/Faultbox/meshlod/pkg/math"

// candidate is a directed edge collapse: v1 merges into v0 at pos.
type candidate struct {
	v0, v1 uint32
	cost   float64
	pos    math.Vec3

	// Vertex stamps at the time the cost was computed. A mismatch means one
	// endpoint moved or absorbed another vertex since, so the entry is stale.
	stamp0, stamp1 uint32

	// seq orders equal-cost candidates by insertion.
	seq uint64
}

// edgeHeap is a min-heap of candidates for container/heap.
type edgeHeap []candidate

func (h edgeHeap) Len() int { return len(h) }

func (h edgeHeap) Less(i, j int) bool {
	if h[i].cost != h[j].cost {
		return h[i].cost < h[j].cost
	}
	return h[i].seq < h[j].seq
}

func (h edgeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *edgeHeap) Push(x any) {
	*h = append(*h, x.(candidate))
}

func (h *edgeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
