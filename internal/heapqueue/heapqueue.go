// Package heapqueue implements the binary min-heap scratch structure used
// by rtree.Neighbors for best-first search. It is deliberately not
// generic over coordinate type: every key is a squared distance, always
// float64, regardless of the index's stored coordinate width.
package heapqueue

import "container/heap"

// Entry is one pending node or leaf item in a best-first search, keyed by
// squared distance to the query point.
type Entry struct {
	Key    float64
	Pos    int
	IsLeaf bool
}

// Queue is a min-heap of Entry ordered by ascending Key.
type Queue struct {
	items []Entry
}

// NewQueue returns an empty queue with room for capacity entries.
func NewQueue(capacity int) *Queue {
	return &Queue{items: make([]Entry, 0, capacity)}
}

// Len reports the number of pending entries.
func (q *Queue) Len() int { return len(q.items) }

// Push adds an entry to the queue.
func (q *Queue) Push(e Entry) { heap.Push((*innerHeap)(q), e) }

// Pop removes and returns the entry with the smallest Key.
// It panics if the queue is empty; callers must check Len first.
func (q *Queue) Pop() Entry { return heap.Pop((*innerHeap)(q)).(Entry) }

// Peek returns the entry with the smallest Key without removing it.
func (q *Queue) Peek() Entry { return q.items[0] }

// innerHeap adapts Queue to container/heap.Interface without exposing the
// heap methods on Queue's own public API.
type innerHeap Queue

func (h *innerHeap) Len() int            { return len(h.items) }
func (h *innerHeap) Less(i, j int) bool  { return h.items[i].Key < h.items[j].Key }
func (h *innerHeap) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *innerHeap) Push(x any)          { h.items = append(h.items, x.(Entry)) }
func (h *innerHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
