package microservice

import (
	"container/heap"
	"time"
)

// Action is a deferred callback run once its deadline has passed.
type Action func()

type scheduledItem struct {
	deadline time.Time
	action   Action
	index    int
}

type itemHeap []*scheduledItem

func (h itemHeap) Len() int            { return len(h) }
func (h itemHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h itemHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index, h[j].index = i, j }
func (h *itemHeap) Push(x interface{}) {
	item := x.(*scheduledItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Scheduler is a monotonic-clock min-heap of pending actions (spec.md
// §4.7 "Scheduler"). It is strictly single-threaded: schedule and
// RunScheduled must be called from the component's own loop thread.
type Scheduler struct {
	items itemHeap
	now   func() time.Time
}

// NewScheduler constructs an empty scheduler. now defaults to
// time.Now if nil, overridable for tests.
func NewScheduler(now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{now: now}
}

// Schedule pushes action to run after afterMs milliseconds.
func (s *Scheduler) Schedule(action Action, afterMs int) {
	heap.Push(&s.items, &scheduledItem{deadline: s.now().Add(time.Duration(afterMs) * time.Millisecond), action: action})
}

// RunScheduled pops and runs every action whose deadline has passed.
func (s *Scheduler) RunScheduled() {
	now := s.now()
	for s.items.Len() > 0 && !s.items[0].deadline.After(now) {
		item := heap.Pop(&s.items).(*scheduledItem)
		item.action()
	}
}

// GetTimeout returns the milliseconds until the next scheduled action
// and true, or (0, false) if nothing is scheduled - the caller then
// substitutes its own default, 1s per spec.md §4.7. The returned
// duration is never negative.
func (s *Scheduler) GetTimeout() (int, bool) {
	if s.items.Len() == 0 {
		return 0, false
	}
	remaining := s.items[0].deadline.Sub(s.now())
	if remaining < 0 {
		return 0, true
	}
	return int(remaining / time.Millisecond), true
}

// Len reports the number of pending actions.
func (s *Scheduler) Len() int { return s.items.Len() }
