package queue

import "container/heap"

// Restore repopulates the scheduler from previously persisted items,
// typically invoked once at startup before scheduling begins. Items in a
// terminal state are tracked but not re-queued; items that were active
// when the process last stopped are re-queued rather than resumed, since
// their underlying engine process no longer exists.
func (s *Scheduler) Restore(items []*Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, src := range items {
		it := src.Clone()
		it.heapIndex = -1

		switch it.Status {
		case StatusActive:
			it.Status = StatusQueued
			it.BandwidthAllocated = 0
			heap.Push(&s.heap, it)
		case StatusQueued, StatusRetrying:
			heap.Push(&s.heap, it)
		}

		s.items[it.ID] = it
		if s.dedup != nil {
			s.dedup.AddURL(it.URL)
		}
	}
}
