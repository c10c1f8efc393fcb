package queue

import (
	"container/heap"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"grabby-orchestrator/internal/bandwidth"
	"grabby-orchestrator/internal/dedup"
	"grabby-orchestrator/internal/errkind"
	"grabby-orchestrator/internal/eventbus"
	"grabby-orchestrator/internal/playlist"
	"grabby-orchestrator/internal/retrypolicy"
)

type playlistState struct {
	total     int
	completed int
	failed    int
}

// Scheduler is the prioritized work queue. It owns admission (duplicate
// suppression, playlist tagging), dispatch (bandwidth-gated priority
// scanning), and completion bookkeeping (retry scheduling, playlist
// progress, bandwidth release).
//
// Dispatch deliberately mirrors the reference behavior: a candidate
// blocked only by an unelapsed retry clock is skipped and scanning
// continues, but a candidate blocked by the bandwidth gate stops the scan
// immediately and Next returns (nil, nil) rather than searching further
// down the heap for a cheaper candidate.
type Scheduler struct {
	mu   sync.Mutex
	heap itemHeap

	items  map[string]*Item
	active map[string]*Item
	cancelFuncs map[string]context.CancelFunc

	dedup         *dedup.Detector
	ledger        *bandwidth.Ledger
	retry         retrypolicy.Policy
	bus           *eventbus.Bus
	playlists     map[string]*playlistState
	maxConcurrent int

	now func() time.Time
}

// New constructs a Scheduler. bus may be nil, in which case lifecycle
// events are not published (used by tests that don't care about them).
// maxConcurrent caps how many items Next will admit to StatusActive at
// once; maxConcurrent<=0 means unlimited, mirroring an unset
// max_concurrent_downloads.
func New(bus *eventbus.Bus, detector *dedup.Detector, ledger *bandwidth.Ledger, retry retrypolicy.Policy, maxConcurrent int) *Scheduler {
	return &Scheduler{
		items:         make(map[string]*Item),
		active:        make(map[string]*Item),
		cancelFuncs:   make(map[string]context.CancelFunc),
		dedup:         detector,
		ledger:        ledger,
		retry:         retry,
		bus:           bus,
		playlists:     make(map[string]*playlistState),
		maxConcurrent: maxConcurrent,
		now:           time.Now,
	}
}

// RegisterCancelFunc associates a cancel func with an active item so a
// later Cancel call can interrupt its in-flight fetch. The worker
// dispatching the item owns the context this cancels.
func (s *Scheduler) RegisterCancelFunc(id string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancelFuncs[id] = cancel
	s.mu.Unlock()
}

// UnregisterCancelFunc removes a previously registered cancel func once
// the fetch it belongs to has finished, successfully or not.
func (s *Scheduler) UnregisterCancelFunc(id string) {
	s.mu.Lock()
	delete(s.cancelFuncs, id)
	s.mu.Unlock()
}

func (s *Scheduler) publish(t eventbus.EventType, data map[string]any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(t, "queue", data)
}

func generateID(url string, now time.Time) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s%d", url, now.UnixNano())))
	return hex.EncodeToString(sum[:])[:12]
}

// AddItem admits a single URL at the given priority. It returns
// errkind.DuplicateRejected if the URL was already admitted.
func (s *Scheduler) AddItem(url string, priority Priority, metadata map[string]any) (*Item, error) {
	return s.addItemWithPlaylist(url, priority, metadata, "")
}

func (s *Scheduler) addItemWithPlaylist(url string, priority Priority, metadata map[string]any, playlistID string) (*Item, error) {
	if s.dedup != nil && s.dedup.IsDuplicateURL(url) {
		return nil, errkind.New(errkind.DuplicateRejected, "url already queued or completed")
	}

	now := s.now()
	it := &Item{
		ID:        generateID(url, now),
		URL:       url,
		Priority:  priority,
		Status:    StatusQueued,
		CreatedAt: now,
		Metadata:  metadata,
	}

	if playlistID != "" {
		it.PlaylistID = playlistID
	} else if d, ok := playlist.Detect(url); ok {
		it.PlaylistID = d.PlaylistID
	}

	if s.dedup != nil {
		s.dedup.AddURL(url)
	}

	s.mu.Lock()
	s.items[it.ID] = it
	heap.Push(&s.heap, it)
	s.mu.Unlock()

	s.publish(eventbus.QueueItemAdded, map[string]any{"id": it.ID, "url": it.URL, "priority": int(it.Priority)})
	return it.Clone(), nil
}

// AddPlaylist expands a detected playlist into one item per childURL, all
// tagged with the same playlist identifier, and emits PlaylistStarted.
// Items whose URL duplicates an already-admitted one are skipped rather
// than failing the whole expansion.
func (s *Scheduler) AddPlaylist(sourceURL string, childURLs []string, priority Priority) ([]*Item, error) {
	d, ok := playlist.Detect(sourceURL)
	playlistID := sourceURL
	if ok {
		playlistID = d.PlaylistID
	}

	added := make([]*Item, 0, len(childURLs))
	for _, child := range childURLs {
		it, err := s.addItemWithPlaylist(child, priority, nil, playlistID)
		if err != nil {
			continue
		}
		added = append(added, it)
	}

	s.mu.Lock()
	s.playlists[playlistID] = &playlistState{total: len(added)}
	s.mu.Unlock()

	s.publish(eventbus.PlaylistStarted, map[string]any{"playlist_id": playlistID, "item_count": len(added)})
	return added, nil
}

// Next pops the highest-priority schedulable item. It returns (nil, nil)
// when nothing is currently schedulable: the concurrency limit is reached,
// the queue holds only retrying items whose retry clock has not elapsed,
// the queue is empty, or the next-highest candidate is blocked by the
// bandwidth gate.
func (s *Scheduler) Next(bandwidthEstimate int64) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxConcurrent > 0 && len(s.active) >= s.maxConcurrent {
		return nil, nil
	}

	var deferred []*Item
	defer func() {
		for _, it := range deferred {
			heap.Push(&s.heap, it)
		}
	}()

	for s.heap.Len() > 0 {
		it := heap.Pop(&s.heap).(*Item)

		if it.Status == StatusRetrying {
			if s.now().Before(it.NextRetryAt) {
				deferred = append(deferred, it)
				continue
			}
		}

		if s.ledger != nil && !s.ledger.CanAllocate(bandwidthEstimate) {
			deferred = append(deferred, it)
			return nil, nil
		}

		if s.ledger != nil {
			s.ledger.Allocate(bandwidthEstimate)
			it.BandwidthAllocated = bandwidthEstimate
		}
		it.Status = StatusActive
		s.active[it.ID] = it
		s.publish(eventbus.DownloadStarted, map[string]any{"id": it.ID, "url": it.URL})
		return it.Clone(), nil
	}
	return nil, nil
}

// Complete records the outcome of a dispatched item. On success it marks
// the item completed and records its title in the duplicate detector. On
// failure it either schedules a retry (re-enqueueing the item) or marks it
// permanently failed, depending on the retry policy.
func (s *Scheduler) Complete(id string, success bool, resultMetadata map[string]any) error {
	s.mu.Lock()
	it, ok := s.active[id]
	if !ok {
		s.mu.Unlock()
		return errkind.New(errkind.InternalInvariantViolation, "complete called on unknown or inactive item: "+id)
	}
	delete(s.active, id)
	if s.ledger != nil {
		s.ledger.Release(it.BandwidthAllocated)
	}
	it.BandwidthAllocated = 0

	if success {
		it.Status = StatusCompleted
		for k, v := range resultMetadata {
			if it.Metadata == nil {
				it.Metadata = make(map[string]any)
			}
			it.Metadata[k] = v
		}
		s.mu.Unlock()

		if title, ok := resultMetadata["title"].(string); ok && s.dedup != nil {
			s.dedup.AddTitle(title)
		}
		s.publish(eventbus.DownloadCompleted, map[string]any{"id": it.ID, "url": it.URL})
		s.notePlaylistProgress(it.PlaylistID, true)
		return nil
	}

	if s.retry.ShouldRetry(it.RetryCount) {
		it.RetryCount++
		it.NextRetryAt = s.retry.NextAttemptAt(s.now(), it.RetryCount-1)
		it.Status = StatusRetrying
		heap.Push(&s.heap, it)
		s.mu.Unlock()
		s.publish(eventbus.DownloadFailed, map[string]any{"id": it.ID, "url": it.URL, "retrying": true, "retry_count": it.RetryCount})
		return nil
	}

	it.Status = StatusFailed
	s.mu.Unlock()
	s.publish(eventbus.DownloadFailed, map[string]any{"id": it.ID, "url": it.URL, "retrying": false})
	s.notePlaylistProgress(it.PlaylistID, false)
	return nil
}

func (s *Scheduler) notePlaylistProgress(playlistID string, success bool) {
	if playlistID == "" {
		return
	}
	s.mu.Lock()
	ps, ok := s.playlists[playlistID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if success {
		ps.completed++
	} else {
		ps.failed++
	}
	done := ps.completed + ps.failed
	total := ps.total
	failed := ps.failed
	var finished bool
	if done >= total {
		finished = true
		delete(s.playlists, playlistID)
	}
	s.mu.Unlock()

	if success {
		s.publish(eventbus.PlaylistItemCompleted, map[string]any{"playlist_id": playlistID})
	}
	if finished {
		if failed == total && total > 0 {
			s.publish(eventbus.PlaylistFailed, map[string]any{"playlist_id": playlistID})
		} else {
			s.publish(eventbus.PlaylistCompleted, map[string]any{"playlist_id": playlistID})
		}
	}
}

// Cancel marks a queued, retrying, paused, or active item cancelled,
// releasing any bandwidth it held.
func (s *Scheduler) Cancel(id string) error {
	s.mu.Lock()

	if it, ok := s.active[id]; ok {
		delete(s.active, id)
		if s.ledger != nil {
			s.ledger.Release(it.BandwidthAllocated)
		}
		it.BandwidthAllocated = 0
		it.Status = StatusCancelled
		cancel := s.cancelFuncs[id]
		delete(s.cancelFuncs, id)
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		s.publish(eventbus.DownloadCancelled, map[string]any{"id": id})
		return nil
	}

	it, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return errkind.New(errkind.InternalInvariantViolation, "cancel called on unknown item: "+id)
	}
	if it.Status == StatusCompleted || it.Status == StatusFailed || it.Status == StatusCancelled {
		s.mu.Unlock()
		return nil
	}
	s.removeFromHeap(it)
	it.Status = StatusCancelled
	s.mu.Unlock()
	s.publish(eventbus.DownloadCancelled, map[string]any{"id": id})
	return nil
}

// Pause removes a queued or retrying item from scheduling consideration
// without cancelling it.
func (s *Scheduler) Pause(id string) error {
	s.mu.Lock()

	it, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return errkind.New(errkind.InternalInvariantViolation, "pause called on unknown item: "+id)
	}
	if it.Status != StatusQueued && it.Status != StatusRetrying {
		s.mu.Unlock()
		return errkind.New(errkind.ConfigurationInvalid, "item is not pausable in its current status")
	}
	s.removeFromHeap(it)
	it.Status = StatusPaused
	s.mu.Unlock()
	s.publish(eventbus.DownloadPaused, map[string]any{"id": id})
	return nil
}

// Resume returns a paused item to the schedulable queue.
func (s *Scheduler) Resume(id string) error {
	s.mu.Lock()
	it, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return errkind.New(errkind.InternalInvariantViolation, "resume called on unknown item: "+id)
	}
	if it.Status != StatusPaused {
		s.mu.Unlock()
		return errkind.New(errkind.ConfigurationInvalid, "item is not paused")
	}
	it.Status = StatusQueued
	heap.Push(&s.heap, it)
	s.mu.Unlock()
	s.publish(eventbus.DownloadResumed, map[string]any{"id": id})
	return nil
}

// removeFromHeap deletes it from the heap if present. Callers must hold s.mu.
func (s *Scheduler) removeFromHeap(it *Item) {
	if it.heapIndex < 0 || it.heapIndex >= s.heap.Len() || s.heap[it.heapIndex] != it {
		return
	}
	heap.Remove(&s.heap, it.heapIndex)
}

// Get returns a copy of the item with the given id, if tracked.
func (s *Scheduler) Get(id string) (*Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, false
	}
	return it.Clone(), true
}

// Items returns a copy of every tracked item, for persistence snapshots.
func (s *Scheduler) Items() []*Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it.Clone())
	}
	return out
}

// Snapshot summarizes queue composition for the status surface.
type Snapshot struct {
	Total             int
	QueueLength       int
	ActiveCount       int
	StatusBreakdown   map[Status]int
	BandwidthUsed     int64
	BandwidthTotal    int64
}

// Status returns a point-in-time snapshot of the queue.
func (s *Scheduler) Status() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	breakdown := make(map[Status]int)
	for _, it := range s.items {
		breakdown[it.Status]++
	}
	var used, total int64
	if s.ledger != nil {
		used, total = s.ledger.Usage()
	}
	return Snapshot{
		Total:           len(s.items),
		QueueLength:     s.heap.Len(),
		ActiveCount:     len(s.active),
		StatusBreakdown: breakdown,
		BandwidthUsed:   used,
		BandwidthTotal:  total,
	}
}

// PurgeCompleted discards tracked items in a terminal state (completed,
// failed, cancelled) and returns how many were removed.
func (s *Scheduler) PurgeCompleted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, it := range s.items {
		switch it.Status {
		case StatusCompleted, StatusFailed, StatusCancelled:
			delete(s.items, id)
			n++
		}
	}
	return n
}
