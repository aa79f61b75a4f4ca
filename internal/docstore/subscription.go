package docstore

import "sync"

// Subscription is a live snapshot stream for one document. The channel has
// capacity one and publishing coalesces: when the consumer lags, older
// undelivered states are replaced by the latest.
type Subscription struct {
	mu     sync.Mutex
	ch     chan Snapshot
	stop   func()
	closed bool
}

// NewSubscription builds a subscription whose Close runs stop exactly once
// before the channel is closed. Adapters deliver states via Publish.
func NewSubscription(stop func()) *Subscription {
	return &Subscription{ch: make(chan Snapshot, 1), stop: stop}
}

// Snapshots returns the stream. The channel is closed by Close.
func (s *Subscription) Snapshots() <-chan Snapshot {
	return s.ch
}

// Publish delivers a snapshot, dropping any undelivered older state.
// Publishing after Close is a no-op, so adapters may pump from their own
// goroutines without racing teardown.
func (s *Subscription) Publish(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- snap:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

// Close tears down the subscription. No snapshot is delivered after Close
// returns; closing twice is safe.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.stop != nil {
		s.stop()
	}

	s.mu.Lock()
	close(s.ch)
	s.mu.Unlock()
}

// ListSubscription is the collection-level analog of Subscription: it
// delivers the full entry list on every change, coalescing to the latest.
type ListSubscription struct {
	mu     sync.Mutex
	ch     chan []Entry
	stop   func()
	closed bool
}

func NewListSubscription(stop func()) *ListSubscription {
	return &ListSubscription{ch: make(chan []Entry, 1), stop: stop}
}

// Entries returns the stream of full listings.
func (s *ListSubscription) Entries() <-chan []Entry {
	return s.ch
}

func (s *ListSubscription) Publish(entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- entries:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

func (s *ListSubscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.stop != nil {
		s.stop()
	}

	s.mu.Lock()
	close(s.ch)
	s.mu.Unlock()
}
