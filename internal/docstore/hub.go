package docstore

import "sync"

// Hub fans document changes out to in-process subscribers. The memory and
// sqlite stores share it; network-backed stores have their own push channel.
//
// Broadcast and subscriber removal run under one lock, so a closed
// subscription never receives another snapshot.
type Hub struct {
	mu       sync.Mutex
	subs     map[string]map[*Subscription]struct{}
	listSubs map[string]map[*ListSubscription]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subs:     make(map[string]map[*Subscription]struct{}),
		listSubs: make(map[string]map[*ListSubscription]struct{}),
	}
}

// Subscribe registers a document subscriber and delivers current as its
// first snapshot.
func (h *Hub) Subscribe(path string, current Snapshot) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	var sub *Subscription
	sub = NewSubscription(func() { h.remove(path, sub) })
	if h.subs[path] == nil {
		h.subs[path] = make(map[*Subscription]struct{})
	}
	h.subs[path][sub] = struct{}{}
	sub.Publish(current)
	return sub
}

// Watch registers a collection subscriber and delivers current as its first
// listing.
func (h *Hub) Watch(prefix string, current []Entry) *ListSubscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	var sub *ListSubscription
	sub = NewListSubscription(func() { h.removeList(prefix, sub) })
	if h.listSubs[prefix] == nil {
		h.listSubs[prefix] = make(map[*ListSubscription]struct{})
	}
	h.listSubs[prefix][sub] = struct{}{}
	sub.Publish(current)
	return sub
}

// Broadcast delivers a document snapshot to that path's subscribers and the
// surrounding collection listing to prefix watchers.
func (h *Hub) Broadcast(snap Snapshot, listing []Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[snap.Path] {
		sub.Publish(snap)
	}
	for sub := range h.listSubs[ParentPrefix(snap.Path)] {
		sub.Publish(listing)
	}
}

func (h *Hub) remove(path string, sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[path], sub)
	if len(h.subs[path]) == 0 {
		delete(h.subs, path)
	}
}

func (h *Hub) removeList(prefix string, sub *ListSubscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.listSubs[prefix], sub)
	if len(h.listSubs[prefix]) == 0 {
		delete(h.listSubs, prefix)
	}
}
