// Package socket implements the realtime collaboration hub: a process-wide
// registry of live subscriber connections per document and the
// join/broadcast/leave protocol that fans content changes out to them.
package socket

import (
	"encoding/json"
	"sync"
	"time"

	"kolabdok/pkg/logger"
	"kolabdok/pkg/metrics"
)

// DocumentStore persists content mutations. Implemented by the document
// repository.
type DocumentStore interface {
	ReplaceContent(docID, content string) (time.Time, error)
}

// Hub owns the registry of active documents. Room entries are created on
// first join and retired when their subscriber set empties, so the registry
// never grows for inactive documents.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*room
	store DocumentStore
}

// room holds the live subscriber set for one document. Its mutex serializes
// every join, leave and content-change for that document: a content change
// persists and fans out under the lock, so two concurrent writes can never
// interleave their persist+broadcast sequences. Rooms for different
// documents share nothing and never block each other.
type room struct {
	id string

	mu          sync.Mutex
	subscribers map[*Client]bool
	retired     bool

	// revision counts accepted content changes; with last-writer-wins it
	// only detects overwrites, it does not resolve them.
	revision   uint64
	lastWriter string
}

func NewHub(store DocumentStore) *Hub {
	return &Hub{
		rooms: make(map[string]*room),
		store: store,
	}
}

// join adds c to the document's room, creating the room if this is the first
// subscriber, and broadcasts the new presence count to everyone including c.
// No authorization check happens here: any authenticated connection may join
// any document id. That matches the source system; hardening would mean an
// Authorize(Read) call before admission.
func (h *Hub) join(c *Client, docID string) *room {
	for {
		h.mu.Lock()
		r, ok := h.rooms[docID]
		if !ok {
			r = &room{id: docID, subscribers: make(map[*Client]bool)}
			h.rooms[docID] = r
			metrics.ActiveDocuments.Inc()
		}
		h.mu.Unlock()

		r.mu.Lock()
		if r.retired {
			// Lost a race with the last leave; the registry entry is
			// gone, so look it up again.
			r.mu.Unlock()
			continue
		}
		r.subscribers[c] = true
		count := len(r.subscribers)
		h.broadcastLocked(r, mustMarshal(CollaboratorsUpdate{Type: MessageCollaboratorsUpdate, Count: count}), nil)
		r.mu.Unlock()

		logger.Sugar.Infof("User %s joined document %s (%d live)", c.UserID, docID, count)
		return r
	}
}

// leave removes c from its room and notifies the remaining subscribers. The
// last leave retires the room from the registry.
func (h *Hub) leave(c *Client, r *room) {
	r.mu.Lock()
	if !r.subscribers[c] {
		r.mu.Unlock()
		return
	}
	delete(r.subscribers, c)
	count := len(r.subscribers)
	if count > 0 {
		h.broadcastLocked(r, mustMarshal(CollaboratorsUpdate{Type: MessageCollaboratorsUpdate, Count: count}), nil)
	}
	r.mu.Unlock()

	logger.Sugar.Infof("User %s left document %s (%d live)", c.UserID, r.id, count)
	if count == 0 {
		h.retire(r)
	}
}

// contentChange persists the new content and, only on success, fans it out
// to every subscriber except the sender. A persistence failure is logged and
// ends processing of this one message; nothing is broadcast and the
// connection stays up.
func (h *Hub) contentChange(r *room, sender *Client, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.subscribers[sender] {
		return
	}

	if _, err := h.store.ReplaceContent(r.id, content); err != nil {
		metrics.PersistFailures.Inc()
		logger.Sugar.Errorf("Failed to persist content for doc %s: %v", r.id, err)
		return
	}

	r.revision++
	if r.lastWriter != "" && r.lastWriter != sender.UserID && len(r.subscribers) > 1 {
		metrics.ConcurrentOverwrites.Inc()
	}
	r.lastWriter = sender.UserID
	metrics.ContentChanges.Inc()

	h.broadcastLocked(r, mustMarshal(ContentUpdate{Type: MessageContentUpdate, Content: content}), sender)
}

// BroadcastContentUpdate fans out content saved through the HTTP API to any
// live subscribers, skipping the connections of the user who saved it.
func (h *Hub) BroadcastContentUpdate(docID, exceptUserID, content string) {
	h.mu.RLock()
	r := h.rooms[docID]
	h.mu.RUnlock()
	if r == nil {
		return
	}

	payload := mustMarshal(ContentUpdate{Type: MessageContentUpdate, Content: content})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.revision++
	r.lastWriter = exceptUserID
	for c := range r.subscribers {
		if c.UserID == exceptUserID {
			continue
		}
		h.sendLocked(r, c, payload)
	}
}

// RemoveDocument evicts a live room and disconnects its subscribers. Called
// when a document is deleted through the API.
func (h *Hub) RemoveDocument(docID string) {
	h.mu.Lock()
	r := h.rooms[docID]
	if r == nil {
		h.mu.Unlock()
		return
	}

	r.mu.Lock()
	for c := range r.subscribers {
		c.Conn.Close()
	}
	r.subscribers = make(map[*Client]bool)
	r.retired = true
	delete(h.rooms, docID)
	metrics.ActiveDocuments.Dec()
	r.mu.Unlock()
	h.mu.Unlock()

	logger.Sugar.Infof("Evicted live session for deleted document %s", docID)
}

// Shutdown drains the registry, disconnecting every subscriber. The hub is
// not usable afterwards.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, r := range h.rooms {
		r.mu.Lock()
		for c := range r.subscribers {
			c.Conn.Close()
		}
		r.subscribers = make(map[*Client]bool)
		r.retired = true
		r.mu.Unlock()
		delete(h.rooms, id)
		metrics.ActiveDocuments.Dec()
	}
	logger.Sugar.Info("Collaboration hub drained")
}

// retire removes an empty room from the registry. Re-checked under both
// locks: a join that slipped in keeps the room alive.
func (h *Hub) retire(r *room) {
	h.mu.Lock()
	r.mu.Lock()
	if len(r.subscribers) == 0 && !r.retired {
		r.retired = true
		delete(h.rooms, r.id)
		metrics.ActiveDocuments.Dec()
		logger.Sugar.Infof("Closed empty room for document %s", r.id)
	}
	r.mu.Unlock()
	h.mu.Unlock()
}

// broadcastLocked sends payload to every subscriber except `except`. Caller
// holds r.mu, which is what keeps one event's fan-out from interleaving with
// the next; sends themselves are non-blocking.
func (h *Hub) broadcastLocked(r *room, payload []byte, except *Client) {
	for c := range r.subscribers {
		if c == except {
			continue
		}
		h.sendLocked(r, c, payload)
	}
}

// sendLocked enqueues payload for one subscriber. A full send buffer means
// the client has stopped draining; it is disconnected rather than allowed to
// stall the room's broadcast path.
func (h *Hub) sendLocked(r *room, c *Client, payload []byte) {
	select {
	case c.Send <- payload:
	default:
		logger.Sugar.Warnf("Client %s send buffer full on doc %s, disconnecting", c.UserID, r.id)
		metrics.DroppedClients.Inc()
		c.Conn.Close()
	}
}

func mustMarshal(v interface{}) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
		return nil
	}
	return payload
}
