// Package events is an in-process publish/subscribe hub for per-document
// updates. Handlers publish on every mutation and SSE clients subscribe by
// document ID, so collaborating signers see field moves and status changes
// without polling.
package events

import (
	"errors"
	"strings"
	"sync"
)

const (
	TypeFieldCreated   = "field_created"
	TypeFieldUpdated   = "field_updated"
	TypeFieldDeleted   = "field_deleted"
	TypeFieldsCleared  = "fields_cleared"
	TypeInvited        = "invited"
	TypeInviteRevoked  = "invite_revoked"
	TypeDocumentSigned = "document_signed"
	TypeRejected       = "document_rejected"
	TypeRecovered      = "document_recovered"
)

const (
	DefaultReplayBuffer     = 50
	DefaultSubscriberBuffer = 16
)

// Event is one document update fanned out to subscribers. Actor is the user
// ID or guest email that triggered it.
type Event struct {
	DocumentID string `json:"document_id"`
	Type       string `json:"type"`
	Actor      string `json:"actor,omitempty"`
	FieldID    string `json:"field_id,omitempty"`
	Status     string `json:"status,omitempty"`
}

type Hub struct {
	mu               sync.RWMutex
	streams          map[string]*stream
	replayBuffer     int
	subscriberBuffer int
}

type stream struct {
	mu     sync.Mutex
	buffer []Event
	subs   map[uint64]chan Event
	nextID uint64
}

type Subscription struct {
	hub        *Hub
	documentID string
	id         uint64
	ch         chan Event
	once       sync.Once
}

func NewHub() *Hub {
	return &Hub{
		streams:          make(map[string]*stream),
		replayBuffer:     DefaultReplayBuffer,
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

// Publish fans the event out to current subscribers of the document. Slow
// subscribers are skipped rather than blocking the publisher.
func (h *Hub) Publish(documentID string, event Event) {
	if h == nil {
		return
	}
	key := strings.TrimSpace(documentID)
	if key == "" {
		return
	}
	h.mu.RLock()
	stream := h.streams[key]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	stream.buffer = append(stream.buffer, event)
	if len(stream.buffer) > h.replayBuffer {
		stream.buffer = stream.buffer[len(stream.buffer)-h.replayBuffer:]
	}
	subs := make([]chan Event, 0, len(stream.subs))
	for _, ch := range stream.subs {
		subs = append(subs, ch)
	}
	stream.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a listener for a document and returns the recent
// buffered events so a reconnecting client can catch up.
func (h *Hub) Subscribe(documentID string) (*Subscription, []Event, error) {
	if h == nil {
		return nil, nil, errors.New("hub_unavailable")
	}
	key := strings.TrimSpace(documentID)
	if key == "" {
		return nil, nil, errors.New("invalid_document_id")
	}

	stream := h.ensureStream(key)
	stream.mu.Lock()
	if stream.subs == nil {
		stream.subs = make(map[uint64]chan Event)
	}
	id := stream.nextID
	stream.nextID++
	ch := make(chan Event, h.subscriberBuffer)
	stream.subs[id] = ch
	buffer := append([]Event(nil), stream.buffer...)
	stream.mu.Unlock()

	return &Subscription{
		hub:        h,
		documentID: key,
		id:         id,
		ch:         ch,
	}, buffer, nil
}

func (h *Hub) ensureStream(documentID string) *stream {
	h.mu.RLock()
	current := h.streams[documentID]
	h.mu.RUnlock()
	if current != nil {
		return current
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	current = h.streams[documentID]
	if current == nil {
		current = &stream{subs: make(map[uint64]chan Event)}
		h.streams[documentID] = current
	}
	return current
}

func (h *Hub) unsubscribe(documentID string, id uint64) {
	if h == nil {
		return
	}
	key := strings.TrimSpace(documentID)
	if key == "" {
		return
	}

	h.mu.RLock()
	stream := h.streams[key]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	delete(stream.subs, id)
	remaining := len(stream.subs)
	stream.mu.Unlock()
	if remaining != 0 {
		return
	}

	h.mu.Lock()
	current := h.streams[key]
	if current != stream {
		h.mu.Unlock()
		return
	}
	stream.mu.Lock()
	empty := len(stream.subs) == 0
	stream.mu.Unlock()
	if empty {
		delete(h.streams, key)
	}
	h.mu.Unlock()
}

func (s *Subscription) Events() <-chan Event {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.documentID, s.id)
	})
}
