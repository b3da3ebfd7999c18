package realtime

import (
	"sync"

	"go.uber.org/zap"
)

type EventType string

const (
	CommentCreated EventType = "comment.created"
	CommentDeleted EventType = "comment.deleted"
)

// Event tells subscribers that the comment set of a post changed. It carries
// no row data; listeners refetch the thread.
type Event struct {
	Type      EventType `json:"type"`
	PostID    string    `json:"postId"`
	CommentID string    `json:"commentId"`
}

const subscriberBuffer = 16

// Hub fans change events out to the subscribers of each post.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		logger: logger,
	}
}

type Subscription struct {
	hub    *Hub
	postID string
	ch     chan Event
	once   sync.Once
}

// Subscribe registers interest in the events of one post. Callers must Close
// the subscription when done.
func (h *Hub) Subscribe(postID string) *Subscription {
	s := &Subscription{
		hub:    h,
		postID: postID,
		ch:     make(chan Event, subscriberBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[postID] == nil {
		h.subs[postID] = make(map[*Subscription]struct{})
	}
	h.subs[postID][s] = struct{}{}
	return s
}

func (s *Subscription) Events() <-chan Event { return s.ch }

func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[s.postID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, s.postID)
			}
		}
		close(s.ch)
	})
}

// Publish never blocks: a subscriber whose buffer is full misses the event.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs[ev.PostID] {
		select {
		case s.ch <- ev:
		default:
			h.logger.Warn("realtime subscriber is slow, dropping event",
				zap.String("post", ev.PostID), zap.String("type", string(ev.Type)))
		}
	}
}

// Subscribers returns the number of live subscriptions for a post.
func (h *Hub) Subscribers(postID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[postID])
}
