// Package store holds the single ordered, de-duplicated message sequence
// for one open conversation. The REST history fetch and the realtime
// channel are both producers that hand messages in; neither keeps its own
// copy.
package store

import (
	"sort"
	"sync"

	"github.com/universeapp/chatsync/internal/domain"
)

type ConversationStore struct {
	conv domain.Conversation

	mu    sync.RWMutex
	byKey map[string]domain.Message
}

func New(conv domain.Conversation) *ConversationStore {
	return &ConversationStore{
		conv:  conv,
		byKey: make(map[string]domain.Message),
	}
}

func (s *ConversationStore) Conversation() domain.Conversation {
	return s.conv
}

// Replace swaps in a freshly fetched history. Callers must only invoke it
// with a successful fetch; a failed load leaves the previous contents
// untouched by never reaching this method.
func (s *ConversationStore) Replace(msgs []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byKey = make(map[string]domain.Message, len(msgs))
	for _, m := range msgs {
		s.upsert(m)
	}
}

// Append inserts a message unless an entry with the same identity is
// already present. Redundant deliveries of the same persisted message
// (poll plus socket) are no-ops, so producers never need to coordinate.
func (s *ConversationStore) Append(msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsert(msg)
}

// Confirm replaces the provisional entry for clientKey with the persisted
// record the backend returned. If an identical copy already arrived over
// the socket the result is still a single entry.
func (s *ConversationStore) Confirm(clientKey string, persisted domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byKey, "client:"+clientKey)
	s.upsert(persisted)
}

// Messages returns the current sequence sorted by (timestamp, id)
// ascending. The snapshot is independent of later mutations and reading
// has no side effects.
func (s *ConversationStore) Messages() []domain.Message {
	s.mu.RLock()
	msgs := make([]domain.Message, 0, len(s.byKey))
	for _, m := range s.byKey {
		msgs = append(msgs, m)
	}
	s.mu.RUnlock()

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Before(msgs[j])
	})
	return msgs
}

func (s *ConversationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

// upsert applies the idempotent-append rule. Callers hold the lock.
func (s *ConversationStore) upsert(msg domain.Message) {
	key := msg.Key()
	existing, ok := s.byKey[key]
	if !ok {
		s.byKey[key] = msg
		return
	}
	if moreAuthoritative(existing, msg) {
		s.byKey[key] = msg
	}
}

// moreAuthoritative reports whether incoming should overwrite existing
// when both share an identity. A persisted record beats a provisional one,
// and a record with a resolved sender beats one that only carried the
// sender's id (the group REST serializer emits bare ids, the socket
// frames full objects). Otherwise the first version seen wins.
func moreAuthoritative(existing, incoming domain.Message) bool {
	if existing.Provisional() && !incoming.Provisional() {
		return true
	}
	if existing.Sender.Username == "" && incoming.Sender.Username != "" {
		return true
	}
	return false
}
