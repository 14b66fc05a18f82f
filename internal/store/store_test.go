package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/universeapp/chatsync/internal/domain"
)

var testConv = domain.Conversation{Kind: domain.KindGroup, ID: 1}

func persisted(id int64, ts time.Time, content string) domain.Message {
	return domain.Message{
		ID:        id,
		Sender:    domain.Sender{User: domain.User{ID: 9, Username: "ana"}},
		Content:   content,
		Timestamp: ts,
	}
}

func TestAppendDeduplicates(t *testing.T) {
	s := New(testConv)
	msg := persisted(5, time.Unix(100, 0), "hi")

	// Same persisted message via poll and via socket.
	s.Append(msg)
	s.Append(msg)

	if got := s.Len(); got != 1 {
		t.Fatalf("expected 1 entry, got %d", got)
	}
}

func TestMessagesSortedByTimestampThenID(t *testing.T) {
	t1 := time.Unix(200, 0)
	t2 := time.Unix(100, 0)

	s := New(testConv)
	// History arrives with id 1 newer than id 2.
	s.Replace([]domain.Message{
		persisted(1, t1, "second"),
		persisted(2, t2, "first"),
	})

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ID != 2 || msgs[1].ID != 1 {
		t.Fatalf("expected order [2 1], got [%d %d]", msgs[0].ID, msgs[1].ID)
	}
}

func TestMessagesTieBrokenByID(t *testing.T) {
	ts := time.Unix(100, 0)

	s := New(testConv)
	s.Append(persisted(7, ts, "b"))
	s.Append(persisted(3, ts, "a"))

	msgs := s.Messages()
	if msgs[0].ID != 3 || msgs[1].ID != 7 {
		t.Fatalf("expected order [3 7], got [%d %d]", msgs[0].ID, msgs[1].ID)
	}
}

func TestConfirmReplacesProvisionalInPlace(t *testing.T) {
	s := New(testConv)

	prov := domain.NewProvisional(domain.User{ID: 9, Username: "ana"}, "hi")
	s.Append(prov)
	if got := s.Len(); got != 1 {
		t.Fatalf("expected 1 provisional entry, got %d", got)
	}

	s.Confirm(prov.ClientKey, persisted(5, time.Unix(100, 0), "hi"))

	msgs := s.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 entry after confirm, got %d", len(msgs))
	}
	if msgs[0].ID != 5 || msgs[0].Provisional() {
		t.Fatalf("expected persisted id 5, got id=%d provisional=%v", msgs[0].ID, msgs[0].Provisional())
	}
}

func TestConfirmRacingSocketDelivery(t *testing.T) {
	server := persisted(5, time.Unix(100, 0), "hi")

	// The socket frame can land before or after the REST confirmation.
	orders := map[string]func(s *ConversationStore, key string){
		"socket_first": func(s *ConversationStore, key string) {
			s.Append(server)
			s.Confirm(key, server)
		},
		"confirm_first": func(s *ConversationStore, key string) {
			s.Confirm(key, server)
			s.Append(server)
		},
	}

	for name, deliver := range orders {
		t.Run(name, func(t *testing.T) {
			s := New(testConv)
			prov := domain.NewProvisional(domain.User{ID: 9, Username: "ana"}, "hi")
			s.Append(prov)

			deliver(s, prov.ClientKey)

			msgs := s.Messages()
			if len(msgs) != 1 {
				t.Fatalf("expected exactly one bubble, got %d", len(msgs))
			}
			if msgs[0].ID != 5 {
				t.Fatalf("expected id 5, got %d", msgs[0].ID)
			}
		})
	}
}

func TestAppendKeepsMostAuthoritativeVersion(t *testing.T) {
	ts := time.Unix(100, 0)

	// The group REST serializer emits the sender as a bare id; the socket
	// frame carries the resolved user.
	bare := domain.Message{ID: 5, Sender: domain.Sender{User: domain.User{ID: 9}}, Content: "hi", Timestamp: ts}
	full := persisted(5, ts, "hi")

	s := New(testConv)
	s.Append(bare)
	s.Append(full)
	s.Append(bare) // late redundant copy must not downgrade

	msgs := s.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(msgs))
	}
	if msgs[0].Sender.Username != "ana" {
		t.Fatalf("expected resolved sender, got %q", msgs[0].Sender.Username)
	}
}

func TestReplaceThenAppendsStaySortedAndUnique(t *testing.T) {
	s := New(testConv)

	base := time.Unix(1000, 0)
	s.Replace([]domain.Message{
		persisted(1, base.Add(1*time.Second), "a"),
		persisted(2, base.Add(2*time.Second), "b"),
	})

	// Socket deliveries interleaved with a poll re-announcing everything.
	s.Append(persisted(4, base.Add(4*time.Second), "d"))
	s.Append(persisted(3, base.Add(3*time.Second), "c"))
	for _, m := range s.Messages() {
		s.Append(m)
	}

	msgs := s.Messages()
	if len(msgs) != 4 {
		t.Fatalf("expected 4 unique messages, got %d", len(msgs))
	}
	seen := make(map[int64]bool)
	for i, m := range msgs {
		if seen[m.ID] {
			t.Fatalf("duplicate id %d", m.ID)
		}
		seen[m.ID] = true
		if i > 0 && m.Before(msgs[i-1]) {
			t.Fatalf("messages out of order at index %d", i)
		}
	}
}

func TestReplaceDropsPreviousContents(t *testing.T) {
	s := New(testConv)
	s.Append(persisted(1, time.Unix(100, 0), "old"))

	fresh := make([]domain.Message, 0, 3)
	for i := int64(10); i < 13; i++ {
		fresh = append(fresh, persisted(i, time.Unix(100+i, 0), fmt.Sprintf("m%d", i)))
	}
	s.Replace(fresh)

	msgs := s.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for _, m := range msgs {
		if m.ID == 1 {
			t.Fatal("replaced history still contains the old entry")
		}
	}
}

func TestSnapshotIndependentOfLaterMutations(t *testing.T) {
	s := New(testConv)
	s.Append(persisted(1, time.Unix(100, 0), "a"))

	snap := s.Messages()
	s.Append(persisted(2, time.Unix(200, 0), "b"))

	if len(snap) != 1 {
		t.Fatalf("snapshot changed after append: %d entries", len(snap))
	}
}
