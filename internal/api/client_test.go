package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/universeapp/chatsync/internal/domain"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, func() string { return "tok123" })
}

func TestRequestCarriesBearerToken(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok123" {
			t.Errorf("expected bearer token, got %q", got)
		}
		json.NewEncoder(w).Encode([]domain.GroupMembership{})
	})

	if _, err := c.Memberships(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestGroupMessagesPathAndDecoding(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/study-groups/messages/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("group"); got != "7" {
			t.Errorf("expected group=7, got %q", got)
		}
		// Sender comes back as a bare id from this serializer.
		w.Write([]byte(`[{"id":1,"group":7,"sender":3,"content":"hi","timestamp":"2025-03-01T10:00:00Z"}]`))
	})

	msgs, err := c.GroupMessages(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Sender.ID != 3 {
		t.Fatalf("unexpected decode: %+v", msgs)
	}
}

func TestSendGroupMessageBody(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var body struct {
			Group   int64  `json:"group"`
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body.Group != 7 || body.Content != "hello" {
			t.Errorf("unexpected body: %+v", body)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":5,"group":7,"sender":{"id":2,"username":"ben"},"content":"hello","timestamp":"2025-03-01T10:00:00Z"}`))
	})

	msg, err := c.SendGroupMessage(context.Background(), 7, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if msg.ID != 5 || msg.Sender.Username != "ben" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestMatchMessagesComeFromEmbeddedHistory(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/match-requests/3/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"id":3,"sender":1,"receiver":2,"status":"accepted",
			"messages":[{"id":10,"sender":{"id":1,"username":"ana"},"content":"hey","timestamp":"2025-03-01T10:00:00Z"}],
			"created_at":"2025-02-01T00:00:00Z","updated_at":"2025-02-02T00:00:00Z"}`))
	})

	msgs, err := c.MatchMessages(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].ID != 10 {
		t.Fatalf("unexpected history: %+v", msgs)
	}
}

func TestGatingState(t *testing.T) {
	tt := []struct {
		name string
		conv domain.Conversation
		body string
		want bool
	}{
		{
			name: "accepted_match",
			conv: domain.Conversation{Kind: domain.KindMatch, ID: 3},
			body: `{"id":3,"sender":1,"receiver":2,"status":"accepted","created_at":"2025-02-01T00:00:00Z","updated_at":"2025-02-01T00:00:00Z"}`,
			want: true,
		},
		{
			name: "pending_match",
			conv: domain.Conversation{Kind: domain.KindMatch, ID: 3},
			body: `{"id":3,"sender":1,"receiver":2,"status":"pending","created_at":"2025-02-01T00:00:00Z","updated_at":"2025-02-01T00:00:00Z"}`,
			want: false,
		},
		{
			name: "accepted_membership",
			conv: domain.Conversation{Kind: domain.KindGroup, ID: 7},
			body: `[{"id":1,"group":7,"user":2,"is_accepted":true,"requested_at":"2025-02-01T00:00:00Z"}]`,
			want: true,
		},
		{
			name: "pending_membership",
			conv: domain.Conversation{Kind: domain.KindGroup, ID: 7},
			body: `[{"id":1,"group":7,"user":2,"is_accepted":false,"requested_at":"2025-02-01T00:00:00Z"}]`,
			want: false,
		},
		{
			name: "no_membership",
			conv: domain.Conversation{Kind: domain.KindGroup, ID: 7},
			body: `[{"id":1,"group":9,"user":2,"is_accepted":true,"requested_at":"2025-02-01T00:00:00Z"}]`,
			want: false,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			})
			got, err := c.GatingState(context.Background(), tc.conv)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestStatusErrorMapping(t *testing.T) {
	tt := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"detail":"token expired"}`, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, `{"detail":"not a member"}`, ErrForbidden},
		{"not_found", http.StatusNotFound, `{"detail":"no such group"}`, ErrNotFound},
		{"bad_request", http.StatusBadRequest, `{"error":"receiver required"}`, ErrInvalidInput},
		{"server", http.StatusInternalServerError, ``, ErrServer},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			_, err := c.StudyGroup(context.Background(), 1)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestLoginAndRefresh(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login/":
			var in LoginInput
			json.NewDecoder(r.Body).Decode(&in)
			if in.Username != "ana" || in.Password != "pw" {
				t.Errorf("unexpected login body: %+v", in)
			}
			w.Write([]byte(`{"access":"a1","refresh":"r1"}`))
		case "/api/auth/token/refresh/":
			w.Write([]byte(`{"access":"a2"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	pair, err := c.Login(context.Background(), LoginInput{Username: "ana", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	if pair.Access != "a1" || pair.Refresh != "r1" {
		t.Fatalf("unexpected pair: %+v", pair)
	}

	refreshed, err := c.RefreshToken(context.Background(), pair.Refresh)
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.Access != "a2" {
		t.Fatalf("unexpected access token: %q", refreshed.Access)
	}
	// simplejwt keeps the refresh token unless rotation is on.
	if refreshed.Refresh != "r1" {
		t.Fatalf("expected refresh token carried over, got %q", refreshed.Refresh)
	}
}

func TestRoommateMatchDecoding(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/roommate-matches/9/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"user": {"id": 9, "username": "sam"}, "compatibility_score": 87.5, "match_status": "none"}`))
	})

	profile, err := c.RoommateMatch(context.Background(), 9)
	if err != nil {
		t.Fatal(err)
	}
	if profile.User.ID != 9 || profile.CompatibilityScore != 87.5 || profile.MatchStatus != "none" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}
