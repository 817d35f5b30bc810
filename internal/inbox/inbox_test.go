package inbox

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/careops/platform/internal/tenancy"
	"github.com/careops/platform/pkg/logging"
)

func TestUnreadCountSemantics(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	conv, err := repo.FindOrCreate(ctx, "ws-1", "contact-1")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}

	// Contact and system messages bump the counter; staff replies do not.
	for _, author := range []string{AuthorContact, AuthorSystem, AuthorContact} {
		if _, err := repo.Append(ctx, conv.ID, &AppendRequest{AuthorType: author, Body: "hi"}); err != nil {
			t.Fatalf("Append(%s): %v", author, err)
		}
	}
	if _, err := repo.Append(ctx, conv.ID, &AppendRequest{AuthorType: AuthorStaff, AuthorID: "u1", Body: "hello"}); err != nil {
		t.Fatalf("Append(staff): %v", err)
	}

	conv, _ = repo.Get(ctx, "ws-1", conv.ID)
	if conv.UnreadCount != 3 {
		t.Fatalf("expected unread 3, got %d", conv.UnreadCount)
	}

	// Only an explicit read resets the counter.
	if err := repo.MarkRead(ctx, "ws-1", conv.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	conv, _ = repo.Get(ctx, "ws-1", conv.ID)
	if conv.UnreadCount != 0 {
		t.Fatalf("expected unread 0 after read, got %d", conv.UnreadCount)
	}
}

func TestFindOrCreateIsIdempotent(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	first, _ := repo.FindOrCreate(ctx, "ws-1", "contact-1")
	second, _ := repo.FindOrCreate(ctx, "ws-1", "contact-1")
	if first.ID != second.ID {
		t.Fatal("expected one conversation per (workspace, contact)")
	}

	other, _ := repo.FindOrCreate(ctx, "ws-2", "contact-1")
	if other.ID == first.ID {
		t.Fatal("expected separate conversations per workspace")
	}
}

type capturedEvent struct {
	workspaceID string
	eventType   string
}

type stubPublisher struct {
	events []capturedEvent
}

func (s *stubPublisher) Publish(ctx context.Context, workspaceID, eventType string, payload any) error {
	s.events = append(s.events, capturedEvent{workspaceID, eventType})
	return nil
}

func TestReplyPublishesStaffReplied(t *testing.T) {
	repo := NewInMemoryRepository()
	publisher := &stubPublisher{}
	handler := NewHandler(repo, nil, publisher, logging.Default())

	conv, _ := repo.FindOrCreate(context.Background(), "ws-1", "contact-1")

	router := chi.NewRouter()
	router.Post("/inbox/{conversationID}/messages", handler.Reply)

	body, _ := json.Marshal(map[string]string{"body": "thanks, see you then"})
	req := httptest.NewRequest(http.MethodPost, "/inbox/"+conv.ID+"/messages", bytes.NewReader(body))
	ctx := tenancy.WithWorkspaceID(req.Context(), "ws-1")
	ctx = tenancy.WithUser(ctx, "user-1", "staff")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req.WithContext(ctx))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(publisher.events) != 1 || publisher.events[0].eventType != "staff.replied" {
		t.Fatalf("expected staff.replied event, got %+v", publisher.events)
	}

	// Staff reply must not count as unread.
	conv, _ = repo.Get(context.Background(), "ws-1", conv.ID)
	if conv.UnreadCount != 0 {
		t.Fatalf("expected unread 0 after staff reply, got %d", conv.UnreadCount)
	}
}

func TestReplyUnknownConversation(t *testing.T) {
	handler := NewHandler(NewInMemoryRepository(), nil, nil, logging.Default())

	router := chi.NewRouter()
	router.Post("/inbox/{conversationID}/messages", handler.Reply)

	req := httptest.NewRequest(http.MethodPost, "/inbox/nope/messages", strings.NewReader(`{"body":"x"}`))
	ctx := tenancy.WithWorkspaceID(req.Context(), "ws-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req.WithContext(ctx))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestStreamDeliversPublishedEvents(t *testing.T) {
	stream := NewStream(logging.Default())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stream.ServeHTTP(w, r.WithContext(tenancy.WithWorkspaceID(r.Context(), "ws-1")))
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Wait for the subscription to register before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for stream.Subscribers("ws-1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	stream.Publish("ws-1", StreamEvent{Type: "message", ConversationID: "conv-1", Message: &Message{Body: "hi"}})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event StreamEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.ConversationID != "conv-1" || event.Message == nil || event.Message.Body != "hi" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestStreamDropsSlowSubscriberExactlyOnce(t *testing.T) {
	stream := NewStream(logging.Default())

	// An unbuffered channel with no pump running is never ready, so the
	// first publish takes the slow path.
	client := &streamClient{send: make(chan StreamEvent)}
	stream.add("ws-1", client)

	stream.Publish("ws-1", StreamEvent{Type: "message", ConversationID: "conv-1"})
	if got := stream.Subscribers("ws-1"); got != 0 {
		t.Fatalf("slow subscriber still registered, count = %d", got)
	}

	// Further publishes in the same workspace must not reach the dropped
	// client's closed channel.
	stream.Publish("ws-1", StreamEvent{Type: "message", ConversationID: "conv-1"})
	stream.Publish("ws-1", StreamEvent{Type: "message", ConversationID: "conv-2"})

	if _, open := <-client.send; open {
		t.Fatal("dropped client's channel was not closed")
	}

	// A persisted message must keep flowing to healthy subscribers after a
	// slow one is dropped.
	healthy := &streamClient{send: make(chan StreamEvent, 1)}
	stream.add("ws-1", healthy)
	stream.Publish("ws-1", StreamEvent{Type: "message", ConversationID: "conv-3"})
	select {
	case event := <-healthy.send:
		if event.ConversationID != "conv-3" {
			t.Fatalf("unexpected event: %+v", event)
		}
	default:
		t.Fatal("healthy subscriber did not receive the event")
	}
}
