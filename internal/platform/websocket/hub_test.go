package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/auth"
)

func newTestHub() *Hub {
	return NewHub(zerolog.Nop())
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data := <-c.Send:
		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected message: %s", data)
	default:
	}
}

func TestHub_RegisterSubscribesUserTopic(t *testing.T) {
	hub := newTestHub()
	client := NewClient("u1", false)
	hub.Register(client)

	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
	if hub.TopicCount(UserTopic("u1")) != 1 {
		t.Fatalf("expected 1 client on user topic, got %d", hub.TopicCount(UserTopic("u1")))
	}
	if hub.TopicCount(StaffTopic) != 0 {
		t.Fatalf("patient must not be on staff topic")
	}
}

func TestHub_RegisterStaffSubscribesStaffTopic(t *testing.T) {
	hub := newTestHub()
	hub.Register(NewClient("s1", true))

	if hub.TopicCount(StaffTopic) != 1 {
		t.Fatalf("expected staff topic subscriber, got %d", hub.TopicCount(StaffTopic))
	}
}

func TestHub_UnregisterClosesChannel(t *testing.T) {
	hub := newTestHub()
	client := NewClient("u1", true)
	hub.Register(client)
	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
	if hub.TopicCount(UserTopic("u1")) != 0 || hub.TopicCount(StaffTopic) != 0 {
		t.Fatal("expected topics to be empty")
	}
	if _, ok := <-client.Send; ok {
		t.Fatal("expected Send to be closed")
	}

	// second unregister is a no-op
	hub.Unregister(client)
}

func TestHub_PublishReachesOwnerAndStaff(t *testing.T) {
	hub := newTestHub()
	owner := NewClient("u1", false)
	other := NewClient("u2", false)
	staff := NewClient("s1", true)
	hub.Register(owner)
	hub.Register(other)
	hub.Register(staff)

	evt := Event{Type: "appointment.confirmed", Topic: UserTopic("u1"), Entity: "appointment", EntityID: "a1", Timestamp: time.Now()}
	if err := hub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if got := receive(t, owner); got.Type != "appointment.confirmed" || got.EntityID != "a1" {
		t.Fatalf("owner got %+v", got)
	}
	if got := receive(t, staff); got.Topic != UserTopic("u1") {
		t.Fatalf("staff got %+v", got)
	}
	expectNothing(t, other)
}

func TestHub_ProcessMessageIgnoresForeignTopics(t *testing.T) {
	hub := newTestHub()
	client := NewClient("u1", false)
	hub.Register(client)

	hub.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{UserTopic("u2"), StaffTopic}})

	if hub.TopicCount(UserTopic("u2")) != 0 {
		t.Fatal("client subscribed to another user's topic")
	}
	if hub.TopicCount(StaffTopic) != 0 {
		t.Fatal("patient subscribed to staff topic")
	}
}

func TestHub_ProcessMessageUnsubscribeAndResubscribe(t *testing.T) {
	hub := newTestHub()
	client := NewClient("s1", true)
	hub.Register(client)

	hub.ProcessMessage(client, ClientMessage{Action: "unsubscribe", Topics: []string{StaffTopic}})
	if hub.TopicCount(StaffTopic) != 0 {
		t.Fatal("expected staff topic to be muted")
	}
	if len(client.Topics) != 1 {
		t.Fatalf("expected 1 topic left, got %v", client.Topics)
	}

	hub.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{StaffTopic, StaffTopic}})
	if hub.TopicCount(StaffTopic) != 1 {
		t.Fatal("expected staff topic to be restored once")
	}
	if len(client.Topics) != 2 {
		t.Fatalf("expected 2 topics, got %v", client.Topics)
	}
}

func TestHub_BroadcastDropsWhenBufferFull(t *testing.T) {
	hub := newTestHub()
	client := NewClient("u1", false)
	hub.Register(client)

	for i := 0; i < sendBuffer+5; i++ {
		hub.Broadcast(UserTopic("u1"), Event{Type: "x"})
	}
	if len(client.Send) != sendBuffer {
		t.Fatalf("expected full buffer of %d, got %d", sendBuffer, len(client.Send))
	}
}

func TestHub_ConcurrentRegisterUnregister(t *testing.T) {
	hub := newTestHub()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := NewClient(uuid.NewString(), true)
			hub.Register(c)
			hub.Broadcast(StaffTopic, Event{Type: "ping"})
			hub.Unregister(c)
		}()
	}
	wg.Wait()

	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
	if hub.TopicCount(StaffTopic) != 0 {
		t.Fatalf("expected empty staff topic, got %d", hub.TopicCount(StaffTopic))
	}
}

func TestNewUserEvent(t *testing.T) {
	uid := uuid.New()
	eid := uuid.New()
	evt := NewUserEvent(uid, "order.placed", "order", eid, map[string]int{"count": 2})

	if evt.Topic != UserTopic(uid.String()) {
		t.Fatalf("unexpected topic %q", evt.Topic)
	}
	if evt.EntityID != eid.String() {
		t.Fatalf("unexpected entity id %q", evt.EntityID)
	}
	if string(evt.Data) != `{"count":2}` {
		t.Fatalf("unexpected data %s", evt.Data)
	}
	if evt.Timestamp.IsZero() {
		t.Fatal("expected timestamp")
	}
}

func TestHandler_RequiresIdentity(t *testing.T) {
	e := echo.New()
	h := NewHandler(newTestHub(), nil)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.HandleConnect(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestHandler_RejectsPlainHTTP(t *testing.T) {
	e := echo.New()
	h := NewHandler(newTestHub(), nil)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), "u1", "u1@example.com", []string{auth.RolePatient}))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	_ = h.HandleConnect(c)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-upgrade request, got %d", rec.Code)
	}
}

func TestHandler_OriginCheck(t *testing.T) {
	h := NewHandler(newTestHub(), []string{"https://curenet.example"})

	good := httptest.NewRequest(http.MethodGet, "/ws", nil)
	good.Header.Set("Origin", "https://curenet.example")
	if !h.upgrader.CheckOrigin(good) {
		t.Fatal("expected configured origin to pass")
	}

	bad := httptest.NewRequest(http.MethodGet, "/ws", nil)
	bad.Header.Set("Origin", "https://evil.example")
	if h.upgrader.CheckOrigin(bad) {
		t.Fatal("expected unknown origin to fail")
	}

	wildcard := NewHandler(newTestHub(), []string{"*"})
	if !wildcard.upgrader.CheckOrigin(bad) {
		t.Fatal("expected wildcard to accept any origin")
	}
}

func TestHandler_FullUpgradeWithDialer(t *testing.T) {
	hub := newTestHub()
	e := echo.New()
	g := e.Group("")
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := auth.WithIdentity(c.Request().Context(), "u1", "u1@example.com", []string{auth.RolePatient})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	NewHandler(hub, nil).RegisterRoutes(g)

	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := gorillawebsocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.TopicCount(UserTopic("u1")) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	_ = hub.Publish(context.Background(), Event{Type: "order.placed", Topic: UserTopic("u1"), Entity: "order"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if evt.Type != "order.placed" {
		t.Fatalf("expected order.placed, got %q", evt.Type)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was never unregistered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
