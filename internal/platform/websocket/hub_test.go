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

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/akin/akin/internal/platform/auth"
)

// ---------------------------------------------------------------------------
// Hub tests
// ---------------------------------------------------------------------------

func TestTopics(t *testing.T) {
	if got := UserTopic("42"); got != "user:42" {
		t.Fatalf("UserTopic = %q", got)
	}
	if got := RoleTopic(auth.RoleLabChief); got != "role:CHEFE" {
		t.Fatalf("RoleTopic = %q", got)
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := NewClient("1", UserTopic("1"), RoleTopic(auth.RoleTechnician))

	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
	if hub.TopicCount("user:1") != 1 || hub.TopicCount("role:TECNICO") != 1 {
		t.Fatal("expected client on both topics")
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
	if hub.TopicCount("user:1") != 0 {
		t.Fatalf("expected topic cleaned up, got %d", hub.TopicCount("user:1"))
	}
	if _, ok := <-client.Send; ok {
		t.Fatal("expected Send channel to be closed")
	}

	// A second unregister is a no-op.
	hub.Unregister(client)
}

func TestHub_BroadcastToTopic(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	chief := NewClient("1", UserTopic("1"), RoleTopic(auth.RoleLabChief))
	tech := NewClient("2", UserTopic("2"), RoleTopic(auth.RoleTechnician))
	hub.Register(chief)
	hub.Register(tech)

	n := hub.Broadcast(RoleTopic(auth.RoleTechnician), Event{Type: "notification.created", ResourceID: "9"})
	if n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}

	select {
	case msg := <-tech.Send:
		var ev Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.ResourceID != "9" {
			t.Fatalf("expected resource 9, got %q", ev.ResourceID)
		}
	case <-time.After(time.Second):
		t.Fatal("technician did not receive the event")
	}

	select {
	case <-chief.Send:
		t.Fatal("chief should not receive a technician role event")
	default:
	}
}

func TestHub_BroadcastToEmptyTopic(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	if n := hub.Broadcast("user:nobody", Event{Type: "x"}); n != 0 {
		t.Fatalf("expected 0 deliveries, got %d", n)
	}
}

func TestHub_FullBufferDropsEvent(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := NewClient("1", UserTopic("1"))
	hub.Register(client)

	for i := 0; i < sendBuffer; i++ {
		hub.Broadcast(UserTopic("1"), Event{Type: "fill"})
	}
	if n := hub.Broadcast(UserTopic("1"), Event{Type: "overflow"}); n != 0 {
		t.Fatalf("expected overflow to be dropped, delivered %d", n)
	}
}

func TestHub_SubscribeOnlyGrantedTopics(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := NewClient("1", UserTopic("1"), RoleTopic(auth.RoleReceptionist))
	hub.Register(client)

	hub.Unsubscribe(client, []string{RoleTopic(auth.RoleReceptionist)})
	if hub.TopicCount("role:RECEPCIONISTA") != 0 {
		t.Fatal("expected role topic to be unsubscribed")
	}
	if len(client.Topics) != 1 {
		t.Fatalf("expected 1 topic remaining, got %v", client.Topics)
	}

	hub.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{"role:RECEPCIONISTA", "user:2", "role:CHEFE"}})
	if hub.TopicCount("role:RECEPCIONISTA") != 1 {
		t.Fatal("expected granted topic to be re-subscribed")
	}
	if hub.TopicCount("user:2") != 0 || hub.TopicCount("role:CHEFE") != 0 {
		t.Fatal("client subscribed to a topic it was not granted")
	}

	hub.Subscribe(client, []string{"role:RECEPCIONISTA"})
	if len(client.Topics) != 2 {
		t.Fatalf("duplicate subscription recorded: %v", client.Topics)
	}
}

func TestHub_PublishSetsTimestamp(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := NewClient("1", UserTopic("1"))
	hub.Register(client)

	if err := hub.Publish(context.Background(), Event{Type: "x", Topic: UserTopic("1")}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(<-client.Send, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be set")
	}
}

func TestHub_ConcurrentRegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := NewClient("1", UserTopic("1"))
			hub.Register(c)
			hub.Broadcast(UserTopic("1"), Event{Type: "x"})
			hub.Unregister(c)
		}()
	}
	wg.Wait()

	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
}

// ---------------------------------------------------------------------------
// Handler tests
// ---------------------------------------------------------------------------

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://akin.ao/"})

	tests := []struct {
		origin string
		host   string
		want   bool
	}{
		{"", "gw.akin.ao", true},
		{"https://akin.ao", "gw.akin.ao", true},
		{"https://gw.akin.ao", "gw.akin.ao", true},
		{"https://evil.example", "gw.akin.ao", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.Host = tt.host
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := check(req); got != tt.want {
			t.Errorf("origin %q: got %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestHandler_RequiresPrincipal(t *testing.T) {
	h := NewHandler(NewHub(zerolog.Nop()), nil, zerolog.Nop())

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/ws", nil), httptest.NewRecorder())
	err := h.HandleConnect(c)

	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestHandler_FullUpgradeWithDialer(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	h := NewHandler(hub, nil, zerolog.Nop())

	e := echo.New()
	h.RegisterRoutes(e, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := auth.WithPrincipal(c.Request().Context(), auth.Principal{UserID: "42", Role: auth.RoleTechnician})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})

	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, resp, err := gorillawebsocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()

	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}

	deadline := time.Now().Add(time.Second)
	for hub.TopicCount("user:42") == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.TopicCount("user:42") != 1 || hub.TopicCount("role:TECNICO") != 1 {
		t.Fatal("expected connection subscribed to its user and role topics")
	}

	hub.Broadcast("role:TECNICO", Event{Type: "notification.created", Topic: "role:TECNICO", ResourceID: "7"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var received Event
	if err := conn.ReadJSON(&received); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if received.ResourceID != "7" {
		t.Fatalf("expected resource 7, got %s", received.ResourceID)
	}

	conn.Close()
	deadline = time.Now().Add(time.Second)
	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ClientCount() != 0 {
		t.Fatal("expected client to be unregistered after close")
	}
}
