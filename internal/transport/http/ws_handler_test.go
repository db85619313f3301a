package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trivia-duel/internal/app"
	"trivia-duel/internal/catalog"
	"trivia-duel/internal/domain"
	"trivia-duel/internal/infra/memory"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestWebSocketCommandFlow(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server)

	readUntil(t, conn, "hello")

	send(t, conn, "setTeams", map[string]any{
		"teams": []map[string]any{
			{"id": "a", "name": "Alpha", "members": []string{"Ann"}},
			{"id": "b", "name": "Beta", "members": []string{"Bo"}},
		},
	})
	state := readState(t, conn, func(v stateView) bool { return len(v.Game.Teams) == 2 })
	if state.Economy.Tokens != domain.DefaultStartingTokens {
		t.Fatalf("expected starting balance in state, got %d", state.Economy.Tokens)
	}

	send(t, conn, "applyCoupon", map[string]any{"code": "  TEST1234 "})
	payload := readUntil(t, conn, "coupon")
	if applied, _ := payload["applied"].(bool); !applied {
		t.Fatalf("expected coupon applied, got %v", payload)
	}
	send(t, conn, "standings", nil)
	payload = readUntil(t, conn, "standings")
	entries, _ := payload["entries"].([]any)
	if len(entries) != 2 || entries[0].(map[string]any)["score"].(float64) != 100 {
		t.Fatalf("expected first team at 100, got %v", payload)
	}

	send(t, conn, "toggleCategory", map[string]any{"categoryId": "cat1"})
	payload = readUntil(t, conn, "categoryToggled")
	if accepted, _ := payload["accepted"].(bool); !accepted {
		t.Fatalf("expected category accepted, got %v", payload)
	}

	send(t, conn, "placeWager", map[string]any{"teamId": "a", "targetTeamId": "b", "multiplier": 2})
	send(t, conn, "selectQuestion", map[string]any{"questionId": "cat1-q3"})
	send(t, conn, "award", map[string]any{"teamId": "b"})
	payload = readUntil(t, conn, "resolution")
	if points, _ := payload["points"].(float64); points != 800 {
		t.Fatalf("expected 800 wagered points, got %v", payload)
	}
}

func TestWebSocketRejectsInvalidPayloads(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server)
	readUntil(t, conn, "hello")

	send(t, conn, "setTeams", map[string]any{"teams": []map[string]any{{"id": "a"}}})
	payload := readUntil(t, conn, "error")
	if payload["command"] != "setTeams" {
		t.Fatalf("expected setTeams error, got %v", payload)
	}

	send(t, conn, "placeWager", map[string]any{"teamId": "a", "targetTeamId": "a"})
	readUntil(t, conn, "error")

	send(t, conn, "dance", nil)
	payload = readUntil(t, conn, "error")
	if payload["message"] == "" {
		t.Fatalf("expected error message")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "probe_total", Help: "probe"}))
	game, economy := newServices(t)
	logger, _ := test.NewNullLogger()

	router := NewRouter(logger, NewWSHandler(game, economy, logger), reg, map[string]Checker{
		"store": CheckerFunc(func(context.Context) error { return nil }),
		"redis": CheckerFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var body map[string]checkStatus
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["store"].Status != "ok" || body["redis"].Status != "error" {
		t.Fatalf("unexpected health body %+v", body)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected metrics 200, got %d", rec.Code)
	}
}

func newServices(t *testing.T) (*app.GameService, *app.EconomyService) {
	t.Helper()
	static, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	store := memory.NewStateStore()
	economy := app.NewEconomyService(store, nil, nil)
	game := app.NewGameService(store, memory.NewCatalogRepository(static, time.Minute), memory.NewCouponLedger(domain.DefaultCoupons...), economy, nil, nil)
	if err := economy.Init(context.Background()); err != nil {
		t.Fatalf("init economy: %v", err)
	}
	if err := game.Init(context.Background()); err != nil {
		t.Fatalf("init game: %v", err)
	}
	return game, economy
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	game, economy := newServices(t)
	logger, _ := test.NewNullLogger()
	server := httptest.NewServer(NewRouter(logger, NewWSHandler(game, economy, logger), nil, nil))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

type rawMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readRaw(t *testing.T, conn *websocket.Conn) rawMessage {
	t.Helper()
	var msg rawMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg
}

// readUntil skips pushed state messages until a message of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()
	for i := 0; i < 50; i++ {
		msg := readRaw(t, conn)
		if msg.Type != typ {
			continue
		}
		var payload map[string]any
		_ = json.Unmarshal(msg.Payload, &payload)
		return payload
	}
	t.Fatalf("no %s message received", typ)
	return nil
}

func readState(t *testing.T, conn *websocket.Conn, match func(stateView) bool) stateView {
	t.Helper()
	for i := 0; i < 50; i++ {
		msg := readRaw(t, conn)
		if msg.Type != "state" {
			continue
		}
		var view stateView
		if err := json.Unmarshal(msg.Payload, &view); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		if match(view) {
			return view
		}
	}
	t.Fatalf("no matching state received")
	return stateView{}
}
