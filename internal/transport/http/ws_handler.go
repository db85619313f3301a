package http

import (
	"encoding/json"
	"net/http"

	"trivia-duel/internal/app"
	"trivia-duel/internal/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSHandler bridges one local presentation client to the game and economy
// services over a websocket.
type WSHandler struct {
	game     *app.GameService
	economy  *app.EconomyService
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

func NewWSHandler(game *app.GameService, economy *app.EconomyService, log logrus.FieldLogger) *WSHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &WSHandler{
		game:    game,
		economy: economy,
		log:     log.WithField("component", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the bridge listens on loopback only
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Command string `json:"command,omitempty"`
	Message string `json:"message"`
}

type helloPayload struct {
	ConnectionID string                `json:"connectionId"`
	Packages     []domain.TokenPackage `json:"packages"`
}

// stateView is the full picture a client renders from.
type stateView struct {
	Game    domain.GameSession  `json:"game"`
	Economy domain.EconomyState `json:"economy"`
}

// ServeWS upgrades the request and serves commands until the client leaves.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	log := h.log.WithField("conn", connID)
	log.Info("client connected")
	defer log.Info("client disconnected")

	ctx := r.Context()
	gameUpdates, cancelGame := h.game.Subscribe(ctx)
	defer cancelGame()
	economyUpdates, cancelEconomy := h.economy.Subscribe(ctx)
	defer cancelEconomy()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write failed")
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "hello", Payload: helloPayload{ConnectionID: connID, Packages: h.economy.Packages()}}

	go func() {
		defer close(updatesDone)
		view := stateView{Game: h.game.Snapshot(), Economy: h.economy.State()}
		for {
			select {
			case g, ok := <-gameUpdates:
				if !ok {
					return
				}
				view.Game = g
			case e, ok := <-economyUpdates:
				if !ok {
					return
				}
				view.Economy = e
			case <-closeSignals:
				return
			}
			select {
			case send <- outboundMessage[any]{Type: "state", Payload: view}:
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		reply, err := h.dispatch(ctx, inbound)
		if err != nil {
			log.WithError(err).WithField("command", inbound.Type).Debug("command rejected")
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Command: inbound.Type, Message: err.Error()}}
			continue
		}
		send <- reply
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) state() outboundMessage[any] {
	return outboundMessage[any]{Type: "state", Payload: stateView{Game: h.game.Snapshot(), Economy: h.economy.State()}}
}

func (h *WSHandler) stateOrError(_ any, err error) (outboundMessage[any], error) {
	if err != nil {
		return outboundMessage[any]{}, err
	}
	return h.state(), nil
}

func decode[T any](raw json.RawMessage) (T, error) {
	var payload T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return payload, errInvalidPayload
		}
	}
	if err := validate.Struct(payload); err != nil {
		return payload, err
	}
	return payload, nil
}
