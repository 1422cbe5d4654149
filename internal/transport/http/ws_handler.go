package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"

	"trivia-rooms/internal/game"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	engine   *game.Engine
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *game.Engine, hub *Hub) *WSHandler {
	return &WSHandler{
		engine: engine,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type roomPayload struct {
	GameID string `json:"gameId"`
}

type joinPayload struct {
	GameID     string `json:"gameId"`
	PlayerName string `json:"playerName"`
}

type answerPayload struct {
	GameID string `json:"gameId"`
	Answer int    `json:"answer"`
}

// ServeWS upgrades the request and pumps inbound actions into the engine.
// Each connection gets a transient id for its lifetime; closing the socket is
// the implicit disconnect action.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID := newConnID()
	h.hub.register(connID, conn)
	defer h.hub.unregister(connID)
	defer h.engine.Disconnect(connID)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "create-room":
			var p roomPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				h.sendError(connID, "invalid create-room payload")
				continue
			}
			h.engine.CreateRoom(r.Context(), connID, p.GameID)
		case "join-room":
			var p joinPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				h.sendError(connID, "invalid join-room payload")
				continue
			}
			h.engine.JoinRoom(connID, p.GameID, p.PlayerName)
		case "start-game":
			var p roomPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				h.sendError(connID, "invalid start-game payload")
				continue
			}
			h.engine.StartGame(connID, p.GameID)
		case "submit-answer":
			var p answerPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				// best-effort input, drop it
				continue
			}
			h.engine.SubmitAnswer(connID, p.GameID, p.Answer)
		case "get-room-info":
			var p roomPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				h.sendError(connID, "invalid get-room-info payload")
				continue
			}
			h.engine.RoomInfo(connID, p.GameID)
		default:
			h.sendError(connID, "unsupported message type")
		}
	}
}

func (h *WSHandler) sendError(connID, message string) {
	h.hub.ToConn(connID, game.Event{Type: game.EventRoomError, Payload: map[string]string{"message": message}})
}

func newConnID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf[:])
}
