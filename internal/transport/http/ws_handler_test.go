package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trivia-rooms/internal/domain"
	"trivia-rooms/internal/game"
	"trivia-rooms/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestFullGameOverWebSocket(t *testing.T) {
	banks := memory.NewBankRepository(memory.NewStaticBankLoader(map[string]domain.QuestionBank{
		"default": {
			ID: "default",
			Questions: []domain.QuestionRecord{
				{ID: 1, Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectOption: 1},
			},
		},
	}), time.Minute)

	hub := NewHub()
	engine := game.NewEngine(game.NewRegistry(), banks, hub, game.Settings{
		StartingScore:   7,
		MinPlayers:      1,
		QuestionSeconds: 2,
		PreGameDelay:    10 * time.Millisecond,
		ResultsDelay:    20 * time.Millisecond,
		TickInterval:    20 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	wsHandler := NewWSHandler(engine, hub)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	wsURL := "ws" + server.URL[len("http"):] + "/ws"

	host, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial host: %v", err)
	}
	defer host.Close()

	send(host, t, "create-room", map[string]any{"gameId": "R1"})
	awaitType(host, t, "room-created")

	player, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial player: %v", err)
	}
	defer player.Close()

	send(player, t, "join-room", map[string]any{"gameId": "R1", "playerName": "Alice"})
	joined := awaitType(player, t, "joined-room")
	players, _ := joined["players"].([]any)
	if len(players) != 1 {
		t.Fatalf("expected one player in roster, got %v", joined)
	}
	awaitType(host, t, "player-joined")

	send(host, t, "start-game", map[string]any{"gameId": "R1"})
	awaitType(host, t, "game-started-admin")
	awaitType(player, t, "game-started-player")

	question := awaitType(player, t, "new-question")
	if question["questionNumber"] != float64(1) {
		t.Fatalf("expected question 1, got %v", question)
	}

	send(player, t, "submit-answer", map[string]any{"gameId": "R1", "answer": 1})
	awaitType(player, t, "player-answered")

	results := awaitType(player, t, "question-results")
	resultList, _ := results["results"].([]any)
	if len(resultList) != 1 {
		t.Fatalf("expected one result, got %v", results)
	}
	first, _ := resultList[0].(map[string]any)
	if first["newScore"] != float64(8) || first["pointChange"] != float64(1) {
		t.Fatalf("expected score 8 with +1, got %v", first)
	}

	// single-question bank: the next cycle exhausts the game
	ended := awaitType(player, t, "game-ended")
	if ended["reason"] != "exhausted" {
		t.Fatalf("expected exhausted game, got %v", ended)
	}
}

func TestRoomInfoAndErrors(t *testing.T) {
	banks := memory.NewBankRepository(memory.NewStaticBankLoader(map[string]domain.QuestionBank{
		"default": {
			ID: "default",
			Questions: []domain.QuestionRecord{
				{ID: 1, Prompt: "Pick one", Options: []string{"a", "b"}, CorrectOption: 0},
			},
		},
	}), time.Minute)

	hub := NewHub()
	engine := game.NewEngine(game.NewRegistry(), banks, hub, game.Settings{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	wsHandler := NewWSHandler(engine, hub)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	send(conn, t, "get-room-info", map[string]any{"gameId": "nope"})
	awaitType(conn, t, "room-error")

	send(conn, t, "create-room", map[string]any{"gameId": "R1"})
	awaitType(conn, t, "room-created")

	send(conn, t, "get-room-info", map[string]any{"gameId": "R1"})
	info := awaitType(conn, t, "room-info")
	room, _ := info["room"].(map[string]any)
	if room["status"] != "waiting" {
		t.Fatalf("expected waiting room, got %v", info)
	}
}

func send(conn *websocket.Conn, t *testing.T, msgType string, payload map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// awaitType discards events until one of the wanted type arrives.
func awaitType(conn *websocket.Conn, t *testing.T, expect string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read while waiting for %s: %v", expect, err)
		}
		if msg.Type == expect {
			return msg.Payload
		}
	}
}
