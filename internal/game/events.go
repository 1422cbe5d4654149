package game

import "trivia-rooms/internal/domain"

// Outbound event types. One closed set; every payload is a fixed struct.
const (
	EventRoomCreated       = "room-created"
	EventRoomError         = "room-error"
	EventJoinError         = "join-error"
	EventPlayerJoined      = "player-joined"
	EventJoinedRoom        = "joined-room"
	EventGameStartedAdmin  = "game-started-admin"
	EventGameStartedPlayer = "game-started-player"
	EventNewQuestion       = "new-question"
	EventTimeUpdate        = "time-update"
	EventPlayerAnswered    = "player-answered"
	EventQuestionResults   = "question-results"
	EventGameEnded         = "game-ended"
	EventPlayerLeft        = "player-left"
	EventHostDisconnected  = "host-disconnected"
	EventRoomInfo          = "room-info"
)

// EndReason tags why a game finished.
type EndReason string

const (
	ReasonExhausted   EndReason = "exhausted"
	ReasonElimination EndReason = "elimination"
)

// Event is a tagged outbound message.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Broadcaster delivers events to connections and room-scoped groups. The
// transport hub implements it; tests substitute a recorder.
type Broadcaster interface {
	ToConn(connID string, ev Event)
	ToRoom(roomID string, ev Event)
	ToRoomExcept(roomID, exceptID string, ev Event)
	Subscribe(roomID, connID string)
	Unsubscribe(roomID, connID string)
	CloseRoom(roomID string)
}

type errorPayload struct {
	Message string `json:"message"`
}

type roomCreatedPayload struct {
	GameID string          `json:"gameId"`
	Room   domain.RoomInfo `json:"room"`
}

type playerJoinedPayload struct {
	Player  domain.PlayerSummary   `json:"player"`
	Players []domain.PlayerSummary `json:"players"`
}

type joinedRoomPayload struct {
	GameID  string                 `json:"gameId"`
	Players []domain.PlayerSummary `json:"players"`
}

type gameStartedPayload struct {
	GameID string `json:"gameId"`
}

type newQuestionPayload struct {
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	QuestionNumber int      `json:"questionNumber"`
	TotalQuestions int      `json:"totalQuestions"`
	TimeRemaining  int      `json:"timeRemaining"`
}

type timeUpdatePayload struct {
	TimeRemaining int `json:"timeRemaining"`
}

type playerAnsweredPayload struct {
	PlayerID      string `json:"playerId"`
	PlayerName    string `json:"playerName"`
	TotalAnswered int    `json:"totalAnswered"`
	TotalPlayers  int    `json:"totalPlayers"`
}

// questionResultsPayload is broadcast in shared-question mode with the full
// results array, or unicast in private-question mode with a single result.
type questionResultsPayload struct {
	CorrectAnswer int                   `json:"correctAnswer"`
	Results       []domain.PlayerResult `json:"results,omitempty"`
	Result        *domain.PlayerResult  `json:"result,omitempty"`
}

type gameEndedPayload struct {
	FinalScores []domain.LeaderboardEntry `json:"finalScores"`
	Winner      *domain.LeaderboardEntry  `json:"winner"`
	Reason      EndReason                 `json:"reason"`
	Eliminated  []string                  `json:"eliminated,omitempty"`
}

type playerLeftPayload struct {
	PlayerID   string                 `json:"playerId"`
	PlayerName string                 `json:"playerName"`
	Players    []domain.PlayerSummary `json:"players"`
}

type roomInfoPayload struct {
	GameID string          `json:"gameId"`
	Room   domain.RoomInfo `json:"room"`
}
