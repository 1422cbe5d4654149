package domain

import "time"

// RoomStatus is the lifecycle state of a room. Transitions are forward-only:
// waiting -> playing -> finished.
type RoomStatus string

const (
	StatusWaiting  RoomStatus = "waiting"
	StatusPlaying  RoomStatus = "playing"
	StatusFinished RoomStatus = "finished"
)

// QuestionRecord is a single multiple-choice question. Immutable after load.
// JSON tags follow the persisted layout so that loading a bank and
// re-serializing it yields the same records.
type QuestionRecord struct {
	ID            int      `json:"id"`
	Prompt        string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctAnswer"`
}

// QuestionBank is an ordered collection of questions, loaded once and never
// mutated afterwards.
type QuestionBank struct {
	ID        string           `json:"id"`
	Questions []QuestionRecord `json:"questions"`
}

// Validate checks every record references a real option.
func (b QuestionBank) Validate() error {
	if len(b.Questions) == 0 {
		return ErrBankEmpty
	}
	for _, q := range b.Questions {
		if len(q.Options) == 0 {
			return ErrBankInvalid
		}
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			return ErrBankInvalid
		}
	}
	return nil
}

// PlayerSummary is the roster view of a player sent over the wire.
type PlayerSummary struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Score      int    `json:"score"`
	Eliminated bool   `json:"eliminated"`
}

// PlayerResult is the per-player outcome of one question cycle.
type PlayerResult struct {
	PlayerID      string `json:"playerId"`
	PlayerName    string `json:"playerName"`
	Answered      bool   `json:"answered"`
	Answer        *int   `json:"answer"`
	IsCorrect     bool   `json:"isCorrect"`
	PreviousScore int    `json:"previousScore"`
	NewScore      int    `json:"newScore"`
	PointChange   int    `json:"pointChange"`
	Eliminated    bool   `json:"eliminated"`
}

// LeaderboardEntry is one row of the end-of-game scoreboard.
type LeaderboardEntry struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Score      int    `json:"score"`
	Eliminated bool   `json:"eliminated"`
}

// RoomInfo is the snapshot returned by get-room-info.
type RoomInfo struct {
	RoomID        string          `json:"roomId"`
	HostID        string          `json:"hostId"`
	Status        RoomStatus      `json:"status"`
	Players       []PlayerSummary `json:"players"`
	TimeRemaining int             `json:"timeRemaining"`
	QuestionCount int             `json:"questionCount"`
	CreatedAt     time.Time       `json:"createdAt"`
}
