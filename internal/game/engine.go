package game

import (
	"context"
	"log"
	"math/rand"
	"time"

	"trivia-rooms/internal/domain"
)

// BankRepository loads question banks (from cache/backing store).
type BankRepository interface {
	GetBank(ctx context.Context, bankID string) (domain.QuestionBank, error)
}

// Settings carries every tunable of the question/answer cycle. The observed
// production values are the defaults; tests shrink the delays.
type Settings struct {
	StartingScore    int
	MinPlayers       int
	QuestionSeconds  int
	PreGameDelay     time.Duration
	ResultsDelay     time.Duration
	TickInterval     time.Duration
	Elimination      bool
	PrivateQuestions bool
	BankID           string
}

func (s Settings) withDefaults() Settings {
	if s.StartingScore == 0 {
		s.StartingScore = 7
	}
	if s.MinPlayers < 1 {
		s.MinPlayers = 1
	}
	if s.QuestionSeconds == 0 {
		s.QuestionSeconds = 20
	}
	if s.PreGameDelay == 0 {
		s.PreGameDelay = 3 * time.Second
	}
	if s.ResultsDelay == 0 {
		s.ResultsDelay = 10 * time.Second
	}
	if s.TickInterval == 0 {
		s.TickInterval = time.Second
	}
	if s.BankID == "" {
		s.BankID = "default"
	}
	return s
}

// Engine runs the game-session state machine. All room and player mutation
// happens on a single goroutine draining the command channel; timer callbacks
// re-enter the loop as queued closures, so handlers run to completion and no
// two question cycles for the same room ever overlap.
type Engine struct {
	registry *Registry
	banks    BankRepository
	bc       Broadcaster
	settings Settings
	rnd      *rand.Rand
	cmds     chan func()
}

func NewEngine(registry *Registry, banks BankRepository, bc Broadcaster, settings Settings) *Engine {
	return &Engine{
		registry: registry,
		banks:    banks,
		bc:       bc,
		settings: settings.withDefaults(),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		cmds:     make(chan func(), 256),
	}
}

// Run drains the command loop until ctx is canceled.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case fn := <-e.cmds:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) do(fn func()) {
	e.cmds <- fn
}

// CreateRoom loads the configured bank and registers a new waiting room owned
// by the requesting connection. The bank fetch happens on the caller's
// goroutine so a slow store never stalls the loop.
func (e *Engine) CreateRoom(ctx context.Context, connID, roomID string) {
	if roomID == "" {
		e.bc.ToConn(connID, Event{Type: EventRoomError, Payload: errorPayload{Message: "missing room id"}})
		return
	}
	bank, err := e.banks.GetBank(ctx, e.settings.BankID)
	if err != nil {
		log.Printf("load bank %q: %v", e.settings.BankID, err)
		e.bc.ToConn(connID, Event{Type: EventRoomError, Payload: errorPayload{Message: "question bank unavailable"}})
		return
	}
	e.do(func() {
		room, err := e.registry.Create(roomID, connID, bank.Questions)
		if err != nil {
			e.bc.ToConn(connID, Event{Type: EventRoomError, Payload: errorPayload{Message: err.Error()}})
			return
		}
		e.bc.Subscribe(roomID, connID)
		e.bc.ToConn(connID, Event{Type: EventRoomCreated, Payload: roomCreatedPayload{GameID: roomID, Room: room.Info()}})
		log.Printf("room %s created by %s", roomID, connID)
	})
}

// JoinRoom adds a player to a waiting room. In private-question mode the
// player gets their own shuffled copy of the bank.
func (e *Engine) JoinRoom(connID, roomID, playerName string) {
	e.do(func() {
		room, ok := e.registry.Get(roomID)
		if !ok {
			e.bc.ToConn(connID, Event{Type: EventJoinError, Payload: errorPayload{Message: domain.ErrRoomNotFound.Error()}})
			return
		}
		if room.Status != domain.StatusWaiting {
			e.bc.ToConn(connID, Event{Type: EventJoinError, Payload: errorPayload{Message: domain.ErrGameAlreadyStarted.Error()}})
			return
		}
		if _, ok := room.player(connID); ok {
			// duplicate join: just re-confirm
			e.bc.ToConn(connID, Event{Type: EventJoinedRoom, Payload: joinedRoomPayload{GameID: roomID, Players: room.roster()}})
			return
		}

		order := room.Bank
		if e.settings.PrivateQuestions {
			order = shuffledOrder(e.rnd, room.Bank)
		}
		p := room.addPlayer(connID, playerName, e.settings.StartingScore, order)
		e.bc.Subscribe(roomID, connID)
		e.bc.ToRoom(roomID, Event{Type: EventPlayerJoined, Payload: playerJoinedPayload{Player: p.summary(), Players: room.roster()}})
		e.bc.ToConn(connID, Event{Type: EventJoinedRoom, Payload: joinedRoomPayload{GameID: roomID, Players: room.roster()}})
		log.Printf("%s (%s) joined room %s", playerName, connID, roomID)
	})
}

// StartGame moves a room into playing and schedules the first question after
// the pre-game delay, so clients can render the starting transition.
func (e *Engine) StartGame(connID, roomID string) {
	e.do(func() {
		room, ok := e.registry.Get(roomID)
		if !ok {
			e.bc.ToConn(connID, Event{Type: EventRoomError, Payload: errorPayload{Message: domain.ErrRoomNotFound.Error()}})
			return
		}
		if room.HostID != connID {
			e.bc.ToConn(connID, Event{Type: EventRoomError, Payload: errorPayload{Message: domain.ErrNotHost.Error()}})
			return
		}
		if room.Status != domain.StatusWaiting {
			e.bc.ToConn(connID, Event{Type: EventRoomError, Payload: errorPayload{Message: domain.ErrGameAlreadyStarted.Error()}})
			return
		}
		if len(room.Players) < e.settings.MinPlayers {
			e.bc.ToConn(connID, Event{Type: EventRoomError, Payload: errorPayload{Message: domain.ErrInsufficientPlayers.Error()}})
			return
		}

		room.Status = domain.StatusPlaying
		room.SharedIndex = -1
		e.bc.ToConn(connID, Event{Type: EventGameStartedAdmin, Payload: gameStartedPayload{GameID: roomID}})
		e.bc.ToRoomExcept(roomID, connID, Event{Type: EventGameStartedPlayer, Payload: gameStartedPayload{GameID: roomID}})
		e.scheduleAfter(room, e.settings.PreGameDelay, e.advanceQuestion)
		log.Printf("game %s started with %d players", roomID, len(room.Players))
	})
}

// SubmitAnswer records an answer. Late, duplicate, or post-elimination
// submissions are silently ignored; network jitter is not a fault.
func (e *Engine) SubmitAnswer(connID, roomID string, answer int) {
	e.do(func() {
		room, ok := e.registry.Get(roomID)
		if !ok || room.Status != domain.StatusPlaying {
			return
		}
		p, ok := room.player(connID)
		if !ok || p.HasAnswered || p.Eliminated {
			return
		}
		p.HasAnswered = true
		p.CurrentAnswer = answer

		active := room.activePlayers()
		answered := 0
		for _, ap := range active {
			if ap.HasAnswered {
				answered++
			}
		}
		e.bc.ToRoom(roomID, Event{Type: EventPlayerAnswered, Payload: playerAnsweredPayload{
			PlayerID:      p.ConnID,
			PlayerName:    p.Name,
			TotalAnswered: answered,
			TotalPlayers:  len(active),
		}})
	})
}

// RoomInfo reports a snapshot of the room to the requesting connection.
func (e *Engine) RoomInfo(connID, roomID string) {
	e.do(func() {
		room, ok := e.registry.Get(roomID)
		if !ok {
			e.bc.ToConn(connID, Event{Type: EventRoomError, Payload: errorPayload{Message: domain.ErrRoomNotFound.Error()}})
			return
		}
		e.bc.ToConn(connID, Event{Type: EventRoomInfo, Payload: roomInfoPayload{GameID: roomID, Room: room.Info()}})
	})
}

// Disconnect tears down everything the connection was part of: rooms it
// hosted are deleted, rooms it played in lose the player.
func (e *Engine) Disconnect(connID string) {
	e.do(func() {
		for _, room := range e.registry.All() {
			if room.HostID == connID {
				room.cancelTimers()
				e.bc.ToRoom(room.ID, Event{Type: EventHostDisconnected, Payload: struct{}{}})
				e.registry.Delete(room.ID)
				e.bc.CloseRoom(room.ID)
				log.Printf("room %s deleted (host disconnected)", room.ID)
				continue
			}
			if p, ok := room.removePlayer(connID); ok {
				// Leaving mid-game does not re-evaluate elimination or end
				// conditions; the next cycle operates on the remaining roster.
				e.bc.Unsubscribe(room.ID, connID)
				e.bc.ToRoom(room.ID, Event{Type: EventPlayerLeft, Payload: playerLeftPayload{
					PlayerID:   connID,
					PlayerName: p.Name,
					Players:    room.roster(),
				}})
			}
		}
	})
}

// liveRoom resolves a timer callback target, discarding callbacks whose room
// vanished or whose generation was cancelled after scheduling.
func (e *Engine) liveRoom(roomID string, gen uint64) (*Room, bool) {
	room, ok := e.registry.Get(roomID)
	if !ok || room.timerGen != gen || room.Status != domain.StatusPlaying {
		return nil, false
	}
	return room, true
}

// scheduleAfter arms the room's delay timer. The callback re-enters the loop
// carrying the room id and current generation, never a room pointer.
func (e *Engine) scheduleAfter(room *Room, d time.Duration, fn func(roomID string, gen uint64)) {
	roomID, gen := room.ID, room.timerGen
	room.delayTimer = time.AfterFunc(d, func() {
		e.do(func() { fn(roomID, gen) })
	})
}

func (e *Engine) scheduleTick(room *Room) {
	roomID, gen := room.ID, room.timerGen
	room.tickTimer = time.AfterFunc(e.settings.TickInterval, func() {
		e.do(func() { e.tick(roomID, gen) })
	})
}

// advanceQuestion starts the next question cycle: bump per-player indices,
// reset answer state, detect exhaustion, deliver questions, arm the countdown.
func (e *Engine) advanceQuestion(roomID string, gen uint64) {
	room, ok := e.liveRoom(roomID, gen)
	if !ok {
		return
	}
	room.cancelTimers()

	active := room.activePlayers()
	if len(active) == 0 {
		e.finishGame(room, ReasonElimination, nil)
		return
	}

	// Reset before the exhaustion check so results reflect the question about
	// to be asked, not the previous one.
	for _, p := range active {
		p.QuestionIndex++
		p.HasAnswered = false
		p.CurrentAnswer = -1
		p.PreviousScore = p.Score
		p.LastPointChange = 0
	}

	exhausted := true
	for _, p := range active {
		if p.QuestionIndex < len(p.Order) {
			exhausted = false
			break
		}
	}
	if exhausted {
		e.finishGame(room, ReasonExhausted, nil)
		return
	}

	if e.settings.PrivateQuestions {
		for _, p := range active {
			if p.QuestionIndex >= len(p.Order) {
				continue
			}
			q := p.Order[p.QuestionIndex]
			e.bc.ToConn(p.ConnID, Event{Type: EventNewQuestion, Payload: newQuestionPayload{
				Question:       q.Prompt,
				Options:        q.Options,
				QuestionNumber: p.QuestionIndex + 1,
				TotalQuestions: len(p.Order),
				TimeRemaining:  e.settings.QuestionSeconds,
			}})
		}
	} else {
		room.SharedIndex++
		q := room.Bank[room.SharedIndex]
		e.bc.ToRoom(roomID, Event{Type: EventNewQuestion, Payload: newQuestionPayload{
			Question:       q.Prompt,
			Options:        q.Options,
			QuestionNumber: room.SharedIndex + 1,
			TotalQuestions: len(room.Bank),
			TimeRemaining:  e.settings.QuestionSeconds,
		}})
	}

	room.TimeRemaining = e.settings.QuestionSeconds
	e.scheduleTick(room)
}

// tick decrements the room countdown once per interval. The countdown is
// room-scoped even when question content is player-scoped.
func (e *Engine) tick(roomID string, gen uint64) {
	room, ok := e.liveRoom(roomID, gen)
	if !ok {
		return
	}
	room.TimeRemaining--
	e.bc.ToRoom(roomID, Event{Type: EventTimeUpdate, Payload: timeUpdatePayload{TimeRemaining: room.TimeRemaining}})
	if room.TimeRemaining <= 0 {
		e.endQuestion(room)
		return
	}
	e.scheduleTick(room)
}

// endQuestion scores the round. Wrong answers and timeouts are penalized
// identically; scores floor at zero. Already-eliminated players are reported
// but never rescored.
func (e *Engine) endQuestion(room *Room) {
	room.cancelTimers()

	results := make([]domain.PlayerResult, 0, len(room.Players))
	var eliminatedNow []string
	for _, p := range room.Players {
		if p.Eliminated {
			results = append(results, domain.PlayerResult{
				PlayerID:      p.ConnID,
				PlayerName:    p.Name,
				Answered:      false,
				IsCorrect:     false,
				PreviousScore: p.Score,
				NewScore:      p.Score,
				PointChange:   0,
				Eliminated:    true,
			})
			continue
		}

		correct := false
		if p.QuestionIndex >= 0 && p.QuestionIndex < len(p.Order) {
			correct = p.HasAnswered && p.CurrentAnswer == p.Order[p.QuestionIndex].CorrectOption
		}
		if correct {
			p.Score++
			p.LastPointChange = 1
		} else {
			p.LastPointChange = -1
			if p.Score > 0 {
				p.Score--
			}
		}
		if e.settings.Elimination && p.Score <= 0 {
			p.Eliminated = true
			eliminatedNow = append(eliminatedNow, p.ConnID)
		}

		var answer *int
		if p.HasAnswered {
			a := p.CurrentAnswer
			answer = &a
		}
		results = append(results, domain.PlayerResult{
			PlayerID:      p.ConnID,
			PlayerName:    p.Name,
			Answered:      p.HasAnswered,
			Answer:        answer,
			IsCorrect:     correct,
			PreviousScore: p.PreviousScore,
			NewScore:      p.Score,
			PointChange:   p.LastPointChange,
			Eliminated:    p.Eliminated,
		})
	}

	if e.settings.PrivateQuestions {
		// Unicast each player only their own outcome plus their own correct
		// answer, so nobody learns another player's submission.
		for i, p := range room.Players {
			correctOption := -1
			if p.QuestionIndex >= 0 && p.QuestionIndex < len(p.Order) {
				correctOption = p.Order[p.QuestionIndex].CorrectOption
			}
			result := results[i]
			e.bc.ToConn(p.ConnID, Event{Type: EventQuestionResults, Payload: questionResultsPayload{
				CorrectAnswer: correctOption,
				Result:        &result,
			}})
		}
	} else {
		correctOption := -1
		if room.SharedIndex >= 0 && room.SharedIndex < len(room.Bank) {
			correctOption = room.Bank[room.SharedIndex].CorrectOption
		}
		e.bc.ToRoom(room.ID, Event{Type: EventQuestionResults, Payload: questionResultsPayload{
			CorrectAnswer: correctOption,
			Results:       results,
		}})
	}

	if e.settings.Elimination && len(room.activePlayers()) <= 1 {
		elim := eliminatedNow
		e.scheduleAfter(room, e.settings.ResultsDelay, func(id string, gen uint64) {
			r, ok := e.liveRoom(id, gen)
			if !ok {
				return
			}
			e.finishGame(r, ReasonElimination, elim)
		})
		return
	}
	e.scheduleAfter(room, e.settings.ResultsDelay, e.advanceQuestion)
}

// finishGame is terminal: cancel timers, freeze the leaderboard, report the
// winner. The room stays in the registry until the host disconnects.
func (e *Engine) finishGame(room *Room, reason EndReason, eliminatedNow []string) {
	room.cancelTimers()
	room.Status = domain.StatusFinished

	board := room.leaderboard()
	var winner *domain.LeaderboardEntry
	if len(board) > 0 {
		// First non-eliminated entry wins; if everyone was eliminated at
		// once, fall back to the top overall entry.
		winner = &board[0]
	}

	e.bc.ToRoom(room.ID, Event{Type: EventGameEnded, Payload: gameEndedPayload{
		FinalScores: board,
		Winner:      winner,
		Reason:      reason,
		Eliminated:  eliminatedNow,
	}})
	log.Printf("game %s ended (%s)", room.ID, reason)
}
