package game

import (
	"math/rand"
	"sort"
	"time"

	"trivia-rooms/internal/domain"
)

// PlayerState tracks one connection's progress through a game.
type PlayerState struct {
	ConnID          string
	Name            string
	Score           int
	PreviousScore   int
	HasAnswered     bool
	CurrentAnswer   int
	LastPointChange int
	Eliminated      bool
	// Order is this player's question sequence. In shared mode it aliases the
	// room bank; in private mode it is an independent permutation of it.
	Order []domain.QuestionRecord
	// QuestionIndex starts at -1 and only ever increases.
	QuestionIndex int
	JoinedAt      time.Time
}

func (p *PlayerState) summary() domain.PlayerSummary {
	return domain.PlayerSummary{
		PlayerID:   p.ConnID,
		PlayerName: p.Name,
		Score:      p.Score,
		Eliminated: p.Eliminated,
	}
}

// Room is one game session. It is exclusively owned by the registry entry and
// only ever touched from the engine loop.
type Room struct {
	ID            string
	HostID        string
	Players       []*PlayerState
	Status        domain.RoomStatus
	Bank          []domain.QuestionRecord
	SharedIndex   int
	TimeRemaining int
	CreatedAt     time.Time

	tickTimer  *time.Timer
	delayTimer *time.Timer
	// timerGen invalidates callbacks scheduled before the last cancelTimers.
	// A timer that fired but has not yet run in the loop sees a stale
	// generation and becomes a no-op.
	timerGen uint64
}

func newRoom(id, hostID string, bank []domain.QuestionRecord) *Room {
	return &Room{
		ID:          id,
		HostID:      hostID,
		Status:      domain.StatusWaiting,
		Bank:        bank,
		SharedIndex: -1,
		CreatedAt:   time.Now(),
	}
}

func (r *Room) addPlayer(connID, name string, startingScore int, order []domain.QuestionRecord) *PlayerState {
	p := &PlayerState{
		ConnID:        connID,
		Name:          name,
		Score:         startingScore,
		PreviousScore: startingScore,
		CurrentAnswer: -1,
		Order:         order,
		QuestionIndex: -1,
		JoinedAt:      time.Now(),
	}
	r.Players = append(r.Players, p)
	return p
}

func (r *Room) player(connID string) (*PlayerState, bool) {
	for _, p := range r.Players {
		if p.ConnID == connID {
			return p, true
		}
	}
	return nil, false
}

func (r *Room) removePlayer(connID string) (*PlayerState, bool) {
	for i, p := range r.Players {
		if p.ConnID == connID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return p, true
		}
	}
	return nil, false
}

func (r *Room) activePlayers() []*PlayerState {
	active := make([]*PlayerState, 0, len(r.Players))
	for _, p := range r.Players {
		if !p.Eliminated {
			active = append(active, p)
		}
	}
	return active
}

func (r *Room) roster() []domain.PlayerSummary {
	roster := make([]domain.PlayerSummary, 0, len(r.Players))
	for _, p := range r.Players {
		roster = append(roster, p.summary())
	}
	return roster
}

// Info builds the snapshot served by get-room-info.
func (r *Room) Info() domain.RoomInfo {
	return domain.RoomInfo{
		RoomID:        r.ID,
		HostID:        r.HostID,
		Status:        r.Status,
		Players:       r.roster(),
		TimeRemaining: r.TimeRemaining,
		QuestionCount: len(r.Bank),
		CreatedAt:     r.CreatedAt,
	}
}

// leaderboard orders players non-eliminated first, then score descending.
// Ties keep join order.
func (r *Room) leaderboard() []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(r.Players))
	for _, p := range r.Players {
		entries = append(entries, domain.LeaderboardEntry{
			PlayerID:   p.ConnID,
			PlayerName: p.Name,
			Score:      p.Score,
			Eliminated: p.Eliminated,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Eliminated != entries[j].Eliminated {
			return !entries[i].Eliminated
		}
		return entries[i].Score > entries[j].Score
	})
	return entries
}

// cancelTimers stops any pending tick or delay and invalidates callbacks that
// already fired. Must run before every reschedule, before ending a game, and
// strictly before deleting the room from the registry.
func (r *Room) cancelTimers() {
	r.timerGen++
	if r.tickTimer != nil {
		r.tickTimer.Stop()
		r.tickTimer = nil
	}
	if r.delayTimer != nil {
		r.delayTimer.Stop()
		r.delayTimer = nil
	}
}

// shuffledOrder copies the bank and permutes it with Fisher-Yates, so each
// player sees every question exactly once in an order decorrelated from
// everyone else's.
func shuffledOrder(rnd *rand.Rand, bank []domain.QuestionRecord) []domain.QuestionRecord {
	order := make([]domain.QuestionRecord, len(bank))
	copy(order, bank)
	for i := len(order) - 1; i >= 1; i-- {
		j := rnd.Intn(i + 1)
		order[i], order[j] = order[j], order[i]
	}
	return order
}
