package domain

import "errors"

var (
	// ErrRoomAlreadyExists is returned when creating a room with a taken id.
	ErrRoomAlreadyExists = errors.New("room already exists")
	// ErrRoomNotFound is returned when a room id does not resolve.
	ErrRoomNotFound = errors.New("room not found")
	// ErrGameAlreadyStarted is returned when joining a room past the waiting state.
	ErrGameAlreadyStarted = errors.New("game already started")
	// ErrNotHost is returned when a non-host tries to start the game.
	ErrNotHost = errors.New("only the host can start the game")
	// ErrInsufficientPlayers is returned when starting with too few players.
	ErrInsufficientPlayers = errors.New("not enough players to start")
	// ErrBankNotFound indicates the question bank could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrBankEmpty indicates a bank with no questions.
	ErrBankEmpty = errors.New("question bank is empty")
	// ErrBankInvalid indicates a record whose correct option is out of range.
	ErrBankInvalid = errors.New("question bank contains invalid records")
)
