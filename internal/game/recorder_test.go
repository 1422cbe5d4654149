package game

import (
	"testing"
	"time"
)

const (
	targetConn = "conn"
	targetRoom = "room"
)

type recordedEvent struct {
	kind   string
	target string
	except string
	ev     Event
}

// recorder is a Broadcaster that captures every emitted event in order.
type recorder struct {
	ch chan recordedEvent
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan recordedEvent, 1024)}
}

func (r *recorder) ToConn(connID string, ev Event) {
	r.ch <- recordedEvent{kind: targetConn, target: connID, ev: ev}
}

func (r *recorder) ToRoom(roomID string, ev Event) {
	r.ch <- recordedEvent{kind: targetRoom, target: roomID, ev: ev}
}

func (r *recorder) ToRoomExcept(roomID, exceptID string, ev Event) {
	r.ch <- recordedEvent{kind: targetRoom, target: roomID, except: exceptID, ev: ev}
}

func (r *recorder) Subscribe(roomID, connID string) {}

func (r *recorder) Unsubscribe(roomID, connID string) {}

func (r *recorder) CloseRoom(roomID string) {}

// await discards events until one of the wanted type arrives.
func (r *recorder) await(t *testing.T, evType string) recordedEvent {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-r.ch:
			if ev.ev.Type == evType {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", evType)
		}
	}
}

// drain returns everything currently buffered without blocking.
func (r *recorder) drain() []recordedEvent {
	var events []recordedEvent
	for {
		select {
		case ev := <-r.ch:
			events = append(events, ev)
		default:
			return events
		}
	}
}
