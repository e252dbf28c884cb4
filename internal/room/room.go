// Package room implements the in-memory room table at the heart of Parlor:
// room creation with unique short codes, membership counting, ordered message
// histories, and room teardown when the last member leaves.
package room

// Kind classifies a message as a user chat line or a membership notice.
type Kind string

// Message kinds. Join and leave notices carry a fixed body and are broadcast
// but never appended to a room's history.
const (
	KindChat  Kind = "chat"
	KindJoin  Kind = "join"
	KindLeave Kind = "leave"
)

// Message is a single chat line. Immutable once appended to a history.
type Message struct {
	Sender string `json:"name"`
	Body   string `json:"message"`
	Kind   Kind   `json:"kind"`
}

// Room is the exported snapshot form of a live room. The room's code is the
// key under which it is stored, both in the table and in the persisted
// snapshot.
type Room struct {
	Members  int       `json:"members"`
	Messages []Message `json:"messages"`
}
