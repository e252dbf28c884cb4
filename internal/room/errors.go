package room

import "errors"

var (
	// ErrRoomNotFound reports an operation against a room code that is not
	// in the table, either because it never existed or because its last
	// member left and the room was torn down.
	ErrRoomNotFound = errors.New("room does not exist")

	// ErrCodeSpaceExhausted reports that the generator could not find a free
	// code within its retry budget.
	ErrCodeSpaceExhausted = errors.New("room code space exhausted")
)
