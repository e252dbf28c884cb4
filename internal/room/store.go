package room

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/parlor-chat/parlor/internal/metrics"
)

// Snapshotter persists the full room table. The store calls it after every
// successful append; failures are logged and never surfaced to the sender.
type Snapshotter interface {
	Snapshot(rooms map[string]Room) error
}

// Store is the table of live rooms. All mutations are serialized behind a
// single mutex; contention is low enough that per-room locking would buy
// nothing.
type Store struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	codeLen int
	source  CodeSource
	persist Snapshotter
	log     zerolog.Logger
}

// NewStore creates an empty store. persist may be nil, in which case appends
// skip the snapshot step. A codeLen of zero or less falls back to
// DefaultCodeLength.
func NewStore(codeLen int, persist Snapshotter, log zerolog.Logger) *Store {
	if codeLen <= 0 {
		codeLen = DefaultCodeLength
	}
	return &Store{
		rooms:   make(map[string]*Room),
		codeLen: codeLen,
		source:  randomCode,
		persist: persist,
		log:     log.With().Str("component", "roomstore").Logger(),
	}
}

// SetCodeSource replaces the random code source. Tests use this to pin codes.
func (s *Store) SetCodeSource(source CodeSource) {
	s.mu.Lock()
	s.source = source
	s.mu.Unlock()
}

// Create inserts a new empty room under a freshly generated code and returns
// the code. Generation and insertion happen in one critical section so two
// concurrent creates can never share a code.
func (s *Store) Create() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := ""
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		candidate := s.source(s.codeLen)
		if _, taken := s.rooms[candidate]; !taken {
			code = candidate
			break
		}
	}
	if code == "" {
		s.log.Error().Int("attempts", maxCodeAttempts).Msg("could not find a free room code")
		return "", ErrCodeSpaceExhausted
	}

	s.rooms[code] = &Room{}
	metrics.RoomsActive.Set(float64(len(s.rooms)))
	s.log.Info().Str("room", code).Msg("room created")
	return code, nil
}

// Exists reports whether a room with the given code is live.
func (s *Store) Exists(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[code]
	return ok
}

// Count returns the number of live rooms.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// History returns a copy of the room's ordered message history.
func (s *Store) History(code string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	history := make([]Message, len(r.Messages))
	copy(history, r.Messages)
	return history, nil
}

// Members returns the current member count for a room.
func (s *Store) Members(code string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[code]
	if !ok {
		return 0, ErrRoomNotFound
	}
	return r.Members, nil
}

// Append adds a message to the end of the room's history and snapshots the
// table. The append itself is atomic; the snapshot runs outside the lock and
// is best-effort.
func (s *Store) Append(code string, msg Message) error {
	s.mu.Lock()
	r, ok := s.rooms[code]
	if !ok {
		s.mu.Unlock()
		return ErrRoomNotFound
	}
	r.Messages = append(r.Messages, msg)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.Snapshot(snap); err != nil {
			metrics.SnapshotFailures.Inc()
			s.log.Error().Err(err).Int("rooms", len(snap)).Msg("history snapshot failed")
		}
	}
	return nil
}

// Join increments the room's member count.
func (s *Store) Join(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}
	r.Members++
	return nil
}

// Leave decrements the room's member count and deletes the room when the
// count reaches zero; the history goes with it. Unknown codes are a no-op so
// disconnect teardown stays idempotent.
func (s *Store) Leave(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return
	}
	r.Members--
	if r.Members <= 0 {
		delete(s.rooms, code)
		metrics.RoomsActive.Set(float64(len(s.rooms)))
		s.log.Info().Str("room", code).Msg("room deleted, last member left")
	}
}

// Snapshot returns a deep copy of the room table, keyed by code.
func (s *Store) Snapshot() map[string]Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() map[string]Room {
	snap := make(map[string]Room, len(s.rooms))
	for code, r := range s.rooms {
		messages := make([]Message, len(r.Messages))
		copy(messages, r.Messages)
		snap[code] = Room{Members: r.Members, Messages: messages}
	}
	return snap
}

// Restore replaces the table with a restored snapshot. Member counts are
// reset to zero regardless of what the snapshot says: no sockets are attached
// after a restart, and a stale count would keep an empty room alive forever.
func (s *Store) Restore(rooms map[string]Room) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rooms = make(map[string]*Room, len(rooms))
	for code, r := range rooms {
		messages := make([]Message, len(r.Messages))
		copy(messages, r.Messages)
		s.rooms[code] = &Room{Members: 0, Messages: messages}
	}
	metrics.RoomsActive.Set(float64(len(s.rooms)))
}
