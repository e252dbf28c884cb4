// Package history persists the room table to a single JSON snapshot file and
// restores it at startup.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/parlor-chat/parlor/internal/room"
)

// Persister writes and reads whole-table snapshots. Every snapshot overwrites
// the previous one; the write goes through a temp file and a rename so a
// crash mid-write leaves the last good snapshot intact. Writes are serialized
// so concurrent appends cannot interleave their temp files and install an
// older table over a newer one.
type Persister struct {
	mu   sync.Mutex
	path string
	log  zerolog.Logger
}

// NewPersister creates a persister backed by the given file path.
func NewPersister(path string, log zerolog.Logger) *Persister {
	return &Persister{
		path: path,
		log:  log.With().Str("component", "history").Logger(),
	}
}

// Snapshot serializes the room table and overwrites the snapshot file.
func (p *Persister) Snapshot(rooms map[string]room.Room) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := json.Marshal(rooms)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Restore loads the last snapshot. A missing file is not an error: the server
// simply starts with an empty table. Member counts are reset to zero because
// no connections survive a restart; the counts re-converge as sockets attach.
func (p *Persister) Restore() (map[string]room.Room, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		p.log.Info().Str("path", p.path).Msg("no snapshot found, starting empty")
		return map[string]room.Room{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var rooms map[string]room.Room
	if err := json.Unmarshal(data, &rooms); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	for code, r := range rooms {
		r.Members = 0
		rooms[code] = r
	}
	p.log.Info().Int("rooms", len(rooms)).Msg("snapshot restored")
	return rooms, nil
}
