// Package settings keeps the per-chat snapshot settings in memory and
// persists them as a whole map.
package settings

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"sync"

	sqldb "github.com/jehaby/smarthomebot/internal/db"
	itypes "github.com/jehaby/smarthomebot/internal/types"
)

// ChatSettings is owned by a single chat session.
type ChatSettings struct {
	ChatID               int64
	SnapshotIntervalSecs int
	// Cameras restricts periodic snapshots; empty means every camera.
	Cameras itypes.StringSlice
}

// Map is the in-memory chat_id -> settings table. Each chat writes only its
// own entry.
type Map struct {
	mu sync.RWMutex
	m  map[int64]ChatSettings
}

func NewMap(initial map[int64]ChatSettings) *Map {
	m := &Map{m: make(map[int64]ChatSettings, len(initial))}
	maps.Copy(m.m, initial)
	return m
}

// Get returns the chat's settings, or zero settings for an unknown chat.
func (m *Map) Get(chatID int64) ChatSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.m[chatID]
	if !ok {
		return ChatSettings{ChatID: chatID}
	}
	return s
}

func (m *Map) Put(s ChatSettings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[s.ChatID] = s
}

// Snapshot returns a copy of the whole table.
func (m *Map) Snapshot() map[int64]ChatSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.m)
}

// Store loads and saves the whole settings map.
type Store interface {
	Load(ctx context.Context) (map[int64]ChatSettings, error)
	Save(ctx context.Context, all map[int64]ChatSettings) error
}

var _ Store = (*SQLStore)(nil)

// SQLStore persists settings in the chat_settings table.
type SQLStore struct {
	db *sql.DB
	q  *sqldb.Queries
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, q: sqldb.New(db)}
}

func (s *SQLStore) Load(ctx context.Context) (map[int64]ChatSettings, error) {
	rows, err := s.q.ListChatSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chat settings: %w", err)
	}
	out := make(map[int64]ChatSettings, len(rows))
	for _, r := range rows {
		out[r.ChatID] = ChatSettings{
			ChatID:               r.ChatID,
			SnapshotIntervalSecs: int(r.SnapshotIntervalSecs),
			Cameras:              r.SnapshotCameras,
		}
	}
	return out, nil
}

// Save replaces the stored table with all in a single transaction.
func (s *SQLStore) Save(ctx context.Context, all map[int64]ChatSettings) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	q := s.q.WithTx(tx)
	if err := q.DeleteChatSettings(ctx); err != nil {
		return fmt.Errorf("clear chat settings: %w", err)
	}
	for _, cs := range all {
		err := q.UpsertChatSetting(ctx, sqldb.ChatSetting{
			ChatID:               cs.ChatID,
			SnapshotIntervalSecs: int64(cs.SnapshotIntervalSecs),
			SnapshotCameras:      cs.Cameras,
		})
		if err != nil {
			return fmt.Errorf("save chat %d: %w", cs.ChatID, err)
		}
	}
	return tx.Commit()
}
