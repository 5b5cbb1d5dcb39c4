// Package leaderboard keeps the local top-10 quiz scores.
package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// Key is the storage key the board is kept under.
	Key = "insignia.leaderboard.v2"
	// Size is the number of entries kept.
	Size = 10
)

var ErrEmptyName = errors.New("name is required")

type Entry struct {
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is a string key/value store, the shape of a browser's localStorage.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Board serializes read-sort-truncate-write cycles so two quick submissions cannot lose an update.
type Board struct {
	store Store
	key   string
	mu    sync.Mutex
}

func New(store Store, key string) *Board {
	if key == "" {
		key = Key
	}
	return &Board{store: store, key: key}
}

// List returns the stored entries. Unreadable JSON counts as an empty board.
func (b *Board) List(ctx context.Context) ([]Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load(ctx)
}

// Submit appends an entry and rewrites the board sorted by score, keeping the top Size.
func (b *Board) Submit(ctx context.Context, name string, score int, at time.Time) (Entry, []Entry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Entry{}, nil, ErrEmptyName
	}
	e := Entry{Name: name, Score: score, Timestamp: at.UTC()}

	b.mu.Lock()
	defer b.mu.Unlock()
	rows, err := b.load(ctx)
	if err != nil {
		return Entry{}, nil, err
	}
	rows = Rank(append(rows, e))
	raw, err := json.Marshal(rows)
	if err != nil {
		return Entry{}, nil, err
	}
	if err := b.store.Set(ctx, b.key, string(raw)); err != nil {
		return Entry{}, nil, err
	}
	return e, rows, nil
}

func (b *Board) load(ctx context.Context) ([]Entry, error) {
	raw, ok, err := b.store.Get(ctx, b.key)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return []Entry{}, nil
	}
	var rows []Entry
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return []Entry{}, nil
	}
	return rows, nil
}

// Rank sorts entries by score, highest first, keeping insertion order on ties, and truncates to Size.
func Rank(rows []Entry) []Entry {
	out := append([]Entry(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > Size {
		out = out[:Size]
	}
	return out
}
