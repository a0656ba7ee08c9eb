// Package history implements the bounded record ledgers backing the call
// and message history views.
package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// DefaultCap bounds each ledger. Insertion beyond the cap evicts the
// oldest entry.
const DefaultCap = 100

// Entry is anything the ledger can hold.
type Entry interface {
	EntryID() string
}

// Store persists a ledger snapshot under a fixed key. Implementations
// are best-effort: the ledger logs persistence failures and moves on.
type Store interface {
	Save(ctx context.Context, key string, snapshot []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
}

// Ledger is an ordered, size-capped record store. Most recent entries
// come first. The ledger exclusively owns its entries; callers mutate
// only through Append and Update.
type Ledger[T Entry] struct {
	mu      sync.Mutex
	entries []T
	cap     int

	store Store
	key   string
	log   *slog.Logger
}

type Option[T Entry] func(*Ledger[T])

// WithCap overrides the default capacity.
func WithCap[T Entry](n int) Option[T] {
	return func(l *Ledger[T]) {
		if n > 0 {
			l.cap = n
		}
	}
}

// WithStore attaches persistence under the given key. Existing entries
// are loaded eagerly; a load failure leaves the ledger empty.
func WithStore[T Entry](s Store, key string) Option[T] {
	return func(l *Ledger[T]) {
		l.store = s
		l.key = key
	}
}

func NewLedger[T Entry](log *slog.Logger, opts ...Option[T]) *Ledger[T] {
	if log == nil {
		log = slog.Default()
	}
	l := &Ledger[T]{cap: DefaultCap, log: log}
	for _, opt := range opts {
		opt(l)
	}
	l.load()
	return l
}

// Append inserts e at the front, evicting from the back past capacity.
func (l *Ledger[T]) Append(e T) {
	l.mu.Lock()
	l.entries = append([]T{e}, l.entries...)
	if len(l.entries) > l.cap {
		l.entries = l.entries[:l.cap]
	}
	snapshot := l.snapshotLocked()
	l.mu.Unlock()

	l.persist(snapshot)
}

// Update applies patch to the entry with the given id. Records are
// usually touched right after insertion, so the scan is front-biased.
// A missing id is a silent no-op: the entry may have been evicted, and
// losing a late update to an evicted record is accepted.
func (l *Ledger[T]) Update(id string, patch func(*T)) {
	l.mu.Lock()
	var snapshot []T
	for i := range l.entries {
		if l.entries[i].EntryID() == id {
			patch(&l.entries[i])
			snapshot = l.snapshotLocked()
			break
		}
	}
	l.mu.Unlock()

	if snapshot != nil {
		l.persist(snapshot)
	}
}

// List returns a copy of the entries, most recent first.
func (l *Ledger[T]) List() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Len reports the current number of entries.
func (l *Ledger[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Ledger[T]) snapshotLocked() []T {
	out := make([]T, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Ledger[T]) load() {
	if l.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	raw, err := l.store.Load(ctx, l.key)
	if err != nil {
		l.log.Warn("history load failed", "key", l.key, "err", err)
		return
	}
	if len(raw) == 0 {
		return
	}
	var entries []T
	if err := json.Unmarshal(raw, &entries); err != nil {
		l.log.Warn("history decode failed", "key", l.key, "err", err)
		return
	}
	if len(entries) > l.cap {
		entries = entries[:l.cap]
	}
	l.entries = entries
}

func (l *Ledger[T]) persist(snapshot []T) {
	if l.store == nil {
		return
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		l.log.Warn("history encode failed", "key", l.key, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.store.Save(ctx, l.key, raw); err != nil {
		l.log.Warn("history persist failed", "key", l.key, "err", err)
	}
}
