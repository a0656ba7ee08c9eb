package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

type fakeEntry struct {
	ID   string `json:"id"`
	Note string `json:"note"`
}

func (e fakeEntry) EntryID() string { return e.ID }

func TestLedger_AppendMostRecentFirst(t *testing.T) {
	l := NewLedger[fakeEntry](nil)

	l.Append(fakeEntry{ID: "1"})
	l.Append(fakeEntry{ID: "2"})
	l.Append(fakeEntry{ID: "3"})

	got := l.List()
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].ID != "3" || got[1].ID != "2" || got[2].ID != "1" {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestLedger_EvictsOldestPastCap(t *testing.T) {
	l := NewLedger[fakeEntry](nil)

	for i := 1; i <= DefaultCap+1; i++ {
		l.Append(fakeEntry{ID: fmt.Sprintf("e%d", i)})
	}

	if l.Len() != DefaultCap {
		t.Fatalf("expected cap %d, got %d", DefaultCap, l.Len())
	}
	got := l.List()
	if got[0].ID != fmt.Sprintf("e%d", DefaultCap+1) {
		t.Fatalf("expected newest first, got %s", got[0].ID)
	}
	for _, e := range got {
		if e.ID == "e1" {
			t.Fatalf("oldest entry should have been evicted")
		}
	}
}

func TestLedger_UpdatePatchesInPlace(t *testing.T) {
	l := NewLedger[fakeEntry](nil)
	l.Append(fakeEntry{ID: "a"})
	l.Append(fakeEntry{ID: "b"})

	l.Update("a", func(e *fakeEntry) { e.Note = "patched" })

	got := l.List()
	if got[1].ID != "a" || got[1].Note != "patched" {
		t.Fatalf("expected patched entry, got %+v", got[1])
	}
	if got[0].Note != "" {
		t.Fatalf("unrelated entry mutated: %+v", got[0])
	}
}

func TestLedger_UpdateMissingIDIsNoOp(t *testing.T) {
	l := NewLedger[fakeEntry](nil)
	l.Append(fakeEntry{ID: "a"})

	l.Update("evicted", func(e *fakeEntry) { e.Note = "should not apply" })

	got := l.List()
	if len(got) != 1 || got[0].Note != "" {
		t.Fatalf("update of missing id must be a no-op, got %v", got)
	}
}

func TestLedger_ListReturnsSnapshot(t *testing.T) {
	l := NewLedger[fakeEntry](nil)
	l.Append(fakeEntry{ID: "a"})

	snap := l.List()
	snap[0].Note = "mutated copy"

	if l.List()[0].Note != "" {
		t.Fatalf("List must return a copy")
	}
}

type memStore struct {
	data    map[string][]byte
	saveErr error
	saves   int
}

func (s *memStore) Save(ctx context.Context, key string, snapshot []byte) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	if s.data == nil {
		s.data = map[string][]byte{}
	}
	s.data[key] = snapshot
	return nil
}

func (s *memStore) Load(ctx context.Context, key string) ([]byte, error) {
	return s.data[key], nil
}

func TestLedger_PersistsAndReloads(t *testing.T) {
	store := &memStore{}

	l := NewLedger[fakeEntry](nil, WithStore[fakeEntry](store, KeyCallHistory))
	l.Append(fakeEntry{ID: "a", Note: "first"})
	l.Append(fakeEntry{ID: "b"})
	l.Update("b", func(e *fakeEntry) { e.Note = "done" })

	var persisted []fakeEntry
	if err := json.Unmarshal(store.data[KeyCallHistory], &persisted); err != nil {
		t.Fatalf("persisted snapshot not valid JSON: %v", err)
	}
	if len(persisted) != 2 || persisted[0].Note != "done" {
		t.Fatalf("unexpected persisted snapshot: %v", persisted)
	}

	reloaded := NewLedger[fakeEntry](nil, WithStore[fakeEntry](store, KeyCallHistory))
	got := reloaded.List()
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("unexpected reloaded entries: %v", got)
	}
}

func TestLedger_PersistFailureDoesNotBreakMutation(t *testing.T) {
	store := &memStore{saveErr: errors.New("redis down")}

	l := NewLedger[fakeEntry](nil, WithStore[fakeEntry](store, KeySMSHistory))
	l.Append(fakeEntry{ID: "a"})

	if l.Len() != 1 {
		t.Fatalf("append must survive persistence failure")
	}
}

func TestLedger_UpdateMissingDoesNotPersist(t *testing.T) {
	store := &memStore{}
	l := NewLedger[fakeEntry](nil, WithStore[fakeEntry](store, KeyCallHistory))
	l.Append(fakeEntry{ID: "a"})
	before := store.saves

	l.Update("missing", func(e *fakeEntry) {})

	if store.saves != before {
		t.Fatalf("no-op update should not persist")
	}
}
