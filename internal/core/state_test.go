package core

import (
	"testing"
	"time"

	"github.com/JonMunkholm/lexia/internal/tablequery"
)

func TestMemoryStateStore_GetSet(t *testing.T) {
	store := NewMemoryStateStore(0)
	key := StateKey("sess-1", "solicitudes")

	if _, ok := store.Get(key); ok {
		t.Fatal("Get() on empty store should miss")
	}

	q := TableQuery{Page: 3, Search: "tutela", Sort: tablequery.SortSpec{Key: "estado", Direction: tablequery.Desc}}
	store.Set(key, q)

	got, ok := store.Get(key)
	if !ok {
		t.Fatal("Get() after Set() should hit")
	}
	if got.Page != 3 || got.Search != "tutela" || got.Sort.Key != "estado" {
		t.Errorf("Get() = %+v, want %+v", got, q)
	}
	if _, ok := store.Get(StateKey("sess-2", "solicitudes")); ok {
		t.Error("sessions must not share state")
	}
}

func TestMemoryStateStore_Subscribe(t *testing.T) {
	store := NewMemoryStateStore(0)
	key := StateKey("s", "historial")

	ch, cancel := store.Subscribe(key)
	if _, ok := store.Get(key); ok {
		t.Error("Subscribe() alone should not create a readable state")
	}

	store.Set(key, TableQuery{Page: 2})
	select {
	case q := <-ch:
		if q.Page != 2 {
			t.Errorf("received page %d, want 2", q.Page)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive update")
	}

	cancel()
	cancel()
	if _, open := <-ch; open {
		t.Error("channel should be closed after cancel")
	}

	// Set after cancel must not panic on the closed channel.
	store.Set(key, TableQuery{Page: 3})
}

func TestMemoryStateStore_Eviction(t *testing.T) {
	store := NewMemoryStateStore(2)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	store.Set("a", TableQuery{Page: 1})
	store.Set("b", TableQuery{Page: 2})
	store.Set("a", TableQuery{Page: 11})
	store.Set("c", TableQuery{Page: 3})

	if store.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", store.Len())
	}
	if _, ok := store.Get("b"); ok {
		t.Error("least recently updated key should be evicted")
	}
	if q, ok := store.Get("a"); !ok || q.Page != 11 {
		t.Errorf("Get(a) = %+v, %v; want page 11", q, ok)
	}
}
