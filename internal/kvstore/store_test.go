package kvstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
)

// stores returns every backend that can run without an external server.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smartsave.db")
	if err := RunMigrations(BackendSQLite, path); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	db, err := sql.Open(BackendSQLite, path)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	db.SetMaxOpenConns(1)
	sqlStore, err := NewSQLStore(db, BackendSQLite)
	if err != nil {
		t.Fatalf("NewSQLStore() error = %v", err)
	}
	t.Cleanup(func() { sqlStore.Close() })
	return map[string]Store{
		BackendMemory: NewMemoryStore(),
		BackendSQLite: sqlStore,
	}
}

func TestStore_GetSetRemove(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get() missing error = %v, want ErrNotFound", err)
			}
			if err := s.Set(ctx, "k", []byte(`{"a":1}`)); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if err := s.Set(ctx, "k", []byte(`{"a":2}`)); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			entry, err := s.Get(ctx, "k")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if entry.Version != 2 {
				t.Errorf("Get() version = %d, want 2", entry.Version)
			}
			var got map[string]int
			if err := json.Unmarshal(entry.Value, &got); err != nil || got["a"] != 2 {
				t.Errorf("Get() value = %s, want a=2", entry.Value)
			}
			if err := s.Remove(ctx, "k"); err != nil {
				t.Fatalf("Remove() error = %v", err)
			}
			if err := s.Remove(ctx, "k"); err != nil {
				t.Errorf("Remove() absent key error = %v, want nil", err)
			}
			if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get() after remove error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_SetIfVersion(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.SetIfVersion(ctx, "v", []byte(`1`), 3); !errors.Is(err, ErrVersionConflict) {
				t.Errorf("SetIfVersion() on absent key with version 3 error = %v, want conflict", err)
			}
			if err := s.SetIfVersion(ctx, "v", []byte(`1`), 0); err != nil {
				t.Fatalf("SetIfVersion() create error = %v", err)
			}
			if err := s.SetIfVersion(ctx, "v", []byte(`2`), 0); !errors.Is(err, ErrVersionConflict) {
				t.Errorf("SetIfVersion() create twice error = %v, want conflict", err)
			}
			if err := s.SetIfVersion(ctx, "v", []byte(`2`), 1); err != nil {
				t.Fatalf("SetIfVersion() update error = %v", err)
			}
			if err := s.SetIfVersion(ctx, "v", []byte(`3`), 1); !errors.Is(err, ErrVersionConflict) {
				t.Errorf("SetIfVersion() stale version error = %v, want conflict", err)
			}
		})
	}
}

func TestGetJSON(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Set(ctx, "corrupt", []byte(`{not json`))
	s.Set(ctx, "list", []byte(`["a","b"]`))

	tests := []struct {
		name string
		key  string
		want []string
	}{
		{name: "missing key yields default", key: "nope", want: []string{"default"}},
		{name: "corrupt value yields default", key: "corrupt", want: []string{"default"}},
		{name: "stored value decoded", key: "list", want: []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GetJSON(ctx, s, tt.key, []string{"default"})
			if err != nil {
				t.Fatalf("GetJSON() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("GetJSON() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUpdateJSON(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			next, err := UpdateJSON(ctx, s, "counter", 0, func(n int) (int, error) { return n + 1, nil })
			if err != nil || next != 1 {
				t.Fatalf("UpdateJSON() = %d, %v, want 1, nil", next, err)
			}
			failure := errors.New("boom")
			if _, err := UpdateJSON(ctx, s, "counter", 0, func(n int) (int, error) { return 0, failure }); !errors.Is(err, failure) {
				t.Errorf("UpdateJSON() error = %v, want %v", err, failure)
			}
			if got, _ := GetJSON(ctx, s, "counter", -1); got != 1 {
				t.Errorf("value after failed update = %d, want 1", got)
			}
			got, err := UpdateJSON(ctx, s, "counter", 0, func(n int) (int, error) { return n, ErrNoChange })
			if err != nil || got != 1 {
				t.Errorf("UpdateJSON() with ErrNoChange = %d, %v, want 1, nil", got, err)
			}
		})
	}
}

func TestUpdateJSON_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	const writers = 4
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				_, err := UpdateJSON(ctx, s, "n", 0, func(n int) (int, error) { return n + 1, nil })
				if err == nil {
					return
				}
			}
		}()
	}
	wg.Wait()
	if got, _ := GetJSON(ctx, s, "n", 0); got != writers {
		t.Errorf("concurrent increments = %d, want %d", got, writers)
	}
}

func TestWithNamespace(t *testing.T) {
	ctx := context.Background()
	base := NewMemoryStore()
	s := WithNamespace(base, "smartsave")
	if err := SetJSON(ctx, s, "savingsGoals", []int{1}); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}
	if _, err := base.Get(ctx, "smartsave:savingsGoals"); err != nil {
		t.Errorf("namespaced key not found in base store: %v", err)
	}
	if WithNamespace(base, "") != Store(base) {
		t.Errorf("WithNamespace() with empty namespace should return the base store")
	}
}
