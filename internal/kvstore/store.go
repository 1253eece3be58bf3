package kvstore

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrNotFound        = errors.New("kvstore: key not found")
	ErrVersionConflict = errors.New("kvstore: version conflict")
	ErrUnknownBackend  = errors.New("kvstore: unknown backend")
	// ErrNoChange may be returned by an UpdateJSON callback to skip the write.
	ErrNoChange = errors.New("kvstore: no change")
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Backends lists every supported backend name.
var Backends = []string{BackendMemory, BackendRedis, BackendPostgres, BackendSQLite}

// MaxUpdateAttempts bounds the optimistic retry loop in UpdateJSON.
const MaxUpdateAttempts = 5

// Entry is a stored value together with its version stamp.
// Versions start at 1 and grow by one on every write.
type Entry struct {
	Value   []byte
	Version int64
}

// Store is a persistent key-value store of opaque (JSON) values.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetIfVersion writes value only if the stored version equals version.
	// A version of 0 means the key must not exist yet.
	SetIfVersion(ctx context.Context, key string, value []byte, version int64) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// GetJSON decodes the value under key into T. A missing key or a value that is
// not valid JSON for T yields def and a nil error. Backend failures yield def
// together with the error.
func GetJSON[T any](ctx context.Context, s Store, key string, def T) (T, error) {
	entry, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return def, nil
		}
		return def, err
	}
	var value T
	if err := json.Unmarshal(entry.Value, &value); err != nil {
		return def, nil
	}
	return value, nil
}

// SetJSON encodes v and stores it under key unconditionally.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, payload)
}

// Remove deletes key. Removing an absent key is not an error.
func Remove(ctx context.Context, s Store, key string) error {
	return s.Remove(ctx, key)
}

// UpdateJSON performs an optimistic read-modify-write on key. fn receives the
// current decoded value (def when missing or corrupt) and returns the next one.
// If fn fails nothing is written and its error is returned alongside the value
// it was given. The loop retries on version conflicts up to MaxUpdateAttempts.
func UpdateJSON[T any](ctx context.Context, s Store, key string, def T, fn func(current T) (T, error)) (T, error) {
	for attempt := 0; attempt < MaxUpdateAttempts; attempt++ {
		current, version, err := load(ctx, s, key, def)
		if err != nil {
			return def, err
		}
		next, err := fn(current)
		if err != nil {
			if errors.Is(err, ErrNoChange) {
				return current, nil
			}
			return current, err
		}
		payload, err := json.Marshal(next)
		if err != nil {
			return current, err
		}
		err = s.SetIfVersion(ctx, key, payload, version)
		switch {
		case err == nil:
			return next, nil
		case errors.Is(err, ErrVersionConflict):
			continue
		default:
			return current, err
		}
	}
	return def, ErrVersionConflict
}

func load[T any](ctx context.Context, s Store, key string, def T) (T, int64, error) {
	entry, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return def, 0, nil
		}
		return def, 0, err
	}
	var value T
	if err := json.Unmarshal(entry.Value, &value); err != nil {
		return def, entry.Version, nil
	}
	return value, entry.Version, nil
}

type namespaced struct {
	Store
	prefix string
}

// WithNamespace prefixes every key with "namespace:". An empty namespace
// returns s unchanged.
func WithNamespace(s Store, namespace string) Store {
	if namespace == "" {
		return s
	}
	return &namespaced{Store: s, prefix: namespace + ":"}
}

func (n *namespaced) Get(ctx context.Context, key string) (Entry, error) {
	return n.Store.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key string, value []byte) error {
	return n.Store.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) SetIfVersion(ctx context.Context, key string, value []byte, version int64) error {
	return n.Store.SetIfVersion(ctx, n.prefix+key, value, version)
}

func (n *namespaced) Remove(ctx context.Context, key string) error {
	return n.Store.Remove(ctx, n.prefix+key)
}
