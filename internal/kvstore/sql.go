package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"time"

	_ "github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"
	_ "modernc.org/sqlite"
)

// DefaultSQLContextTimeout bounds every statement issued by SQLStore.
const DefaultSQLContextTimeout = 5 * time.Second

var placeholderRX = regexp.MustCompile(`\$\d+`)

const (
	getEntryQuery = `SELECT store_value, version FROM kv_store WHERE store_key = $1`
	upsertQuery   = `INSERT INTO kv_store (store_key, store_value, version, updated_at)
VALUES ($1, $2, 1, CURRENT_TIMESTAMP)
ON CONFLICT (store_key) DO UPDATE
SET store_value = excluded.store_value, version = kv_store.version + 1, updated_at = CURRENT_TIMESTAMP`
	insertNewQuery = `INSERT INTO kv_store (store_key, store_value, version, updated_at)
VALUES ($1, $2, 1, CURRENT_TIMESTAMP)
ON CONFLICT (store_key) DO NOTHING`
	updateVersionedQuery = `UPDATE kv_store
SET store_value = $1, version = version + 1, updated_at = CURRENT_TIMESTAMP
WHERE store_key = $2 AND version = $3`
	deleteQuery = `DELETE FROM kv_store WHERE store_key = $1`
)

// SQLStore keeps entries in the kv_store table of a postgres or sqlite database.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// NewSQLStore wraps an open connection pool. The schema must already exist,
// see RunMigrations.
func NewSQLStore(db *sql.DB, driver string) (*SQLStore, error) {
	if driver != BackendPostgres && driver != BackendSQLite {
		return nil, ErrUnknownBackend
	}
	return &SQLStore{db: db, driver: driver}, nil
}

// rebind turns $N placeholders into ? for sqlite.
func (s *SQLStore) rebind(query string) string {
	if s.driver == BackendSQLite {
		return placeholderRX.ReplaceAllString(query, "?")
	}
	return query
}

func (s *SQLStore) Get(ctx context.Context, key string) (Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultSQLContextTimeout)
	defer cancel()

	var value pqtype.NullRawMessage
	var entry Entry
	err := s.db.QueryRowContext(ctx, s.rebind(getEntryQuery), key).Scan(&value, &entry.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	if !value.Valid {
		return Entry{}, ErrNotFound
	}
	entry.Value = value.RawMessage
	return entry, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultSQLContextTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, s.rebind(upsertQuery), key, rawMessage(value))
	return err
}

func (s *SQLStore) SetIfVersion(ctx context.Context, key string, value []byte, version int64) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultSQLContextTimeout)
	defer cancel()

	var (
		result sql.Result
		err    error
	)
	if version == 0 {
		result, err = s.db.ExecContext(ctx, s.rebind(insertNewQuery), key, rawMessage(value))
	} else {
		result, err = s.db.ExecContext(ctx, s.rebind(updateVersionedQuery), rawMessage(value), key, version)
	}
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (s *SQLStore) Remove(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultSQLContextTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, s.rebind(deleteQuery), key)
	return err
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func rawMessage(value []byte) pqtype.NullRawMessage {
	return pqtype.NullRawMessage{RawMessage: value, Valid: value != nil}
}
