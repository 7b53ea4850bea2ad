package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS vault_data (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

const sqliteUpsert = `
INSERT INTO vault_data (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

// SQLiteBackend stores vault records in a single-table SQLite file
type SQLiteBackend struct{}

// NewSQLiteBackend creates a SQLite-backed store
func NewSQLiteBackend() *SQLiteBackend {
	return &SQLiteBackend{}
}

// Kind implements Backend
func (b *SQLiteBackend) Kind() string { return BackendSQLite }

func openSQLite(path string, readOnly bool) (*sql.DB, error) {
	dsn := "file:" + path + "?_busy_timeout=1000"
	if readOnly {
		dsn += "&mode=ro"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// Save implements Backend
func (b *SQLiteBackend) Save(path string, rec Record) (err error) {
	if !rec.Complete() {
		return storageErr("save vault", errors.New("record must carry both vault data and salt"))
	}
	if err := os.MkdirAll(filepath.Dir(path), DirPermSecure); err != nil {
		return storageErr("save vault", fmt.Errorf("failed to create directory: %w", err))
	}

	db, err := openSQLite(path, false)
	if err != nil {
		return storageErr("save vault", err)
	}
	defer db.Close()

	if _, err := db.Exec(sqliteSchema); err != nil {
		return storageErr("save vault", fmt.Errorf("failed to create table: %w", err))
	}

	tx, err := db.Begin()
	if err != nil {
		return storageErr("save vault", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, kv := range [][2]string{{KeyVaultData, rec.Data}, {KeySalt, rec.Salt}} {
		if _, err = tx.Exec(sqliteUpsert, kv[0], kv[1]); err != nil {
			return storageErr("save vault", fmt.Errorf("failed to write %s: %w", kv[0], err))
		}
	}
	if err = tx.Commit(); err != nil {
		return storageErr("save vault", err)
	}

	if err := os.Chmod(path, FilePermSecure); err != nil {
		return storageErr("save vault", err)
	}
	return nil
}

// Load implements Backend
func (b *SQLiteBackend) Load(path string) (Record, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Record{}, nil
		}
		return Record{}, storageErr("load vault", err)
	}

	db, err := openSQLite(path, true)
	if err != nil {
		return Record{}, storageErr("load vault", err)
	}
	defer db.Close()

	values, err := readValues(db)
	if err != nil {
		return Record{}, storageErr("load vault", err)
	}
	return Record{Data: values[KeyVaultData], Salt: values[KeySalt]}, nil
}

// Describe implements Backend
func (b *SQLiteBackend) Describe(path string) (Info, error) {
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Info{Exists: false}, nil
		}
		return Info{}, storageErr("describe vault", err)
	}

	db, err := openSQLite(path, true)
	if err != nil {
		return Info{}, storageErr("describe vault", err)
	}
	defer db.Close()

	values, err := readValues(db)
	if err != nil {
		return Info{}, storageErr("describe vault", err)
	}

	info := Info{Exists: true, Size: stat.Size()}
	for k := range values {
		info.Keys = append(info.Keys, k)
	}
	fillFlags(&info)
	return info, nil
}

// readValues returns every key/value row. A file without the table
// yields an empty map.
func readValues(db *sql.DB) (map[string]string, error) {
	var n int
	err := db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'vault_data'`).Scan(&n)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect schema: %w", err)
	}
	values := make(map[string]string)
	if n == 0 {
		return values, nil
	}

	rows, err := db.Query(`SELECT key, value FROM vault_data`)
	if err != nil {
		return nil, fmt.Errorf("failed to query values: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		values[k] = v
	}
	return values, rows.Err()
}

// Compact rebuilds the database file with VACUUM
func (b *SQLiteBackend) Compact(path string) error {
	if _, err := os.Stat(path); err != nil {
		return storageErr("compact vault", err)
	}

	db, err := openSQLite(path, false)
	if err != nil {
		return storageErr("compact vault", err)
	}
	defer db.Close()

	if _, err := db.Exec(`VACUUM`); err != nil {
		return storageErr("compact vault", err)
	}
	return nil
}
