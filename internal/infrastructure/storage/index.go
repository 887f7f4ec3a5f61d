package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// ArchiveMeta - строка индекса архивов.
type ArchiveMeta struct {
	SessionID  string
	Name       string
	Turns      int
	Players    int
	Path       string
	ArchivedAt int64
}

// Index хранит каталог архивов в sqlite (единственный писатель).
type Index struct {
	mu sync.Mutex
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS archives (
	session_id  TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	turns       INTEGER NOT NULL,
	players     INTEGER NOT NULL,
	path        TEXT NOT NULL,
	archived_at INTEGER NOT NULL
);`

func OpenIndex(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Один писатель: sqlite не любит конкурирующие записи
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Index{db: db}, nil
}

// Record регистрирует архив. Повторная запись той же сессии перезаписывает строку.
func (ix *Index) Record(meta ArchiveMeta) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	_, err := ix.db.Exec(
		`INSERT OR REPLACE INTO archives (session_id, name, turns, players, path, archived_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		meta.SessionID, meta.Name, meta.Turns, meta.Players, meta.Path, meta.ArchivedAt,
	)
	return err
}

// List возвращает каталог архивов, новые первыми.
func (ix *Index) List() ([]ArchiveMeta, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	rows, err := ix.db.Query(
		`SELECT session_id, name, turns, players, path, archived_at
		 FROM archives ORDER BY archived_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ArchiveMeta
	for rows.Next() {
		var m ArchiveMeta
		if err := rows.Scan(&m.SessionID, &m.Name, &m.Turns, &m.Players, &m.Path, &m.ArchivedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.db.Close()
}
