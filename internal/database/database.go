package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DSN options: WAL keeps readers from blocking during imports, busy_timeout
// covers the brief window where the rebuild swaps database files.
const dsnOptions = "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"

func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// SQLite allows a single writer; one connection avoids lock contention.
	db.SetMaxOpenConns(1)

	return db, nil
}
