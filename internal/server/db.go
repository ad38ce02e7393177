package server

import (
	"context"
	"database/sql"
	"log/slog"

	_ "modernc.org/sqlite"
)

// memoryDSN is a private in-memory database. Each connection would get its
// own copy, so the pool is pinned to one connection that never expires.
const memoryDSN = ":memory:"

func OpenMemoryDB(ctx context.Context, log *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite", memoryDSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys=ON;`); err != nil {
		db.Close()
		return nil, err
	}
	if err := RunMigrations(ctx, db, log); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
