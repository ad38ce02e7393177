package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"restaurants/internal/shared"

	"github.com/google/uuid"
)

type SQLiteStore struct {
	DB *sql.DB

	newID IDFunc
	log   *slog.Logger
}

// NewSQLiteStore wraps a migrated database. seed is inserted only when the
// restaurants table is empty.
func NewSQLiteStore(ctx context.Context, db *sql.DB, log *slog.Logger, newID IDFunc, seed []shared.Restaurant) (*SQLiteStore, error) {
	if newID == nil {
		newID = uuid.NewString
	}
	if log == nil {
		log = slog.Default()
	}
	s := &SQLiteStore{DB: db, newID: newID, log: log}

	n, err := s.Len(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		for _, r := range seed {
			if err := s.insert(ctx, s.DB, r); err != nil {
				return nil, fmt.Errorf("seed %s: %w", r.ID, err)
			}
		}
	}
	return s, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) insert(ctx context.Context, db execer, r shared.Restaurant) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO restaurants (id, name, cuisine, has_takeout) VALUES (?, ?, ?, ?)`,
		r.ID, r.Name, r.Cuisine, r.HasTakeout,
	)
	return err
}

func (s *SQLiteStore) List(ctx context.Context) ([]shared.Restaurant, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, cuisine, has_takeout FROM restaurants ORDER BY seq`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []shared.Restaurant{}
	for rows.Next() {
		var r shared.Restaurant
		if err := rows.Scan(&r.ID, &r.Name, &r.Cuisine, &r.HasTakeout); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRestaurant(ctx context.Context, db queryRower, id string) (shared.Restaurant, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, name, cuisine, has_takeout FROM restaurants WHERE id = ?`, id,
	)
	var r shared.Restaurant
	if err := row.Scan(&r.ID, &r.Name, &r.Cuisine, &r.HasTakeout); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return shared.Restaurant{}, ErrNotFound
		}
		return shared.Restaurant{}, err
	}
	return r, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (shared.Restaurant, error) {
	return getRestaurant(ctx, s.DB, id)
}

func (s *SQLiteStore) Create(ctx context.Context, r shared.Restaurant) (shared.Restaurant, error) {
	r.ID = s.newID()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := getRestaurant(ctx, tx, r.ID); err == nil {
			s.log.Error("restaurant id collision", "id", r.ID)
			return ErrIDCollision
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		return s.insert(ctx, tx, r)
	})
	if err != nil {
		return shared.Restaurant{}, err
	}
	return r, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, patch shared.RestaurantPatch) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		cur, err := getRestaurant(ctx, tx, id)
		if err != nil {
			return err
		}
		next := patch.Apply(cur)
		_, err = tx.ExecContext(ctx,
			`UPDATE restaurants SET name=?, cuisine=?, has_takeout=? WHERE id=?`,
			next.Name, next.Cuisine, next.HasTakeout, id,
		)
		return err
	})
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM restaurants WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM restaurants`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
