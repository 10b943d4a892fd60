package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pokerdealer/dealerd/internal/directory"
	"github.com/pokerdealer/dealerd/internal/models"
)

// Rooms live in a single document table: the code is the key, the room is a
// JSONB blob, and last_active drives the janitor sweep.
const roomsSchema = `
CREATE TABLE IF NOT EXISTS rooms (
	code        text PRIMARY KEY,
	doc         jsonb NOT NULL,
	created_at  timestamptz NOT NULL DEFAULT now(),
	last_active timestamptz NOT NULL DEFAULT now()
)`

// RoomStore is the Postgres-backed directory.Store. All mutations run in a
// transaction holding a row lock on the room, so the capacity and role
// checks the directory performs inside Update cannot race each other.
type RoomStore struct {
	pool *pgxpool.Pool
}

func NewRoomStore(pool *pgxpool.Pool) *RoomStore {
	return &RoomStore{pool: pool}
}

// EnsureSchema creates the rooms table if it is missing.
func (s *RoomStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, roomsSchema); err != nil {
		return fmt.Errorf("ensure rooms schema: %w", err)
	}
	return nil
}

func (s *RoomStore) Create(ctx context.Context, room *models.Room) error {
	doc, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room %s: %w", room.Code, err)
	}
	q := `INSERT INTO rooms (code, doc, created_at, last_active) VALUES ($1, $2, $3, $4)`
	_, err = s.pool.Exec(ctx, q, room.Code, doc, room.Created, room.LastActive)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return directory.ErrCodeTaken
		}
		return fmt.Errorf("insert room %s: %w", room.Code, err)
	}
	return nil
}

func (s *RoomStore) Get(ctx context.Context, code string) (*models.Room, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM rooms WHERE code = $1`, code).Scan(&doc)
	if err == pgx.ErrNoRows {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select room %s: %w", code, err)
	}
	return decodeRoom(code, doc)
}

func (s *RoomStore) Update(ctx context.Context, code string, fn func(*models.Room) error) (*models.Room, error) {
	var updated *models.Room
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var doc []byte
		err := tx.QueryRow(ctx, `SELECT doc FROM rooms WHERE code = $1 FOR UPDATE`, code).Scan(&doc)
		if err == pgx.ErrNoRows {
			return directory.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock room %s: %w", code, err)
		}

		room, err := decodeRoom(code, doc)
		if err != nil {
			return err
		}
		if err := fn(room); err != nil {
			return err
		}
		room.LastActive = time.Now()

		next, err := json.Marshal(room)
		if err != nil {
			return fmt.Errorf("marshal room %s: %w", code, err)
		}
		_, err = tx.Exec(ctx, `UPDATE rooms SET doc = $2, last_active = $3 WHERE code = $1`,
			code, next, room.LastActive)
		if err != nil {
			return fmt.Errorf("update room %s: %w", code, err)
		}
		updated = room
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *RoomStore) Delete(ctx context.Context, code string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM rooms WHERE code = $1`, code); err != nil {
		return fmt.Errorf("delete room %s: %w", code, err)
	}
	return nil
}

func (s *RoomStore) DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rooms WHERE last_active < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire idle rooms: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func decodeRoom(code string, doc []byte) (*models.Room, error) {
	var room models.Room
	if err := json.Unmarshal(doc, &room); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", code, err)
	}
	return &room, nil
}
