package photos

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS photos (
	id            SERIAL PRIMARY KEY,
	photo_url     TEXT NOT NULL,
	uploader_name VARCHAR(255),
	"timestamp"   BIGINT
)`

const insertSQL = `
INSERT INTO photos (photo_url, uploader_name, "timestamp")
VALUES ($1, $2, $3)
RETURNING id`

const listSQL = `
SELECT id, photo_url, COALESCE(uploader_name, ''), COALESCE("timestamp", 0)
FROM photos
ORDER BY "timestamp" DESC, id DESC`

// PostgresStore talks to PostgreSQL with a fresh pgx connection per call.
type PostgresStore struct {
	dsn string
}

// NewPostgresStore does not connect; connections are opened per call.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}
	if _, err := pgx.ParseConfig(databaseURL); err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	return &PostgresStore{dsn: databaseURL}, nil
}

// withConn opens a connection, optionally ensures the table, runs fn and
// closes the connection whatever fn did.
func (s *PostgresStore) withConn(ctx context.Context, ensure bool, fn func(conn *pgx.Conn) error) (err error) {
	conn, err := pgx.Connect(ctx, s.dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		// Close with a fresh context so a cancelled request still releases the connection.
		if cerr := conn.Close(context.Background()); cerr != nil && err == nil {
			err = fmt.Errorf("close: %w", cerr)
		}
	}()

	if ensure {
		if _, err := conn.Exec(ctx, createTableSQL); err != nil {
			return fmt.Errorf("ensure photos table: %w", err)
		}
	}

	return fn(conn)
}

// Insert writes one record and returns it with the assigned id.
func (s *PostgresStore) Insert(ctx context.Context, p NewPhoto) (PhotoRecord, error) {
	if err := p.validate(); err != nil {
		return PhotoRecord{}, err
	}

	rec := PhotoRecord{
		PhotoURL:     p.PhotoURL,
		UploaderName: p.UploaderName,
		Timestamp:    p.Timestamp,
	}
	err := s.withConn(ctx, true, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, insertSQL, p.PhotoURL, p.UploaderName, p.Timestamp).Scan(&rec.ID)
	})
	if err != nil {
		return PhotoRecord{}, fmt.Errorf("insert photo: %w", err)
	}
	return rec, nil
}

// List returns all records ordered by timestamp descending.
func (s *PostgresStore) List(ctx context.Context) ([]PhotoRecord, error) {
	out := make([]PhotoRecord, 0)
	err := s.withConn(ctx, true, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, listSQL)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var rec PhotoRecord
			if err := rows.Scan(&rec.ID, &rec.PhotoURL, &rec.UploaderName, &rec.Timestamp); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	return out, nil
}

// Ping opens and closes a connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.withConn(ctx, false, func(conn *pgx.Conn) error {
		return conn.Ping(ctx)
	})
}
