package db

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaSQL is compiled into the binary at build time so schema init works
// wherever the binary runs, without shipping the .sql file alongside it.
//
//go:embed schema.sql
var schemaSQL string

// Store is the agent's operational database: the installation GUID singleton
// and the trade blacklist. Matching itself never depends on it.
type Store struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx.
func Connect(ctx context.Context, connStr string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	log.Println("[DB] Connected to PostgreSQL")
	return &Store{pool: pool}, nil
}

// Close gracefully closes the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema executes the embedded schema.sql DDL statements.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema migrations: %w", err)
	}

	log.Println("[DB] Schema initialized")
	return nil
}

// InstallationGUID returns the installation's stable identifier, seeding the
// singleton row on first call. Concurrent first calls race on the insert;
// the conflict clause makes the first writer win and everyone read its value.
func (s *Store) InstallationGUID(ctx context.Context) (string, error) {
	candidate := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO installation (id, guid) VALUES (1, $1) ON CONFLICT (id) DO NOTHING`,
		candidate)
	if err != nil {
		return "", fmt.Errorf("seed installation guid: %w", err)
	}

	var guid string
	if err := s.pool.QueryRow(ctx, `SELECT guid FROM installation WHERE id = 1`).Scan(&guid); err != nil {
		return "", fmt.Errorf("read installation guid: %w", err)
	}
	return guid, nil
}

// BlacklistEntry is one blacklisted counterparty, as served by the API.
type BlacklistEntry struct {
	SteamID uint64    `json:"steam_id"`
	Reason  string    `json:"reason,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

// AddBlacklisted inserts or updates a blacklist row.
func (s *Store) AddBlacklisted(ctx context.Context, steamID uint64, reason string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trade_blacklist (steam_id, reason) VALUES ($1, $2)
		ON CONFLICT (steam_id) DO UPDATE SET reason = EXCLUDED.reason
	`, int64(steamID), reason)
	if err != nil {
		return fmt.Errorf("blacklist %d: %w", steamID, err)
	}
	return nil
}

// RemoveBlacklisted deletes a blacklist row, reporting whether it existed.
func (s *Store) RemoveBlacklisted(ctx context.Context, steamID uint64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trade_blacklist WHERE steam_id = $1`, int64(steamID))
	if err != nil {
		return false, fmt.Errorf("unblacklist %d: %w", steamID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListBlacklisted returns every blacklist row, newest first.
func (s *Store) ListBlacklisted(ctx context.Context) ([]BlacklistEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT steam_id, reason, added_at FROM trade_blacklist ORDER BY added_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list blacklist: %w", err)
	}
	defer rows.Close()

	entries := []BlacklistEntry{}
	for rows.Next() {
		var e BlacklistEntry
		var id int64
		if err := rows.Scan(&id, &e.Reason, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("scan blacklist row: %w", err)
		}
		e.SteamID = uint64(id)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Blacklisted returns the blacklisted steam IDs as a set, in the shape
// candidate selection consumes each matching round.
func (s *Store) Blacklisted(ctx context.Context) (map[uint64]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT steam_id FROM trade_blacklist`)
	if err != nil {
		return nil, fmt.Errorf("load blacklist: %w", err)
	}
	defer rows.Close()

	set := make(map[uint64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan blacklist row: %w", err)
		}
		set[uint64(id)] = struct{}{}
	}
	return set, rows.Err()
}
