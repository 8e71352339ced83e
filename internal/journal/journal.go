// Package journal persists every committed block to SQLite so a node keeps an
// audit trail of all lobby, game and player activity.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/lox/majorules/internal/chainid"
	"github.com/lox/majorules/internal/identity"
	"github.com/lox/majorules/internal/ledger"
	"github.com/lox/majorules/internal/protocol"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schema string

// ErrDuplicateBlock is returned when a chain height is recorded twice.
var ErrDuplicateBlock = errors.New("journal: block already recorded")

// Store is a SQLite block journal. It satisfies ledger.Journal.
type Store struct {
	db *sql.DB
}

var _ ledger.Journal = (*Store)(nil)

// Open opens (creating if needed) the journal at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends one block.
func (s *Store) Record(ctx context.Context, b ledger.Block) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blocks (chain, height, timestamp, kind, signer, origin, bounced, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(b.Chain),
		int64(b.Height),
		b.Timestamp.UTC().UnixMicro(),
		string(b.Kind),
		string(b.Signer),
		string(b.Origin),
		b.Bounced,
		b.Payload,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: %s@%d", ErrDuplicateBlock, b.Chain.Short(), b.Height)
		}
		return fmt.Errorf("insert block: %w", err)
	}
	return nil
}

// Blocks returns a chain's blocks in height order.
func (s *Store) Blocks(ctx context.Context, chain chainid.ID) ([]ledger.Block, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chain, height, timestamp, kind, signer, origin, bounced, payload
		 FROM blocks WHERE chain = ? ORDER BY height`,
		string(chain),
	)
	if err != nil {
		return nil, fmt.Errorf("query blocks: %w", err)
	}
	defer rows.Close()

	var out []ledger.Block
	for rows.Next() {
		var (
			b                        ledger.Block
			id, kind, signer, origin string
			height, micros           int64
		)
		if err := rows.Scan(&id, &height, &micros, &kind, &signer, &origin, &b.Bounced, &b.Payload); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		b.Chain = chainid.ID(id)
		b.Height = uint64(height)
		b.Timestamp = time.UnixMicro(micros).UTC()
		b.Kind = protocol.Kind(kind)
		b.Signer = identity.PlayerID(signer)
		b.Origin = chainid.ID(origin)
		out = append(out, b)
	}
	return out, rows.Err()
}

// Count returns the number of recorded blocks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blocks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count blocks: %w", err)
	}
	return n, nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
