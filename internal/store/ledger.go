package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/w3f/edunews/internal/ledger"
)

// LedgerBackend is the storage of one named ledger inside a Store.
// It satisfies devnet.Backend.
type LedgerBackend struct {
	s    *Store
	name string
}

// Ledger returns the backend for the named ledger.
func (s *Store) Ledger(name string) *LedgerBackend {
	return &LedgerBackend{s: s, name: name}
}

func (b *LedgerBackend) Name() string { return b.name }

func (b *LedgerBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := b.s.db.QueryRowContext(ctx,
		`SELECT value FROM storage WHERE ledger = ? AND key = ?`,
		b.name, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s: %w", b.name, key, err)
	}
	return value, true, nil
}

func (b *LedgerBackend) Head(ctx context.Context) (ledger.Block, bool, error) {
	row := b.s.db.QueryRowContext(ctx, `
		SELECT number, hash, parent_hash, timestamp, extrinsics
		FROM blocks
		WHERE ledger = ?
		ORDER BY number DESC
		LIMIT 1
	`, b.name)
	blk, err := scanBlock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Block{}, false, nil
	}
	if err != nil {
		return ledger.Block{}, false, fmt.Errorf("head %s: %w", b.name, err)
	}
	return blk, true, nil
}

// Commit writes the block and its state changes in one transaction.
// A block number that already exists is an error.
func (b *LedgerBackend) Commit(ctx context.Context, blk ledger.Block, writes map[string][]byte) error {
	exts, err := json.Marshal(nonNil(blk.Extrinsics))
	if err != nil {
		return fmt.Errorf("commit %s: %w", b.name, err)
	}

	tx, err := b.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit %s: begin: %w", b.name, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO blocks (ledger, number, hash, parent_hash, timestamp, extrinsics)
		VALUES (?, ?, ?, ?, ?, ?)
	`, b.name, blk.Number, blk.Hash, blk.ParentHash, blk.Timestamp, string(exts))
	if err != nil {
		return fmt.Errorf("commit %s: insert block %d: %w", b.name, blk.Number, err)
	}

	for key, value := range writes {
		if value == nil {
			_, err = tx.ExecContext(ctx,
				`DELETE FROM storage WHERE ledger = ? AND key = ?`, b.name, key)
		} else {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO storage (ledger, key, value, updated_at)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(ledger, key) DO UPDATE SET
					value = excluded.value,
					updated_at = excluded.updated_at
			`, b.name, key, value, blk.Number)
		}
		if err != nil {
			return fmt.Errorf("commit %s: write %s: %w", b.name, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", b.name, err)
	}
	return nil
}

// Blocks returns up to limit blocks, newest first.
// Returns an empty slice (not nil) when the ledger has no blocks.
func (b *LedgerBackend) Blocks(ctx context.Context, limit int) ([]ledger.Block, error) {
	rows, err := b.s.db.QueryContext(ctx, `
		SELECT number, hash, parent_hash, timestamp, extrinsics
		FROM blocks
		WHERE ledger = ?
		ORDER BY number DESC
		LIMIT ?
	`, b.name, limit)
	if err != nil {
		return nil, fmt.Errorf("blocks %s: %w", b.name, err)
	}
	defer rows.Close()

	blocks := []ledger.Block{}
	for rows.Next() {
		blk, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("blocks %s: %w", b.name, err)
		}
		blocks = append(blocks, blk)
	}
	return blocks, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBlock(row scanner) (ledger.Block, error) {
	var (
		blk  ledger.Block
		exts string
	)
	if err := row.Scan(&blk.Number, &blk.Hash, &blk.ParentHash, &blk.Timestamp, &exts); err != nil {
		return ledger.Block{}, err
	}
	if err := json.Unmarshal([]byte(exts), &blk.Extrinsics); err != nil {
		return ledger.Block{}, fmt.Errorf("decode extrinsics: %w", err)
	}
	return blk, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
