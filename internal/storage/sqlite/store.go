package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/doorlock/internal/common"
	"github.com/dmitrijs2005/doorlock/internal/dbx"
	"github.com/dmitrijs2005/doorlock/internal/storage"
)

// Store implements storage.ByteStore on a "cells" table. Missing rows read
// as storage.Erased.
type Store struct {
	db   *sql.DB
	size int
}

func New(db *sql.DB, size int) *Store {
	if size <= 0 {
		size = storage.DefaultSize
	}
	return &Store{db: db, size: size}
}

func (s *Store) Put(ctx context.Context, addr uint16, b byte) error {
	if int(addr) >= s.size {
		return fmt.Errorf("put %#04x: %w", addr, common.ErrAddressRange)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cells (address, value) VALUES (?, ?)
		ON CONFLICT(address) DO UPDATE SET value = excluded.value, written_at = CURRENT_TIMESTAMP
	`, int(addr), int(b))
	if err != nil {
		return fmt.Errorf("failed to put cell[%#04x]: %w", addr, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, addr uint16) (byte, error) {
	if int(addr) >= s.size {
		return 0, fmt.Errorf("get %#04x: %w", addr, common.ErrAddressRange)
	}
	var value int
	err := s.db.QueryRowContext(ctx, `SELECT value FROM cells WHERE address = ?`, int(addr)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Erased, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get cell[%#04x]: %w", addr, err)
	}
	return byte(value), nil
}

// Dump returns every written cell.
func (s *Store) Dump(ctx context.Context) (map[uint16]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT address, value FROM cells ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cells: %w", err)
	}
	defer rows.Close()

	result := make(map[uint16]byte)
	for rows.Next() {
		var addr, value int
		if err := rows.Scan(&addr, &value); err != nil {
			return nil, fmt.Errorf("failed to scan cell row: %w", err)
		}
		result[uint16(addr)] = byte(value)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cell rows: %w", err)
	}

	return result, nil
}

// Erase resets n cells starting at from back to the erased state in one
// transaction.
func (s *Store) Erase(ctx context.Context, from uint16, n int) error {
	if n <= 0 {
		return nil
	}
	if int(from)+n > s.size {
		return fmt.Errorf("erase %#04x+%d: %w", from, n, common.ErrAddressRange)
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for addr := int(from); addr < int(from)+n; addr++ {
			if _, err := tx.ExecContext(ctx, `DELETE FROM cells WHERE address = ?`, addr); err != nil {
				return fmt.Errorf("failed to erase cell[%#04x]: %w", addr, err)
			}
		}
		return nil
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}
