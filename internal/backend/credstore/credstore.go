// Package credstore persists the back-end credential in byte storage.
//
// The credential occupies credential.Length contiguous cells starting at a
// base address, one digit per cell, in entry order. Every write is followed
// by a settle delay and a read-back; the read-back value, not the written
// one, becomes the working credential.
package credstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/doorlock/internal/common"
	"github.com/dmitrijs2005/doorlock/internal/credential"
	"github.com/dmitrijs2005/doorlock/internal/logging"
	"github.com/dmitrijs2005/doorlock/internal/storage"
)

// Options tune the write path.
type Options struct {
	BaseAddress  uint16
	SettleDelay  time.Duration
	WriteRetries int
}

func DefaultOptions() Options {
	return Options{
		BaseAddress:  common.CredentialBaseAddress,
		SettleDelay:  10 * time.Millisecond,
		WriteRetries: 3,
	}
}

type Store struct {
	bytes  storage.ByteStore
	opts   Options
	logger logging.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func New(bs storage.ByteStore, opts Options, l logging.Logger) *Store {
	if opts.WriteRetries < 0 {
		opts.WriteRetries = 0
	}
	return &Store{
		bytes:  bs,
		opts:   opts,
		logger: l.With("module", "credstore"),
		sleep:  sleepContext,
	}
}

// Save writes c cell by cell and returns what was read back. A cell whose
// read-back differs is rewritten up to WriteRetries times before Save gives
// up with ErrStorageMismatch.
func (s *Store) Save(ctx context.Context, c credential.Credential) (credential.Credential, error) {
	readBack := make([]byte, credential.Length)
	for i := 0; i < credential.Length; i++ {
		addr := s.opts.BaseAddress + uint16(i)
		b, err := s.writeCell(ctx, addr, c.Digit(i))
		if err != nil {
			return credential.Credential{}, fmt.Errorf("save credential: %w", err)
		}
		readBack[i] = b
	}

	stored, err := credential.FromBytes(readBack)
	if err != nil {
		return credential.Credential{}, fmt.Errorf("save credential: %w", common.ErrStorageMismatch)
	}
	s.logger.Info(ctx, "credential stored", "base", fmt.Sprintf("%#04x", s.opts.BaseAddress))
	return stored, nil
}

func (s *Store) writeCell(ctx context.Context, addr uint16, want byte) (byte, error) {
	var got byte
	for attempt := 0; attempt <= s.opts.WriteRetries; attempt++ {
		if err := s.bytes.Put(ctx, addr, want); err != nil {
			return 0, err
		}
		if err := s.sleep(ctx, s.opts.SettleDelay); err != nil {
			return 0, err
		}
		b, err := s.bytes.Get(ctx, addr)
		if err != nil {
			return 0, err
		}
		if b == want {
			return b, nil
		}
		got = b
		s.logger.Warn(ctx, "read-back mismatch", "address", fmt.Sprintf("%#04x", addr), "attempt", attempt+1)
	}
	return got, fmt.Errorf("cell %#04x: %w", addr, common.ErrStorageMismatch)
}

// Load reads the stored credential. ErrNotProvisioned is returned when the
// cells hold anything other than 4 digits, e.g. a factory-fresh EEPROM.
func (s *Store) Load(ctx context.Context) (credential.Credential, error) {
	cells := make([]byte, credential.Length)
	for i := range cells {
		b, err := s.bytes.Get(ctx, s.opts.BaseAddress+uint16(i))
		if err != nil {
			return credential.Credential{}, fmt.Errorf("load credential: %w", err)
		}
		cells[i] = b
	}
	c, err := credential.FromBytes(cells)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredential) {
			return credential.Credential{}, common.ErrNotProvisioned
		}
		return credential.Credential{}, err
	}
	return c, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
