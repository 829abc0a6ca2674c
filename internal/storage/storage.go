// Package storage provides persistent byte storage addressed like the
// controller's external EEPROM: one byte per 16-bit address.
package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/doorlock/internal/common"
)

// Erased is the value of a cell that has never been written.
const Erased byte = 0xFF

// DefaultSize matches a 2 KiB serial EEPROM.
const DefaultSize = 2048

// ByteStore is the persistent byte storage capability.
type ByteStore interface {
	Put(ctx context.Context, addr uint16, b byte) error
	Get(ctx context.Context, addr uint16) (byte, error)
}

// Memory is a volatile ByteStore for tests and the simulator. Unwritten
// cells read as Erased.
type Memory struct {
	mu    sync.Mutex
	cells []byte
}

func NewMemory(size int) *Memory {
	if size <= 0 {
		size = DefaultSize
	}
	cells := make([]byte, size)
	for i := range cells {
		cells[i] = Erased
	}
	return &Memory{cells: cells}
}

func (m *Memory) Put(_ context.Context, addr uint16, b byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(addr) >= len(m.cells) {
		return fmt.Errorf("put %#04x: %w", addr, common.ErrAddressRange)
	}
	m.cells[addr] = b
	return nil
}

func (m *Memory) Get(_ context.Context, addr uint16) (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(addr) >= len(m.cells) {
		return 0, fmt.Errorf("get %#04x: %w", addr, common.ErrAddressRange)
	}
	return m.cells[addr], nil
}
