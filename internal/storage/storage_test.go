package storage

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/doorlock/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_UnwrittenCellsAreErased(t *testing.T) {
	m := NewMemory(0)
	b, err := m.Get(context.Background(), common.CredentialBaseAddress)
	require.NoError(t, err)
	assert.Equal(t, Erased, b)
}

func TestMemory_PutGet(t *testing.T) {
	m := NewMemory(DefaultSize)
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, 0x0300, 7))
	require.NoError(t, m.Put(ctx, 0x0300, 9))

	b, err := m.Get(ctx, 0x0300)
	require.NoError(t, err)
	assert.Equal(t, byte(9), b)
}

func TestMemory_AddressRange(t *testing.T) {
	m := NewMemory(16)
	ctx := context.Background()

	require.ErrorIs(t, m.Put(ctx, 16, 1), common.ErrAddressRange)
	_, err := m.Get(ctx, 0xFFFF)
	require.ErrorIs(t, err, common.ErrAddressRange)
}
