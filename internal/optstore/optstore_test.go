package optstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/layertree/internal/walker"
)

func TestMemory_LoadBeforeSave(t *testing.T) {
	m := NewMemory()
	_, ok, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_SaveThenLoad(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	want := walker.Options{SimpleNamesOnly: false, IncludeText: true, HideHidden: false}

	require.NoError(t, m.Save(ctx, want))
	got, ok, err := m.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

var _ Store = (*Memory)(nil)
