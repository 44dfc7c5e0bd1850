package scopes

import (
	"context"
	"errors"
	"testing"

	"github.com/danmuck/storesync/internal/store"
	"github.com/danmuck/storesync/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func TestResolveFlattensTranslationsInSourceOrder(t *testing.T) {
	testlog.Start(t)

	mem := store.NewMemory()
	mem.AddScope("id1", "Storefront", "Schaufenster")
	mem.AddScope("id2", "Headless", "")
	mem.AddScope("id3")

	dir, err := NewResolver(mem).Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Entry{
		{Name: "Storefront", ID: "id1"},
		{Name: "Schaufenster", ID: "id1"},
		{Name: "Headless", ID: "id2"},
	}, dir.Entries())

	id, ok := dir.Lookup("Schaufenster")
	require.True(t, ok)
	require.Equal(t, store.ScopeID("id1"), id)

	_, ok = dir.Lookup("Typo Shop")
	require.False(t, ok)
}

func TestResolveNameCollisionLastWriteWins(t *testing.T) {
	testlog.Start(t)

	mem := store.NewMemory()
	mem.AddScope("id1", "Shop")
	mem.AddScope("id2", "Other", "Shop")

	dir, err := NewResolver(mem).Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, dir.Len())

	id, _ := dir.Lookup("Shop")
	require.Equal(t, store.ScopeID("id2"), id, "last write wins")
	require.Equal(t, "Shop", dir.Entries()[0].Name, "first position kept")
}

func TestResolvePropagatesSourceError(t *testing.T) {
	testlog.Start(t)

	mem := store.NewMemory()
	mem.FailList(errors.New("connection refused"))
	_, err := NewResolver(mem).Resolve(context.Background())
	require.ErrorIs(t, err, ErrScopeSourceUnavailable)
}
