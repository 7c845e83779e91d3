package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/logcraftio/logcraft-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_ReadMissingFileReturnsEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(filepath.Join(dir, ".logcraft", "state.json"))
	require.NoError(t, err)

	doc, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Serial)
	assert.Empty(t, doc.Resources)
}

func TestLocalStore_WriteThenRead_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(filepath.Join(dir, ".logcraft", "state.json"))
	require.NoError(t, err)

	ctx := context.Background()
	st := domain.NewState()
	st.Set("s1", "r1", []byte("B1"))
	doc := FromState(st, NewDocument())

	require.NoError(t, store.Write(ctx, doc))

	reread, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc.Lineage, reread.Lineage)
	assert.Equal(t, doc.Serial, reread.Serial)
	require.Len(t, reread.Resources, 1)

	decoded, err := reread.ToState()
	require.NoError(t, err)
	b, ok := decoded.Get("s1", "r1")
	require.True(t, ok)
	assert.Equal(t, []byte("B1"), b)
}

func TestLocalStore_LockExclusivity(t *testing.T) {
	dir := t.TempDir()
	stateFile := filepath.Join(dir, ".logcraft", "state.json")

	store1, err := NewLocalStore(stateFile)
	require.NoError(t, err)
	store2, err := NewLocalStore(stateFile)
	require.NoError(t, err)

	ctx := context.Background()
	lockID, err := store1.Lock(ctx, "alice@host")
	require.NoError(t, err)
	require.NotEmpty(t, lockID)

	_, err = store2.Lock(ctx, "bob@host")
	require.Error(t, err, "a second concurrent lock attempt must fail")
	var locked *domain.StateLockedError
	assert.ErrorAs(t, err, &locked)

	require.NoError(t, store1.Unlock(ctx, lockID))

	lockID2, err := store2.Lock(ctx, "bob@host")
	require.NoError(t, err, "lock must be acquirable once released")
	require.NoError(t, store2.Unlock(ctx, lockID2))
}

func TestLocalStore_UnlockWithoutLockIsSafe(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(filepath.Join(dir, ".logcraft", "state.json"))
	require.NoError(t, err)

	assert.NoError(t, store.Unlock(context.Background(), "whatever"))
}

func TestLocalStore_SerialIncrementsOnCommit(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(filepath.Join(dir, ".logcraft", "state.json"))
	require.NoError(t, err)
	ctx := context.Background()

	base, err := store.Read(ctx)
	require.NoError(t, err)

	st := domain.NewState()
	st.Set("s1", "r1", []byte("B1"))
	doc1 := FromState(st, base)
	require.NoError(t, store.Write(ctx, doc1))
	assert.Equal(t, 1, doc1.Serial)

	reread, err := store.Read(ctx)
	require.NoError(t, err)
	doc2 := FromState(st, reread)
	require.NoError(t, store.Write(ctx, doc2))
	assert.Equal(t, 2, doc2.Serial)
	assert.Equal(t, doc1.Lineage, doc2.Lineage, "lineage must not change across writes")
}
