// Package storetest holds the behaviour every core.Store must share.
package storetest

import (
	"context"
	"testing"

	"github.com/shrek82/jrecord/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreContract runs a suite of tests verifying that store adheres to the
// core.Store contract. Collections are prefixed with prefix so the suite can
// share a database with other tests.
func RunStoreContract(t *testing.T, store core.Store, prefix string) {
	ctx := context.Background()
	tracks := prefix + "tracks"

	t.Run("Insert and Find", func(t *testing.T) {
		doc := core.NewFields("artist", "Porcupine Tree", "song", "Your Unpleasant Family", "track", 7, "rating", 4.5)

		id, err := store.Insert(ctx, tracks, doc)
		require.NoError(t, err, "Insert should not return error")
		require.NotNil(t, id)

		found, err := store.Find(ctx, tracks, id)
		require.NoError(t, err, "Find should not return error")
		assert.Equal(t, []string{"artist", "song", "track", "rating"}, found.Names(), "field order must survive the store")

		v, _ := found.Get("song")
		assert.Equal(t, "Your Unpleasant Family", v)
		n, _ := found.Get("track")
		assert.EqualValues(t, 7, n)
		r, _ := found.Get("rating")
		assert.Equal(t, 4.5, r)
	})

	t.Run("Ids are unique", func(t *testing.T) {
		a, err := store.Insert(ctx, tracks, core.NewFields("song", "a"))
		require.NoError(t, err)
		b, err := store.Insert(ctx, tracks, core.NewFields("song", "b"))
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("Insert keeps a copy", func(t *testing.T) {
		doc := core.NewFields("song", "Europa")
		id, err := store.Insert(ctx, tracks, doc)
		require.NoError(t, err)

		doc.Set("song", "changed")
		found, err := store.Find(ctx, tracks, id)
		require.NoError(t, err)
		v, _ := found.Get("song")
		assert.Equal(t, "Europa", v)
	})

	t.Run("Update", func(t *testing.T) {
		id, err := store.Insert(ctx, tracks, core.NewFields("song", "Europa", "track", 1))
		require.NoError(t, err)

		err = store.Update(ctx, tracks, id, core.NewFields("song", "Europa", "track", 38))
		require.NoError(t, err, "Update should not return error")

		found, err := store.Find(ctx, tracks, id)
		require.NoError(t, err)
		n, _ := found.Get("track")
		assert.EqualValues(t, 38, n)

		// rewriting an identical document is still a successful update
		require.NoError(t, store.Update(ctx, tracks, id, core.NewFields("song", "Europa", "track", 38)))
	})

	t.Run("Update Non-Existent", func(t *testing.T) {
		err := store.Update(ctx, tracks, int64(987654), core.NewFields("song", "ghost"))
		assert.ErrorIs(t, err, core.ErrRecordNotFound)
	})

	t.Run("Find Non-Existent", func(t *testing.T) {
		_, err := store.Find(ctx, tracks, int64(987654))
		assert.ErrorIs(t, err, core.ErrRecordNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		id, err := store.Insert(ctx, tracks, core.NewFields("song", "doomed"))
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, tracks, id), "Delete should not return error")

		_, err = store.Find(ctx, tracks, id)
		assert.ErrorIs(t, err, core.ErrRecordNotFound, "Find after Delete should return ErrRecordNotFound")

		err = store.Delete(ctx, tracks, id)
		assert.ErrorIs(t, err, core.ErrRecordNotFound, "second Delete should return ErrRecordNotFound")
	})

	t.Run("Collections are separate", func(t *testing.T) {
		id, err := store.Insert(ctx, prefix+"albums", core.NewFields("album", "The Incident"))
		require.NoError(t, err)

		found, err := store.Find(ctx, prefix+"albums", id)
		require.NoError(t, err)
		_, hasSong := found.Get("song")
		assert.False(t, hasSong)
	})
}
