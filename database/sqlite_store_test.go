package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mbolis/quick-form/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	s := NewSQLStore(db)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLStoreSetGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "notes/n1", note{Title: "first", Tags: []string{"a"}}))

	var got note
	require.NoError(t, s.Get(ctx, "notes/n1", &got))
	assert.Equal(t, note{Title: "first", Tags: []string{"a"}}, got)

	require.NoError(t, s.Set(ctx, "notes/n1", note{Title: "second"}))
	require.NoError(t, s.Get(ctx, "notes/n1", &got))
	assert.Equal(t, "second", got.Title)
}

func TestSQLStoreNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var got note
	err := s.Get(ctx, "notes/missing", &got)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.Update(ctx, "notes/missing", map[string]any{"title": "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.NoError(t, s.Delete(ctx, "notes/missing"))
}

func TestSQLStoreInvalidPath(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Set(ctx, "notes", note{}), store.ErrInvalidPath)
	assert.ErrorIs(t, s.Get(ctx, "notes/n1/comments", &note{}), store.ErrInvalidPath)
	_, err := s.List(ctx, "notes/n1")
	assert.ErrorIs(t, err, store.ErrInvalidPath)
}

func TestSQLStoreUpdate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "notes/n1", note{Title: "first", Tags: []string{"a"}}))
	require.NoError(t, s.Update(ctx, "notes/n1", map[string]any{"tags": []string{"b", "c"}}))

	var got note
	require.NoError(t, s.Get(ctx, "notes/n1", &got))
	assert.Equal(t, note{Title: "first", Tags: []string{"b", "c"}}, got)
}

func TestSQLStoreList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "admin/a1/forms/f2", note{Title: "two"}))
	require.NoError(t, s.Set(ctx, "admin/a1/forms/f1", note{Title: "one"}))
	require.NoError(t, s.Set(ctx, "admin/a1/forms/f1/sessions/s1", note{Title: "nested"}))
	require.NoError(t, s.Set(ctx, "admin/a2/forms/f3", note{Title: "other"}))

	snaps, err := s.List(ctx, "admin/a1/forms")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "f1", snaps[0].ID)
	assert.Equal(t, "admin/a1/forms/f1", snaps[0].Path)
	assert.Equal(t, "f2", snaps[1].ID)

	var got note
	require.NoError(t, snaps[1].DataTo(&got))
	assert.Equal(t, "two", got.Title)

	snaps, err = s.List(ctx, "admin/a9/forms")
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestSQLStoreTransactionCommit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "notes/n1", note{Title: "first"}))

	err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		var n note
		if err := tx.Get("notes/n1", &n); err != nil {
			return err
		}
		n.Tags = append(n.Tags, "done")
		if err := tx.Set("notes/n1", n); err != nil {
			return err
		}
		return tx.Delete("notes/n2")
	})
	require.NoError(t, err)

	var got note
	require.NoError(t, s.Get(ctx, "notes/n1", &got))
	assert.Equal(t, []string{"done"}, got.Tags)
}

func TestSQLStoreTransactionRollback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "notes/n1", note{Title: "first"}))

	boom := errors.New("boom")
	err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Set("notes/n1", note{Title: "changed"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var got note
	require.NoError(t, s.Get(ctx, "notes/n1", &got))
	assert.Equal(t, "first", got.Title)
}
