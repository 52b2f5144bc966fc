package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/sagarc03/memes"
	"github.com/sagarc03/memes/database/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabase_Migrate(t *testing.T) {
	ctx := context.Background()
	tables := memes.Tables{Memes: "memes"}

	db, err := sqlite.Connect(ctx, ":memory:", tables)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.NoError(t, db.Ping(ctx))
	assert.NoError(t, db.Migrate(ctx), "first migrate should succeed")
	assert.NoError(t, db.Migrate(ctx), "second migrate should succeed")
	assert.NoError(t, db.Validate(ctx), "validate should succeed after migrate")
}

func TestDatabase_Validate(t *testing.T) {
	ctx := context.Background()

	openRaw := func(t *testing.T) (*sql.DB, string) {
		t.Helper()
		dsn := filepath.Join(t.TempDir(), "memes.db")
		raw, err := sql.Open("sqlite", dsn)
		require.NoError(t, err)
		t.Cleanup(func() { _ = raw.Close() })
		return raw, dsn
	}

	t.Run("error - table does not exist", func(t *testing.T) {
		db, err := sqlite.Connect(ctx, ":memory:", memes.Tables{Memes: "memes"})
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		assert.ErrorContains(t, db.Validate(ctx), "does not exist")
	})

	t.Run("error - missing columns", func(t *testing.T) {
		raw, dsn := openRaw(t)
		_, err := raw.ExecContext(ctx, `CREATE TABLE memes (id INTEGER NOT NULL PRIMARY KEY, name VARCHAR(64) NOT NULL)`)
		require.NoError(t, err)

		db, err := sqlite.Connect(ctx, dsn, memes.Tables{Memes: "memes"})
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		assert.ErrorContains(t, db.Validate(ctx), "missing columns: description")
	})

	t.Run("error - wrong column type", func(t *testing.T) {
		raw, dsn := openRaw(t)
		_, err := raw.ExecContext(ctx, `
			CREATE TABLE memes (
				id INTEGER NOT NULL PRIMARY KEY,
				name TEXT NOT NULL,
				description VARCHAR(255) NOT NULL DEFAULT ''
			)
		`)
		require.NoError(t, err)

		db, err := sqlite.Connect(ctx, dsn, memes.Tables{Memes: "memes"})
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		assert.ErrorContains(t, db.Validate(ctx), "name: expected varchar(64), got text")
	})

	t.Run("error - nullable column", func(t *testing.T) {
		raw, dsn := openRaw(t)
		_, err := raw.ExecContext(ctx, `
			CREATE TABLE memes (
				id INTEGER NOT NULL PRIMARY KEY,
				name VARCHAR(64) NOT NULL,
				description VARCHAR(255)
			)
		`)
		require.NoError(t, err)

		db, err := sqlite.Connect(ctx, dsn, memes.Tables{Memes: "memes"})
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		assert.ErrorContains(t, db.Validate(ctx), "description: expected nullable=false")
	})
}

func TestDropTables(t *testing.T) {
	ctx := context.Background()
	raw, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "memes.db"))
	require.NoError(t, err)
	defer func() { _ = raw.Close() }()

	tables := memes.Tables{Memes: "memes"}
	require.NoError(t, sqlite.Migrate(ctx, raw, tables))
	require.NoError(t, sqlite.ValidateSchema(ctx, raw, tables))

	require.NoError(t, sqlite.DropTables(ctx, raw, tables))
	assert.Error(t, sqlite.ValidateSchema(ctx, raw, tables))

	assert.NoError(t, sqlite.DropTables(ctx, raw, tables), "drop should be idempotent")
}

func TestNewRepo(t *testing.T) {
	raw, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer func() { _ = raw.Close() }()

	_, err = sqlite.NewRepo(raw, memes.Tables{Memes: ""})
	assert.Error(t, err)

	_, err = sqlite.NewRepo(raw, memes.Tables{Memes: "memes;drop"})
	assert.Error(t, err)

	repo, err := sqlite.NewRepo(raw, memes.Tables{Memes: "memes"})
	assert.NoError(t, err)
	assert.NotNil(t, repo)
}

// =============================================================================
// Repo Tests (via MetaDataRepo interface)
// =============================================================================

func TestRepo_Insert(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	first, err := repo.Insert(ctx, memes.MemeFields{Name: "cat.jpg", Description: "a cat"})
	require.NoError(t, err)
	assert.Equal(t, memes.Meme{ID: 1, Name: "cat.jpg", Description: "a cat"}, first)

	second, err := repo.Insert(ctx, memes.MemeFields{Name: "dog.png"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)
	assert.Empty(t, second.Description)
}

func TestRepo_Get(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	stored := seed(t, repo, "cat.jpg", "a cat")

	t.Run("found", func(t *testing.T) {
		got, err := repo.Get(ctx, stored.ID)
		require.NoError(t, err)
		assert.Equal(t, stored, got)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.Get(ctx, 42)
		assert.ErrorIs(t, err, memes.ErrNotFound)
	})
}

func TestRepo_NameTaken(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	cat := seed(t, repo, "cat.jpg", "")
	dog := seed(t, repo, "dog.jpg", "")

	t.Run("taken on create", func(t *testing.T) {
		taken, err := repo.NameTaken(ctx, "cat.jpg", 0)
		require.NoError(t, err)
		assert.True(t, taken)
	})

	t.Run("own name is free", func(t *testing.T) {
		taken, err := repo.NameTaken(ctx, "cat.jpg", cat.ID)
		require.NoError(t, err)
		assert.False(t, taken)
	})

	t.Run("held by another meme", func(t *testing.T) {
		taken, err := repo.NameTaken(ctx, "cat.jpg", dog.ID)
		require.NoError(t, err)
		assert.True(t, taken)
	})

	t.Run("case sensitive", func(t *testing.T) {
		taken, err := repo.NameTaken(ctx, "CAT.jpg", 0)
		require.NoError(t, err)
		assert.False(t, taken)
	})

	t.Run("duplicates keep their own name", func(t *testing.T) {
		first := seed(t, repo, "x.jpg", "")
		second := seed(t, repo, "x.jpg", "")

		for _, id := range []int64{first.ID, second.ID} {
			taken, err := repo.NameTaken(ctx, "x.jpg", id)
			require.NoError(t, err)
			assert.False(t, taken, "meme %d", id)
		}

		taken, err := repo.NameTaken(ctx, "x.jpg", dog.ID)
		require.NoError(t, err)
		assert.True(t, taken)
	})

	t.Run("missing", func(t *testing.T) {
		taken, err := repo.NameTaken(ctx, "nothing.png", 0)
		require.NoError(t, err)
		assert.False(t, taken)
	})
}

func TestRepo_Update(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	t.Run("returns previous and stores new", func(t *testing.T) {
		stored := seed(t, repo, "cat.jpg", "old")

		previous, err := repo.Update(ctx, stored.ID, memes.MemeFields{Name: "dog.jpg", Description: "new"})
		require.NoError(t, err)
		assert.Equal(t, stored, previous)

		got, err := repo.Get(ctx, stored.ID)
		require.NoError(t, err)
		assert.Equal(t, memes.Meme{ID: stored.ID, Name: "dog.jpg", Description: "new"}, got)
	})

	t.Run("empty name keeps name", func(t *testing.T) {
		stored := seed(t, repo, "keep.jpg", "old")

		_, err := repo.Update(ctx, stored.ID, memes.MemeFields{Description: "fresh"})
		require.NoError(t, err)

		got, err := repo.Get(ctx, stored.ID)
		require.NoError(t, err)
		assert.Equal(t, "keep.jpg", got.Name)
		assert.Equal(t, "fresh", got.Description)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.Update(ctx, 999, memes.MemeFields{Description: "x"})
		assert.ErrorIs(t, err, memes.ErrNotFound)
	})
}

func TestRepo_Delete(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	stored := seed(t, repo, "cat.jpg", "a cat")

	deleted, err := repo.Delete(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored, deleted)

	_, err = repo.Get(ctx, stored.ID)
	assert.ErrorIs(t, err, memes.ErrNotFound)

	_, err = repo.Delete(ctx, stored.ID)
	assert.ErrorIs(t, err, memes.ErrNotFound)
}
