package sqlite_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/sagarc03/memes"
	"github.com/sagarc03/memes/database/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	assert.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// setupTestRepo creates a repo over a migrated in-memory database.
func setupTestRepo(t *testing.T) memes.MetaDataRepo {
	t.Helper()

	ctx := context.Background()
	tables := memes.Tables{Memes: "memes_" + getRandomString(t)}

	db, err := sqlite.Connect(ctx, ":memory:", tables)
	require.NoError(t, err, "failed to connect")

	err = db.Migrate(ctx)
	require.NoError(t, err, "failed to migrate")

	t.Cleanup(func() { _ = db.Close() })

	return db.GetRepo()
}

// seed inserts a meme and returns it.
func seed(t *testing.T, repo memes.MetaDataRepo, name, description string) memes.Meme {
	t.Helper()
	m, err := repo.Insert(context.Background(), memes.MemeFields{Name: name, Description: description})
	require.NoError(t, err)
	return m
}
