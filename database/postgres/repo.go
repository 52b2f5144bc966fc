// Package postgres stores meme metadata in PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/memes"
)

// Repo implements memes.MetaDataRepo on a single PostgreSQL table.
type Repo struct {
	pool      *pgxpool.Pool
	tableName string
}

// NewRepo returns a Repo over an existing pool. The table must already exist;
// see Connect and Migrate.
func NewRepo(pool *pgxpool.Pool, tables memes.Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return newRepo(pool, tables.Memes), nil
}

func newRepo(pool *pgxpool.Pool, tableName string) *Repo {
	return &Repo{pool: pool, tableName: pgx.Identifier{tableName}.Sanitize()}
}

// Ping verifies database connectivity
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repo) Insert(ctx context.Context, fields memes.MemeFields) (memes.Meme, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, description)
		VALUES ($1, $2)
		RETURNING id, name, description
	`, r.tableName)

	var m memes.Meme
	err := r.pool.QueryRow(ctx, query, fields.Name, fields.Description).Scan(&m.ID, &m.Name, &m.Description)
	if err != nil {
		return memes.Meme{}, fmt.Errorf("insert: %w", err)
	}

	return m, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (memes.Meme, error) {
	query := fmt.Sprintf(`
		SELECT id, name, description
		FROM %s
		WHERE id = $1
	`, r.tableName)

	return scanMeme(r.pool.QueryRow(ctx, query, id), "get")
}

// NameTaken reports whether name is in use. It is never taken for the
// meme excludeID when that meme already holds it, even if duplicates exist.
func (r *Repo) NameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (SELECT 1 FROM %[1]s WHERE name = $1)
			AND NOT EXISTS (SELECT 1 FROM %[1]s WHERE id = $2 AND name = $1)
	`, r.tableName)

	var taken bool
	if err := r.pool.QueryRow(ctx, query, name, excludeID).Scan(&taken); err != nil {
		return false, fmt.Errorf("name taken: %w", err)
	}
	return taken, nil
}

// Update overwrites the record and returns its previous state. The row is
// locked between the read and the write.
func (r *Repo) Update(ctx context.Context, id int64, fields memes.MemeFields) (memes.Meme, error) {
	selectQuery := fmt.Sprintf(`
		SELECT id, name, description
		FROM %s
		WHERE id = $1
		FOR UPDATE
	`, r.tableName)

	updateQuery := fmt.Sprintf(`
		UPDATE %s
		SET name = COALESCE(NULLIF($2, ''), name),
			description = $3
		WHERE id = $1
	`, r.tableName)

	var previous memes.Meme
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		previous, err = scanMeme(tx.QueryRow(ctx, selectQuery, id), "select")
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, updateQuery, id, fields.Name, fields.Description)
		if err != nil {
			return fmt.Errorf("exec: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, memes.ErrNotFound) {
			return memes.Meme{}, err
		}
		return memes.Meme{}, fmt.Errorf("update: %w", err)
	}

	return previous, nil
}

// Delete removes the record and returns what was stored.
func (r *Repo) Delete(ctx context.Context, id int64) (memes.Meme, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1
		RETURNING id, name, description
	`, r.tableName)

	return scanMeme(r.pool.QueryRow(ctx, query, id), "delete")
}

func scanMeme(row pgx.Row, op string) (memes.Meme, error) {
	var m memes.Meme
	err := row.Scan(&m.ID, &m.Name, &m.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return memes.Meme{}, memes.ErrNotFound
		}
		return memes.Meme{}, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}
