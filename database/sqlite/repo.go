// Package sqlite stores meme metadata in SQLite through modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sagarc03/memes"
)

// Repo implements memes.MetaDataRepo on a single SQLite table.
type Repo struct {
	db        *sql.DB
	tableName string
}

// NewRepo returns a Repo over an open *sql.DB. Any database/sql driver that
// speaks SQLite's dialect works.
func NewRepo(db *sql.DB, tables memes.Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return newRepo(db, tables.Memes), nil
}

func newRepo(db *sql.DB, tableName string) *Repo {
	return &Repo{db: db, tableName: quoteIdentifier(tableName)}
}

func (r *Repo) Insert(ctx context.Context, fields memes.MemeFields) (memes.Meme, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (name, description)
		VALUES (?, ?)
		RETURNING id, name, description`, r.tableName)

	var m memes.Meme
	err := r.db.QueryRowContext(ctx, query, fields.Name, fields.Description).Scan(&m.ID, &m.Name, &m.Description)
	if err != nil {
		return memes.Meme{}, fmt.Errorf("insert: %w", err)
	}

	return m, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (memes.Meme, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, name, description
		FROM %s
		WHERE id = ?`, r.tableName)

	return scanMeme(r.db.QueryRowContext(ctx, query, id), "get")
}

// NameTaken reports whether name is in use. It is never taken for the
// meme excludeID when that meme already holds it, even if duplicates exist.
func (r *Repo) NameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT EXISTS (SELECT 1 FROM %[1]s WHERE name = ?)
			AND NOT EXISTS (SELECT 1 FROM %[1]s WHERE id = ? AND name = ?)`, r.tableName)

	var taken bool
	if err := r.db.QueryRowContext(ctx, query, name, excludeID, name).Scan(&taken); err != nil {
		return false, fmt.Errorf("name taken: %w", err)
	}
	return taken, nil
}

// Update overwrites the record and returns its previous state.
func (r *Repo) Update(ctx context.Context, id int64, fields memes.MemeFields) (memes.Meme, error) {
	selectQuery := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, name, description
		FROM %s
		WHERE id = ?`, r.tableName)

	updateQuery := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s
		SET name = COALESCE(NULLIF(?, ''), name),
			description = ?
		WHERE id = ?`, r.tableName)

	var previous memes.Meme
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		previous, err = scanMeme(tx.QueryRowContext(ctx, selectQuery, id), "select")
		if err != nil {
			return err
		}

		if _, err = tx.ExecContext(ctx, updateQuery, fields.Name, fields.Description, id); err != nil {
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
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s
		WHERE id = ?
		RETURNING id, name, description`, r.tableName)

	return scanMeme(r.db.QueryRowContext(ctx, query, id), "delete")
}

// withTx runs fn in a transaction, committing on success and rolling back
// otherwise. fn must only use tx.
func (r *Repo) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func scanMeme(row *sql.Row, op string) (memes.Meme, error) {
	var m memes.Meme
	err := row.Scan(&m.ID, &m.Name, &m.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return memes.Meme{}, memes.ErrNotFound
		}
		return memes.Meme{}, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}
