// Package database connects the meme metadata table on PostgreSQL or SQLite.
//
// # Supported Backends
//
//   - PostgreSQL: pgx connection pool, for production deployments
//   - SQLite: modernc.org/sqlite, for development and single-node deployments
//
// # Usage
//
//	cfg := database.Config{
//	    Type:        "sqlite",
//	    DSN:         "memes.db",
//	    Tables:      memes.Tables{Memes: "memes"},
//	    AutoMigrate: true,
//	}
//
//	db, err := database.Open(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	repo := db.GetRepo()
//
// Open pings the backend, runs migrations when AutoMigrate is set, and
// validates the table schema. Connect only opens the connection.
//
// # Subpackages
//
//   - database/postgres: PostgreSQL implementation using pgx
//   - database/sqlite: SQLite implementation using modernc.org/sqlite
package database
