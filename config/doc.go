// Package config provides configuration loading and validation for the meme
// service.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (MEMES_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx = config.WithContext(ctx, cfg)
//	svc, err := memes.NewMemeService(repo, blobs, cfg.ServiceConfig())
//
// # Environment Variables
//
// All config keys map to environment variables with the MEMES_ prefix:
//   - server.port → MEMES_SERVER_PORT
//   - memes.page_size → MEMES_MEMES_PAGE_SIZE
//   - storage.minio.endpoint → MEMES_STORAGE_MINIO_ENDPOINT
//
// # Storage
//
// storage.type selects the blob backend. "minio" talks to an S3 compatible
// endpoint; "filesystem" keeps blobs under storage.filesystem.path and serves
// them from base_url with URLs signed by the configured key pair. Fields of
// the unselected backend are ignored.
//
// # Validation
//
// Struct tags cover ranges and enums. Table names follow
// memes.IsValidTableName, and the selected storage backend must have its
// credentials set.
package config
