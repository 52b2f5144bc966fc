// Package memes implements a meme upload service: image files live in an
// object store bucket keyed by file name, and a relational table keeps one
// record (id, name, description) per image.
//
// # Key Components
//
//   - MemeService: Coordinates a record and its blob for create, update, delete, list and fetch
//   - Validator: Checks name uniqueness, content type and declared size, collecting every failure
//   - MetaDataRepo: Interface for record persistence (PostgreSQL, SQLite)
//   - BlobStore: Interface for the bucket (MinIO/S3, local filesystem)
//   - URLSigner: Presigned GET URLs for stores without native presigning
//
// # Consistency
//
// The record and the blob are written in sequence, never in one transaction.
// Create deletes the new record again if the blob write fails, and Update
// restores the previous record. Delete removes the record first; a blob left
// behind by a failing removal is reported to the caller but not retried.
//
// # Example Usage
//
//	service, err := memes.NewMemeService(repo, blobs, memes.ServiceConfig{
//	    Rules: memes.ValidationRules{
//	        AllowedContentTypes: []string{"image/jpeg", "image/png"},
//	        MaxFileSize:         5 << 20,
//	    },
//	    PageSize: 10,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	m, err := service.Create(ctx, memes.Upload{
//	    Name:        "cat.jpg",
//	    ContentType: "image/jpeg",
//	    Size:        int64(len(data)),
//	    Content:     bytes.NewReader(data),
//	}, "a cat")
//
//	url, err := service.Fetch(ctx, m.ID)
//
//	for url, err := range service.List(ctx, 1) {
//	    ...
//	}
//
// See the http package for the REST API and the database, objectstore and
// filesystem packages for the store adapters.
package memes
