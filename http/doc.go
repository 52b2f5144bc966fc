// Package http exposes the meme service over HTTP.
//
// # Routes
//
//	GET    /memes?page=N   presigned URLs for one page of the bucket
//	POST   /memes          multipart upload: file, description
//	GET    /memes/{id}     presigned URL of one meme
//	PUT    /memes/{id}     multipart update: description, optional file
//	DELETE /memes/{id}     remove record and blob
//	GET    /blobs/{key}    signed download, filesystem backend only
//	GET    /healthz        liveness check
//
// Successful responses are {"message": ...}. Errors are {"detail": ...},
// where detail is a field-to-messages map for validation failures and a
// string otherwise. Not-found and store failures answer 400, bad blob
// signatures 403, and unexpected errors 500.
//
// # Usage
//
//	handler := http.NewHandler(&http.HandlerConfig{
//	    MaxUploadSize: 10 << 20,
//	    Compress:      true,
//	}, service)
//	srv := &nethttp.Server{Addr: ":8000", Handler: handler.Router()}
//
// Set HandlerConfig.Blobs to a filesystem.Store to serve the URLs it signs.
package http
