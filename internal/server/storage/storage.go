// Package storage saves uploaded files (avatars, post attachments) and hands
// back the public path they are served from. Two backends exist: local disk
// (default, served statically under /uploads/) and an S3-compatible object
// store whose reads go through presigned URLs.
package storage

import (
	"context"
	"io"
	"path"
)

// PublicPrefix is the fixed path prefix uploaded files are served under.
const PublicPrefix = "/uploads"

// BlobStore writes and removes uploaded blobs by their generated filename.
type BlobStore interface {
	// Save stores src under name and returns the public path clients use to
	// fetch it.
	Save(ctx context.Context, name string, src io.Reader) (string, error)

	// Remove deletes a stored blob. Removing an absent blob is not an error.
	Remove(ctx context.Context, name string) error
}

// Presigner is implemented by backends whose blobs are not served from local
// disk; reads are redirected to a short-lived presigned URL.
type Presigner interface {
	PresignGet(ctx context.Context, name string) (string, error)
}

// PublicPath builds the public path for a stored filename.
func PublicPath(name string) string {
	return path.Join(PublicPrefix, name)
}
