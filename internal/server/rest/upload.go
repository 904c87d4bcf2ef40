package rest

import (
	"fmt"
	"mime/multipart"

	"github.com/dmitrijs2005/postboard/internal/common"
)

// allowedMimetypes is the upload allow-list: images, videos and common
// document formats. Everything else is rejected before anything is stored.
var allowedMimetypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,

	"video/mp4":  true,
	"video/avi":  true,
	"video/mov":  true,
	"video/wmv":  true,
	"video/flv":  true,
	"video/webm": true,

	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.ms-powerpoint":                                     true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"text/plain": true,
	"text/csv":   true,
}

// validateUploads checks the count, per-file size and MIME allow-list of a
// multipart upload batch.
func validateUploads(files []*multipart.FileHeader, maxCount int, maxSize int64) error {
	if len(files) > maxCount {
		return fmt.Errorf("%w: too many files, maximum %d files are allowed", common.ErrorInvalidArgument, maxCount)
	}
	for _, fh := range files {
		if fh.Size > maxSize {
			return fmt.Errorf("%w: file too large, maximum size is %dMB", common.ErrorInvalidArgument, maxSize/(1024*1024))
		}
		mimetype := fh.Header.Get("Content-Type")
		if !allowedMimetypes[mimetype] {
			return fmt.Errorf("%w: invalid file type: %s, only images, videos, and documents are allowed", common.ErrorInvalidArgument, mimetype)
		}
	}
	return nil
}
