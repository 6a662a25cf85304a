package storage

import (
	"context"
	"io"
)

// Uploader archives diagnostic audio for failed speech requests.
type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}
