// Package blobexport exports produced files to a gocloud.dev/blob bucket.
package blobexport

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"

	"github.com/bft-labs/volumetrize/internal/ports"
)

// Exporter implements ports.Exporter over a blob bucket.
type Exporter struct {
	bucket *blob.Bucket
	prefix string
}

// Open opens the bucket at uri ("file:///srv/splats", "mem://").
// Keys are written under prefix.
func Open(ctx context.Context, uri, prefix string) (*Exporter, error) {
	bucket, err := blob.OpenBucket(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", uri, err)
	}
	return NewExporterWithBucket(bucket, prefix), nil
}

// NewExporterWithBucket wraps an already opened bucket.
func NewExporterWithBucket(bucket *blob.Bucket, prefix string) *Exporter {
	return &Exporter{bucket: bucket, prefix: prefix}
}

// Export streams the file at localPath to key.
func (e *Exporter) Export(ctx context.Context, localPath, key string) error {
	fh, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer fh.Close()

	wr, err := e.bucket.NewWriter(ctx, path.Join(e.prefix, key), &blob.WriterOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return err
	}

	if _, err := io.Copy(wr, fh); err != nil {
		wr.Close()
		return err
	}
	return wr.Close()
}

// Close releases the bucket.
func (e *Exporter) Close() error {
	return e.bucket.Close()
}

var _ ports.Exporter = (*Exporter)(nil)
