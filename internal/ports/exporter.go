package ports

import "context"

// Exporter publishes a produced file under key.
type Exporter interface {
	Export(ctx context.Context, localPath, key string) error
	Close() error
}
