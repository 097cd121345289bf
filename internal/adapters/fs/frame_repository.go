// Package fs implements the file system adapters: frame discovery and
// artifact propagation between frame workspaces.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bft-labs/volumetrize/internal/domain"
	"github.com/bft-labs/volumetrize/internal/ports"
)

// FrameRepository implements ports.FrameRepository over a project directory.
type FrameRepository struct {
	root   string
	prefix string
	logger ports.Logger
}

// NewFrameRepository creates a repository for the frames under root.
// An empty prefix selects domain.DefaultFramePrefix.
func NewFrameRepository(root, prefix string, logger ports.Logger) *FrameRepository {
	if prefix == "" {
		prefix = domain.DefaultFramePrefix
	}
	return &FrameRepository{root: root, prefix: prefix, logger: logger}
}

// Root returns the project directory.
func (r *FrameRepository) Root() string {
	return r.root
}

// Discover lists the immediate sub-directories of the root whose names start
// with the frame prefix and that contain an images directory. Frames without
// images are skipped with a warning. Records are sorted by name.
func (r *FrameRepository) Discover(ctx context.Context) ([]domain.FrameRecord, error) {
	root, err := filepath.Abs(r.root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read project root: %w", err)
	}

	var names []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.IsDir() || !strings.HasPrefix(e.Name(), r.prefix) {
			continue
		}
		images := filepath.Join(root, e.Name(), domain.ImagesDir)
		if info, err := os.Stat(images); err != nil || !info.IsDir() {
			r.logger.Warn("skipping frame without images directory",
				ports.String("frame", e.Name()),
				ports.String("path", images),
			)
			continue
		}
		names = append(names, e.Name())
	}

	if len(names) == 0 {
		return nil, &domain.MissingFramesError{Root: root, Prefix: r.prefix}
	}

	sort.Strings(names)
	frames := make([]domain.FrameRecord, len(names))
	for i, name := range names {
		frames[i] = domain.FrameRecord{
			Index: i,
			Path:  filepath.Join(root, name),
			Name:  name,
			State: domain.FramePending,
		}
	}
	return frames, nil
}

var _ ports.FrameRepository = (*FrameRepository)(nil)
