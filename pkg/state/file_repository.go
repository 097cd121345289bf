package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileRepository keeps one status-<stage>.json document per stage in a
// project's state directory.
type FileRepository struct {
	dir   string
	stage string
}

// NewFileRepository creates a repository for stage under dir. An empty
// stage uses status.json.
func NewFileRepository(dir, stage string) *FileRepository {
	return &FileRepository{dir: dir, stage: stage}
}

// Path returns the location of the status document.
func (r *FileRepository) Path() string {
	if r.stage == "" {
		return filepath.Join(r.dir, "status.json")
	}
	return filepath.Join(r.dir, "status-"+r.stage+".json")
}

// Load reads the status document. A project that never ran this stage
// yields an empty State for it.
func (r *FileRepository) Load(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	raw, err := os.ReadFile(r.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return State{Stage: r.stage}, nil
	}
	if err != nil {
		return State{}, err
	}

	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("decode %s: %w", r.Path(), err)
	}
	if st.Stage == "" {
		st.Stage = r.stage
	}
	return st, nil
}

// Save replaces the status document. The new content is written and synced
// to a sibling file first, then renamed over the old one.
func (r *FileRepository) Save(ctx context.Context, st State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(raw); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
