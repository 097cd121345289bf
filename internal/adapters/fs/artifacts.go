package fs

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bft-labs/volumetrize/internal/domain"
	"github.com/bft-labs/volumetrize/internal/ports"
)

// CopyResult reports what CopyArtifacts did.
type CopyResult struct {
	Copied  []string
	Skipped []string
}

// CopyArtifacts copies every artifact into frame's workspace. Destination
// directories are created as needed and a destination that already holds
// identical bytes is left untouched. Sources are never moved or modified.
// A missing source returns *domain.MissingArtifactError.
func CopyArtifacts(ctx context.Context, frame domain.FrameRecord, set domain.ArtifactSet) (CopyResult, error) {
	var res CopyResult
	for _, a := range set {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		info, err := os.Stat(a.Source)
		if err != nil || !info.Mode().IsRegular() {
			return res, &domain.MissingArtifactError{Frame: frame.Name, Artifact: a.Name, Path: a.Source}
		}

		dest := filepath.Join(frame.Path, a.Dest)
		same, err := sameContent(a.Source, dest)
		if err != nil {
			return res, fmt.Errorf("compare %s: %w", a.Name, err)
		}
		if same {
			res.Skipped = append(res.Skipped, a.Name)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return res, fmt.Errorf("create directory for %s: %w", a.Name, err)
		}
		if err := copyFile(a.Source, dest, info.Mode().Perm()); err != nil {
			return res, fmt.Errorf("copy %s: %w", a.Name, err)
		}
		res.Copied = append(res.Copied, a.Name)
	}
	return res, nil
}

// HashFile returns the hex SHA-1 of the file at path.
func HashFile(path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer fh.Close()

	h := sha1.New()
	if _, err := io.Copy(h, fh); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Fingerprint returns the hex SHA-1 over the names and content hashes of
// the set's sources, in order.
func Fingerprint(set domain.ArtifactSet) (string, error) {
	if len(set) == 0 {
		return "", nil
	}
	h := sha1.New()
	for _, a := range set {
		sum, err := HashFile(a.Source)
		if err != nil {
			return "", fmt.Errorf("hash %s: %w", a.Name, err)
		}
		fmt.Fprintf(h, "%s %s\n", a.Name, sum)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func sameContent(src, dest string) (bool, error) {
	di, err := os.Stat(dest)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	si, err := os.Stat(src)
	if err != nil {
		return false, err
	}
	if !di.Mode().IsRegular() || di.Size() != si.Size() {
		return false, nil
	}

	a, err := HashFile(src)
	if err != nil {
		return false, err
	}
	b, err := HashFile(dest)
	if err != nil {
		return false, err
	}
	return a == b, nil
}

// copyFile writes to a temp file next to dest and renames it into place.
func copyFile(src, dest string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dest + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}

// ResetWorkspace removes the given directories so a frame starts clean.
func ResetWorkspace(dirs []string) error {
	for _, d := range dirs {
		if err := os.RemoveAll(d); err != nil {
			return fmt.Errorf("remove %s: %w", d, err)
		}
	}
	return nil
}

// EnsureWorkspace creates the given directories.
func EnsureWorkspace(dirs []string) error {
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}

// Workspace implements ports.Workspace on the local file system.
type Workspace struct{}

// NewWorkspace creates a local file system workspace.
func NewWorkspace() *Workspace { return &Workspace{} }

func (*Workspace) Reset(dirs []string) error  { return ResetWorkspace(dirs) }
func (*Workspace) Ensure(dirs []string) error { return EnsureWorkspace(dirs) }

func (*Workspace) CopyArtifacts(ctx context.Context, frame domain.FrameRecord, set domain.ArtifactSet) ([]string, []string, error) {
	res, err := CopyArtifacts(ctx, frame, set)
	return res.Copied, res.Skipped, err
}

func (*Workspace) Fingerprint(set domain.ArtifactSet) (string, error) { return Fingerprint(set) }

var _ ports.Workspace = (*Workspace)(nil)
