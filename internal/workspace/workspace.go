// SPDX-License-Identifier: MPL-2.0

// Package workspace manages the isolated per-release working directory: the
// source distribution is downloaded into it, extracted in place, and the
// whole tree is removed when the release is done. The extracted source
// directory is handed to callers as an explicit path; nothing here (or in
// the callers) changes the process working directory.
package workspace

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxFileBytes is the upper bound on a single extracted file (500 MB).
// Prevents decompression bombs when extracting a source distribution.
const maxFileBytes = 500 << 20

var (
	// ErrAmbiguousArchive is the sentinel error wrapped by
	// AmbiguousArchiveError.
	ErrAmbiguousArchive = errors.New("ambiguous archive layout")

	// ErrUnsafeArchivePath is returned when an archive entry would escape
	// the workspace root.
	ErrUnsafeArchivePath = errors.New("unsafe archive path")
)

type (
	// Downloader streams the file at a URL. *pypi.Client satisfies it.
	Downloader interface {
		Download(ctx context.Context, url string) (io.ReadCloser, error)
	}

	// Workspace is a temporary directory holding one release's source
	// distribution and its extracted tree.
	Workspace struct {
		root string
	}

	// AmbiguousArchiveError reports an archive that extracted to anything
	// other than exactly one top-level directory. Guessing which entry is
	// the source tree would be wrong more often than helpful.
	AmbiguousArchiveError struct {
		Archive string
		Entries []string
	}
)

// Error formats the unexpected archive contents.
func (e *AmbiguousArchiveError) Error() string {
	return fmt.Sprintf("archive %s: expected exactly one top-level directory, found %d entries: %s",
		e.Archive, len(e.Entries), strings.Join(e.Entries, ", "))
}

// Unwrap returns ErrAmbiguousArchive so callers can use errors.Is.
func (e *AmbiguousArchiveError) Unwrap() error { return ErrAmbiguousArchive }

// New creates a fresh workspace directory under the system temp dir.
func New() (*Workspace, error) {
	root, err := os.MkdirTemp("", "wheelsmith-*")
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	return &Workspace{root: root}, nil
}

// Root returns the workspace directory path.
func (w *Workspace) Root() string { return w.root }

// Close removes the workspace tree and everything in it.
func (w *Workspace) Close() error {
	return os.RemoveAll(w.root)
}

// Fetch streams the file at url into the workspace under filename and
// returns the local path.
func (w *Workspace) Fetch(ctx context.Context, dl Downloader, url, filename string) (_ string, err error) {
	body, err := dl.Download(ctx, url)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }() // read-only HTTP response body

	dest := filepath.Join(w.root, filepath.Base(filename))
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", dest, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(f, body); err != nil {
		// Best-effort removal of the partially written file.
		_ = os.Remove(dest)
		return "", fmt.Errorf("writing %s: %w", dest, err)
	}

	return dest, nil
}

// Extract unpacks the tar.gz archive at archivePath into the workspace and
// returns the single top-level source directory it produced. Anything other
// than exactly one new top-level directory is an AmbiguousArchiveError.
func (w *Workspace) Extract(archivePath string) (string, error) {
	if err := w.untar(archivePath); err != nil {
		return "", err
	}

	entries, err := os.ReadDir(w.root)
	if err != nil {
		return "", fmt.Errorf("listing workspace: %w", err)
	}

	var tops []string
	for _, e := range entries {
		if e.Name() == filepath.Base(archivePath) {
			continue
		}
		tops = append(tops, e.Name())
	}

	if len(tops) != 1 {
		return "", &AmbiguousArchiveError{Archive: filepath.Base(archivePath), Entries: tops}
	}

	srcDir := filepath.Join(w.root, tops[0])
	info, err := os.Stat(srcDir)
	if err != nil {
		return "", fmt.Errorf("inspecting %s: %w", srcDir, err)
	}
	if !info.IsDir() {
		return "", &AmbiguousArchiveError{Archive: filepath.Base(archivePath), Entries: tops}
	}

	return srcDir, nil
}

// untar extracts every entry of the tar.gz archive into the workspace root,
// rejecting entries that would escape it.
func (w *Workspace) untar(archivePath string) (err error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer func() {
		// Read-only file handle; close errors are exotic.
		_ = f.Close()
	}()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("creating gzip reader: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			return fmt.Errorf("reading tar entry: %w", nextErr)
		}

		name := filepath.Clean(hdr.Name)
		if !filepath.IsLocal(name) {
			return fmt.Errorf("%w: %s", ErrUnsafeArchivePath, hdr.Name)
		}
		dest := filepath.Join(w.root, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return fmt.Errorf("creating directory %s: %w", dest, err)
			}
		case tar.TypeReg:
			if err := extractFile(tr, dest, hdr.FileInfo().Mode()); err != nil {
				return err
			}
		default:
			// Symlinks, devices, and other exotic entries are skipped;
			// source distributions are plain trees of files.
		}
	}

	return nil
}

func extractFile(tr *tar.Reader, dest string, mode os.FileMode) (err error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", dest, err)
	}

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(f, io.LimitReader(tr, maxFileBytes)); err != nil {
		return fmt.Errorf("extracting %s: %w", dest, err)
	}

	return nil
}
