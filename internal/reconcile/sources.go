// SPDX-License-Identifier: MPL-2.0

package reconcile

import (
	"context"

	"wheelsmith/internal/pypi"
	"wheelsmith/internal/workspace"
)

// WorkspaceSources prepares source trees in throwaway workspace directories:
// download the sdist, extract it, hand back the single top-level source
// directory. Cleanup removes the whole workspace.
type WorkspaceSources struct {
	dl workspace.Downloader
}

// NewWorkspaceSources creates a WorkspaceSources downloading through dl.
func NewWorkspaceSources(dl workspace.Downloader) *WorkspaceSources {
	return &WorkspaceSources{dl: dl}
}

// Prepare implements Sources.
func (s *WorkspaceSources) Prepare(ctx context.Context, file pypi.ReleaseFile) (string, func() error, error) {
	ws, err := workspace.New()
	if err != nil {
		return "", nil, err
	}

	archivePath, err := ws.Fetch(ctx, s.dl, file.URL, file.Filename)
	if err != nil {
		_ = ws.Close()
		return "", nil, err
	}

	srcDir, err := ws.Extract(archivePath)
	if err != nil {
		_ = ws.Close()
		return "", nil, err
	}

	return srcDir, ws.Close, nil
}
