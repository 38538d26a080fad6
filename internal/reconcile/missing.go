// SPDX-License-Identifier: MPL-2.0

package reconcile

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"wheelsmith/internal/pypi"
)

var (
	// ErrNoSourceDist is returned when a release publishes no source
	// distribution. The release cannot be built and the run aborts.
	ErrNoSourceDist = errors.New("release has no source distribution")

	// ErrMultipleSourceDists is returned when a release publishes more than
	// one source distribution. Picking one silently would be guessing, so
	// the run aborts instead.
	ErrMultipleSourceDists = errors.New("release has multiple source distributions")
)

// MissingTags computes which required python tags have no published wheel for
// the given platform, and identifies the release's source distribution.
//
// Wheel filenames are matched by substring against the full recognized tag
// vocabulary: a wheel whose filename contains platformTag contributes every
// vocabulary tag its filename contains. This can over-match on ambiguous
// filenames; that is a known, accepted limitation, since tightening the
// matching would change which targets are considered already built.
//
// The returned slice is sorted ascending. The function is pure: it never
// touches the network or filesystem.
func MissingTags(files []pypi.ReleaseFile, platformTag string, required []string) ([]string, *pypi.ReleaseFile, error) {
	var sdist *pypi.ReleaseFile
	published := make(map[string]bool)

	for i := range files {
		switch files[i].PackageType {
		case pypi.PackageTypeWheel:
			if !strings.Contains(files[i].Filename, platformTag) {
				continue
			}
			for _, tag := range pythonTags {
				if strings.Contains(files[i].Filename, tag) {
					published[tag] = true
				}
			}
		case pypi.PackageTypeSourceDist:
			if sdist != nil {
				return nil, nil, fmt.Errorf("%w: %s and %s", ErrMultipleSourceDists, sdist.Filename, files[i].Filename)
			}
			sdist = &files[i]
		}
	}

	if sdist == nil {
		return nil, nil, ErrNoSourceDist
	}

	var missing []string
	for _, tag := range required {
		if !published[tag] {
			missing = append(missing, tag)
		}
	}
	slices.Sort(missing)

	return missing, sdist, nil
}
