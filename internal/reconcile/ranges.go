// SPDX-License-Identifier: MPL-2.0

package reconcile

import (
	"errors"
	"fmt"
	"slices"

	"golang.org/x/exp/maps"

	"wheelsmith/internal/version"
)

// ErrOutOfRange is returned by RequiredTags when the release predates the
// minimum configured version. It marks a scope-skip, not a failure: the
// caller moves on to the next release.
var ErrOutOfRange = errors.New("release predates configured versions")

type (
	// RangeConfig maps package version thresholds to required python tag
	// sets. A threshold applies to its own version and every later version
	// up to the next configured threshold; a later threshold's set takes
	// over entirely (no merging).
	RangeConfig struct {
		entries []rangeEntry // ascending by version
	}

	rangeEntry struct {
		threshold version.Version
		tags      []string
	}
)

// NewRangeConfig parses and orders the raw version map from the packages
// file. An unparsable key or an empty map is a configuration error.
func NewRangeConfig(raw map[string][]string) (*RangeConfig, error) {
	if len(raw) == 0 {
		return nil, errors.New("python_versions must not be empty")
	}

	entries := make([]rangeEntry, 0, len(raw))
	for _, key := range maps.Keys(raw) {
		v, err := version.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("python_versions key %q: %w", key, err)
		}
		tags := slices.Clone(raw[key])
		slices.Sort(tags)
		entries = append(entries, rangeEntry{threshold: v, tags: tags})
	}

	slices.SortFunc(entries, func(a, b rangeEntry) int {
		return version.Compare(a.threshold, b.threshold)
	})

	return &RangeConfig{entries: entries}, nil
}

// RequiredTags resolves the required python tag set for a release version
// using floor semantics: the entry with the greatest threshold less than or
// equal to the release applies; an exact match uses that entry itself.
// Returns ErrOutOfRange when the release predates the minimum threshold.
func (rc *RangeConfig) RequiredTags(releaseVersion string) ([]string, error) {
	release, err := version.Parse(releaseVersion)
	if err != nil {
		return nil, fmt.Errorf("release version %q: %w", releaseVersion, err)
	}

	// Walk ascending thresholds and keep the last one at or below the release.
	matched := -1
	for i, entry := range rc.entries {
		if version.Compare(entry.threshold, release) > 0 {
			break
		}
		matched = i
	}

	if matched < 0 {
		return nil, fmt.Errorf("release %s: %w", releaseVersion, ErrOutOfRange)
	}

	return slices.Clone(rc.entries[matched].tags), nil
}

// MinVersion returns the smallest configured threshold.
func (rc *RangeConfig) MinVersion() version.Version {
	return rc.entries[0].threshold
}
