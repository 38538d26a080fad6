// SPDX-License-Identifier: MPL-2.0

package reconcile

import (
	"errors"
	"slices"
	"testing"

	"wheelsmith/internal/pypi"
)

func wheel(filename string) pypi.ReleaseFile {
	return pypi.ReleaseFile{Filename: filename, PackageType: pypi.PackageTypeWheel}
}

func sdist(filename string) pypi.ReleaseFile {
	return pypi.ReleaseFile{Filename: filename, PackageType: pypi.PackageTypeSourceDist, URL: "https://files.example/" + filename}
}

func TestMissingTags_BasicDiff(t *testing.T) {
	t.Parallel()

	files := []pypi.ReleaseFile{
		wheel("pkg-1.0-cp27-cp27m-macosx.whl"),
		sdist("pkg-1.0.tar.gz"),
	}

	missing, sd, err := MissingTags(files, "macosx", []string{"cp27", "cp35"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(missing, []string{"cp35"}) {
		t.Errorf("missing = %v, want [cp35]", missing)
	}
	if sd == nil || sd.Filename != "pkg-1.0.tar.gz" {
		t.Errorf("sdist = %+v, want pkg-1.0.tar.gz", sd)
	}
}

func TestMissingTags_EmptyExactlyWhenCovered(t *testing.T) {
	t.Parallel()

	files := []pypi.ReleaseFile{
		wheel("pkg-1.0-cp27-cp27m-macosx.whl"),
		wheel("pkg-1.0-cp35-cp35m-macosx.whl"),
		sdist("pkg-1.0.tar.gz"),
	}

	missing, _, err := MissingTags(files, "macosx", []string{"cp27", "cp35"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("missing = %v, want empty when published covers required", missing)
	}
}

func TestMissingTags_OtherPlatformDoesNotCount(t *testing.T) {
	t.Parallel()

	files := []pypi.ReleaseFile{
		wheel("pkg-1.0-cp27-cp27m-win_amd64.whl"),
		sdist("pkg-1.0.tar.gz"),
	}

	missing, _, err := MissingTags(files, "macosx", []string{"cp27"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(missing, []string{"cp27"}) {
		t.Errorf("missing = %v; a win_amd64 wheel must not satisfy macosx", missing)
	}
}

func TestMissingTags_NoSourceDist(t *testing.T) {
	t.Parallel()

	files := []pypi.ReleaseFile{
		wheel("pkg-1.0-cp27-cp27m-macosx.whl"),
	}

	if _, _, err := MissingTags(files, "macosx", []string{"cp27"}); !errors.Is(err, ErrNoSourceDist) {
		t.Fatalf("expected ErrNoSourceDist, got %v", err)
	}
}

func TestMissingTags_MultipleSourceDists(t *testing.T) {
	t.Parallel()

	files := []pypi.ReleaseFile{
		sdist("pkg-1.0.tar.gz"),
		sdist("pkg-1.0.zip"),
	}

	if _, _, err := MissingTags(files, "macosx", []string{"cp27"}); !errors.Is(err, ErrMultipleSourceDists) {
		t.Fatalf("expected ErrMultipleSourceDists, got %v", err)
	}
}

func TestMissingTags_SubstringOverMatch(t *testing.T) {
	t.Parallel()

	// Substring matching contributes every vocabulary tag the filename
	// contains. A filename carrying both cp27 and cp35 fragments marks both
	// as published. That is the documented over-match.
	files := []pypi.ReleaseFile{
		wheel("pkg-1.0-cp27-compat-cp35-macosx.whl"),
		sdist("pkg-1.0.tar.gz"),
	}

	missing, _, err := MissingTags(files, "macosx", []string{"cp27", "cp35", "cp36"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(missing, []string{"cp36"}) {
		t.Errorf("missing = %v, want [cp36]", missing)
	}
}

func TestMissingTags_SortedResult(t *testing.T) {
	t.Parallel()

	files := []pypi.ReleaseFile{sdist("pkg-1.0.tar.gz")}

	missing, _, err := MissingTags(files, "macosx", []string{"cp36", "cp27", "cp35"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.IsSorted(missing) {
		t.Errorf("missing must be sorted, got %v", missing)
	}
}

func TestMissingTags_Idempotent(t *testing.T) {
	t.Parallel()

	files := []pypi.ReleaseFile{
		wheel("pkg-1.0-cp27-cp27m-macosx.whl"),
		sdist("pkg-1.0.tar.gz"),
	}
	required := []string{"cp27", "cp35", "cp36"}

	first, _, err := MissingTags(files, "macosx", required)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _, err := MissingTags(files, "macosx", required)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(first, second) {
		t.Errorf("two computations over the same metadata differ: %v vs %v", first, second)
	}
}
