// SPDX-License-Identifier: MPL-2.0

package reconcile

import "slices"

// pythonTags is the vocabulary of recognized CPython build tags, ordered by
// interpreter version. Wheel filenames are matched against this full
// vocabulary by substring, so a filename contributes every tag it contains.
var pythonTags = []string{
	"cp27",
	"cp34",
	"cp35",
	"cp36",
	"cp37",
	"cp38",
	"cp39",
	"cp310",
	"cp311",
	"cp312",
	"cp313",
}

// PythonTags returns the recognized CPython build tag vocabulary.
func PythonTags() []string {
	return slices.Clone(pythonTags)
}

// IsKnownPythonTag reports whether tag is part of the recognized vocabulary.
func IsKnownPythonTag(tag string) bool {
	return slices.Contains(pythonTags, tag)
}
