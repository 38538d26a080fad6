// SPDX-License-Identifier: MPL-2.0

// Package version implements ordering for loose version identifiers as they
// appear on package indexes ("0.10", "1.0.2.post1", "4.0rc2"). These are not
// semantic versions: components may be purely numeric, purely alphabetic, or
// mixed, and the number of components is unbounded.
package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidVersion is returned when a version string cannot be parsed.
var ErrInvalidVersion = errors.New("invalid version")

type (
	// Version is a parsed loose version identifier. The string is split into
	// runs of digits and runs of letters; comparison is component-wise:
	//
	//   - The leading numeric component compares by integer value
	//     ("2" < "10"), as does a digit run attached to letters
	//     ("rc2" < "rc10").
	//   - A digit run introduced by a separator compares as a decimal
	//     fraction: both runs are right-padded to equal width and compared
	//     digit by digit, so "0.05" < "0.1" < "0.15" < "0.2". A consequence
	//     is that "0.9" sorts after "0.10".
	//   - Alphabetic components compare lexically, and a numeric component
	//     sorts before an alphabetic one ("1.0.1" < "1.0.post1").
	//   - A version that is a strict prefix of another sorts before it
	//     ("1.0" < "1.0rc1" < "1.0.1").
	Version struct {
		components []component
		original   string
	}

	// component is a single parsed element: either a number or a string,
	// never both. Numeric components keep their raw digits so padding
	// survives parsing; frac marks a digit run introduced by a separator,
	// which compares fractionally rather than by integer value.
	component struct {
		num     int
		digits  string
		str     string
		numeric bool
		frac    bool
	}
)

// componentRegex splits a version string into runs of digits and runs of
// letters; dots and dashes act only as separators.
var componentRegex = regexp.MustCompile(`\d+|[a-zA-Z]+`)

// Parse parses a loose version identifier. The only rejected inputs are
// strings containing no digits or letters at all.
func Parse(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	indexes := componentRegex.FindAllStringIndex(trimmed, -1)
	if len(indexes) == 0 {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	components := make([]component, 0, len(indexes))
	for _, idx := range indexes {
		m := trimmed[idx[0]:idx[1]]
		if n, err := strconv.Atoi(m); err == nil {
			components = append(components, component{
				num:     n,
				digits:  m,
				numeric: true,
				frac:    idx[0] > 0 && isSeparator(trimmed[idx[0]-1]),
			})
			continue
		}
		components = append(components, component{str: strings.ToLower(m)})
	}

	return Version{components: components, original: s}, nil
}

// MustParse parses a version and panics on failure. Intended for static
// tables and tests.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the original version string.
func (v Version) String() string { return v.original }

// Compare returns -1, 0, or 1 depending on whether v sorts before, equal to,
// or after other.
func Compare(v, other Version) int {
	for i := 0; i < len(v.components) && i < len(other.components); i++ {
		if c := compareComponent(v.components[i], other.components[i]); c != 0 {
			return c
		}
	}

	// Common prefix is equal; the shorter version sorts first.
	switch {
	case len(v.components) < len(other.components):
		return -1
	case len(v.components) > len(other.components):
		return 1
	}
	return 0
}

// Less reports whether v sorts strictly before other.
func Less(v, other Version) bool { return Compare(v, other) < 0 }

func compareComponent(a, b component) int {
	// Numeric components sort before alphabetic ones.
	if a.numeric != b.numeric {
		if a.numeric {
			return -1
		}
		return 1
	}

	if a.numeric {
		// Separator-introduced digit runs read as decimal fractions: pad
		// both to equal width and compare positionally, so "15" < "20"
		// and "05" < "10" regardless of integer value.
		if a.frac || b.frac {
			width := max(len(a.digits), len(b.digits))
			return strings.Compare(rightPad(a.digits, width), rightPad(b.digits, width))
		}
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	}

	return strings.Compare(a.str, b.str)
}

func isSeparator(c byte) bool {
	return c == '.' || c == '-' || c == '_'
}

func rightPad(digits string, width int) string {
	return digits + strings.Repeat("0", width-len(digits))
}
