// SPDX-License-Identifier: MPL-2.0

package builder

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// ErrNoPinnedNumpy is returned when the compatibility table has no entry for
// a (python tag, platform tag) pair. Under pin_numpy this is a configuration
// error: there is no correct version to install.
var ErrNoPinnedNumpy = errors.New("no pinned numpy version")

//go:embed numpy_pins.toml
var numpyPinsTOML []byte

var (
	numpyPinsOnce sync.Once
	numpyPins     map[string]map[string]string
	numpyPinsErr  error
)

// PinnedNumpy looks up the pinned numpy version for the given python and
// platform tags from the static compatibility table.
func PinnedNumpy(pythonTag, platformTag string) (string, error) {
	numpyPinsOnce.Do(func() {
		numpyPinsErr = toml.Unmarshal(numpyPinsTOML, &numpyPins)
	})
	if numpyPinsErr != nil {
		return "", fmt.Errorf("internal error: parsing numpy pin table: %w", numpyPinsErr)
	}

	byPlatform, ok := numpyPins[pythonTag]
	if !ok {
		return "", fmt.Errorf("%w for %s-%s", ErrNoPinnedNumpy, pythonTag, platformTag)
	}
	pinned, ok := byPlatform[platformTag]
	if !ok {
		return "", fmt.Errorf("%w for %s-%s", ErrNoPinnedNumpy, pythonTag, platformTag)
	}

	return pinned, nil
}
