// SPDX-License-Identifier: MPL-2.0

// Package config loads and validates the wheelsmith packages file. The file
// is YAML; its structure is checked by unification with an embedded CUE
// schema before decoding, so shape errors carry the schema's field paths
// instead of surfacing as zero values downstream.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"
)

// DefaultPackagesFile is the packages file looked up in the current
// directory when no explicit path is given.
const DefaultPackagesFile = "wheelsmith.yml"

// schemaPath is the root definition within the embedded schema.
const schemaPath = "#PackagesFile"

//go:embed packages_schema.cue
var packagesSchema string

// Load reads, schema-checks, and validates the packages file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading packages file: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes packages file bytes. The three-step flow follows the usual CUE
// pattern: compile the embedded schema, extract the YAML into a CUE value,
// unify the two, then validate and decode.
func Parse(data []byte, filename string) (*File, error) {
	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(packagesSchema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: compiling packages schema: %w", schemaValue.Err())
	}
	schemaRoot := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if schemaRoot.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, schemaRoot.Err())
	}

	file, err := yaml.Extract(filename, data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}
	userValue := ctx.BuildFile(file)
	if userValue.Err() != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, userValue.Err())
	}

	unified := schemaRoot.Unify(userValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validating %s: %w", filename, err)
	}

	var result File
	if err := unified.Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filename, err)
	}

	if len(result.Packages) == 0 {
		return nil, fmt.Errorf("%s: %w", filename, ErrNoPackages)
	}
	for i := range result.Packages {
		if err := result.Packages[i].Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
	}

	return &result, nil
}
