// Package contracts embeds the OpenAPI document served at /openapi/gacha.json and used
// by the optional request validator.
package contracts

import (
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// Name is the document name used in docs routes.
const Name = "gacha"

//go:embed gacha.yaml
var gachaYAML []byte

// Load parses and validates the embedded document. Each call returns a fresh copy, so
// callers may mutate it.
func Load() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	spec, err := loader.LoadFromData(gachaYAML)
	if err != nil {
		return nil, fmt.Errorf("load gacha contract: %w", err)
	}
	if err := spec.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate gacha contract: %w", err)
	}
	return spec, nil
}
