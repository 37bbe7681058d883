package persistence

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// EffectWeights are the relative weights of the four effect tiers.
type EffectWeights struct {
	Star1 int `json:"star1"`
	Star2 int `json:"star2"`
	Star3 int `json:"star3"`
	Star4 int `json:"star4"`
}

// MaxEffectWeight bounds a single tier weight so that totals stay exact in float64.
const MaxEffectWeight = 1_000_000_000

// DefaultEffectWeights is used for new tenants and for stored documents that fail validation.
var DefaultEffectWeights = EffectWeights{Star1: 25, Star2: 25, Star3: 25, Star4: 25}

// Array returns the weights in tier order.
func (w EffectWeights) Array() [4]int {
	return [4]int{w.Star1, w.Star2, w.Star3, w.Star4}
}

const effectWeightsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "star1": {"type": "integer", "minimum": 0, "maximum": 1000000000},
    "star2": {"type": "integer", "minimum": 0, "maximum": 1000000000},
    "star3": {"type": "integer", "minimum": 0, "maximum": 1000000000},
    "star4": {"type": "integer", "minimum": 0, "maximum": 1000000000}
  },
  "required": ["star1", "star2", "star3", "star4"]
}`

var compiledEffectWeightsSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("effect_probs.json", strings.NewReader(effectWeightsSchema)); err != nil {
		return nil, fmt.Errorf("register effect weights schema: %w", err)
	}
	return compiler.Compile("effect_probs.json")
})

// ParseEffectWeights validates a stored effect_probs document and decodes it.
func ParseEffectWeights(raw []byte) (EffectWeights, error) {
	schema, err := compiledEffectWeightsSchema()
	if err != nil {
		return EffectWeights{}, err
	}

	var document any
	if err := json.Unmarshal(raw, &document); err != nil {
		return EffectWeights{}, fmt.Errorf("decode effect weights: %w", err)
	}
	if err := schema.Validate(document); err != nil {
		return EffectWeights{}, fmt.Errorf("effect weights schema: %w", err)
	}

	var w EffectWeights
	if err := json.Unmarshal(raw, &w); err != nil {
		return EffectWeights{}, fmt.Errorf("decode effect weights: %w", err)
	}
	return w, nil
}

// EffectWeightsOrDefault parses raw and falls back to DefaultEffectWeights on any failure.
func EffectWeightsOrDefault(raw []byte) EffectWeights {
	if len(raw) == 0 {
		return DefaultEffectWeights
	}
	w, err := ParseEffectWeights(raw)
	if err != nil {
		return DefaultEffectWeights
	}
	return w
}

// MarshalEffectWeights encodes w as the stored JSON document.
func MarshalEffectWeights(w EffectWeights) ([]byte, error) {
	for _, v := range w.Array() {
		if v < 0 || v > MaxEffectWeight {
			return nil, fmt.Errorf("effect weight %d out of range [0, %d]", v, MaxEffectWeight)
		}
	}
	return json.Marshal(w)
}
