package helmschema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/jsonschema-go/jsonschema"
)

// ErrOverrideSchema indicates the user-supplied override schema could not
// be read or parsed. Generation fails rather than emitting a partial
// schema silently.
var ErrOverrideSchema = errors.New("override schema")

// LoadOverride reads a user-supplied schema patch from a JSON file.
func LoadOverride(path string) (map[string]any, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Override path comes from the CLI.
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOverrideSchema, err)
	}

	var override map[string]any

	if err := json.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOverrideSchema, path, err)
	}

	return override, nil
}

// ApplyOverride layers a schema patch over a generated schema: objects
// merge recursively, anything else in the override replaces the generated
// value.
func ApplyOverride(schema *jsonschema.Schema, override map[string]any) (*jsonschema.Schema, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOverrideSchema, err)
	}

	var base map[string]any

	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOverrideSchema, err)
	}

	merged := overlayValue(base, override)

	data, err = json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOverrideSchema, err)
	}

	var out jsonschema.Schema

	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOverrideSchema, err)
	}

	return &out, nil
}

func overlayValue(base, override any) any {
	baseMap, baseOk := base.(map[string]any)

	overrideMap, overrideOk := override.(map[string]any)
	if !baseOk || !overrideOk {
		return override
	}

	out := make(map[string]any, len(baseMap)+len(overrideMap))

	for k, v := range baseMap {
		out[k] = v
	}

	for k, v := range overrideMap {
		if existing, ok := out[k]; ok {
			out[k] = overlayValue(existing, v)
		} else {
			out[k] = v
		}
	}

	return out
}
