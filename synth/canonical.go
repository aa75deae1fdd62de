package synth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// ErrWriteOutput indicates the schema could not be serialized.
var ErrWriteOutput = errors.New("write output")

// MarshalCanonical serializes a schema with object keys sorted
// alphabetically, so equal schemas serialize identically and repeated runs
// on identical inputs emit byte-identical output. Pretty output is indented
// with two spaces; compact output is a single line. Both end with a
// newline.
func MarshalCanonical(s *jsonschema.Schema, compact bool) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}

	// Round-trip through plain values: encoding/json emits map keys in
	// sorted order.
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}

	if compact {
		out, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrWriteOutput, err)
		}

		return append(out, '\n'), nil
	}

	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}

	return append(out, '\n'), nil
}
