package synth

import (
	"encoding/json"
	"slices"

	"github.com/google/jsonschema-go/jsonschema"
)

// Merge combines two schema fragments compatibly. It satisfies
// merge(a, a) = a, merge({}, b) = b, and is associative and commutative up
// to anyOf ordering: anyOf arrays are canonicalized by serialized sort key.
func Merge(a, b *jsonschema.Schema) *jsonschema.Schema {
	return fromMap(mergeValues(toMap(a), toMap(b)))
}

// MergeAll folds a list of fragments, deduplicating by canonical
// serialization first so the result is order-independent.
func MergeAll(schemas ...*jsonschema.Schema) *jsonschema.Schema {
	maps := make([]map[string]any, 0, len(schemas))
	for _, s := range schemas {
		maps = append(maps, toMap(s))
	}

	slices.SortStableFunc(maps, func(x, y map[string]any) int {
		return compareCanonical(x, y)
	})
	maps = slices.CompactFunc(maps, func(x, y map[string]any) bool {
		return canonicalString(x) == canonicalString(y)
	})

	if len(maps) == 0 {
		return &jsonschema.Schema{}
	}

	out := maps[0]
	for _, m := range maps[1:] {
		out = mergeValues(out, m)
	}

	return fromMap(out)
}

// The kernel operates on the plain JSON representation so unknown keywords
// survive and "must agree" checks cover every keyword uniformly.

func toMap(s *jsonschema.Schema) map[string]any {
	if s == nil {
		return map[string]any{}
	}

	data, err := json.Marshal(s)
	if err != nil {
		return map[string]any{}
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{}
	}

	return m
}

func fromMap(m map[string]any) *jsonschema.Schema {
	data, err := json.Marshal(m)
	if err != nil {
		return &jsonschema.Schema{}
	}

	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return &jsonschema.Schema{}
	}

	return &s
}

func mergeValues(a, b map[string]any) map[string]any {
	if canonicalString(a) == canonicalString(b) {
		return a
	}

	if len(a) == 0 {
		return b
	}

	if len(b) == 0 {
		return a
	}

	if merged, ok := tryMergeCompatible(a, b); ok {
		return merged
	}

	out := flattenAnyOf(a)
	out = append(out, flattenAnyOf(b)...)

	slices.SortStableFunc(out, compareCanonicalAny)
	out = slices.CompactFunc(out, func(x, y any) bool {
		return canonicalStringAny(x) == canonicalStringAny(y)
	})

	if len(out) == 1 {
		if m, ok := out[0].(map[string]any); ok {
			return m
		}
	}

	return map[string]any{"anyOf": out}
}

func flattenAnyOf(v map[string]any) []any {
	if arr, ok := v["anyOf"].([]any); ok {
		return slices.Clone(arr)
	}

	return []any{v}
}

func schemaTypeOf(v map[string]any) (string, bool) {
	t, ok := v["type"].(string)

	return t, ok
}

func tryMergeCompatible(a, b map[string]any) (map[string]any, bool) {
	ta, okA := schemaTypeOf(a)
	tb, okB := schemaTypeOf(b)

	if !okA || !okB || ta != tb {
		return nil, false
	}

	switch ta {
	case "object":
		return mergeObjectSchemas(a, b)
	case "array":
		return mergeArraySchemas(a, b)
	default:
		return mergeScalarSchemas(a, b)
	}
}

// mergeScalarSchemas merges two same-primitive-type schemas: enum arrays
// intersect when both sides are closed and widen to the plain type when the
// intersection is empty; every other keyword must agree.
func mergeScalarSchemas(a, b map[string]any) (map[string]any, bool) {
	out := cloneMap(a)

	enumA, hasA := out["enum"].([]any)
	enumB, hasB := b["enum"].([]any)

	switch {
	case hasA && hasB:
		var inter []any

		for _, v := range enumA {
			if containsValue(enumB, v) {
				inter = append(inter, v)
			}
		}

		slices.SortStableFunc(inter, compareCanonicalAny)
		inter = slices.CompactFunc(inter, func(x, y any) bool {
			return canonicalStringAny(x) == canonicalStringAny(y)
		})

		if len(inter) == 0 {
			delete(out, "enum")
		} else {
			out["enum"] = inter
		}

	case hasB:
		out["enum"] = enumB
	}

	for k, bv := range b {
		if k == "type" || k == "enum" {
			continue
		}

		av, exists := out[k]
		if !exists {
			out[k] = bv

			continue
		}

		if canonicalStringAny(av) != canonicalStringAny(bv) {
			return nil, false
		}
	}

	return out, true
}

func mergeArraySchemas(a, b map[string]any) (map[string]any, bool) {
	out := cloneMap(a)

	itemsA, hasA := out["items"].(map[string]any)
	itemsB, hasB := b["items"].(map[string]any)

	switch {
	case hasA && hasB:
		out["items"] = mergeValues(itemsA, itemsB)
	case hasB:
		out["items"] = itemsB
	}

	for k, bv := range b {
		if k == "type" || k == "items" {
			continue
		}

		av, exists := out[k]
		if !exists {
			out[k] = bv

			continue
		}

		if canonicalStringAny(av) != canonicalStringAny(bv) {
			return nil, false
		}
	}

	return out, true
}

// mergeObjectSchemas merges two object schemas: properties merge key-wise,
// required lists union, and additionalProperties follows the lattice
// false < schema < true, where false wins as soon as either side declares
// fixed properties.
func mergeObjectSchemas(a, b map[string]any) (map[string]any, bool) {
	aStructured := isStructuredObject(a)
	bStructured := isStructuredObject(b)

	if !aStructured && bStructured {
		return cloneMap(b), true
	}

	if !bStructured && aStructured {
		return cloneMap(a), true
	}

	out := cloneMap(a)

	aFixed := hasFixedShape(a)
	bFixed := hasFixedShape(b)
	aMapLike := !aFixed && isObjectValue(a["additionalProperties"])
	bMapLike := !bFixed && isObjectValue(b["additionalProperties"])

	apA, apAOk := a["additionalProperties"]
	apB, apBOk := b["additionalProperties"]

	switch {
	case aFixed || bFixed:
		out["additionalProperties"] = false

	case aMapLike && bMapLike:
		out["additionalProperties"] = mergeValues(apA.(map[string]any), apB.(map[string]any))

	case apA == false && isObjectValue(apB):
		out["additionalProperties"] = apB

	case apB == false && isObjectValue(apA):
		out["additionalProperties"] = apA

	case apA == false || apB == false:
		out["additionalProperties"] = false

	case apA == true && apBOk:
		out["additionalProperties"] = apB

	case apB == true && apAOk:
		out["additionalProperties"] = apA

	case isObjectValue(apA) && isObjectValue(apB):
		out["additionalProperties"] = mergeValues(apA.(map[string]any), apB.(map[string]any))

	case !apAOk && apBOk:
		out["additionalProperties"] = apB
	}

	// Required: union.
	var required []string

	for _, src := range []map[string]any{a, b} {
		if arr, ok := src["required"].([]any); ok {
			for _, v := range arr {
				if s, ok := v.(string); ok {
					required = append(required, s)
				}
			}
		}
	}

	slices.Sort(required)
	required = slices.Compact(required)

	if len(required) > 0 {
		vals := make([]any, len(required))
		for i, s := range required {
			vals[i] = s
		}

		out["required"] = vals
	}

	// Properties: key-wise recursive merge.
	props := cloneMapValue(a["properties"])

	if bProps, ok := b["properties"].(map[string]any); ok {
		for k, bv := range bProps {
			bvm, bvIsMap := bv.(map[string]any)

			av, exists := props[k]
			avm, avIsMap := av.(map[string]any)

			if exists && avIsMap && bvIsMap {
				props[k] = mergeValues(avm, bvm)
			} else {
				props[k] = bv
			}
		}
	}

	out["properties"] = props

	// patternProperties: key-wise recursive merge.
	pp := cloneMapValue(a["patternProperties"])

	if bpp, ok := b["patternProperties"].(map[string]any); ok {
		for k, bv := range bpp {
			bvm, bvIsMap := bv.(map[string]any)

			av, exists := pp[k]
			avm, avIsMap := av.(map[string]any)

			if exists && avIsMap && bvIsMap {
				pp[k] = mergeValues(avm, bvm)
			} else {
				pp[k] = bv
			}
		}
	}

	if len(pp) > 0 {
		out["patternProperties"] = pp
	}

	out["type"] = "object"

	return out, true
}

func isStructuredObject(obj map[string]any) bool {
	return hasFixedShape(obj) || isObjectValue(obj["additionalProperties"])
}

func hasFixedShape(obj map[string]any) bool {
	if props, ok := obj["properties"].(map[string]any); ok && len(props) > 0 {
		return true
	}

	if pp, ok := obj["patternProperties"].(map[string]any); ok && len(pp) > 0 {
		return true
	}

	if req, ok := obj["required"].([]any); ok && len(req) > 0 {
		return true
	}

	return false
}

func isObjectValue(v any) bool {
	_, ok := v.(map[string]any)

	return ok
}

func containsValue(arr []any, v any) bool {
	for _, x := range arr {
		if canonicalStringAny(x) == canonicalStringAny(v) {
			return true
		}
	}

	return false
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}

func cloneMapValue(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return cloneMap(m)
	}

	return map[string]any{}
}

func canonicalString(m map[string]any) string {
	return canonicalStringAny(m)
}

// canonicalStringAny serializes a JSON value with object keys sorted, the
// comparison key behind all kernel deduplication.
func canonicalStringAny(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}

	return string(data)
}

func compareCanonical(a, b map[string]any) int {
	return compareCanonicalAny(a, b)
}

func compareCanonicalAny(a, b any) int {
	sa, sb := canonicalStringAny(a), canonicalStringAny(b)

	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}

	return 0
}
