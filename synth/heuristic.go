package synth

import (
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// heuristicLeaf types a leaf from its final YAML path segment when neither
// the oracle nor the defaults document know better.
func heuristicLeaf(segment string) *jsonschema.Schema {
	segment = strings.TrimSuffix(segment, "[*]")

	if isBooleanName(segment) {
		return &jsonschema.Schema{Type: typeBoolean}
	}

	if isIntegerName(segment) {
		return &jsonschema.Schema{Type: typeInteger}
	}

	if isStringMapName(segment) {
		return stringMapSchema()
	}

	return &jsonschema.Schema{}
}

func isBooleanName(name string) bool {
	return name == "enabled" || name == "installCRDs" || strings.HasSuffix(name, "Enabled")
}

func isIntegerName(name string) bool {
	switch name {
	case "port", "targetPort", "nodePort", "containerPort", "hostPort",
		"number", "replicas", "replicaCount", "revisionHistoryLimit",
		"terminationGracePeriodSeconds", "tolerationSeconds":
		return true
	}

	return false
}

func isStringMapName(name string) bool {
	switch name {
	case "labels", "annotations", "nodeSelector", "matchLabels", "podLabels", "podAnnotations":
		return true
	}

	return false
}

func stringMapSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 typeObject,
		AdditionalProperties: &jsonschema.Schema{Type: typeString},
	}
}

// strengthenLeaf narrows an anyOf schema using the override-document path
// name: *.enabled prefers the boolean branch, count-like names the integer
// branch, labels/annotations the string-map branch.
func strengthenLeaf(valuePath string, s *jsonschema.Schema) *jsonschema.Schema {
	if s == nil || len(s.AnyOf) == 0 {
		return s
	}

	last := valuePath
	if idx := strings.LastIndexByte(valuePath, '.'); idx >= 0 {
		last = valuePath[idx+1:]
	}

	if valuePath == "installCRDs" || isBooleanName(last) {
		if branch := branchOfType(s.AnyOf, typeBoolean); branch != nil {
			return branch
		}
	}

	if isIntegerName(last) {
		if branch := branchOfType(s.AnyOf, typeInteger); branch != nil {
			return branch
		}
	}

	if last == "labels" || last == "annotations" {
		for _, branch := range s.AnyOf {
			if isStringMap(branch) {
				return branch
			}
		}

		if branch := branchOfType(s.AnyOf, typeObject); branch != nil {
			return branch
		}
	}

	return s
}

func branchOfType(branches []*jsonschema.Schema, typ string) *jsonschema.Schema {
	for _, b := range branches {
		if schemaTypeName(b) == typ {
			return b
		}
	}

	return nil
}

func isStringMap(s *jsonschema.Schema) bool {
	return schemaTypeName(s) == typeObject &&
		s.AdditionalProperties != nil &&
		schemaTypeName(s.AdditionalProperties) == typeString
}
