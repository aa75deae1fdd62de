package oracle

import (
	"github.com/google/jsonschema-go/jsonschema"

	"go.jacobcolvin.com/helmschema/symbolic"
)

// Heuristic is the last-resort oracle: a hard-coded table of widely-used
// Kubernetes field shapes, keyed by the YAML path pattern alone. It ignores
// the resource reference entirely.
type Heuristic struct{}

// ResourceSchema implements [Oracle]; the table has no full-resource
// shapes.
func (Heuristic) ResourceSchema(symbolic.ResourceRef) (*jsonschema.Schema, bool) {
	return nil, false
}

// SchemaAt implements [Oracle].
func (Heuristic) SchemaAt(_ symbolic.ResourceRef, path symbolic.YamlPath) (*jsonschema.Schema, bool) {
	switch path.String() {
	case "apiVersion", "kind",
		"metadata.name", "metadata.namespace",
		"spec.type", "spec.clusterIP",
		"spec.ports[*].name", "spec.ports[*].protocol",
		"spec.template.spec.serviceAccountName",
		"spec.template.spec.tolerations[*].key",
		"spec.template.spec.tolerations[*].operator",
		"spec.template.spec.tolerations[*].value",
		"spec.template.spec.tolerations[*].effect",
		"spec.template.spec.containers[*].name",
		"spec.template.spec.containers[*].image",
		"spec.template.spec.containers[*].imagePullPolicy",
		"spec.template.spec.containers[*].ports[*].name",
		"spec.template.spec.containers[*].ports[*].protocol",
		"spec.template.spec.containers[*].env[*].name",
		"spec.template.spec.containers[*].env[*].value",
		"spec.template.spec.containers[*].resources.limits.cpu",
		"spec.template.spec.containers[*].resources.limits.memory",
		"spec.template.spec.containers[*].resources.requests.cpu",
		"spec.template.spec.containers[*].resources.requests.memory",
		"spec.ingressClassName",
		"spec.rules[*].host",
		"spec.tls[*].hosts[*]",
		"spec.tls[*].secretName",
		"spec.rules[*].http.paths[*].path",
		"spec.rules[*].http.paths[*].backend.service.name":
		return TypeSchema("string"), true

	case "spec.replicas",
		"spec.ports[*].port", "spec.ports[*].targetPort", "spec.ports[*].nodePort",
		"spec.template.spec.tolerations[*].tolerationSeconds",
		"spec.template.spec.containers[*].ports[*].containerPort",
		"spec.rules[*].http.paths[*].backend.service.port.number":
		return TypeSchema("integer"), true

	case "metadata.annotations", "metadata.labels",
		"spec.selector.matchLabels",
		"spec.template.metadata.annotations", "spec.template.metadata.labels",
		"spec.template.spec.nodeSelector":
		return StringMapSchema(), true

	case "spec.rules[*].http.paths[*].pathType":
		return &jsonschema.Schema{
			Type: "string",
			Enum: []any{"Exact", "ImplementationSpecific", "Prefix"},
		}, true
	}

	return nil, false
}

// TypeSchema returns a bare schema with the given type.
func TypeSchema(typ string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: typ}
}

// StringMapSchema returns the schema of an object with arbitrary
// string-valued keys, the shape of labels and annotations.
func StringMapSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		AdditionalProperties: &jsonschema.Schema{Type: "string"},
	}
}
