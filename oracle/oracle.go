package oracle

import (
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"go.jacobcolvin.com/helmschema/symbolic"
)

// Oracle answers "what schema applies at this position of this resource".
// Implementations return ok=false when the shape is unknown; they never
// guess.
type Oracle interface {
	// ResourceSchema returns the full schema for a resource type.
	ResourceSchema(ref symbolic.ResourceRef) (*jsonschema.Schema, bool)

	// SchemaAt returns the schema subtree for a YAML path inside a
	// resource, with local references resolved.
	SchemaAt(ref symbolic.ResourceRef, path symbolic.YamlPath) (*jsonschema.Schema, bool)
}

// Warning reports a resource that was referenced by a chart but has no
// known schema, e.g. because the kind was removed in the target API
// version.
type Warning struct {
	Resource symbolic.ResourceRef
	Hint     string
}

// String implements [fmt.Stringer].
func (w Warning) String() string {
	return fmt.Sprintf("%s/%s: %s", w.Resource.APIVersion, w.Resource.Kind, w.Hint)
}

// WarnFunc receives oracle warnings. Implementations must be safe for
// concurrent use.
type WarnFunc func(Warning)

// Chain composes oracles with first-hit semantics and reports a warning the
// first time a named resource misses every layer. A single Chain may be
// shared by concurrent schema generations.
type Chain struct {
	oracles []Oracle
	warn    WarnFunc

	mu     sync.Mutex
	warned map[string]bool
}

// NewChain creates a first-hit [Chain] over the given oracles.
func NewChain(oracles ...Oracle) *Chain {
	return &Chain{oracles: oracles}
}

// WithWarnings sets the warning sink and returns the chain.
func (c *Chain) WithWarnings(warn WarnFunc) *Chain {
	c.warn = warn

	return c
}

// ResourceSchema implements [Oracle].
func (c *Chain) ResourceSchema(ref symbolic.ResourceRef) (*jsonschema.Schema, bool) {
	for _, o := range c.oracles {
		if s, ok := o.ResourceSchema(ref); ok {
			return s, true
		}
	}

	c.reportMiss(ref)

	return nil, false
}

// SchemaAt implements [Oracle].
func (c *Chain) SchemaAt(ref symbolic.ResourceRef, path symbolic.YamlPath) (*jsonschema.Schema, bool) {
	for _, o := range c.oracles {
		if s, ok := o.SchemaAt(ref, path); ok {
			return s, true
		}
	}

	return nil, false
}

func (c *Chain) reportMiss(ref symbolic.ResourceRef) {
	if c.warn == nil || ref.Kind == "" {
		return
	}

	key := ref.APIVersion + "/" + ref.Kind

	c.mu.Lock()

	if c.warned == nil {
		c.warned = make(map[string]bool)
	}

	already := c.warned[key]
	c.warned[key] = true

	c.mu.Unlock()

	if already {
		return
	}

	c.warn(Warning{
		Resource: ref,
		Hint:     "no schema found for this apiVersion; it may not exist in the target Kubernetes version",
	})
}
