package topic

import (
	"strings"
)

// Builder encapsulates the logic for constructing MQTT topic strings.
// It ensures consistency between what the node subscribes to and what the
// backend publishes.
type Builder struct {
	// root is the optional base namespace for all topics (e.g., "relay/v1").
	root string
}

// NewBuilder creates a new Builder with the specified root namespace.
// An empty root yields bare "{segment}/{id}" topics.
func NewBuilder(root string) *Builder {
	return &Builder{root: strings.Trim(root, "/")}
}

// Build returns the topic for a segment and a device identifier.
// Pattern: [{root}/]{segment}/{id}
func (b *Builder) Build(segment, id string) string {
	parts := make([]string, 0, 3)
	if b.root != "" {
		parts = append(parts, b.root)
	}
	parts = append(parts, segment, id)
	return strings.Join(parts, "/")
}
