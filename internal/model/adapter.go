// Package model provides common types and the adapter registry for agent
// log implementations.
package model

import (
	"fmt"
	"io"
)

// Result carries a parsed session along with non-fatal warnings collected
// while reading the stream (skipped records, dropped timestamps).
type Result struct {
	Session  *Session
	Warnings []error
}

// Adapter parses one source log format into the canonical model.
// Each agent implementation (Claude, Codex) provides its own adapter
// that conforms to this interface.
type Adapter interface {
	// Agent reports which source format this adapter understands.
	Agent() Agent

	// Parse consumes a raw JSONL event stream and builds the session.
	// Individual malformed records are skipped and reported as warnings;
	// only an unreadable stream fails the parse.
	Parse(r io.Reader) (*Result, error)
}

// AdapterFactory creates an Adapter. Registration keeps the model package
// free of imports on the agent packages.
type AdapterFactory func() Adapter

var factories = map[Agent]AdapterFactory{}

// RegisterAdapter registers the factory for an agent type. Agent packages
// call this from init.
func RegisterAdapter(agent Agent, factory AdapterFactory) {
	factories[agent] = factory
}

// NewAdapter creates an adapter for the given agent type.
func NewAdapter(agent Agent) (Adapter, error) {
	factory, ok := factories[agent]
	if !ok {
		return nil, fmt.Errorf("unknown agent type: %s", agent)
	}
	return factory(), nil
}
