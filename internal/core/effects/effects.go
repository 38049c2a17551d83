// Package effects defines effect types as data structures representing I/O operations.
// Planners in the functional core return effects; the app layer executes them.
// Effects are pure data - they describe what should happen, not how.
package effects

// Effect is the base interface for all effects.
type Effect interface {
	// EffectType returns a string identifier for the effect type.
	EffectType() string
}

// LogEffect represents a logging operation.
type LogEffect struct {
	Level   string
	Message string
	Fields  map[string]any
}

func (e LogEffect) EffectType() string { return "log" }

// PersistEffect represents a persistence operation.
type PersistEffect struct {
	Entity    string // e.g., "run"
	Operation string // e.g., "create"
	Data      any    // The entity data
}

func (e PersistEffect) EffectType() string { return "persist" }

// FileEffect represents a file system operation.
// Writes are staged and only become visible once every effect in the batch
// has succeeded.
type FileEffect struct {
	Operation string // "mkdir" or "write"
	Path      string
	Content   []byte // For write operations
	Mode      uint32 // File permissions
}

func (e FileEffect) EffectType() string { return "file" }

// CompositeEffect holds multiple effects to be executed in sequence.
type CompositeEffect struct {
	Effects []Effect
}

func (e CompositeEffect) EffectType() string { return "composite" }

// NoEffect represents an operation that produces no side effects.
type NoEffect struct{}

func (e NoEffect) EffectType() string { return "none" }
