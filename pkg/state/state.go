// Package state provides the mutable key/value container owned by every
// step and workflow during execution.
package state

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"dario.cat/mergo"
)

// ErrFrozen is returned by every mutation attempted after Freeze.
// Reads and clones of a frozen state still succeed.
var ErrFrozen = errors.New("state is frozen")

// State maps string keys to arbitrary values. Keys passed to Get and Set
// may be dot-paths ("user.address.city") addressing nested maps.
//
// A State is safe for concurrent reads; mutation is expected to happen
// from the single goroutine driving the owning workflow.
type State struct {
	mu     sync.RWMutex
	data   map[string]any
	frozen bool
}

// New creates a State from the owner's default schema merged with
// caller-supplied overrides. Later overrides win over earlier ones.
func New(defaults map[string]any, overrides ...map[string]any) *State {
	data := make(map[string]any, len(defaults))
	for k, v := range defaults {
		data[k] = v
	}

	s := &State{data: data}
	for _, o := range overrides {
		_ = s.Merge(o)
	}

	return s
}

// Get returns the value at key, or fallback when the key (or any segment
// of its path) is absent. A missing key is never an error.
func (s *State) Get(key string, fallback any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	current := any(s.data)

	for _, part := range strings.Split(key, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return fallback
		}

		current, ok = m[part]
		if !ok {
			return fallback
		}
	}

	return current
}

// Set stores value at key, creating intermediate maps along a dot-path as
// needed. Setting through a non-map intermediate replaces it.
func (s *State) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return ErrFrozen
	}

	parts := strings.Split(key, ".")
	current := s.data

	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}

		current = next
	}

	current[parts[len(parts)-1]] = value

	return nil
}

// Merge deep-merges partial into the state, overriding existing values.
func (s *State) Merge(partial map[string]any) error {
	if len(partial) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return ErrFrozen
	}

	return mergo.Merge(&s.data, partial, mergo.WithOverride)
}

// Snapshot returns the live backing map. Mutating it mutates the state;
// callers wanting isolation should use SnapshotClone.
func (s *State) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.data
}

// SnapshotClone returns a deep copy of the state. Maps and slices are
// copied recursively; values that cannot be meaningfully cloned (funcs,
// channels, arbitrary structs) are passed through by reference. Cyclic
// maps and slices are handled without recursing forever.
func (s *State) SnapshotClone() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cloned, _ := deepClone(s.data, make(map[uintptr]any)).(map[string]any)

	return cloned
}

// Freeze locks the state. Every subsequent Set, Merge or Prepare fails
// with ErrFrozen. Freezing twice is a no-op.
func (s *State) Freeze() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frozen = true
}

// Frozen reports whether the state has been frozen.
func (s *State) Frozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.frozen
}

// Prepare records the elapsed duration since start under the "duration"
// key and optionally freezes the state afterwards. It returns the
// computed duration even when the state is already frozen.
func (s *State) Prepare(start time.Time, shouldFreeze bool) time.Duration {
	elapsed := time.Since(start)

	if err := s.Set("duration", elapsed); err != nil {
		return elapsed
	}

	if shouldFreeze {
		s.Freeze()
	}

	return elapsed
}

func deepClone(value any, seen map[uintptr]any) any {
	switch v := value.(type) {
	case map[string]any:
		ptr := reflect.ValueOf(v).Pointer()
		if existing, ok := seen[ptr]; ok {
			return existing
		}

		cloned := make(map[string]any, len(v))
		seen[ptr] = cloned

		for k, item := range v {
			cloned[k] = deepClone(item, seen)
		}

		return cloned
	case []any:
		if v == nil {
			return nil
		}

		ptr := reflect.ValueOf(v).Pointer()
		if existing, ok := seen[ptr]; ok {
			return existing
		}

		cloned := make([]any, len(v))
		seen[ptr] = cloned

		for i, item := range v {
			cloned[i] = deepClone(item, seen)
		}

		return cloned
	default:
		// Scalars are immutable; everything else (funcs, channels,
		// custom structs) is passed through by reference.
		return value
	}
}
