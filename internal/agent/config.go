// ABOUTME: Thread-safe configuration store with superset-merge semantics.
// ABOUTME: Last write wins per key; untouched keys survive every merge.

package agent

import "sync"

// Store holds one agent's live configuration as a key-value mapping.
// It starts as a deep copy of the agent's declared defaults and is only
// ever merged into, never replaced. Merge may run on the dispatcher
// goroutine while an event goroutine reads; updates are small and
// infrequent, so a single mutex is enough.
type Store struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewStore creates a store seeded with a deep-independent copy of defaults,
// so later merges never mutate the caller's map.
func NewStore(defaults map[string]any) *Store {
	return &Store{values: deepCopyMap(defaults)}
}

// Merge applies a partial update: every key in partial is set or
// overwritten, keys absent from partial are untouched. Values are not
// validated; any JSON-compatible value is accepted.
func (s *Store) Merge(partial map[string]any) {
	if len(partial) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range partial {
		s.values[k] = v
	}
}

// Get returns the value for key and whether it is present.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// String returns the value for key if it is a string, else "".
func (s *Store) String(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// Bool returns the value for key if it is a bool, else false.
func (s *Store) Bool(key string) bool {
	v, _ := s.Get(key)
	b, _ := v.(bool)
	return b
}

// Snapshot returns a deep copy of the current configuration.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deepCopyMap(s.values)
}

// deepCopyMap copies a JSON-compatible value tree. Scalars are immutable
// and shared; maps and slices are copied.
func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
