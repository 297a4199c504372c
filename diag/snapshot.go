package diag

// Pair is one key/value entry of a Snapshot.
type Pair struct {
	Key   string
	Value string
}

// Snapshot is an immutable capture of a Context. The zero value is empty.
type Snapshot struct {
	pairs []Pair
	stack []string
}

var empty = &Snapshot{}

// Empty returns the canonical empty snapshot shared by all producers.
func Empty() *Snapshot {
	return empty
}

// Len returns the number of key/value pairs.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.pairs)
}

// IsEmpty reports whether the snapshot holds neither pairs nor scopes.
func (s *Snapshot) IsEmpty() bool {
	return s == nil || (len(s.pairs) == 0 && len(s.stack) == 0)
}

// At returns the i-th pair in insertion order.
func (s *Snapshot) At(i int) Pair {
	return s.pairs[i]
}

// Get returns the value stored under key.
func (s *Snapshot) Get(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	for i := range s.pairs {
		if s.pairs[i].Key == key {
			return s.pairs[i].Value, true
		}
	}
	return "", false
}

// Range calls fn for each pair in insertion order until fn returns false.
func (s *Snapshot) Range(fn func(key, value string) bool) {
	if s == nil {
		return
	}
	for i := range s.pairs {
		if !fn(s.pairs[i].Key, s.pairs[i].Value) {
			return
		}
	}
}

// StackDepth returns the number of scopes on the captured stack.
func (s *Snapshot) StackDepth() int {
	if s == nil {
		return 0
	}
	return len(s.stack)
}

// StackAt returns the i-th scope, 0 being the outermost.
func (s *Snapshot) StackAt(i int) string {
	return s.stack[i]
}

// Peek returns the innermost scope.
func (s *Snapshot) Peek() (string, bool) {
	if s == nil || len(s.stack) == 0 {
		return "", false
	}
	return s.stack[len(s.stack)-1], true
}

// Map returns a copy of the pairs as a map.
func (s *Snapshot) Map() map[string]string {
	m := make(map[string]string, s.Len())
	s.Range(func(k, v string) bool {
		m[k] = v
		return true
	})
	return m
}

// Stack returns a copy of the scope stack, outermost first.
func (s *Snapshot) Stack() []string {
	if s == nil || len(s.stack) == 0 {
		return nil
	}
	out := make([]string, len(s.stack))
	copy(out, s.stack)
	return out
}

// Equal reports whether both snapshots hold the same pairs and scopes in the
// same order.
func (s *Snapshot) Equal(o *Snapshot) bool {
	if s.Len() != o.Len() || s.StackDepth() != o.StackDepth() {
		return false
	}
	for i := 0; i < s.Len(); i++ {
		if s.pairs[i] != o.pairs[i] {
			return false
		}
	}
	for i := 0; i < s.StackDepth(); i++ {
		if s.stack[i] != o.stack[i] {
			return false
		}
	}
	return true
}
