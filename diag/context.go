package diag

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
)

// CorrelationKey is the key PutCorrelationID stores under.
const CorrelationKey = "correlation_id"

var nextID atomic.Uint64

// Context is the mutable diagnostic state of a single producer goroutine.
type Context struct {
	id    uint64
	name  string
	pairs []Pair
	stack []string

	// gen advances on every mutation; snap is valid while snapGen == gen.
	gen     uint64
	snap    *Snapshot
	snapGen uint64
}

// New returns an empty Context with a process-unique ID.
func New(name string) *Context {
	return &Context{id: nextID.Add(1), name: name}
}

// ID returns the producer identity assigned by New. A nil Context has ID 0.
func (c *Context) ID() uint64 {
	if c == nil {
		return 0
	}
	return c.id
}

// Name returns the producer name given to New.
func (c *Context) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// Put sets key to value. An existing key keeps its position.
func (c *Context) Put(key, value string) {
	for i := range c.pairs {
		if c.pairs[i].Key == key {
			if c.pairs[i].Value != value {
				c.pairs[i].Value = value
				c.gen++
			}
			return
		}
	}
	c.pairs = append(c.pairs, Pair{Key: key, Value: value})
	c.gen++
}

// PutAll sets every pair of m. Map iteration order is random, so callers that
// care about rendering order should use Put.
func (c *Context) PutAll(m map[string]string) {
	for k, v := range m {
		c.Put(k, v)
	}
}

// PutCorrelationID stores a fresh random UUID under CorrelationKey and
// returns it.
func (c *Context) PutCorrelationID() string {
	id := uuid.NewString()
	c.Put(CorrelationKey, id)
	return id
}

// Get returns the current value of key.
func (c *Context) Get(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	for i := range c.pairs {
		if c.pairs[i].Key == key {
			return c.pairs[i].Value, true
		}
	}
	return "", false
}

// Remove deletes key, keeping the order of the remaining pairs.
func (c *Context) Remove(key string) {
	for i := range c.pairs {
		if c.pairs[i].Key == key {
			copy(c.pairs[i:], c.pairs[i+1:])
			c.pairs[len(c.pairs)-1] = Pair{}
			c.pairs = c.pairs[:len(c.pairs)-1]
			c.gen++
			return
		}
	}
}

// Clear removes all pairs. The scope stack is left alone.
func (c *Context) Clear() {
	if len(c.pairs) == 0 {
		return
	}
	clear(c.pairs)
	c.pairs = c.pairs[:0]
	c.gen++
}

// Push adds a scope on top of the stack.
func (c *Context) Push(scope string) {
	c.stack = append(c.stack, scope)
	c.gen++
}

// Pop removes and returns the innermost scope.
func (c *Context) Pop() (string, bool) {
	if len(c.stack) == 0 {
		return "", false
	}
	top := c.stack[len(c.stack)-1]
	c.stack[len(c.stack)-1] = ""
	c.stack = c.stack[:len(c.stack)-1]
	c.gen++
	return top, true
}

// ClearStack removes every scope.
func (c *Context) ClearStack() {
	if len(c.stack) == 0 {
		return
	}
	clear(c.stack)
	c.stack = c.stack[:0]
	c.gen++
}

// Depth returns the number of scopes currently pushed.
func (c *Context) Depth() int {
	if c == nil {
		return 0
	}
	return len(c.stack)
}

// Capture returns an immutable snapshot of the current state.
func (c *Context) Capture() *Snapshot {
	if c == nil || (len(c.pairs) == 0 && len(c.stack) == 0) {
		return empty
	}
	if c.snap != nil && c.snapGen == c.gen {
		return c.snap
	}

	s := &Snapshot{}
	if len(c.pairs) > 0 {
		s.pairs = make([]Pair, len(c.pairs))
		copy(s.pairs, c.pairs)
	}
	if len(c.stack) > 0 {
		s.stack = make([]string, len(c.stack))
		copy(s.stack, c.stack)
	}
	c.snap = s
	c.snapGen = c.gen
	return s
}

type ctxKey struct{}

// WithContext returns a copy of ctx carrying c.
func WithContext(ctx context.Context, c *Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if c == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the Context stored by WithContext, or nil.
func FromContext(ctx context.Context) *Context {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(ctxKey{}).(*Context)
	return c
}
