// Package replctx implements the per-package token replacement environment
// threaded through job and task execution: an insertion-ordered map from
// %token% to its string value, with non-recursive template substitution.
package replctx

import "strings"

// NamedArgument is one GNU-style long-option pair produced by
// ToNamedArguments, e.g. {Key: "sipUUID", Value: "..."} for "--sipUUID=...".
type NamedArgument struct {
	Key   string
	Value string
}

// Context is an immutable, insertion-ordered token→value mapping. Like the
// teacher's State, mutation always returns a new Context (Clone-then-set)
// rather than modifying in place, so a Job holding a Context reference
// never observes a concurrent writer's changes.
type Context struct {
	keys   []string
	values map[string]string
}

// New returns an empty Context.
func New() *Context {
	return &Context{values: make(map[string]string)}
}

// FromMap builds a Context from a plain map. Since map iteration order is
// not defined, callers that care about a specific token order should build
// incrementally with Set instead.
func FromMap(m map[string]string) *Context {
	c := New()
	for k, v := range m {
		c = c.Set(k, v)
	}
	return c
}

// Get returns the value for key and whether it is present.
func (c *Context) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Set returns a new Context with key bound to value. If key already exists
// its value is updated in place (insertion order is preserved); otherwise
// key is appended to the end of the iteration order.
func (c *Context) Set(key, value string) *Context {
	next := &Context{
		keys:   make([]string, len(c.keys)),
		values: make(map[string]string, len(c.values)+1),
	}
	copy(next.keys, c.keys)
	for k, v := range c.values {
		next.values[k] = v
	}
	if _, exists := next.values[key]; !exists {
		next.keys = append(next.keys, key)
	}
	next.values[key] = value
	return next
}

// Merge returns a new Context containing c's tokens followed by other's,
// with other's values taking precedence on key collision. This is how
// BASE_REPLACEMENTS, package replacements, and file replacements are
// unioned when building a Task (spec.md §4.3).
func (c *Context) Merge(other *Context) *Context {
	result := c
	if other == nil {
		return result
	}
	for _, k := range other.keys {
		result = result.Set(k, other.values[k])
	}
	return result
}

// Keys returns the tokens in insertion order. The returned slice is a copy;
// callers may not mutate the Context through it.
func (c *Context) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len reports the number of tokens bound in c.
func (c *Context) Len() int {
	return len(c.keys)
}

// Replace substitutes every "%key%" occurrence in template with its bound
// value, scanning left to right exactly once: a value that itself contains
// "%...%" sequences is never rescanned. Unknown tokens (no matching key, or
// an unterminated "%") are left in the output literally.
func (c *Context) Replace(template string) string {
	var b strings.Builder
	b.Grow(len(template))

	i := 0
	for i < len(template) {
		start := strings.IndexByte(template[i:], '%')
		if start < 0 {
			b.WriteString(template[i:])
			break
		}
		start += i
		b.WriteString(template[i:start])

		end := strings.IndexByte(template[start+1:], '%')
		if end < 0 {
			// Unterminated token marker: emit the rest verbatim.
			b.WriteString(template[start:])
			break
		}
		end += start + 1

		key := template[start+1 : end]
		if val, ok := c.values[key]; ok {
			b.WriteString(val)
		} else {
			b.WriteString(template[start : end+1])
		}
		i = end + 1
	}
	return b.String()
}

// ToNamedArguments returns the bound tokens as an ordered list of
// {key, value} pairs, for commands that consume GNU-style long options
// (e.g. "--sipUUID=<value>") instead of positional template substitution.
func (c *Context) ToNamedArguments() []NamedArgument {
	out := make([]NamedArgument, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, NamedArgument{Key: k, Value: c.values[k]})
	}
	return out
}
