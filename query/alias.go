package query

import "fmt"

// MaxAliasDepth bounds how many alias references may be open at once while
// evaluating or validating one expression. Exceeding it means the aliases
// refer to each other in a cycle.
const MaxAliasDepth = 32

type aliasEntry struct {
	name string
	node NodeID
}

// AliasTable maps alias names to projected subtrees. It is built once while
// parsing; lookups are linear since tables are projection sized.
type AliasTable struct {
	entries []aliasEntry
}

// Define adds an alias. Defining the same name twice is an error.
func (t *AliasTable) Define(name string, node NodeID) (int, error) {
	if _, ok := t.Lookup(name); ok {
		return -1, fmt.Errorf("%w: %q", ErrDuplicateAlias, name)
	}
	t.entries = append(t.entries, aliasEntry{name: name, node: node})
	return len(t.entries) - 1, nil
}

// Lookup returns the index of the alias called name
func (t *AliasTable) Lookup(name string) (int, bool) {
	for i, e := range t.entries {
		if e.name == name {
			return i, true
		}
	}
	return -1, false
}

// Node returns the subtree bound to alias i
func (t *AliasTable) Node(i int) NodeID {
	return t.entries[i].node
}

// Name returns the name of alias i
func (t *AliasTable) Name(i int) string {
	return t.entries[i].name
}

// Len returns the number of aliases
func (t *AliasTable) Len() int {
	return len(t.entries)
}

type cachedValue struct {
	valid bool
	mode  Mode
	value Value
	err   error
}

// aliasCache holds alias results for the current row. It is keyed by alias
// index and cleared whenever a new row arrives.
type aliasCache struct {
	slots []cachedValue
}

func (c *aliasCache) reset(n int) {
	if cap(c.slots) < n {
		c.slots = make([]cachedValue, n)
		return
	}
	c.slots = c.slots[:n]
	clear(c.slots)
}

func (c *aliasCache) get(i int, mode Mode) (Value, error, bool) {
	if i >= len(c.slots) {
		return Value{}, nil, false
	}
	s := c.slots[i]
	if !s.valid || s.mode != mode {
		return Value{}, nil, false
	}
	return s.value, s.err, true
}

func (c *aliasCache) put(i int, mode Mode, v Value, err error) {
	if i >= len(c.slots) {
		return
	}
	c.slots[i] = cachedValue{valid: true, mode: mode, value: v, err: err}
}
