package query

import (
	"fmt"
	"unsafe"
)

// Arena limits applied when no option overrides them
const (
	DefaultArenaMaxNodes = 1 << 16
	DefaultArenaMaxBytes = 4 << 20

	arenaChunkSize = 4096
)

// Arena owns every node and every compile-time string of one query. Nothing
// is freed individually: Release drops the whole region at once.
type Arena struct {
	nodes    []Node
	chunks   [][]byte
	used     int // bytes handed out from the current chunk
	bytes    int // total string bytes handed out
	maxNodes int
	maxBytes int
	released bool
}

// NewArena creates an arena with the given limits. Non-positive limits fall
// back to the defaults.
func NewArena(maxNodes, maxBytes int) *Arena {
	if maxNodes <= 0 {
		maxNodes = DefaultArenaMaxNodes
	}
	if maxBytes <= 0 {
		maxBytes = DefaultArenaMaxBytes
	}
	return &Arena{
		nodes:    make([]Node, 0, 64),
		maxNodes: maxNodes,
		maxBytes: maxBytes,
	}
}

// New places n in the arena and returns its handle.
func (a *Arena) New(n Node) (NodeID, error) {
	if a.released {
		return NoNode, ErrReleased
	}
	if len(a.nodes) >= a.maxNodes {
		return NoNode, fmt.Errorf("%w: more than %d nodes", ErrArenaExhausted, a.maxNodes)
	}
	a.nodes = append(a.nodes, n)
	return NodeID(len(a.nodes) - 1), nil
}

// Node returns the node addressed by id. The pointer is valid until the next
// call to New.
func (a *Arena) Node(id NodeID) *Node {
	return &a.nodes[id]
}

// Len returns the number of allocated nodes
func (a *Arena) Len() int {
	return len(a.nodes)
}

// String copies s into arena storage and returns a string backed by it.
func (a *Arena) String(s string) (string, error) {
	if a.released {
		return "", ErrReleased
	}
	if len(s) == 0 {
		return "", nil
	}
	if a.bytes+len(s) > a.maxBytes {
		return "", fmt.Errorf("%w: more than %d string bytes", ErrArenaExhausted, a.maxBytes)
	}

	if len(a.chunks) == 0 || a.used+len(s) > len(a.chunks[len(a.chunks)-1]) {
		size := max(arenaChunkSize, len(s))
		a.chunks = append(a.chunks, make([]byte, size))
		a.used = 0
	}
	chunk := a.chunks[len(a.chunks)-1]
	buf := chunk[a.used : a.used+len(s) : a.used+len(s)]
	copy(buf, s)
	a.used += len(s)
	a.bytes += len(s)
	return unsafe.String(&buf[0], len(buf)), nil
}

// Bytes returns the number of string bytes handed out
func (a *Arena) Bytes() int {
	return a.bytes
}

// Release drops all nodes and string storage in one step.
func (a *Arena) Release() {
	a.nodes = nil
	a.chunks = nil
	a.used = 0
	a.bytes = 0
	a.released = true
}

// Released reports whether Release has been called
func (a *Arena) Released() bool {
	return a.released
}
