// Package pool implements a lock-free, intrusively-linked,
// multi-producer/multi-consumer resource pool: a singly forward-linked
// list of Node values, each carrying its own spin-based lock packed
// alongside a weak back-reference to its predecessor.
//
// Every operation takes the participating nodes' locks in strict forward
// order (predecessor, then the node itself, then its successor) to avoid
// deadlock; see Drop for the retry protocol this requires when the walk
// must start from a node and discover its predecessor.
//
// Grounded on original_source/lib/My/Pooled.hpp: the stub sentinel, the
// three-node lock ordering, and the retry-on-drop loop are carried over
// directly. The C++ original keeps every node alive via shared_ptr
// ownership of the forward chain; here the same forward chain keeps nodes
// reachable to the Go garbage collector, and each node's back-reference is
// packed into its own lock word as a bare address (spin.Bit[uintptr])
// rather than a second strong reference — safe because the predecessor a
// back-reference names is, by construction, also reachable from the pool's
// stub through the forward chain for as long as the back-reference exists.
// This mirrors the itemPtr-as-uintptr pattern in idle connection lists such
// as net/http-adjacent servers that keep a parallel strong-referenced
// index (see other_examples/valyala-fasthttp__server_idle_conn_list.go for
// the idiom this borrows from, modulo fasthttp using a plain mutex instead
// of a packed bit).
package pool

import (
	"unsafe"

	"github.com/yhgu2000/strandhttp/spin"
)

// Node is one link in a pool's forward chain, carrying a value of type R.
// The zero value is not usable; construct with NewNode.
type Node[R any] struct {
	// bit packs this node's own spin lock (bit 0) together with its
	// predecessor's address (the remaining bits), per spin.Bit's
	// contract. A zero payload means "no predecessor": either this node
	// is a pool's stub, or it is not currently linked into any pool.
	bit spin.Bit[uintptr]

	// next is the owning forward edge to the next node, or nil. Mutated
	// only by whoever holds this node's own bit — see the package doc.
	next *Node[R]

	value  R
	isStub bool
}

// NewNode constructs a Node carrying value, not yet linked into any pool.
func NewNode[R any](value R) *Node[R] {
	return &Node[R]{value: value}
}

// Value returns the node's payload.
func (n *Node[R]) Value() R { return n.value }

// InPool reports whether n is currently linked into some pool's forward
// chain (has a live predecessor). A stub is never "in" a pool in this
// sense even though it anchors one.
func (n *Node[R]) InPool() bool {
	return n.bit.Masked() != 0
}

func addrOf[R any](n *Node[R]) uintptr  { return uintptr(unsafe.Pointer(n)) }
func nodeAt[R any](addr uintptr) *Node[R] {
	return (*Node[R])(unsafe.Pointer(addr)) //nolint:govet // see package doc: addr is always a live predecessor
}

// Pool holds one stub, the stable head anchor of a forward chain of
// Node[R] values. The zero value is not usable; construct with New.
type Pool[R any] struct {
	stub Node[R]
}

// New returns an empty pool.
func New[R any]() *Pool[R] {
	return &Pool[R]{stub: Node[R]{isStub: true}}
}

// Head returns the pool's stub, suitable as the `after` argument to the
// package-level operations below, or to resume a walk from where a
// previous operation left off.
func (p *Pool[R]) Head() *Node[R] { return &p.stub }

// Take removes and returns the node immediately after the pool's stub, or
// nil if the pool is empty.
func (p *Pool[R]) Take() *Node[R] { return Take(p.Head()) }

// TakeIf removes and returns the first node after the pool's stub whose
// value satisfies pred, or nil if none does.
func (p *Pool[R]) TakeIf(pred func(R) bool) *Node[R] { return TakeIf(p.Head(), pred) }

// Give inserts node immediately after the pool's stub. node must not
// currently be linked into any pool.
func (p *Pool[R]) Give(node *Node[R]) { Give(p.Head(), node) }

// Clear drops every node in the pool.
func (p *Pool[R]) Clear() { Clear(p.Head()) }

// Count returns the number of nodes currently in the pool. O(n) and
// serializing; see Count.
func (p *Pool[R]) Count() int { return Count(p.Head()) }

// Iterate returns an iterator over the pool's nodes, starting with the
// first (if any).
func (p *Pool[R]) Iterate() *Iterator[R] { return Iterate(p.Head()) }

// Take removes the node immediately following after and returns it with
// its link fields cleared, or nil if after has no successor.
//
// Safe under arbitrary concurrent invocation on any nodes reachable from
// the same pool.
func Take[R any](after *Node[R]) *Node[R] {
	after.bit.Lock()
	here := after.next
	if here == nil {
		after.bit.Unlock()
		return nil
	}

	here.bit.Lock()
	next := here.next
	if next == nil {
		after.next = nil
		after.bit.Unlock()
		here.next = nil
		here.bit.SetMasked(0)
		here.bit.Unlock()
		return here
	}

	next.bit.Lock()
	after.next = next
	after.bit.Unlock()
	next.bit.SetMasked(addrOf(after))
	next.bit.Unlock()

	here.next = nil
	here.bit.SetMasked(0)
	here.bit.Unlock()
	return here
}

// TakeIf walks forward from after, skipping nodes whose value does not
// satisfy pred, and removes and returns the first match. Returns nil if no
// reachable node matches.
func TakeIf[R any](after *Node[R], pred func(R) bool) *Node[R] {
	prev := after
	prev.bit.Lock()
	for {
		here := prev.next
		if here == nil {
			prev.bit.Unlock()
			return nil
		}
		here.bit.Lock()

		if !pred(here.value) {
			prev.bit.Unlock()
			prev = here
			continue
		}

		next := here.next
		if next == nil {
			prev.next = nil
			prev.bit.Unlock()
			here.next = nil
			here.bit.SetMasked(0)
			here.bit.Unlock()
			return here
		}

		next.bit.Lock()
		prev.next = next
		prev.bit.Unlock()
		next.bit.SetMasked(addrOf(prev))
		next.bit.Unlock()

		here.next = nil
		here.bit.SetMasked(0)
		here.bit.Unlock()
		return here
	}
}

// TakeIfType removes and returns the first node after `after` whose value
// dynamically holds a U, or nil if none does. U is typically a concrete
// type implementing the pool's resource interface R.
func TakeIfType[U any, R any](after *Node[R]) *Node[R] {
	return TakeIf(after, func(v R) bool {
		_, ok := any(v).(U)
		return ok
	})
}

// Give inserts node immediately after `after`. node must not currently be
// linked into any pool. Not safe to call concurrently for the same node
// (but safe with respect to concurrent Take/Drop/Clear/Iterate on the rest
// of the pool).
func Give[R any](after *Node[R], node *Node[R]) {
	if node.isStub {
		panic("pool: cannot give the stub into a pool")
	}

	node.bit.Lock()
	if node.next != nil || node.bit.Masked() != 0 {
		node.bit.Unlock()
		panic("pool: node is already linked into a pool")
	}

	after.bit.Lock()
	next := after.next
	if next == nil {
		after.next = node
		after.bit.Unlock()
		node.bit.SetMasked(addrOf(after))
		node.bit.Unlock()
		return
	}

	next.bit.Lock()
	after.next = node
	after.bit.Unlock()
	node.bit.SetMasked(addrOf(after))

	node.next = next
	next.bit.SetMasked(addrOf(node))
	node.bit.Unlock()
	next.bit.Unlock()
}

// Drop unlinks node from whatever pool contains it. Idempotent: dropping
// an already-unlinked node is a no-op.
//
// Because the caller starts with node and must acquire its predecessor's
// lock to unlink it — but the forward lock order requires acquiring the
// predecessor first — Drop releases node's lock after reading its
// predecessor, re-acquires the predecessor, and re-validates that the
// predecessor still points at node before proceeding. This works only
// because the predecessor cannot be freed out from under the read: it
// remains reachable via the very forward chain this package maintains.
func Drop[R any](node *Node[R]) {
	if node.isStub {
		panic("pool: cannot drop the stub")
	}

	for {
		node.bit.Lock()
		prevAddr := node.bit.Masked()
		if prevAddr == 0 {
			node.bit.Unlock()
			return
		}
		node.bit.Unlock()

		prev := nodeAt[R](prevAddr)
		prev.bit.Lock()
		if prev.next != node {
			prev.bit.Unlock()
			continue // predecessor changed underneath us; restart
		}

		node.bit.Lock()
		next := node.next
		if next == nil {
			prev.next = nil
			prev.bit.Unlock()
			node.next = nil
			node.bit.SetMasked(0)
			node.bit.Unlock()
			return
		}

		next.bit.Lock()
		prev.next = next
		prev.bit.Unlock()
		next.bit.SetMasked(addrOf(prev))
		next.bit.Unlock()

		node.next = nil
		node.bit.SetMasked(0)
		node.bit.Unlock()
		return
	}
}

// Clear drops every node reachable after `after`.
func Clear[R any](after *Node[R]) {
	for Take(after) != nil {
	}
}

// Count walks the chain after `after`, taking every node's lock in
// sequence. O(n) and serializing with respect to the rest of the pool for
// the duration of the walk.
func Count[R any](after *Node[R]) int {
	n := 0
	cur := after
	cur.bit.Lock()
	for {
		next := cur.next
		if next == nil {
			cur.bit.Unlock()
			return n
		}
		next.bit.Lock()
		cur.bit.Unlock()
		cur = next
		n++
	}
}

// Iterator lazily visits the nodes after some starting point, holding
// each visited node's lock for the duration of the visit. Concurrent
// mutation elsewhere in the pool may add or remove nodes not yet reached;
// the iteration is not a snapshot.
type Iterator[R any] struct {
	cur *Node[R]
}

// Iterate returns an iterator positioned at `from`, which must already be
// reachable in a pool (typically the stub). Call Next to advance.
func Iterate[R any](from *Node[R]) *Iterator[R] {
	from.bit.Lock()
	return &Iterator[R]{cur: from}
}

// Next advances to and locks the next node, unlocking the previous one,
// and returns its value. ok is false once the chain is exhausted, at
// which point the iterator is fully closed and must not be reused.
func (it *Iterator[R]) Next() (value R, ok bool) {
	if it.cur == nil {
		return value, false
	}
	next := it.cur.next
	if next == nil {
		it.cur.bit.Unlock()
		it.cur = nil
		return value, false
	}
	next.bit.Lock()
	it.cur.bit.Unlock()
	it.cur = next
	return next.value, true
}

// Close releases the iterator's currently held lock, if any. Safe to call
// after exhaustion or multiple times.
func (it *Iterator[R]) Close() {
	if it.cur != nil {
		it.cur.bit.Unlock()
		it.cur = nil
	}
}
