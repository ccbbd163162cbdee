// Package tree addresses, traverses and aggregates report trees.
//
// All functions treat their input as immutable and return new trees that
// share unchanged nodes with the input. Traversals use explicit stacks so
// arbitrarily deep trees cannot overflow the goroutine stack.
package tree

import (
	"errors"
	"fmt"

	"github.com/ethereum-optimism/infra/reportree/types"
)

var (
	// ErrAddressNotFound is returned when an address points past the loaded children
	ErrAddressNotFound = errors.New("address not found")
	// ErrNotLoaded is returned when an address crosses children that are not loaded
	ErrNotLoaded = errors.New("children not loaded")
)

// Located is an entry together with its address
type Located struct {
	Entry   *types.Entry
	Address types.Address
}

// Walk visits every node depth-first in sibling order.
// Returning false from the visitor skips the children of that node.
func Walk(root *types.Entry, visitor func(e *types.Entry, addr types.Address) bool) {
	if root == nil {
		return
	}
	stack := []Located{{Entry: root, Address: types.Address{}}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visitor(cur.Entry, cur.Address) {
			continue
		}
		children := cur.Entry.Entries.Entries()
		for i := len(children) - 1; i >= 0; i-- {
			if children[i] == nil {
				continue
			}
			stack = append(stack, Located{Entry: children[i], Address: cur.Address.Child(i)})
		}
	}
}

// Find returns every node accepted by match, in walk order.
// Assertions below testcases are not visited.
func Find(root *types.Entry, match func(*types.Entry) bool) []Located {
	var found []Located
	Walk(root, func(e *types.Entry, addr types.Address) bool {
		if match(e) {
			found = append(found, Located{Entry: e, Address: addr})
		}
		return !e.Category.IsBottommost()
	})
	return found
}

// Resolve follows addr from root
func Resolve(root *types.Entry, addr types.Address) (*types.Entry, error) {
	path, err := resolvePath(root, addr)
	if err != nil {
		return nil, err
	}
	return path[len(path)-1], nil
}

// resolvePath returns the nodes from root to addr, both included
func resolvePath(root *types.Entry, addr types.Address) ([]*types.Entry, error) {
	if root == nil {
		return nil, fmt.Errorf("address %s: %w", addr, ErrAddressNotFound)
	}
	path := make([]*types.Entry, 0, len(addr)+1)
	path = append(path, root)
	cur := root
	for depth, idx := range addr {
		if !cur.Entries.IsLoaded() {
			return nil, fmt.Errorf("address %s at depth %d: %w", addr, depth, ErrNotLoaded)
		}
		next := cur.Entries.At(idx)
		if next == nil {
			return nil, fmt.Errorf("address %s at depth %d: %w", addr, depth, ErrAddressNotFound)
		}
		path = append(path, next)
		cur = next
	}
	return path, nil
}

// Replace returns a new root in which the node at addr is node.
// Only the ancestors of addr are copied.
func Replace(root *types.Entry, addr types.Address, node *types.Entry) (*types.Entry, error) {
	path, err := resolvePath(root, addr)
	if err != nil {
		return nil, err
	}
	return rebuildPath(path, addr, node, nil), nil
}

// rebuildPath copies the ancestors of addr bottom-up around node.
// When fix is set, it is applied to every copied ancestor.
func rebuildPath(path []*types.Entry, addr types.Address, node *types.Entry, fix func(*types.Entry) *types.Entry) *types.Entry {
	for depth := len(addr) - 1; depth >= 0; depth-- {
		parent := path[depth]
		children := append([]*types.Entry(nil), parent.Entries.Entries()...)
		children[addr[depth]] = node
		node = parent.WithEntries(types.Loaded(children...))
		if fix != nil {
			node = fix(node)
		}
	}
	return node
}
