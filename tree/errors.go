// SPDX-License-Identifier: MIT
// Package tree: sentinel error set.
// Traversals never panic on malformed trees; they return these sentinels
// wrapped with the failing operation and path.

package tree

import "errors"

var (
	// ErrUnknownKind is returned when a node reports a Kind or wrapper Variant
	// outside the closed set known to the traversal.
	ErrUnknownKind = errors.New("tree: unknown node kind")

	// ErrShape indicates an array leaf whose rank or leading extent is
	// incompatible with the batching convention (Stack, Index, batched Unwrap).
	ErrShape = errors.New("tree: incompatible leaf shape")

	// ErrChildCount indicates WithChildren received the wrong number of children.
	ErrChildCount = errors.New("tree: wrong number of children")

	// ErrStructure indicates two trees that must match structurally do not.
	ErrStructure = errors.New("tree: structure mismatch")

	// ErrNotArray indicates a node that was expected to resolve to an array leaf.
	ErrNotArray = errors.New("tree: node does not resolve to an array")

	// ErrPath indicates a path that does not address a node.
	ErrPath = errors.New("tree: invalid path")

	// ErrMask indicates a boolean mask whose structure does not prefix the tree.
	ErrMask = errors.New("tree: mask does not match tree")

	// ErrParams indicates replacement parameters that do not match a Partition.
	ErrParams = errors.New("tree: parameters do not match partition")
)
