// SPDX-License-Identifier: MIT

// Package tree is the node protocol every lvflow component speaks.
//
// 🚀 What is a tree?
//
//	A flow is a tree of immutable nodes. Every node reports a Kind from a
//	closed set and lists its children explicitly:
//	  • KindLeaf      – one *tensor.Array (a learnable or static value)
//	  • KindComposite – a bijection, distribution or network layer
//	  • KindWrapper   – a lazy value resolved by Unwrap
//
//	No traversal uses reflection. A node's numeric content is exactly its
//	children; everything else (sizes, activation tags, permutations) is
//	static metadata carried unchanged by WithChildren.
//
// ✨ Operations
//
//   - Unwrap / UnwrapArray – resolve every wrapper, inner first.
//   - Split → *Partition   – trainable leaves vs. skeleton; Combine rebuilds.
//   - Stack / Index        – add or remove a leading vectorized axis.
//   - Vmap / VmapN         – build one tree per slot concurrently, then Stack.
//   - Walk, Leaves, At, Replace, Equal, AllClose – structural utilities.
//
// ⚙️ Frozen subtrees
//
//	Split never descends into a VariantFrozen wrapper, so gradients with
//	respect to its raw leaves are zero by construction.
package tree
