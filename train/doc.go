// SPDX-License-Identifier: MIT

// Package train fits distributions by gradient descent on their trainable
// leaves.
//
// 🚀 Loop
//
//	tree.Split picks the trainable leaves (a Filter; frozen wrappers never
//	contribute), the leaves are ravelled into one vector, and every step
//	rebuilds the distribution with tree.Partition.CombineFlat before
//	evaluating the loss. Gradients are central finite differences (gonum
//	diff/fd) of that rebuilt loss.
//
// ✨ Entry points
//
//   - FitToVariationalTarget – minimise a VariationalLoss such as ElboLoss.
//   - FitToData              – maximum likelihood with validation early stopping.
//   - GradTree               – per-leaf gradients, zeros for static leaves.
//
// ⚠️ Errors
//
//	A NaN or infinite loss stops training with ErrNonFiniteLoss. Progress is
//	logged through the injected *slog.Logger: INFO every WithLogEvery steps,
//	TRACE for every step.
package train
