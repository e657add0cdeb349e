// SPDX-License-Identifier: MIT
// Package flows: sentinel error set.

package flows

import "errors"

// ErrInvalidOption indicates a flow option outside its valid range
// (non-positive layers, width or block size; negative depth or cond dim).
var ErrInvalidOption = errors.New("flows: invalid option")
