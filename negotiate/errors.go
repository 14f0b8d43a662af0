// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package negotiate

import (
	"errors"
	"strings"

	"github.com/gogpu/g3d/backend"
)

// Negotiation errors.
var (
	// ErrDenied is matched by a *DeniedError when no backend qualifies.
	ErrDenied = errors.New("negotiate: no backend meets the required features")

	// ErrInitTimeout is returned when initialization exceeds its budget.
	ErrInitTimeout = errors.New("negotiate: initialization exceeded budget")

	// ErrFatalDeviceLoss is returned once device loss could not be
	// recovered. The handle is unusable afterwards.
	ErrFatalDeviceLoss = errors.New("negotiate: unrecoverable device loss")
)

// DeniedError carries the rejected selection.
type DeniedError struct {
	Selection backend.Selection
}

func (e *DeniedError) Error() string {
	if len(e.Selection.Reasons) == 0 {
		return ErrDenied.Error()
	}
	return ErrDenied.Error() + ": " + strings.Join(e.Selection.Reasons, "; ")
}

// Is reports ErrDenied as a match.
func (e *DeniedError) Is(target error) bool { return target == ErrDenied }
