// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Surface is the presentable area supplied by the windowing layer.
// NativeHandle is opaque to this package and only passed through.
type Surface struct {
	Width        int
	Height       int
	NativeHandle any

	// Format is the color format of swapchain images.
	// Undefined means gputypes.TextureFormatBGRA8Unorm.
	Format gputypes.TextureFormat
}

// Validate reports whether the surface has a usable size.
func (s Surface) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: surface size %dx%d", ErrConfig, s.Width, s.Height)
	}
	return nil
}

func (s Surface) format() gputypes.TextureFormat {
	if s.Format == gputypes.TextureFormatUndefined {
		return gputypes.TextureFormatBGRA8Unorm
	}
	return s.Format
}
