// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package backend defines the contract between the negotiator and concrete
// GPU backends, the static backend catalog, and backend selection.
//
// # Selection
//
// [Select] is a pure function over a [Catalog] and a capability report. It
// keeps descriptors whose required features are all enabled and picks the
// highest priority; ties go to the descriptor declared first.
//
//	sel := backend.Select(backend.DefaultCatalog(), report)
//	if sel.Denied() {
//	    log.Println(sel.Reasons)
//	}
//
// # Registry
//
// Backend implementations register a [Factory] from init():
//
//	import _ "github.com/gogpu/g3d/backend/vulkan"
//	import _ "github.com/gogpu/g3d/backend/webgpu"
//
// and are instantiated with [New].
package backend
