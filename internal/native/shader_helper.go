// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// ErrEmptyShader is returned when a shader source or binary is empty.
var ErrEmptyShader = errors.New("native: empty shader source")

// CompileWGSL compiles WGSL source to SPIR-V words.
// SPIR-V is little-endian 32-bit words; a trailing partial word is rejected.
func CompileWGSL(wgslSource string) ([]uint32, error) {
	if wgslSource == "" {
		return nil, ErrEmptyShader
	}

	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("compile shader: SPIR-V length %d is not a multiple of 4", len(spirvBytes))
	}

	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	return spirvCode, nil
}

// ShaderFormat selects how shader source reaches the device.
type ShaderFormat int

const (
	// ShaderFormatWGSL passes WGSL straight to the device.
	ShaderFormatWGSL ShaderFormat = iota

	// ShaderFormatSPIRV compiles WGSL to SPIR-V with naga first.
	ShaderFormatSPIRV
)

// String returns the string representation of ShaderFormat.
func (f ShaderFormat) String() string {
	switch f {
	case ShaderFormatWGSL:
		return "WGSL"
	case ShaderFormatSPIRV:
		return "SPIR-V"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// CreateShaderModule creates a shader module from WGSL source in the given format.
func CreateShaderModule(device hal.Device, label, wgslSource string, format ShaderFormat) (hal.ShaderModule, error) {
	if wgslSource == "" {
		return nil, ErrEmptyShader
	}

	source := hal.ShaderSource{WGSL: wgslSource}
	if format == ShaderFormatSPIRV {
		spirvCode, err := CompileWGSL(wgslSource)
		if err != nil {
			return nil, err
		}
		source = hal.ShaderSource{SPIRV: spirvCode}
	}

	return device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: source,
	})
}
