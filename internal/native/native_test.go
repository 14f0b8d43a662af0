// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

func TestGuessVendor(t *testing.T) {
	tests := []struct {
		adapter string
		name    string
		id      uint32
	}{
		{"NVIDIA GeForce RTX 4070", "NVIDIA", VendorNVIDIA},
		{"AMD Radeon RX 7800", "AMD", VendorAMD},
		{"Intel(R) UHD Graphics 630", "Intel", VendorIntel},
		{"Apple M2", "Apple", VendorApple},
		{"llvmpipe (LLVM 17.0.6, 256 bits)", "Mesa", 0},
		{"Mystery Accelerator", "", 0},
	}
	for _, tt := range tests {
		name, id := GuessVendor(tt.adapter)
		if name != tt.name || id != tt.id {
			t.Errorf("GuessVendor(%q) = %q, %#x; want %q, %#x", tt.adapter, name, id, tt.name, tt.id)
		}
	}
}

func adapter(name string, typ gputypes.DeviceType) hal.ExposedAdapter {
	var a hal.ExposedAdapter
	a.Info.Name = name
	a.Info.DeviceType = typ
	return a
}

func TestSelectAdapter(t *testing.T) {
	if SelectAdapter(nil) != nil {
		t.Error("SelectAdapter(nil) should be nil")
	}

	igpu := adapter("Intel UHD", gputypes.DeviceTypeIntegratedGPU)
	dgpu := adapter("GeForce", gputypes.DeviceTypeDiscreteGPU)

	if got := SelectAdapter([]hal.ExposedAdapter{igpu, dgpu}); got.Info.Name != "GeForce" {
		t.Errorf("picked %q, want the discrete GPU", got.Info.Name)
	}
	got := SelectAdapter([]hal.ExposedAdapter{igpu})
	if got.Info.Name != "Intel UHD" || !IsHardware(got) {
		t.Errorf("picked %q hardware=%v", got.Info.Name, IsHardware(got))
	}
	cpu := adapter("llvmpipe", gputypes.DeviceTypeCPU)
	if got := SelectAdapter([]hal.ExposedAdapter{cpu}); got.Info.Name != "llvmpipe" || IsHardware(got) {
		t.Errorf("software fallback picked %q hardware=%v", got.Info.Name, IsHardware(got))
	}
	if IsHardware(nil) {
		t.Error("IsHardware(nil) = true")
	}
}

func TestNoopProvider(t *testing.T) {
	inst, err := Noop().CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	defer inst.Destroy()
	if len(inst.EnumerateAdapters(nil)) == 0 {
		t.Fatal("noop instance exposes no adapters")
	}
}

func TestCompileWGSL(t *testing.T) {
	if _, err := CompileWGSL(""); !errors.Is(err, ErrEmptyShader) {
		t.Errorf("CompileWGSL(\"\") = %v, want ErrEmptyShader", err)
	}
	words, err := CompileWGSL(`
@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(f32(i), 0.0, 0.0, 1.0);
}
`)
	if err != nil {
		t.Fatalf("CompileWGSL: %v", err)
	}
	if len(words) == 0 {
		t.Fatal("CompileWGSL returned no words")
	}
	if words[0] != 0x07230203 {
		t.Errorf("first word %#x, want SPIR-V magic", words[0])
	}
}

func TestShaderFormatString(t *testing.T) {
	if ShaderFormatWGSL.String() != "WGSL" || ShaderFormatSPIRV.String() != "SPIR-V" || ShaderFormat(9).String() != "Unknown(9)" {
		t.Error("ShaderFormat.String mismatch")
	}
}
