package oil

import (
	"context"
	"fmt"
	"testing"

	"github.com/gogpu/oil/compose"
	"github.com/gogpu/oil/preprocess"
)

// ---------------------------------------------------------------------------
// Module library: a small view/lighting stack in the style of a renderer
// ---------------------------------------------------------------------------

const benchViewTypes = `#define_import_path view::types
struct Camera {
    view_proj: mat4x4<f32>,
    position: vec3<f32>,
}
`

const benchViewBindings = `#define_import_path view::bindings
#import view::types
@group(0) @binding(0) var<uniform> camera: view::types::Camera;
`

const benchLighting = `#define_import_path lighting
#import view::bindings

const AMBIENT: f32 = 0.05;

virtual fn diffuse(n: vec3<f32>, l: vec3<f32>) -> f32 {
    return max(dot(n, l), 0.0);
}

fn specular(n: vec3<f32>, l: vec3<f32>, pos: vec3<f32>) -> f32 {
    let v = normalize(view::bindings::camera.position - pos);
    let h = normalize(l + v);
#ifdef SHININESS
    return pow(max(dot(n, h), 0.0), f32(#SHININESS));
#else
    return pow(max(dot(n, h), 0.0), 32.0);
#endif
}

fn shade(n: vec3<f32>, l: vec3<f32>, pos: vec3<f32>) -> f32 {
    return AMBIENT + diffuse(n, l) + specular(n, l, pos);
}
`

const benchToon = `#define_import_path toon
#import lighting
override fn lighting::diffuse(n: vec3<f32>, l: vec3<f32>) -> f32 {
    return step(0.5, lighting::diffuse(n, l));
}
`

const benchEntry = `#import lighting
#import toon
@group(1) @binding(auto) var<uniform> tint: vec4<f32>;

@fragment
fn fs_main(@location(0) normal: vec3<f32>, @location(1) pos: vec3<f32>) -> @location(0) vec4<f32> {
    let l = normalize(vec3<f32>(10.0, 10.0, 10.0) - pos);
    return tint * lighting::shade(normalize(normal), l, pos);
}
`

var benchModules = []string{benchViewTypes, benchViewBindings, benchLighting, benchToon}

func benchComposer(b *testing.B, opts ...Option) *compose.Composer {
	b.Helper()
	descs := make([]compose.ModuleDescriptor, len(benchModules))
	for i, src := range benchModules {
		descs[i] = compose.ModuleDescriptor{Source: src}
	}
	c := NewComposer(opts...)
	if err := AddModules(c, descs); err != nil {
		b.Fatalf("AddModules failed: %v", err)
	}
	return c
}

// ---------------------------------------------------------------------------
// Benchmarks
// ---------------------------------------------------------------------------

// BenchmarkRegister measures adding the whole library to a fresh registry.
func BenchmarkRegister(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		benchComposer(b)
	}
}

// BenchmarkCompose measures one composition with a warm variant cache and
// with caching disabled.
func BenchmarkCompose(b *testing.B) {
	for _, tc := range []struct {
		name string
		opts []Option
	}{
		{"cached", nil},
		{"uncached", []Option{WithCacheSize(-1)}},
	} {
		b.Run(tc.name, func(b *testing.B) {
			c := benchComposer(b, tc.opts...)
			desc := compose.ComposeDescriptor{Source: benchEntry, Validate: compose.ValidateFatal}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := c.Compose(desc); err != nil {
					b.Fatalf("Compose failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkComposeVariants cycles through def sets so only some
// compositions hit the cache.
func BenchmarkComposeVariants(b *testing.B) {
	c := benchComposer(b)
	descs := make([]compose.ComposeDescriptor, 8)
	for i := range descs {
		descs[i] = compose.ComposeDescriptor{
			Source: benchEntry,
			Defs:   preprocess.ShaderDefs{"SHININESS": preprocess.Uint(uint32(8 << i))},
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Compose(descs[i%len(descs)]); err != nil {
			b.Fatalf("Compose failed: %v", err)
		}
	}
}

// BenchmarkComposeAll measures parallel composition of many entries.
func BenchmarkComposeAll(b *testing.B) {
	for _, n := range []int{1, 8, 32} {
		b.Run(fmt.Sprintf("entries_%d", n), func(b *testing.B) {
			c := benchComposer(b)
			descs := make([]compose.ComposeDescriptor, n)
			for i := range descs {
				descs[i] = compose.ComposeDescriptor{
					Source: benchEntry,
					Defs:   preprocess.ShaderDefs{"SHININESS": preprocess.Uint(uint32(i%4 + 1))},
				}
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := c.ComposeAll(context.Background(), descs); err != nil {
					b.Fatalf("ComposeAll failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkText measures rendering a composed module back to WGSL.
func BenchmarkText(b *testing.B) {
	c := benchComposer(b)
	res, err := c.Compose(compose.ComposeDescriptor{Source: benchEntry})
	if err != nil {
		b.Fatalf("Compose failed: %v", err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := res.Text(); err != nil {
			b.Fatal(err)
		}
	}
}
