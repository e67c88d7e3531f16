package gleval_test

import (
	"strings"
	"testing"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gsg"
	"github.com/soypat/gsg/glbuild"
	"github.com/soypat/gsg/gleval"
)

func TestMakeFrame(t *testing.T) {
	f := gleval.MakeFrame(glbuild.KindVec3, 5)
	if f.Kind != glbuild.KindVec3 {
		t.Errorf("frame kind %s, want vec3", f.Kind.String())
	}
	if f.Len() != 5 || len(f.Data) != 15 {
		t.Fatalf("frame len %d data %d, want 5 and 15", f.Len(), len(f.Data))
	}
	e := f.At(2)
	e[0], e[1], e[2] = 1, 2, 3
	if f.Data[6] != 1 || f.Data[7] != 2 || f.Data[8] != 3 {
		t.Errorf("At(2) does not alias element 2 storage: %v", f.Data[6:9])
	}
}

func TestFrameFill(t *testing.T) {
	def := [4]float32{1.5, 2.5, 3.5, 4.5}
	tests := []struct {
		kind glbuild.Kind
		want []float32
	}{
		{kind: glbuild.KindFloat, want: []float32{1.5}},
		{kind: glbuild.KindVec2, want: []float32{1.5, 2.5}},
		{kind: glbuild.KindVec4, want: []float32{1.5, 2.5, 3.5, 4.5}},
		// Matrix fills are diagonal matrices of the leading channel,
		// mirroring the GLSL matN(x) constructor.
		{kind: glbuild.KindMat2, want: []float32{1.5, 0, 0, 1.5}},
		{kind: glbuild.KindMat3, want: []float32{1.5, 0, 0, 0, 1.5, 0, 0, 0, 1.5}},
	}
	for _, tc := range tests {
		f := gleval.MakeFrame(tc.kind, 3)
		for i := range f.Data {
			f.Data[i] = 42 // Garbage that Fill must overwrite.
		}
		f.Fill(def)
		for i := 0; i < f.Len(); i++ {
			e := f.At(i)
			for j := range e {
				if e[j] != tc.want[j] {
					t.Errorf("%s fill element %d: got %v, want %v", tc.kind.String(), i, e, tc.want)
					break
				}
			}
		}
	}
}

func TestConvertFrame(t *testing.T) {
	const (
		f  = glbuild.KindFloat
		v2 = glbuild.KindVec2
		v3 = glbuild.KindVec3
		v4 = glbuild.KindVec4
		m2 = glbuild.KindMat2
		m3 = glbuild.KindMat3
		m4 = glbuild.KindMat4
	)
	mat4src := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	tests := []struct {
		name     string
		from, to glbuild.Kind
		src      []float32
		want     []float32 // nil means the conversion must be refused.
	}{
		{name: "float identity", from: f, to: f, src: []float32{1.5}, want: []float32{1.5}},
		{name: "float broadcast vec3", from: f, to: v3, src: []float32{2}, want: []float32{2, 2, 2}},
		{name: "float diagonal mat2", from: f, to: m2, src: []float32{3}, want: []float32{3, 0, 0, 3}},
		{name: "vec4 truncate vec2", from: v4, to: v2, src: []float32{1, 2, 3, 4}, want: []float32{1, 2}},
		{name: "vec3 leading float", from: v3, to: f, src: []float32{7, 8, 9}, want: []float32{7}},
		// Matrix sources are row-major; conversions take leading
		// column-major components as GLSL (x)[0] et al do.
		{name: "mat2 leading float", from: m2, to: f, src: []float32{1, 2, 3, 4}, want: []float32{1}},
		{name: "mat2 leading column", from: m2, to: v2, src: []float32{1, 2, 3, 4}, want: []float32{1, 3}},
		{name: "mat2 splice vec3", from: m2, to: v3, src: []float32{1, 2, 3, 4}, want: []float32{1, 3, 2}},
		{name: "mat2 splice vec4", from: m2, to: v4, src: []float32{1, 2, 3, 4}, want: []float32{1, 3, 2, 4}},
		{name: "mat3 leading column", from: m3, to: v3, src: []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, want: []float32{1, 4, 7}},
		{name: "mat4 upper left mat2", from: m4, to: m2, src: mat4src, want: []float32{1, 2, 5, 6}},
		{name: "mat4 upper left mat3", from: m4, to: m3, src: mat4src, want: []float32{1, 2, 3, 5, 6, 7, 9, 10, 11}},
		{name: "vec2 widen refused", from: v2, to: v3, src: []float32{1, 2}},
		{name: "vec4 to mat refused", from: v4, to: m2, src: []float32{1, 2, 3, 4}},
		{name: "mat2 widen refused", from: m2, to: m4, src: []float32{1, 2, 3, 4}},
	}
	for _, tc := range tests {
		const n = 2
		src := gleval.MakeFrame(tc.from, n)
		for i := 0; i < n; i++ {
			e := src.At(i)
			for j := range e {
				e[j] = tc.src[j] + float32(i)*100 // Distinct elements catch stride bugs.
			}
		}
		dst := gleval.MakeFrame(tc.to, n)
		err := gleval.ConvertFrame(dst, src)
		if tc.want == nil {
			if err == nil {
				t.Errorf("%s: conversion succeeded, want refusal", tc.name)
			} else if !strings.Contains(err.Error(), "no conversion") {
				t.Errorf("%s: unexpected error %v", tc.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tc.name, err)
			continue
		}
		for i := 0; i < n; i++ {
			e := dst.At(i)
			for j := range e {
				want := tc.want[j]
				if want != 0 { // Structural zeros stay zero across elements.
					want += float32(i) * 100
				}
				if e[j] != want {
					t.Errorf("%s element %d channel %d: got %g, want %g", tc.name, i, j, e[j], want)
				}
			}
		}
	}
	// Element count mismatch is refused regardless of kinds.
	err := gleval.ConvertFrame(gleval.MakeFrame(f, 1), gleval.MakeFrame(f, 2))
	if err == nil {
		t.Error("expected length mismatch error")
	}
}

func TestFramePool(t *testing.T) {
	var fp gleval.FramePool
	buf := fp.Acquire(8)
	if len(buf) != 8 {
		t.Fatalf("acquired buffer of length %d, want 8", len(buf))
	}
	if err := fp.AssertAllReleased(); err == nil {
		t.Error("expected outstanding buffer error while buffer held")
	}
	for i := range buf {
		buf[i] = 99
	}
	fp.Release(buf)
	if err := fp.AssertAllReleased(); err != nil {
		t.Error(err)
	}
	reuse := fp.Acquire(4)
	if len(reuse) != 4 || cap(reuse) < 8 {
		t.Errorf("expected reuse of released buffer, got len %d cap %d", len(reuse), cap(reuse))
	}
	for _, v := range reuse {
		if v != 0 {
			t.Error("reused buffer not zeroed")
			break
		}
	}
	fp.Release(reuse)
	fp.Release(nil) // Zero capacity buffers are not tracked.
	if err := fp.AssertAllReleased(); err != nil {
		t.Error(err)
	}
	f := fp.AcquireFrame(glbuild.KindVec2, 3)
	if f.Kind != glbuild.KindVec2 || f.Len() != 3 {
		t.Errorf("acquired frame kind %s len %d", f.Kind.String(), f.Len())
	}
	fp.ReleaseFrame(f)
	if err := fp.AssertAllReleased(); err != nil {
		t.Error(err)
	}
}

type poolProvider struct {
	fp *gleval.FramePool
}

func (p poolProvider) FramePool() *gleval.FramePool { return p.fp }

func TestGetFramePool(t *testing.T) {
	fp := new(gleval.FramePool)
	got, err := gleval.GetFramePool(fp)
	if err != nil || got != fp {
		t.Errorf("direct pool: got %p err %v", got, err)
	}
	got, err = gleval.GetFramePool(poolProvider{fp: fp})
	if err != nil || got != fp {
		t.Errorf("pool provider: got %p err %v", got, err)
	}
	if _, err = gleval.GetFramePool(42); err == nil {
		t.Error("expected error for unsupported userData")
	}
	if _, err = gleval.GetFramePool(nil); err == nil {
		t.Error("expected error for nil userData")
	}
}

func TestNewCPUShaderErrors(t *testing.T) {
	if _, err := gleval.NewCPUShader(nil); err == nil {
		t.Error("expected error for nil root")
	}
	bld := gsg.Builder{NoBuildPanic: true}
	bad := bld.Output(bld.Value2(ms2.Vec{X: 1}), nil) // vec2 cannot widen to the vec3 color slot.
	if !bad.Failing() {
		t.Fatal("output node with mismatched color input should fail")
	}
	if _, err := gleval.NewCPUShader(bad); err == nil || !strings.Contains(err.Error(), "erroring") {
		t.Errorf("erroring root: got %v", err)
	}
	var ok gsg.Builder
	if _, err := gleval.NewCPUShader(ok.Split(ok.UV())); err == nil || !strings.Contains(err.Error(), "one output") {
		t.Errorf("multi-output root: got %v", err)
	}
	if _, err := gleval.NewCPUShader(ok.Rotate2D(ok.Value(1))); err == nil || !strings.Contains(err.Error(), "mat2") {
		t.Errorf("matrix root: got %v", err)
	}
}

func TestCPUShaderEvaluate(t *testing.T) {
	pos := []ms2.Vec{{X: 0.25, Y: 0}, {X: 0.5, Y: 0.75}, {X: 1, Y: 0.5}}
	tests := []struct {
		name string
		root func(bld *gsg.Builder) *gsg.Node
		t    float32
		want func(p ms2.Vec, t float32) [4]float32
	}{
		{
			// Floats preview as grayscale. The doubled x also exercises a
			// node feeding two inputs of the same consumer.
			name: "float grayscale",
			root: func(bld *gsg.Builder) *gsg.Node {
				x := bld.Swizzle(bld.UV(), "x")
				return bld.Add(x, x)
			},
			want: func(p ms2.Vec, t float32) [4]float32 {
				v := p.X + p.X
				return [4]float32{v, v, v, 1}
			},
		},
		{
			name: "vec2 red green",
			root: func(bld *gsg.Builder) *gsg.Node { return bld.UV() },
			want: func(p ms2.Vec, t float32) [4]float32 {
				return [4]float32{p.X, p.Y, 0, 1}
			},
		},
		{
			name: "vec3 opaque",
			root: func(bld *gsg.Builder) *gsg.Node {
				return bld.Value3(ms3.Vec{X: 0.2, Y: 0.4, Z: 0.6})
			},
			want: func(p ms2.Vec, t float32) [4]float32 {
				return [4]float32{0.2, 0.4, 0.6, 1}
			},
		},
		{
			name: "vec4 copied",
			root: func(bld *gsg.Builder) *gsg.Node {
				uv := bld.UV()
				return bld.Combine(bld.Swizzle(uv, "x"), bld.Swizzle(uv, "y"), bld.Value(0.25), bld.Value(0.75))
			},
			want: func(p ms2.Vec, t float32) [4]float32 {
				return [4]float32{p.X, p.Y, 0.25, 0.75}
			},
		},
		{
			name: "time and param",
			root: func(bld *gsg.Builder) *gsg.Node {
				return bld.Mul(bld.Time(), bld.Param("gain", glbuild.KindFloat, 3))
			},
			t: 0.5,
			want: func(p ms2.Vec, t float32) [4]float32 {
				return [4]float32{1.5, 1.5, 1.5, 1}
			},
		},
		{
			// Unwired clamp bounds stay on their 0 and 1 slot defaults.
			name: "slot defaults",
			root: func(bld *gsg.Builder) *gsg.Node {
				return bld.Wire("clamp", gsg.OpSpec{}, bld.Value(1.5))
			},
			want: func(p ms2.Vec, t float32) [4]float32 {
				return [4]float32{1, 1, 1, 1}
			},
		},
	}
	for _, tc := range tests {
		var bld gsg.Builder
		cpu, err := gleval.NewCPUShader(tc.root(&bld))
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		rgba := make([]float32, 4*len(pos))
		err = cpu.Evaluate(pos, tc.t, rgba, nil)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		for i, p := range pos {
			want := tc.want(p, tc.t)
			got := [4]float32{rgba[4*i], rgba[4*i+1], rgba[4*i+2], rgba[4*i+3]}
			if got != want {
				t.Errorf("%s at %+v: got %v, want %v", tc.name, p, got, want)
			}
		}
		if err := cpu.FramePool().AssertAllReleased(); err != nil {
			t.Errorf("%s: %v", tc.name, err)
		}
	}
}

func TestCPUShaderBufferErrors(t *testing.T) {
	var bld gsg.Builder
	cpu, err := gleval.NewCPUShader(bld.UV())
	if err != nil {
		t.Fatal(err)
	}
	rgba := make([]float32, 8)
	if err := cpu.Evaluate(nil, 0, nil, nil); err == nil {
		t.Error("expected error for empty position buffer")
	}
	if err := cpu.Evaluate([]ms2.Vec{{}}, 0, rgba, nil); err == nil {
		t.Error("expected error for rgba length mismatch")
	}
	if err := cpu.Evaluate([]ms2.Vec{{}}, 0, rgba[:4], 42); err == nil {
		t.Error("expected error for unusable userData")
	}
}

func TestCPUShaderExternalPool(t *testing.T) {
	var bld gsg.Builder
	root := bld.Sin(bld.Mul(bld.Swizzle(bld.UV(), "x"), bld.Value(6)))
	cpu, err := gleval.NewCPUShader(root)
	if err != nil {
		t.Fatal(err)
	}
	pos := []ms2.Vec{{X: 0.1}, {X: 0.9}}
	rgba := make([]float32, 4*len(pos))
	var pool gleval.FramePool
	if err := cpu.Evaluate(pos, 0, rgba, &pool); err != nil {
		t.Fatal(err)
	}
	if err := pool.AssertAllReleased(); err != nil {
		t.Error(err)
	}
}
