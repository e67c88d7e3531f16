package glrender_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gsg"
	"github.com/soypat/gsg/gleval"
	"github.com/soypat/gsg/glrender"
)

func mustCPUShader(t *testing.T, root *gsg.Node) *gleval.CPUShader {
	t.Helper()
	cpu, err := gleval.NewCPUShader(root)
	if err != nil {
		t.Fatal(err)
	}
	return cpu
}

func mustRenderer(t *testing.T, bufSize int) *glrender.ImageRenderer {
	t.Helper()
	ir, err := glrender.NewImageRenderer(bufSize, nil)
	if err != nil {
		t.Fatal(err)
	}
	return ir
}

// Rendering the UV position itself pins down the orientation convention:
// UV (0,0) shades the bottom-left pixel, red grows rightward with u and
// green upward with v.
func TestRenderOrientation(t *testing.T) {
	var bld gsg.Builder
	cpu := mustCPUShader(t, bld.UV())
	ir := mustRenderer(t, 4096)
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	if err := ir.Render(cpu, img, 0, nil); err != nil {
		t.Fatal(err)
	}
	// Pixel centers at (i+0.5)/8: channel value u*255+0.5 truncated.
	const lo, hi = 16, 239
	corners := []struct {
		x, y int
		want color.NRGBA
	}{
		{x: 0, y: 7, want: color.NRGBA{R: lo, G: lo, A: 255}}, // bottom-left
		{x: 7, y: 7, want: color.NRGBA{R: hi, G: lo, A: 255}}, // bottom-right
		{x: 0, y: 0, want: color.NRGBA{R: lo, G: hi, A: 255}}, // top-left
		{x: 7, y: 0, want: color.NRGBA{R: hi, G: hi, A: 255}}, // top-right
	}
	for _, c := range corners {
		got := img.NRGBAAt(c.x, c.y)
		if got != c.want {
			t.Errorf("pixel (%d,%d): got %+v, want %+v", c.x, c.y, got, c.want)
		}
	}
}

func TestRenderGrayscaleGradient(t *testing.T) {
	var bld gsg.Builder
	cpu := mustCPUShader(t, bld.Swizzle(bld.UV(), "x"))
	ir := mustRenderer(t, 4096)
	img := image.NewNRGBA(image.Rect(0, 0, 4, 1))
	if err := ir.Render(cpu, img, 0, nil); err != nil {
		t.Fatal(err)
	}
	want := []uint8{32, 96, 159, 223} // (i+0.5)/4 * 255 + 0.5 truncated.
	for i, g := range want {
		got := img.NRGBAAt(i, 0)
		if got != (color.NRGBA{R: g, G: g, B: g, A: 255}) {
			t.Errorf("pixel %d: got %+v, want gray %d", i, got, g)
		}
	}
}

func TestDefaultColorConversion(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	tests := []struct {
		rgba [4]float32
		want color.NRGBA
	}{
		{rgba: [4]float32{0, 0, 0, 0}, want: color.NRGBA{}},
		{rgba: [4]float32{1, 1, 1, 1}, want: color.NRGBA{R: 255, G: 255, B: 255, A: 255}},
		{rgba: [4]float32{0.5, 0.25, 0.75, 1}, want: color.NRGBA{R: 128, G: 64, B: 191, A: 255}},
		// Out of range channels clamp rather than wrap.
		{rgba: [4]float32{1.5, -0.25, 0.5, 2}, want: color.NRGBA{R: 255, G: 0, B: 128, A: 255}},
		// Non-finite pixels render solid red so blowups stand out.
		{rgba: [4]float32{math32.NaN(), 0, 0, 1}, want: red},
		{rgba: [4]float32{0, math32.Inf(1), 0, 1}, want: red},
		{rgba: [4]float32{0, 0, math32.Inf(-1), 1}, want: red},
	}
	for _, tc := range tests {
		got := glrender.DefaultColorConversion(tc.rgba)
		if got != tc.want {
			t.Errorf("convert %v: got %+v, want %+v", tc.rgba, got, tc.want)
		}
	}
}

func TestRendererErrors(t *testing.T) {
	if _, err := glrender.NewImageRenderer(64, nil); err == nil {
		t.Error("expected error for too small evaluation buffer")
	}
	var bld gsg.Builder
	cpu := mustCPUShader(t, bld.UV())
	ir := mustRenderer(t, 65)
	wide := image.NewNRGBA(image.Rect(0, 0, 100, 1))
	err := ir.Render(cpu, wide, 0, nil)
	if err == nil || !strings.Contains(err.Error(), "evaluation buffer") {
		t.Errorf("row longer than buffer: got %v", err)
	}
	empty := image.NewNRGBA(image.Rect(0, 0, 0, 0))
	if err := ir.Render(cpu, empty, 0, nil); err == nil {
		t.Error("expected error for empty image bounds")
	}
}

type errShader struct{}

func (errShader) Evaluate(pos []ms2.Vec, t float32, rgba []float32, userData any) error {
	return errors.New("evaluation exploded")
}

func TestRenderShaderError(t *testing.T) {
	ir := mustRenderer(t, 4096)
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	err := ir.Render(errShader{}, img, 0, nil)
	if err == nil || !strings.Contains(err.Error(), "exploded") {
		t.Errorf("got %v, want shader evaluation error", err)
	}
}

func TestRenderSupersampled(t *testing.T) {
	// A constant color must survive supersampling and downscaling exactly.
	var bld gsg.Builder
	cpu := mustCPUShader(t, bld.Value3(ms3.Vec{X: 0.2, Y: 0.4, Z: 0.6}))
	ir := mustRenderer(t, 4096)
	img := image.NewNRGBA(image.Rect(0, 0, 6, 4))
	if err := ir.RenderSupersampled(cpu, img, 2, 0, nil); err != nil {
		t.Fatal(err)
	}
	want := color.NRGBA{R: 51, G: 102, B: 153, A: 255}
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			if got := img.NRGBAAt(x, y); got != want {
				t.Fatalf("pixel (%d,%d): got %+v, want %+v", x, y, got, want)
			}
		}
	}
	// ssaa below 2 is plain rendering.
	var bld2 gsg.Builder
	grad := mustCPUShader(t, bld2.UV())
	plain := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	fallback := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	if err := ir.Render(grad, plain, 0, nil); err != nil {
		t.Fatal(err)
	}
	if err := ir.RenderSupersampled(grad, fallback, 1, 0, nil); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(plain.Pix, fallback.Pix) {
		t.Error("ssaa=1 render differs from plain render")
	}
}

func TestRenderGIF(t *testing.T) {
	var bld gsg.Builder
	root := bld.Mul(bld.Value3(ms3.Vec{X: 0.2, Y: 0.4, Z: 0.8}), bld.Time())
	cpu := mustCPUShader(t, root)
	var buf bytes.Buffer
	const frames = 3
	if err := glrender.RenderGIF(&buf, cpu, 16, 8, frames, 1.5, nil); err != nil {
		t.Fatal(err)
	}
	anim, err := gif.DecodeAll(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(anim.Image) != frames {
		t.Fatalf("decoded %d frames, want %d", len(anim.Image), frames)
	}
	for i, frame := range anim.Image {
		bb := frame.Bounds()
		if bb.Dx() != 16 || bb.Dy() != 8 {
			t.Errorf("frame %d bounds %v, want 16x8", i, bb)
		}
		if anim.Delay[i] != 50 { // period/frames in 1/100 s.
			t.Errorf("frame %d delay %d, want 50", i, anim.Delay[i])
		}
	}
	if err := glrender.RenderGIF(&buf, cpu, 16, 8, 0, 1, nil); err == nil {
		t.Error("expected error for zero frame count")
	}
	if err := glrender.RenderGIF(&buf, errShader{}, 16, 8, 1, 1, nil); err == nil {
		t.Error("expected shader evaluation error")
	}
}
