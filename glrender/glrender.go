package glrender

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/gsg/gleval"
	xdraw "golang.org/x/image/draw"
)

type setImage = interface {
	image.Image
	Set(x, y int, c color.Color)
}

// ImageRenderer converts shader evaluations to images.
type ImageRenderer struct {
	conv func(rgba [4]float32) color.Color
	pos  []ms2.Vec
	rgba []float32
}

// NewImageRenderer instances a new [ImageRenderer] to rasterize shaders into
// images row by row, evalBufferSize positions at a time. A nil color
// conversion function results in [DefaultColorConversion].
func NewImageRenderer(evalBufferSize int, conversion func(rgba [4]float32) color.Color) (*ImageRenderer, error) {
	if evalBufferSize <= 64 {
		return nil, errors.New("too small evaluation buffer size")
	}
	if conversion == nil {
		conversion = DefaultColorConversion
	}
	ir := &ImageRenderer{
		conv: conversion,
		pos:  make([]ms2.Vec, evalBufferSize),
		rgba: make([]float32, 4*evalBufferSize),
	}
	return ir, nil
}

// DefaultColorConversion clamps channels to [0,1] and maps them to 8 bit
// non-premultiplied color. Pixels with a NaN or infinite channel render
// solid red so numerical blowups stand out.
func DefaultColorConversion(rgba [4]float32) color.Color {
	for _, v := range rgba {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return color.NRGBA{R: 255, A: 255}
		}
	}
	return color.NRGBA{
		R: uint8(clamp01(rgba[0])*255 + 0.5),
		G: uint8(clamp01(rgba[1])*255 + 0.5),
		B: uint8(clamp01(rgba[2])*255 + 0.5),
		A: uint8(clamp01(rgba[3])*255 + 0.5),
	}
}

func clamp01(v float32) float32 {
	return math32.Min(math32.Max(v, 0), 1)
}

// Render evaluates s at time t over the unit UV square and writes the
// result to img, one pixel per sample at pixel centers. UV (0,0) maps to
// the bottom-left pixel as in OpenGL fragment coordinates, so image rows
// fill bottom-up. It uses userData as an argument to all evaluate calls.
func (ir *ImageRenderer) Render(s gleval.Shader, img setImage, t float32, userData any) error {
	imgBB := img.Bounds()
	dxi := imgBB.Dx()
	dyi := imgBB.Dy()
	if dxi <= 0 || dyi <= 0 {
		return errors.New("empty image bounds")
	}
	if len(ir.pos) < dxi {
		return fmt.Errorf("require evaluation buffer (%d) to be at least of length of image rows (%d)", len(ir.pos), dxi)
	}
	du := 1 / float32(dxi)
	dv := 1 / float32(dyi)
	for j := 0; j < dyi; j++ {
		v := (float32(j) + 0.5) * dv
		err := ir.renderRow(s, j, v, du, imgBB, img, t, userData)
		if err != nil {
			return err
		}
	}
	return nil
}

func (ir *ImageRenderer) renderRow(s gleval.Shader, row int, v, du float32, imgBB image.Rectangle, img setImage, t float32, userData any) error {
	dxi := imgBB.Dx()
	for i := 0; i < dxi; i++ {
		ir.pos[i] = ms2.Vec{X: (float32(i) + 0.5) * du, Y: v}
	}
	err := s.Evaluate(ir.pos[:dxi], t, ir.rgba[:4*dxi], userData)
	if err != nil {
		return err
	}
	conv := ir.conv
	yimg := imgBB.Min.Y + imgBB.Dy() - 1 - row // UV v grows upward, image y downward.
	for i := 0; i < dxi; i++ {
		c := conv([4]float32{ir.rgba[4*i], ir.rgba[4*i+1], ir.rgba[4*i+2], ir.rgba[4*i+3]})
		img.Set(imgBB.Min.X+i, yimg, c)
	}
	return nil
}

// RenderSupersampled renders s at ssaa times the image resolution in each
// dimension and downscales with a Catmull-Rom kernel, antialiasing hard
// edges in the shader. The evaluation buffer must cover the supersampled
// row length. ssaa values below 2 fall back to plain Render.
func (ir *ImageRenderer) RenderSupersampled(s gleval.Shader, img setImage, ssaa int, t float32, userData any) error {
	if ssaa <= 1 {
		return ir.Render(s, img, t, userData)
	}
	bb := img.Bounds()
	big := image.NewNRGBA(image.Rect(0, 0, bb.Dx()*ssaa, bb.Dy()*ssaa))
	err := ir.Render(s, big, t, userData)
	if err != nil {
		return err
	}
	xdraw.CatmullRom.Scale(img, bb, big, big.Bounds(), xdraw.Src, nil)
	return nil
}
