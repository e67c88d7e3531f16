package gsgaux

import (
	"image/color"

	math "github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms1"
)

// A great portion of logic in this file taken from Esme Lamb's (@dedelala)
// excellent color manipulation work presented at Gophercon AU 2024.
// https://github.com/dedelala/disco/tree/main/color

var red = color.RGBA{R: 255, A: 255}

// ColorConversionGamma creates a color conversion applying gamma correction
// to the evaluated color's RGB channels. Use gamma 2.2 to preview shaders
// written for linear-light output on an sRGB display. Returns red for NaN values.
func ColorConversionGamma(gamma float32) func(rgba [4]float32) color.Color {
	inv := 1 / gamma
	return func(rgba [4]float32) color.Color {
		for _, v := range rgba {
			if math.IsNaN(v) {
				return red
			}
		}
		return color.NRGBA{
			R: uint8(math.Pow(ms1.Clamp(rgba[0], 0, 1), inv)*255 + 0.5),
			G: uint8(math.Pow(ms1.Clamp(rgba[1], 0, 1), inv)*255 + 0.5),
			B: uint8(math.Pow(ms1.Clamp(rgba[2], 0, 1), inv)*255 + 0.5),
			A: uint8(ms1.Clamp(rgba[3], 0, 1)*255 + 0.5),
		}
	}
}

// ColorConversionLuminanceGradient creates a color conversion that maps the
// evaluated color's luminance onto a gradient from c0 to c1. Useful to give
// scalar-valued graphs such as noise fields a tint. Returns red for NaN values.
func ColorConversionLuminanceGradient(c0, c1 color.Color) func(rgba [4]float32) color.Color {
	h0, s0, v0 := colorToHSV(c0)
	h1, s1, v1 := colorToHSV(c1)
	return func(rgba [4]float32) color.Color {
		lum := 0.2126*rgba[0] + 0.7152*rgba[1] + 0.0722*rgba[2]
		if math.IsNaN(lum) {
			return red
		}
		blend := ms1.Clamp(lum, 0, 1)
		h, s, v := interpHSV(h0, s0, v0, h1, s1, v1, blend)
		c := rgbToC(hsvToRGB(h, s, v))
		return color.RGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: 255}
	}
}

func interpHSV(h0, s0, v0, h1, s1, v1, t float32) (h, s, v float32) {
	switch {
	case h1-h0 > 0.5:
		h0 += 1.0
	case h1-h0 < -0.5:
		h1 += 1.0
	}
	h = ms1.Interp(h0, h1, t)
	s = ms1.Interp(s0, s1, t)
	v = ms1.Interp(v0, v1, t)
	return h, s, v
}

func colorToHSV(c color.Color) (h, s, v float32) {
	r0, g0, b0, _ := c.RGBA()
	return rgbToHSV(float32(r0>>8)/math.MaxUint8, float32(g0>>8)/math.MaxUint8, float32(b0>>8)/math.MaxUint8)
}

// rgbToC converts r, g, and b float32 values on the range of 0.0 to 1.0 to a
// 24 bit RGB value stored in the least significant bits of a uint32. The inputs
// are clamped to the range of 0.0 to 1.0
func rgbToC(r, g, b float32) (c uint32) {
	return uint32(ms1.Clamp(r, 0, 1)*math.MaxUint8)<<16 |
		uint32(ms1.Clamp(g, 0, 1)*math.MaxUint8)<<8 |
		uint32(ms1.Clamp(b, 0, 1)*math.MaxUint8)
}

// hsvToRGB converts hue, saturation and brightness values on the range of 0.0
// to 1.0 to RGB floating point values on the range of 0.0 to 1.0
func hsvToRGB(h, s, v float32) (r, g, b float32) {
	var (
		c = s * v
		x = c * (1 - math.Abs(math.Mod(h*6, 2)-1))
		m = v - c
	)

	switch {
	case h >= 0 && h <= 1.0/6:
		r, g, b = c, x, 0
	case h > 1.0/6 && h <= 2.0/6:
		r, g, b = x, c, 0
	case h > 2.0/6 && h <= 3.0/6:
		r, g, b = 0, c, x
	case h > 3.0/6 && h <= 4.0/6:
		r, g, b = 0, x, c
	case h > 4.0/6 && h <= 5.0/6:
		r, g, b = x, 0, c
	case h > 5.0/6 && h <= 1.0:
		r, g, b = c, 0, x
	}

	r, g, b = r+m, g+m, b+m
	return r, g, b
}

// rgbToHSV converts red, green, and blue floating point values on the range
// 0.0 to 1.0 to hue, saturation and brightness values on the range 0.0 to 1.0
func rgbToHSV(r, g, b float32) (h, s, v float32) {
	var (
		xmax = max(r, g, b)
		xmin = min(r, g, b)
		c    = xmax - xmin
	)
	v = xmax
	switch {
	case c == 0:
		h = 0
	case v == r:
		h = (g - b) / (c * 6)
	case v == g:
		h = 1.0/3 + (b-r)/(c*6)
	case v == b:
		h = 2.0/3 + (r-g)/(c*6)
	}
	if h < 0 {
		h += 1
	}
	if xmax > 0 {
		s = c / xmax
	}
	return
}
