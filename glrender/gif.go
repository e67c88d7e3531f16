package glrender

import (
	"errors"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"

	"github.com/soypat/gsg/gleval"
)

// RenderGIF renders an animated shader into a looping GIF of the given
// pixel size, sweeping time from 0 to period seconds over frames evenly
// spaced samples. Colors quantize to the Plan 9 palette with Floyd
// Steinberg dithering. It uses userData as an argument to all evaluate
// calls.
func RenderGIF(w io.Writer, s gleval.Shader, width, height, frames int, period float32, userData any) error {
	if frames <= 0 || width <= 0 || height <= 0 {
		return errors.New("RenderGIF needs positive frame count and dimensions")
	}
	ir, err := NewImageRenderer(max(4096, width+1), nil)
	if err != nil {
		return err
	}
	delay := int(period / float32(frames) * 100) // GIF delays are in 1/100 s.
	if delay < 1 {
		delay = 1
	}
	anim := gif.GIF{LoopCount: 0}
	rect := image.Rect(0, 0, width, height)
	rgba := image.NewNRGBA(rect)
	for f := 0; f < frames; f++ {
		t := period * float32(f) / float32(frames)
		err = ir.Render(s, rgba, t, userData)
		if err != nil {
			return err
		}
		pal := image.NewPaletted(rect, palette.Plan9)
		draw.FloydSteinberg.Draw(pal, rect, rgba, image.Point{})
		anim.Image = append(anim.Image, pal)
		anim.Delay = append(anim.Delay, delay)
	}
	return gif.EncodeAll(w, &anim)
}
