// Package gsgaux implements auxiliary rendering and export helpers to aid
// users in getting set up with gsg quickly.
package gsgaux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"time"

	"github.com/soypat/gsg/glbuild"
	"github.com/soypat/gsg/gleval"
	"github.com/soypat/gsg/glrender"
)

// RenderConfig selects the outputs of a [Render] call. At least one of the
// output writers must be non-nil.
type RenderConfig struct {
	// PNGOutput receives a still render of the graph at time T.
	PNGOutput io.Writer
	// GIFOutput receives an animated render spanning GIFPeriod seconds.
	GIFOutput io.Writer
	// FragOutput receives the graph's standalone OpenGL fragment shader.
	FragOutput io.Writer
	// Width and Height size rendered images in pixels. Both default to 512.
	Width, Height int
	// SSAA supersamples still renders when above 1: the image is rendered at
	// SSAA times the target size and downscaled. 4 is a reasonable value.
	SSAA int
	// T is the shader time in seconds of still renders.
	T float32
	// GIFFrames and GIFPeriod set the animation length. They default to 60
	// frames over 3 seconds.
	GIFFrames int
	GIFPeriod float32
	// ColorConversion converts evaluated colors to image colors in still
	// renders. Defaults to [glrender.DefaultColorConversion].
	ColorConversion func(rgba [4]float32) color.Color
	UseGPU          bool
	Silent          bool
}

// Render is an auxiliary function to aid users in getting set up with gsg
// quickly. Ideally users should implement their own rendering functions since
// applications may vary widely.
func Render(root glbuild.Shader, cfg RenderConfig) (err error) {
	if cfg.PNGOutput == nil && cfg.GIFOutput == nil && cfg.FragOutput == nil {
		return errors.New("Render requires output parameter in config")
	}
	log := func(args ...any) {
		if !cfg.Silent {
			fmt.Println(args...)
		}
	}
	if root == nil {
		return errors.New("nil root node")
	} else if err := root.Err(); err != nil {
		return fmt.Errorf("graph has erroring node: %w", err)
	}
	width, height := cfg.Width, cfg.Height
	if width <= 0 {
		width = 512
	}
	if height <= 0 {
		height = 512
	}
	programmer := glbuild.NewDefaultProgrammer()

	if cfg.FragOutput != nil {
		watch := stopwatch()
		_, unis, err := programmer.WriteFragment(cfg.FragOutput, root)
		if err != nil {
			return fmt.Errorf("writing fragment GLSL: %w", err)
		}
		for i := range unis {
			log("fragment shader expects uniform", "u_"+unis[i].Name, "of kind", unis[i].Kind.String())
		}
		filename := "fragment GLSL"
		if fp, ok := cfg.FragOutput.(*os.File); ok {
			filename = fp.Name()
		}
		log("wrote", filename, "in", watch())
	}
	if cfg.PNGOutput == nil && cfg.GIFOutput == nil {
		return nil
	}

	var shader gleval.Shader
	watch := stopwatch()
	if cfg.UseGPU {
		log("using GPU\tᵍᵒᵗᵗᵃ ᵍᵒ ᶠᵃˢᵗ")
		{
			terminate, err := gleval.Init1x1GLFW()
			if err != nil {
				return err
			}
			defer terminate()
		}
		source := new(bytes.Buffer)
		_, unis, err := programmer.WriteComputeShade(source, root)
		if err != nil {
			return err
		}
		invocX, _, _ := programmer.ComputeInvocations()
		shader, err = gleval.NewComputeShader(source, gleval.ComputeConfig{InvocX: invocX, Uniforms: unis})
		if err != nil {
			return err
		}
	} else {
		log("using CPU")
		var err error
		shader, err = gleval.NewCPUShader(root)
		if err != nil {
			return err
		}
	}
	log("instantiating evaluation shader took", watch())

	if cfg.PNGOutput != nil {
		watch = stopwatch()
		renderer, err := glrender.NewImageRenderer(max(4096, width+1), cfg.ColorConversion)
		if err != nil {
			return err
		}
		img := image.NewNRGBA(image.Rect(0, 0, width, height))
		if cfg.SSAA > 1 {
			err = renderer.RenderSupersampled(shader, img, cfg.SSAA, cfg.T, nil)
		} else {
			err = renderer.Render(shader, img, cfg.T, nil)
		}
		if err != nil {
			return fmt.Errorf("rendering image: %w", err)
		}
		err = png.Encode(cfg.PNGOutput, img)
		if err != nil {
			return fmt.Errorf("encoding PNG: %w", err)
		}
		filename := "PNG"
		if fp, ok := cfg.PNGOutput.(*os.File); ok {
			filename = fp.Name()
		}
		log("wrote", filename, "in", watch())
	}

	if cfg.GIFOutput != nil {
		frames, period := cfg.GIFFrames, cfg.GIFPeriod
		if frames <= 0 {
			frames = 60
		}
		if period <= 0 {
			period = 3
		}
		watch = stopwatch()
		err = glrender.RenderGIF(cfg.GIFOutput, shader, width, height, frames, period, nil)
		if err != nil {
			return fmt.Errorf("rendering GIF: %w", err)
		}
		filename := "GIF"
		if fp, ok := cfg.GIFOutput.(*os.File); ok {
			filename = fp.Name()
		}
		log("rendered", frames, "frames to", filename, "in", watch())
	}
	return nil
}

// RenderImage renders the graph rooted at root to a new image of the given
// size on the CPU, evaluating the shader at time t. For more control over
// output format, supersampling or GPU use see [Render].
func RenderImage(root glbuild.Shader, width, height int, t float32) (*image.NRGBA, error) {
	if root == nil {
		return nil, errors.New("nil root node")
	} else if err := root.Err(); err != nil {
		return nil, fmt.Errorf("graph has erroring node: %w", err)
	}
	shader, err := gleval.NewCPUShader(root)
	if err != nil {
		return nil, err
	}
	renderer, err := glrender.NewImageRenderer(max(4096, width+1), nil)
	if err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	err = renderer.Render(shader, img, t, nil)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// RenderPNGFile renders the graph rooted at root as a square still image at
// time zero and saves the result to a PNG file with said filename.
// If a nil color conversion function is passed then one is automatically chosen.
func RenderPNGFile(filename string, root glbuild.Shader, picSize int, useGPU bool, colorConversion func(rgba [4]float32) color.Color) error {
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	err = Render(root, RenderConfig{
		PNGOutput:       fp,
		Width:           picSize,
		Height:          picSize,
		SSAA:            4,
		ColorConversion: colorConversion,
		UseGPU:          useGPU,
		Silent:          true,
	})
	if err != nil {
		return err
	}
	return fp.Sync()
}

// WriteFragmentFile writes the graph's standalone OpenGL fragment shader to a
// file with said filename.
func WriteFragmentFile(filename string, root glbuild.Shader) error {
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	_, _, err = glbuild.NewDefaultProgrammer().WriteFragment(fp, root)
	if err != nil {
		return err
	}
	return fp.Sync()
}

// UIConfig holds parameters for UI rendering such as window width and height.
type UIConfig struct {
	Width, Height int
	Title         string
	// Context cancels the UI loop when done. Optional.
	Context context.Context
}

// UI displays the graph in a window, rendered live by the GPU and animated by
// its time input. UI blocks until the window is closed or the context is
// cancelled. Requires CGo and [runtime.LockOSThread] called from the main
// goroutine's init function.
func UI(root glbuild.Shader, cfg UIConfig) error {
	if root == nil {
		return errors.New("nil root node")
	} else if err := root.Err(); err != nil {
		return fmt.Errorf("graph has erroring node: %w", err)
	}
	if cfg.Width <= 0 {
		cfg.Width = 800
	}
	if cfg.Height <= 0 {
		cfg.Height = 600
	}
	if cfg.Title == "" {
		cfg.Title = "gsg shader viewer"
	}
	return ui(root, cfg)
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
