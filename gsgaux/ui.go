//go:build !tinygo && cgo

package gsgaux

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/gsg/glbuild"
	"github.com/soypat/gsg/gleval"
)

func ui(root glbuild.Shader, cfg UIConfig) error {
	window, term, err := startGLFW(cfg.Width, cfg.Height, cfg.Title)
	if err != nil {
		return err
	}
	defer term()
	var frag bytes.Buffer
	_, unis, err := glbuild.NewDefaultProgrammer().WriteFragment(&frag, root)
	if err != nil {
		return err
	}
	frag.WriteByte(0)
	fragSrc := frag.String()
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex: `#version 460
in vec2 aPos;
void main() {
    gl_Position = vec4(aPos, 0.0, 1.0);
}
` + "\x00",
		Fragment: fragSrc,
	})
	if err != nil {
		return fmt.Errorf("%s\n\n%w", fragSrc, err)
	}
	prog.Bind()
	// Define a quad covering the screen.
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)

	var vbo uint32
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	vertices := []float32{
		-1.0, -1.0,
		1.0, -1.0,
		-1.0, 1.0,
		-1.0, 1.0,
		1.0, -1.0,
		1.0, 1.0,
	}
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(vertices), gl.Ptr(vertices), gl.STATIC_DRAW)
	timeUniform, err := prog.UniformLocation("u_time\x00")
	if err != nil {
		return err
	}
	resUniform, err := prog.UniformLocation("u_resolution\x00")
	if err != nil {
		return err
	}
	// Param uniforms hold the values baked into the graph's param nodes.
	// They upload once since the graph does not change while the UI runs.
	for i := range unis {
		err = gleval.UploadUniform(prog, &unis[i])
		if err != nil {
			return err
		}
	}
	// Specify the layout of the vertex data.
	posAttrib, err := prog.AttribLocation("aPos\x00")
	if err != nil {
		return err
	}
	gl.EnableVertexAttribArray(posAttrib)
	gl.VertexAttribPointer(posAttrib, 2, gl.FLOAT, false, 0, gl.PtrOffset(0))

	// Main render loop.
	ctx := cfg.Context
	for !window.ShouldClose() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		width, height := window.GetFramebufferSize()
		gl.Viewport(0, 0, int32(width), int32(height))
		gl.ClearColor(0.0, 0.0, 0.0, 1.0)
		gl.Clear(gl.COLOR_BUFFER_BIT)

		prog.Bind()
		gl.Uniform1f(timeUniform, float32(glfw.GetTime()))
		gl.Uniform2f(resUniform, float32(width), float32(height))

		// Draw the quad.
		gl.BindVertexArray(vao)
		gl.DrawArrays(gl.TRIANGLES, 0, 6)
		window.SwapBuffers()
		glfw.PollEvents()

		// Limit frame rate.
		time.Sleep(time.Second / 60)
	}
	return nil
}

func startGLFW(width, height int, title string) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	// Create GLFW window.
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err = glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}
	window.MakeContextCurrent()

	// Initialize OpenGL.
	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	return window, glfw.Terminate, nil
}
