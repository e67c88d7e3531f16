//go:build tinygo || !cgo

package gleval

import (
	"errors"
	"io"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/gsg/glbuild"
)

var errNoCGO = errors.New("GPU evaluation requires CGo and is not supported on TinyGo")

// Init1x1GLFW starts a 1x1 sized GLFW so that user can start working with GPU.
func Init1x1GLFW() (terminate func(), err error) {
	return nil, errNoCGO
}

// NewComputeShader compiles a compute shader generated with
// [glbuild.Programmer.WriteComputeShade] and returns a [Shader] which
// dispatches it on the GPU.
func NewComputeShader(source io.Reader, cfg ComputeConfig) (*ShaderCompute, error) {
	return nil, errNoCGO
}

// ShaderCompute evaluates a shader graph on the GPU through a compute
// program with a UV position SSBO input and a color SSBO output.
type ShaderCompute struct {
	unis []glbuild.Uniform
}

// Uniforms returns the shader's param uniforms.
func (sc *ShaderCompute) Uniforms() []glbuild.Uniform { return sc.unis }

// Evaluate implements the [Shader] interface.
func (sc *ShaderCompute) Evaluate(pos []ms2.Vec, t float32, rgba []float32, userData any) error {
	return errNoCGO
}
