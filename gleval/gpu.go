//go:build !tinygo && cgo

package gleval

import (
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/gsg/glbuild"
)

// Init1x1GLFW starts a 1x1 sized GLFW so that user can start working with GPU.
// It returns a termination function that should be called when user is done running loads on GPU.
func Init1x1GLFW() (terminate func(), err error) {
	_, terminate, err = glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "compute",
		Version: [2]int{4, 6},
		Width:   1,
		Height:  1,
	})
	return terminate, err
}

// NewComputeShader compiles a compute shader generated with
// [glbuild.Programmer.WriteComputeShade] and returns a [Shader] which
// dispatches it on the GPU. A GL context must be current, see [Init1x1GLFW].
func NewComputeShader(source io.Reader, cfg ComputeConfig) (*ShaderCompute, error) {
	if cfg.InvocX < 1 {
		return nil, errors.New("zero or negative invocation size")
	}
	combined, err := glgl.ParseCombined(source)
	if err != nil {
		return nil, err
	}
	glprog, err := glgl.CompileProgram(combined)
	if err != nil {
		return nil, errors.New(string(combined.Compute) + "\n" + err.Error())
	}
	sc := ShaderCompute{
		prog:   glprog,
		invocX: cfg.InvocX,
		unis:   cfg.Uniforms,
	}
	return &sc, nil
}

// ShaderCompute evaluates a shader graph on the GPU through a compute
// program with a UV position SSBO input and a color SSBO output.
type ShaderCompute struct {
	prog   glgl.Program
	invocX int
	unis   []glbuild.Uniform
}

// Uniforms returns the shader's param uniforms. Callers may mutate the
// returned values between Evaluate calls to animate params.
func (sc *ShaderCompute) Uniforms() []glbuild.Uniform { return sc.unis }

// Evaluate implements the [Shader] interface.
func (sc *ShaderCompute) Evaluate(pos []ms2.Vec, t float32, rgba []float32, userData any) (err error) {
	if len(pos) == 0 {
		return errZeroLenBuffer
	} else if len(rgba) != 4*len(pos) {
		return errRGBALength
	} else if sc.prog.ID() == 0 {
		return errors.New("bad program compile or ShaderCompute not initialized before first use")
	}
	prog := sc.prog
	prog.Bind()
	defer prog.Unbind()
	err = sc.uploadUniforms(t)
	if err != nil {
		return err
	}
	var p runtime.Pinner
	var posSSBO, colSSBO uint32
	p.Pin(&posSSBO)
	p.Pin(&colSSBO)
	defer p.Unpin()

	posSSBO = loadSSBO(pos, 0, gl.STATIC_DRAW)
	if posSSBO == 0 {
		return glErrOrMessage("zero SSBO id set by GL during compute loading")
	}
	defer gl.DeleteBuffers(1, &posSSBO)

	colSSBO = createSSBO(elemSize[float32]()*len(rgba), 1, gl.DYNAMIC_READ)
	if colSSBO == 0 {
		return glErrOrMessage("zero id SSBO creating color buffer")
	}
	defer gl.DeleteBuffers(1, &colSSBO)

	nWorkX := (len(pos) + sc.invocX - 1) / sc.invocX
	gl.DispatchCompute(uint32(nWorkX), 1, 1)
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT)
	err = copySSBO(rgba, colSSBO)
	if err != nil {
		return err
	}
	return glgl.Err()
}

func (sc *ShaderCompute) uploadUniforms(t float32) error {
	loc, err := sc.prog.UniformLocation("u_time\x00")
	if err != nil {
		return err
	}
	err = sc.prog.SetUniformf(loc, t)
	if err != nil {
		return err
	}
	for i := range sc.unis {
		err = UploadUniform(sc.prog, &sc.unis[i])
		if err != nil {
			return err
		}
	}
	return nil
}

// UploadUniform binds a single uniform value to the currently bound program.
// Matrix values are stored row-major so they upload with the transpose flag
// set. A GL context must be current.
func UploadUniform(prog glgl.Program, u *glbuild.Uniform) error {
	name := glbuild.AppendUniformName(nil, u.Name)
	name = append(name, 0)
	loc, err := prog.UniformLocation(string(name))
	if err != nil {
		return fmt.Errorf("uniform %q: %w", u.Name, err)
	}
	v := &u.Value
	switch u.Kind {
	case glbuild.KindFloat:
		return prog.SetUniformf(loc, v[0])
	case glbuild.KindVec2:
		gl.Uniform2f(loc, v[0], v[1])
	case glbuild.KindVec3:
		gl.Uniform3f(loc, v[0], v[1], v[2])
	case glbuild.KindVec4:
		gl.Uniform4f(loc, v[0], v[1], v[2], v[3])
	case glbuild.KindMat2:
		gl.UniformMatrix2fv(loc, 1, true, &v[0])
	case glbuild.KindMat3:
		gl.UniformMatrix3fv(loc, 1, true, &v[0])
	case glbuild.KindMat4:
		gl.UniformMatrix4fv(loc, 1, true, &v[0])
	default:
		return fmt.Errorf("uniform %q has non-uploadable kind %s", u.Name, u.Kind.String())
	}
	return glgl.Err()
}
