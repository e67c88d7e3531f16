package gleval

import "github.com/soypat/gsg/glbuild"

// ComputeConfig configures a GPU compute evaluation.
type ComputeConfig struct {
	// InvocX is the compute shader invocation size in the X dimension. It
	// must match the local_size_x the shader source was generated with, see
	// [glbuild.Programmer.ComputeInvocations].
	InvocX int
	// Uniforms are the param uniforms declared by the shader source, bound
	// before every dispatch with their current values.
	Uniforms []glbuild.Uniform
}
