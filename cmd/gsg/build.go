package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soypat/gsg/glbuild"
)

type buildOptions struct {
	*rootOptions
	target string
	output string
}

func newBuildCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &buildOptions{rootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "build <graph.yaml>",
		Short: "Generate GLSL from a graph document",
		Long: `Generate GLSL source from a shader graph document.

Targets:
  fragment   standalone fragment shader with u_time and u_resolution uniforms
  shadertoy  ShaderToy image shader with a mainImage entrypoint
  compute    compute shader reading positions from a SSBO
  function   bare shade function for embedding in larger shaders`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVarP(&opts.target, "target", "t", "fragment", "GLSL flavor to generate (fragment|shadertoy|compute|function)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file path, defaults to stdout")
	return cmd
}

func runBuild(opts *buildOptions, path string, cmd *cobra.Command) error {
	_, root, err := loadGraphFile(path)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if opts.output != "" {
		fp, err := os.Create(opts.output)
		if err != nil {
			return err
		}
		defer fp.Close()
		w = fp
	}
	programmer := glbuild.NewDefaultProgrammer()
	var unis []glbuild.Uniform
	switch opts.target {
	case "fragment":
		_, unis, err = programmer.WriteFragment(w, root)
	case "shadertoy":
		_, err = programmer.WriteShaderToyImage(w, root)
	case "compute":
		_, unis, err = programmer.WriteComputeShade(w, root)
	case "function":
		_, _, unis, err = programmer.WriteShadeDecl(w, root)
	default:
		err = fmt.Errorf("unknown target %q, want fragment, shadertoy, compute or function", opts.target)
	}
	if err != nil {
		return err
	}
	if opts.verbose {
		for i := range unis {
			fmt.Fprintf(cmd.ErrOrStderr(), "caller binds uniform u_%s of kind %s\n", unis[i].Name, unis[i].Kind.String())
		}
	}
	return nil
}
