package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soypat/gsg"
	"github.com/soypat/gsg/glbuild"
)

func newOpsCommand(rootOpts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ops",
		Short: "List registered graph operations",
		Long: `List the names of all registered graph operations usable in the op
field of graph document nodes. Verbose output includes slot declarations.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOps(rootOpts, cmd)
		},
	}
	return cmd
}

// placeholderSpec instantiates parametrized ops so their slots can be listed.
// Ops whose validation rejects it are listed by name only.
var placeholderSpec = gsg.OpSpec{
	Kind:   glbuild.KindFloat,
	Value:  []float32{0},
	Name:   "name",
	Mask:   "x",
	Model:  "lambert",
	Source: "float f(float a) {\nreturn a;\n}",
}

func runOps(opts *rootOptions, cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	for _, name := range gsg.RegisteredOps() {
		if !opts.verbose {
			fmt.Fprintln(w, name)
			continue
		}
		op, err := gsg.NewOp(name, placeholderSpec)
		if err != nil {
			fmt.Fprintln(w, name)
			continue
		}
		var ins, outs []string
		for _, s := range op.Slots() {
			decl := s.Name + ":" + s.Kind.String()
			if s.Dir == glbuild.SlotInput {
				ins = append(ins, decl)
			} else {
				outs = append(outs, decl)
			}
		}
		fmt.Fprintf(w, "%-12s (%s) -> (%s)\n", name, strings.Join(ins, ", "), strings.Join(outs, ", "))
	}
	return nil
}
