package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCommand(rootOpts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <graph.yaml>",
		Short: "Resolve a graph document and report failing nodes",
		Long: `Resolve the kinds of every node in a graph document and report nodes
whose inputs do not admit a valid kind assignment. Exits nonzero when
any node fails to resolve.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runCheck(opts *rootOptions, path string, cmd *cobra.Command) error {
	g, root, err := loadGraphFile(path)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	failing := 0
	for _, n := range g.Nodes() {
		if n.Failing() {
			failing++
			fmt.Fprintf(w, "✗ %s: %s\n", n.Name(), n.Err())
		} else if opts.verbose {
			fmt.Fprintf(w, "✓ %s %v\n", n.Name(), n.Kinds())
		}
	}
	if failing > 0 {
		return fmt.Errorf("%d of %d nodes failing", failing, len(g.Nodes()))
	}
	fmt.Fprintf(w, "✓ %d nodes resolve, root is %s\n", len(g.Nodes()), root.Name())
	return nil
}
