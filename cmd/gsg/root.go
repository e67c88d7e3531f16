package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soypat/gsg"
	"github.com/soypat/gsg/graphio"
)

// rootOptions holds flags shared by all subcommands.
type rootOptions struct {
	verbose bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "gsg",
		Short: "Shader graph compiler",
		Long: `gsg compiles node based shader graph documents to GLSL and
renders them to images or a live window.

Graph documents are YAML files describing nodes, their parameters and the
connections between their slots. See the graphio package for the schema.`,
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	cmd.AddCommand(newBuildCommand(opts))
	cmd.AddCommand(newCheckCommand(opts))
	cmd.AddCommand(newPreviewCommand(opts))
	cmd.AddCommand(newViewCommand(opts))
	cmd.AddCommand(newOpsCommand(opts))
	return cmd
}

// loadGraphFile reads a graph document from disk and reconstructs it.
func loadGraphFile(path string) (*gsg.Graph, *gsg.Node, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer fp.Close()
	g, root, err := graphio.Load(fp)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	} else if root == nil {
		return nil, nil, fmt.Errorf("%s: document has no nodes", path)
	}
	return g, root, nil
}
