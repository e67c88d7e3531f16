package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/soypat/gsg/gsgaux"
)

type viewOptions struct {
	*rootOptions
	width  int
	height int
}

func newViewCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &viewOptions{rootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "view <graph.yaml>",
		Short: "Display a graph document in a live animated window",
		Long: `Open a window rendering the shader graph document in real time.
The shader time uniform advances with the wall clock so animated
graphs play continuously. Close the window to exit.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(opts, args[0])
		},
	}
	cmd.Flags().IntVar(&opts.width, "width", 800, "window width in pixels")
	cmd.Flags().IntVar(&opts.height, "height", 600, "window height in pixels")
	return cmd
}

func runView(opts *viewOptions, path string) error {
	_, root, err := loadGraphFile(path)
	if err != nil {
		return err
	}
	return gsgaux.UI(root, gsgaux.UIConfig{
		Width:  opts.width,
		Height: opts.height,
		Title:  "gsg - " + filepath.Base(path),
	})
}
