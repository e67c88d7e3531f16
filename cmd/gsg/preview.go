package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/soypat/gsg/gsgaux"
)

type previewOptions struct {
	*rootOptions
	output string
	size   int
	ssaa   int
	t      float32
	gif    bool
	frames int
	period float32
	gpu    bool
}

func newPreviewCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &previewOptions{rootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "preview <graph.yaml>",
		Short: "Render a graph document to a PNG or GIF image",
		Long: `Render a shader graph document to an image file. Still renders
evaluate the graph at a fixed shader time and may be supersampled.
Animated GIF renders sample one animation period over --frames frames.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "preview.png", "output image path")
	cmd.Flags().IntVar(&opts.size, "size", 512, "image width and height in pixels")
	cmd.Flags().IntVar(&opts.ssaa, "ssaa", 4, "supersampling factor for still renders")
	cmd.Flags().Float32Var(&opts.t, "time", 0, "shader time of still renders in seconds")
	cmd.Flags().BoolVar(&opts.gif, "gif", false, "render an animated GIF instead of a PNG")
	cmd.Flags().IntVar(&opts.frames, "frames", 60, "GIF frame count")
	cmd.Flags().Float32Var(&opts.period, "period", 3, "GIF animation period in seconds")
	cmd.Flags().BoolVar(&opts.gpu, "gpu", false, "evaluate the graph on the GPU")
	return cmd
}

func runPreview(opts *previewOptions, path string) error {
	_, root, err := loadGraphFile(path)
	if err != nil {
		return err
	}
	fp, err := os.Create(opts.output)
	if err != nil {
		return err
	}
	defer fp.Close()
	cfg := gsgaux.RenderConfig{
		Width:  opts.size,
		Height: opts.size,
		SSAA:   opts.ssaa,
		T:      opts.t,
		UseGPU: opts.gpu,
		Silent: !opts.verbose,
	}
	if opts.gif {
		cfg.GIFOutput = fp
		cfg.GIFFrames = opts.frames
		cfg.GIFPeriod = opts.period
	} else {
		cfg.PNGOutput = fp
	}
	err = gsgaux.Render(root, cfg)
	if err != nil {
		return err
	}
	return fp.Sync()
}
