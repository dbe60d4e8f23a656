package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docmerge/internal/config"
	"github.com/dgallion1/docmerge/internal/pipeline"
)

const defaultOutputName = "output"

func newBuildCmd(root *rootOptions) *cobra.Command {
	var (
		formats  []string
		html     bool
		overview string
	)

	cmd := &cobra.Command{
		Use:   "build <inputFolder> [outputName]",
		Short: "Merge a documentation folder into one document",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			output := defaultOutputName
			if len(args) == 2 {
				output = args[1]
			}

			cfg, log, err := root.load(func(c *config.Config) {
				if cmd.Flags().Changed("format") {
					c.Formats = formats
				}
				if html {
					c.WriteHTML = true
				}
				if overview != "" {
					c.Overview = overview
				}
			})
			if err != nil {
				return err
			}

			orch := pipeline.NewOrchestrator(cfg, nil, log)
			res, err := orch.Run(cmd.Context(), pipeline.NewJob(input, output, cfg.Formats))
			if err != nil {
				return err
			}
			for _, path := range res.Outputs {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&formats, "format", "f", []string{"pdf"}, "output formats (pdf, docx, html)")
	cmd.Flags().BoolVar(&html, "html", false, "also write the merged HTML")
	cmd.Flags().StringVar(&overview, "overview", "", "Markdown or HTML file placed before the table of contents")
	return cmd
}
