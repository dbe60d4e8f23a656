package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docmerge/internal/collector"
	"github.com/dgallion1/docmerge/internal/project"
)

func newTreeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tree <inputFolder>",
		Short: "Print the base package and the merge order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.load(nil)
			if err != nil {
				return err
			}

			tree, stats, err := collector.New(cfg.ClassSuffixes, log).Collect(args[0])
			if err != nil {
				return err
			}
			proj, err := project.New(tree)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "base package: %s (%d packages, %d classes, %d skipped)\n",
				proj.BasePackage, proj.NumPackages(), proj.NumClasses(), len(stats.Skipped))
			for _, line := range proj.Outline() {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}
