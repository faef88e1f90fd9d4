package main

import (
	"github.com/spf13/cobra"

	"github.com/justyntemme/vst3host/pkg/module"
)

type scanReport struct {
	Roots   []string    `yaml:"roots"`
	Plugins []scanEntry `yaml:"plugins"`
}

type scanEntry struct {
	Path   string `yaml:"path"`
	Binary string `yaml:"binary,omitempty"`
	Error  string `yaml:"error,omitempty"`
}

func newScanCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan [dirs...]",
		Short: "List plugin bundles and the binaries they resolve to",
		Long: "Scan lists every .vst3 bundle or file below the given directories, or below\n" +
			"the platform search paths and the configured plugin directories.",
		RunE: func(cmd *cobra.Command, args []string) error {
			roots := args
			if len(roots) == 0 {
				roots = module.SearchPaths(a.cfg.Plugins.LocalDir, a.cfg.Plugins.SearchPaths...)
			}
			paths, err := module.Scan(roots)
			if err != nil {
				return err
			}
			report := scanReport{Roots: roots, Plugins: make([]scanEntry, 0, len(paths))}
			for _, p := range paths {
				e := scanEntry{Path: p}
				if bin, err := module.Resolve(p); err != nil {
					e.Error = err.Error()
				} else {
					e.Binary = bin
				}
				report.Plugins = append(report.Plugins, e)
			}
			return a.emit(cmd.OutOrStdout(), report)
		},
	}
}
