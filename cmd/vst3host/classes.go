package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

type classEntry struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Category      string   `yaml:"category"`
	Vendor        string   `yaml:"vendor,omitempty"`
	Version       string   `yaml:"version,omitempty"`
	SDKVersion    string   `yaml:"sdk,omitempty"`
	SubCategories []string `yaml:"subcategories,omitempty"`
}

func newClassEntry(c vst3.ClassInfo) classEntry {
	return classEntry{
		ID:            c.ID.String(),
		Name:          c.Name,
		Category:      c.Category,
		Vendor:        c.Vendor,
		Version:       c.Version,
		SDKVersion:    c.SDKVersion,
		SubCategories: c.SubCategories,
	}
}

type classesReport struct {
	Path    string       `yaml:"path"`
	Classes []classEntry `yaml:"classes"`
}

func newClassesCommand(a *app) *cobra.Command {
	var effects bool
	cmd := &cobra.Command{
		Use:   "classes <module>",
		Short: "List the classes a plugin module exports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			h, err := a.newHost()
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, h.Close()) }()

			list := h.Classes
			if effects {
				list = h.Effects
			}
			classes, err := list(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			report := classesReport{Path: args[0], Classes: make([]classEntry, 0, len(classes))}
			for _, c := range classes {
				report.Classes = append(report.Classes, newClassEntry(c))
			}
			return a.emit(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().BoolVar(&effects, "effects", false, "only list audio effect classes")
	return cmd
}
