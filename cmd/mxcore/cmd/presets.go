package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/backmassage/mxcore/internal/catalog"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the available conversion presets",
	RunE: func(*cobra.Command, []string) error {
		cat, err := catalog.Load()
		if err != nil {
			return err
		}
		printPresets(cat.ListPresets())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}

func printPresets(presets []catalog.Preset) {
	idW := len("ID")
	for _, p := range presets {
		if len(p.ID) > idW {
			idW = len(p.ID)
		}
	}

	fmt.Printf("  %-*s  %-9s  %-6s  %s\n", idW, "ID", "Container", "Kind", "Label")
	fmt.Println("  " + strings.Repeat("-", idW+30))
	for _, p := range presets {
		label := p.Label
		if p.Flags.Experimental {
			label += " (experimental)"
		}
		fmt.Printf("  %-*s  %-9s  %-6s  %s\n", idW, p.ID, p.Container, p.MediaKind, label)
	}
}
