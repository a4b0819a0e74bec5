package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/backmassage/mxcore/internal/capability"
)

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "Show the encoders, muxers, and filters the toolchain reports",
	RunE: func(cc *cobra.Command, _ []string) error {
		registry := capability.NewRegistry(cfg.FfmpegBin)
		snap := registry.Load(cc.Context())

		printSet("Video encoders", snap.VideoEncoders)
		printSet("Audio encoders", snap.AudioEncoders)
		printSet("Muxers", snap.Muxers)
		fmt.Printf("Filters: %d reported\n", len(snap.Filters))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(capabilitiesCmd)
}

func printSet(label string, set map[string]struct{}) {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)

	fmt.Printf("%s (%d):\n", label, len(names))
	for _, n := range names {
		fmt.Printf("  %s\n", n)
	}
	fmt.Println()
}
