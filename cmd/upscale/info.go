package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/gogpu/upscale"
)

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the detected hardware capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile := upscale.DetectHardware(upscale.DefaultCeilingFraction)

			table := tablewriter.NewWriter(os.Stdout)
			table.Append([]string{"Property", "Value"})
			table.Append([]string{"Device", profile.Name})
			table.Append([]string{"Backend", profile.Backend})
			table.Append([]string{"Class", profile.Class.String()})
			table.Append([]string{"Total Memory", formatBytes(profile.TotalMemoryBytes)})
			table.Append([]string{"Usable Ceiling", formatBytes(profile.CeilingBytes)})
			table.Append([]string{"Features", strings.Join(profile.Features, ", ")})
			table.Render()
			return nil
		},
	}
}

func formatBytes(b uint64) string {
	switch {
	case b == 0:
		return "-"
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(b)/float64(1<<20))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
