// Command upscale enlarges images with the progressive upscaling
// engine, using GPU acceleration when a usable adapter is present.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/upscale"
	_ "github.com/gogpu/upscale/gpu"
)

var (
	configPath string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "upscale",
		Short: "Progressive image upscaler",
		Long: `Upscale enlarges images by large factors through a chain of bounded
2x stages, running on the GPU when one is available and falling back
to the CPU otherwise.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				upscale.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})))
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("UPSCALE_CONFIG"), "Config file path (env: UPSCALE_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(infoCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
