package main

import (
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	// Decoders registered for image.Decode.
	_ "image/gif"

	_ "golang.org/x/image/webp"

	"github.com/gogpu/upscale"
)

const pollInterval = 100 * time.Millisecond

func runCmd() *cobra.Command {
	var (
		factor      float64
		quality     string
		cpuOnly     bool
		workers     int
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "run <input> <output>",
		Short: "Upscale an image file",
		Long: `Run reads an image (PNG, JPEG, GIF, BMP, TIFF, WebP), upscales it by
the given factor, and writes the result (PNG, JPEG, BMP, or TIFF,
chosen by the output extension).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("cpu") {
				cfg.CPUOnly = cpuOnly
			}
			if cmd.Flags().Changed("quality") {
				cfg.Quality = quality
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}
			return runUpscale(args[0], args[1], factor, cfg)
		},
	}

	cmd.Flags().Float64VarP(&factor, "factor", "f", 2, "Scale factor (>= 1)")
	cmd.Flags().StringVarP(&quality, "quality", "q", "balanced", "Quality preference (fast, balanced, high)")
	cmd.Flags().BoolVar(&cpuOnly, "cpu", false, "Force the CPU path")
	cmd.Flags().IntVar(&workers, "workers", 0, "CPU worker count (0 = one per core)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")

	return cmd
}

func runUpscale(inPath, outPath string, factor float64, cfg *Config) error {
	img, err := readImage(inPath)
	if err != nil {
		return err
	}

	q := upscale.QualityBalanced
	if cfg.Quality != "" {
		if q, err = upscaleQuality(cfg.Quality); err != nil {
			return err
		}
	}

	opts := []upscale.Option{upscale.WithQuality(q)}
	if cfg.CPUOnly {
		opts = append(opts, upscale.WithAccelerator(nil))
	}
	if cfg.Workers > 0 {
		opts = append(opts, upscale.WithWorkers(cfg.Workers))
	}
	if cfg.MemoryLimitMB > 0 {
		opts = append(opts, upscale.WithMemoryLimit(cfg.MemoryLimitMB<<20))
	}
	if cfg.HostLimitMB > 0 {
		opts = append(opts, upscale.WithHostMemoryLimit(cfg.HostLimitMB<<20))
	}
	if cfg.CeilingFraction > 0 {
		opts = append(opts, upscale.WithCeilingFraction(cfg.CeilingFraction))
	}

	u, err := upscale.New(opts...)
	if err != nil {
		return err
	}
	defer u.Close()

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(upscale.NewCollector(u))
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				pterm.Warning.Printfln("metrics server: %v", err)
			}
		}()
	}

	profile := u.Capabilities()
	pterm.Info.Printfln("Device: %s", profile.String())

	id, err := u.Submit(img, factor, q)
	if err != nil {
		return err
	}

	bar, _ := pterm.DefaultProgressbar.
		WithTotal(100).
		WithTitle(fmt.Sprintf("Upscaling %s x%.2f", filepath.Base(inPath), factor)).
		Start()

	var st upscale.SessionStatus
	for {
		st, err = u.Status(id)
		if err != nil {
			return err
		}
		bar.Add(int(st.Progress*100) - bar.Current)
		if st.Status.Terminal() {
			break
		}
		time.Sleep(pollInterval)
	}
	bar.Stop()

	if st.Status != upscale.StatusComplete {
		return fmt.Errorf("session ended %s: %w", st.Status, st.Err)
	}

	out, err := u.Result(id)
	if err != nil {
		return err
	}
	if err := writeImage(outPath, out); err != nil {
		return err
	}
	pterm.Success.Printfln("Wrote %s (%dx%d)", outPath, out.Width(), out.Height())
	return u.Release(id)
}

// readImage decodes an image file into the engine's RGBA layout.
func readImage(path string) (*upscale.ImageBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	bounds := src.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), src, bounds.Min, draw.Src)
	return upscale.NewImageBufferFrom(nrgba.Pix, nrgba.Rect.Dx(), nrgba.Rect.Dy(), nrgba.Stride)
}

// writeImage encodes the result; the format follows the extension.
func writeImage(path string, buf *upscale.ImageBuffer) error {
	out := &image.NRGBA{
		Pix:    buf.Data(),
		Stride: buf.Stride(),
		Rect:   image.Rect(0, 0, buf.Width(), buf.Height()),
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = png.Encode(f, out)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, out, &jpeg.Options{Quality: 95})
	case ".bmp":
		err = bmp.Encode(f, out)
	case ".tif", ".tiff":
		err = tiff.Encode(f, out, nil)
	default:
		err = fmt.Errorf("unsupported output format: %s", filepath.Ext(path))
	}
	if err != nil {
		return err
	}
	return f.Close()
}

func upscaleQuality(s string) (upscale.Quality, error) {
	return upscale.ParseQuality(strings.ToLower(s))
}
