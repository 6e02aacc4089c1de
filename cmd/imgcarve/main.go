// Command imgcarve extracts images embedded in a binary file.
//
// Usage:
//
//	imgcarve [flags] <input>
//
// GIF and BMP streams are carved out byte for byte. PNG, JPEG, TIFF and WEBP
// candidates are decoded and re-encoded by the selected codec. The input may
// be zstd-compressed.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/sebnyberg/imgcarve/codec"
	"github.com/sebnyberg/imgcarve/gifx"
	"github.com/sebnyberg/imgcarve/scan"
	"github.com/sebnyberg/imgcarve/sink"
	"github.com/sebnyberg/imgcarve/source"
	"github.com/sebnyberg/imgcarve/vipsx"
	"go.uber.org/zap"
)

type config struct {
	out          string
	codec        string
	workers      int
	zstd         bool
	trustGCESize bool
	verbose      bool
	input        string
}

func parseFlags(args []string) (config, error) {
	var cfg config
	fs := flag.NewFlagSet("imgcarve", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: imgcarve [flags] <input>\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&cfg.out, "o", "out", "output directory")
	fs.StringVar(&cfg.codec, "codec", "pure", "codec for non-carvable formats: pure, vips or none")
	fs.IntVar(&cfg.workers, "workers", runtime.NumCPU(), "candidates processed in parallel")
	fs.BoolVar(&cfg.zstd, "zstd", false, "zstd-compress extracted files")
	fs.BoolVar(&cfg.trustGCESize, "trust-gce-size", false, "use the declared size of GIF graphic control extensions")
	fs.BoolVar(&cfg.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return cfg, fmt.Errorf("expected one input file, got %d", fs.NArg())
	}
	cfg.input = fs.Arg(0)
	switch cfg.codec {
	case "pure", "vips", "none":
	default:
		return cfg, fmt.Errorf("unknown codec %q", cfg.codec)
	}
	return cfg, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger, err := newLogger(cfg.verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("imgcarve failed", zap.Error(err))
	}
}

func run(cfg config, logger *zap.Logger) error {
	host, kind, err := source.Load(cfg.input)
	if err != nil {
		return err
	}
	logger.Info("input loaded",
		zap.String("path", cfg.input),
		zap.Stringer("kind", kind),
		zap.Int("size", len(host)),
	)

	out, err := sink.NewDir(cfg.out, &sink.Options{Compress: cfg.zstd})
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	s := &scan.Scanner{
		Carvers: scan.DefaultCarvers(&gifx.Options{TrustGraphicControlSize: cfg.trustGCESize}),
		Logger:  logger,
		Workers: cfg.workers,
	}
	switch cfg.codec {
	case "pure":
		s.Codec = new(codec.Pure)
	case "vips":
		vipsx.Startup(logger)
		defer vipsx.Shutdown()
		s.Codec = new(vipsx.Codec)
	}

	stats, err := s.Scan(host, func(a scan.Artifact) error {
		p, err := out.Write(a.Name(), a.Data)
		if err != nil {
			return err
		}
		fields := []zap.Field{
			zap.String("path", p),
			zap.Int("offset", a.Offset),
			zap.Stringer("format", a.Format),
			zap.Int("size", len(a.Data)),
		}
		if a.GIF != nil {
			fields = append(fields,
				zap.String("version", a.GIF.Version),
				zap.Int("width", a.GIF.Width),
				zap.Int("height", a.GIF.Height),
				zap.Int("frames", a.GIF.Frames),
			)
		}
		logger.Info("image extracted", fields...)
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info("scan finished",
		zap.Int("candidates", stats.Candidates),
		zap.Int("extracted", stats.Extracted),
		zap.Int("failed", stats.Failed),
	)
	return nil
}
