package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/ytget/media-downloader/internal/config"
	"github.com/ytget/media-downloader/internal/logging"
	"github.com/ytget/media-downloader/internal/watermark"
)

const (
	AppName = "media-downloader"

	Greeting = "Hello! Welcome to the ultimate downloader."
	Prompt   = "Enter the URL to download: "
)

// Builder constructs the pipeline for one run from the effective config
type Builder func(ctx context.Context, cfg *config.Config, out io.Writer) (*Pipeline, error)

// Installer makes sure the yt-dlp executable is present
type Installer func(ctx context.Context) error

// CLI holds the console streams and constructors used by the command
type CLI struct {
	Version string
	In      io.Reader
	Out     io.Writer
	Err     io.Writer
	Build   Builder
	Install Installer
}

// NewApp returns the urfave/cli application
func (c *CLI) NewApp() *cli.App {
	return &cli.App{
		Name:      AppName,
		Usage:     "download media from trusted sites and strip fixed watermarks from video",
		Version:   c.Version,
		ArgsUsage: "[URL]",
		Reader:    c.In,
		Writer:    c.Out,
		ErrWriter: c.Err,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file",
				EnvVars: []string{"MEDIADL_CONFIG_FILE"},
			},
			&cli.StringFlag{
				Name:    "output-dir",
				Aliases: []string{"o"},
				Usage:   "directory for downloaded and processed files",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "yt-dlp format selector for video",
			},
			&cli.StringSliceFlag{
				Name:  "trusted-domain",
				Usage: "allowlisted domain, repeatable; replaces the built-in list",
			},
			&cli.GenericFlag{
				Name:  "region",
				Usage: "watermark rectangle as x,y,w,h, repeatable; replaces the defaults",
				Value: &regionFlag{},
			},
			&cli.Float64Flag{
				Name:  "inpaint-radius",
				Usage: "inpainting neighbourhood radius in pixels",
			},
			&cli.BoolFlag{
				Name:  "no-watermark-removal",
				Usage: "keep the downloaded video as is",
			},
			&cli.BoolFlag{
				Name:  "no-audio-restore",
				Usage: "do not mux the original audio into the cleaned video",
			},
			&cli.BoolFlag{
				Name:  "install-ytdlp",
				Usage: "download yt-dlp when it is not installed",
			},
			&cli.BoolFlag{
				Name:  "reveal",
				Usage: "show the result in the file manager",
			},
			&cli.StringFlag{
				Name:  "upload-bucket",
				Usage: "S3 bucket receiving the produced files",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
		},
		Action: c.run,
	}
}

func (c *CLI) run(ctx *cli.Context) error {
	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	applyFlags(ctx, cfg)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), 2)
	}

	logger := logging.New(c.Err, cfg.LogLevel)
	runCtx := logging.Context(ctx.Context, logger)

	fmt.Fprintln(c.Out, Greeting)

	rawURL := strings.TrimSpace(ctx.Args().First())
	if rawURL == "" {
		rawURL, err = c.promptURL()
		if err != nil {
			return cli.Exit(fmt.Sprintf("reading URL: %v", err), 1)
		}
	}

	if cfg.InstallYTDLP && c.Install != nil {
		if err := c.Install(runCtx); err != nil {
			fmt.Fprintf(c.Out, "An error occurred: %v\n", err)
			return nil
		}
	}

	pipeline, err := c.Build(runCtx, cfg, c.Out)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if _, err := pipeline.Run(runCtx, rawURL); err != nil {
		c.report(err)
	}
	return nil
}

// report prints a handled pipeline error
func (c *CLI) report(err error) {
	if IsInvalidURL(err) {
		fmt.Fprintf(c.Out, "Invalid URL: %v\n", err)
		return
	}
	fmt.Fprintf(c.Out, "An error occurred: %v\n", err)
}

func (c *CLI) promptURL() (string, error) {
	fmt.Fprint(c.Out, Prompt)
	line, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// applyFlags overrides cfg with the flags given on the command line
func applyFlags(ctx *cli.Context, cfg *config.Config) {
	if ctx.IsSet("output-dir") {
		cfg.OutputDir = ctx.String("output-dir")
	}
	if ctx.IsSet("format") {
		cfg.Format = ctx.String("format")
	}
	if ctx.IsSet("trusted-domain") {
		cfg.TrustedDomains = ctx.StringSlice("trusted-domain")
	}
	if ctx.IsSet("region") {
		if flag, ok := ctx.Generic("region").(*regionFlag); ok {
			cfg.Regions = flag.regions
		}
	}
	if ctx.IsSet("inpaint-radius") {
		cfg.InpaintRadius = ctx.Float64("inpaint-radius")
	}
	if ctx.IsSet("no-watermark-removal") {
		cfg.SkipWatermark = ctx.Bool("no-watermark-removal")
	}
	if ctx.IsSet("no-audio-restore") {
		cfg.SkipAudioRestore = ctx.Bool("no-audio-restore")
	}
	if ctx.IsSet("install-ytdlp") {
		cfg.InstallYTDLP = ctx.Bool("install-ytdlp")
	}
	if ctx.IsSet("reveal") {
		cfg.Reveal = ctx.Bool("reveal")
	}
	if ctx.IsSet("upload-bucket") {
		cfg.UploadBucket = ctx.String("upload-bucket")
	}
	if ctx.IsSet("log-level") {
		cfg.LogLevel = ctx.String("log-level")
	}
}

// regionFlag accumulates repeated --region values. Each value may carry
// several regions separated by ";".
type regionFlag struct {
	regions watermark.Regions
}

func (f *regionFlag) Set(value string) error {
	parsed, err := watermark.ParseRegions(value)
	if err != nil {
		return err
	}
	if f.regions == nil {
		f.regions = watermark.Regions{}
	}
	f.regions = append(f.regions, parsed...)
	return nil
}

func (f *regionFlag) String() string {
	parts := make([]string, 0, len(f.regions))
	for _, r := range f.regions {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ";")
}
