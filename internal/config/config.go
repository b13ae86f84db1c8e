// Package config loads runtime settings from an optional YAML file, the
// environment and command line overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/ytget/media-downloader/internal/download"
	"github.com/ytget/media-downloader/internal/validate"
	"github.com/ytget/media-downloader/internal/watermark"
)

const (
	envVarPrefix  = "MEDIADL"
	configFileEnv = envVarPrefix + "_CONFIG_FILE"
)

// Default file names, relative to OutputDir
const (
	DefaultOutputDir        = "."
	DefaultVideoFile        = "video.mp4"
	DefaultCleanedVideoFile = "watermark_removed_video.mp4"
	DefaultAudioFile        = "audio.mp3"
	DefaultFilePrefix       = "downloaded"
	DefaultLogLevel         = "info"
)

// Clamping bounds
const (
	MinInpaintRadius = 1
	MaxInpaintRadius = 50
	MaxHTTPRetries   = 10
)

// Config holds every tunable of a run
type Config struct {
	OutputDir        string            `envconfig:"OUTPUT_DIR"         yaml:"outputDir"`
	VideoFile        string            `envconfig:"VIDEO_FILE"         yaml:"videoFile"`
	CleanedVideoFile string            `envconfig:"CLEANED_VIDEO_FILE" yaml:"cleanedVideoFile"`
	AudioFile        string            `envconfig:"AUDIO_FILE"         yaml:"audioFile"`
	FilePrefix       string            `envconfig:"FILE_PREFIX"        yaml:"filePrefix"`
	Format           string            `envconfig:"FORMAT"             yaml:"format"`
	TrustedDomains   []string          `envconfig:"TRUSTED_DOMAINS"    yaml:"trustedDomains"`
	Regions          watermark.Regions `envconfig:"REGIONS"            yaml:"regions"`
	InpaintRadius    float64           `envconfig:"INPAINT_RADIUS"     yaml:"inpaintRadius"`
	SkipWatermark    bool              `envconfig:"SKIP_WATERMARK"     yaml:"skipWatermark"`
	SkipAudioRestore bool              `envconfig:"SKIP_AUDIO_RESTORE" yaml:"skipAudioRestore"`
	FFmpegPath       string            `envconfig:"FFMPEG"             yaml:"ffmpeg"`
	FFprobePath      string            `envconfig:"FFPROBE"            yaml:"ffprobe"`
	InstallYTDLP     bool              `envconfig:"INSTALL_YTDLP"      yaml:"installYtdlp"`
	HTTPTimeout      time.Duration     `envconfig:"HTTP_TIMEOUT"       yaml:"httpTimeout"`
	HTTPRetries      int               `envconfig:"HTTP_RETRIES"       yaml:"httpRetries"`
	UserAgent        string            `envconfig:"USER_AGENT"         yaml:"userAgent"`
	UploadBucket     string            `envconfig:"UPLOAD_BUCKET"      yaml:"uploadBucket"`
	UploadPrefix     string            `envconfig:"UPLOAD_PREFIX"      yaml:"uploadPrefix"`
	Reveal           bool              `envconfig:"REVEAL"             yaml:"reveal"`
	LogLevel         string            `envconfig:"LOG_LEVEL"          yaml:"logLevel"`
}

// Default returns a config populated with defaults
func Default() *Config {
	return &Config{
		OutputDir:        DefaultOutputDir,
		VideoFile:        DefaultVideoFile,
		CleanedVideoFile: DefaultCleanedVideoFile,
		AudioFile:        DefaultAudioFile,
		FilePrefix:       DefaultFilePrefix,
		Format:           download.DefaultVideoFormat,
		TrustedDomains:   append([]string(nil), validate.DefaultTrustedDomains...),
		Regions:          append(watermark.Regions(nil), watermark.DefaultRegions...),
		InpaintRadius:    watermark.DefaultInpaintRadius,
		HTTPTimeout:      download.DefaultHTTPTimeout,
		HTTPRetries:      download.DefaultHTTPRetries,
		UserAgent:        download.DefaultUserAgent,
		LogLevel:         DefaultLogLevel,
	}
}

// Load reads configFile (or $MEDIADL_CONFIG_FILE) when present, then applies
// MEDIADL_* environment variables. A missing file is not an error.
func Load(configFile string) (*Config, error) {
	if configFile == "" {
		configFile = os.Getenv(configFileEnv)
	}

	c := Default()
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := yaml.UnmarshalStrict(data, c); err != nil {
			return nil, fmt.Errorf("unmarshaling config file: %w", err)
		}
	}

	if err := envconfig.Process(envVarPrefix, c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}

	c.Normalize()
	return c, nil
}

// Normalize clamps numeric settings into their supported ranges
func (c *Config) Normalize() {
	if c.InpaintRadius < MinInpaintRadius {
		c.InpaintRadius = watermark.DefaultInpaintRadius
	}
	if c.InpaintRadius > MaxInpaintRadius {
		c.InpaintRadius = MaxInpaintRadius
	}
	if c.HTTPRetries < 0 {
		c.HTTPRetries = 0
	}
	if c.HTTPRetries > MaxHTTPRetries {
		c.HTTPRetries = MaxHTTPRetries
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = download.DefaultHTTPTimeout
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
}

// Validate reports the first missing or malformed setting
func (c *Config) Validate() error {
	if y, e := func() (string, string) {
		if c.VideoFile == "" {
			return "videoFile", "VIDEO_FILE"
		}
		if c.CleanedVideoFile == "" {
			return "cleanedVideoFile", "CLEANED_VIDEO_FILE"
		}
		if c.AudioFile == "" {
			return "audioFile", "AUDIO_FILE"
		}
		if c.FilePrefix == "" {
			return "filePrefix", "FILE_PREFIX"
		}
		if strings.TrimSpace(c.Format) == "" {
			return "format", "FORMAT"
		}
		return "", ""
	}(); y != "" {
		return fmt.Errorf(
			"missing required configuration: %s / %s_%s",
			y,
			envVarPrefix,
			e,
		)
	}

	if c.VideoFile == c.CleanedVideoFile {
		return fmt.Errorf("videoFile and cleanedVideoFile must differ: %s", c.VideoFile)
	}

	for _, r := range c.Regions {
		if r.Width <= 0 || r.Height <= 0 {
			return fmt.Errorf("invalid watermark region %s: width and height must be positive", r)
		}
	}
	return nil
}
