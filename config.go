package glkit

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Options configures a Context.
type Options struct {
	// UploadSlots is the number of pixel buffers in each texture's upload ring.
	UploadSlots int `yaml:"upload_slots" toml:"upload_slots"`
	// DownloadSlots is the number of pixel buffers in each texture's download ring.
	DownloadSlots int `yaml:"download_slots" toml:"download_slots"`
	// CheckErrors polls glGetError after allocations and transfers.
	CheckErrors bool `yaml:"check_errors" toml:"check_errors"`
	// MaxImageUnits caps the image units a Shader hands out.
	MaxImageUnits int `yaml:"max_image_units" toml:"max_image_units"`
	// LogLevel is read by the command line tool; the library only logs.
	LogLevel string `yaml:"log_level" toml:"log_level"`
}

// DefaultOptions returns two upload slots, three download slots and the
// eight image units every GL 4.2 implementation guarantees.
func DefaultOptions() Options {
	return Options{
		UploadSlots:   2,
		DownloadSlots: 3,
		MaxImageUnits: 8,
		LogLevel:      "info",
	}
}

// Option mutates Options.
type Option func(*Options)

func WithUploadSlots(n int) Option {
	return func(o *Options) { o.UploadSlots = n }
}

func WithDownloadSlots(n int) Option {
	return func(o *Options) { o.DownloadSlots = n }
}

func WithCheckErrors(enabled bool) Option {
	return func(o *Options) { o.CheckErrors = enabled }
}

func WithMaxImageUnits(n int) Option {
	return func(o *Options) { o.MaxImageUnits = n }
}

// WithOptions replaces every field, typically with the result of LoadOptions.
func WithOptions(src Options) Option {
	return func(o *Options) { *o = src }
}

// Apply returns a copy of o with opts applied in order.
func (o Options) Apply(opts ...Option) Options {
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Validate reports the first out-of-range field.
func (o Options) Validate() error {
	if o.UploadSlots < 1 {
		return fmt.Errorf("upload_slots must be at least 1, got %d", o.UploadSlots)
	}
	if o.DownloadSlots < 1 {
		return fmt.Errorf("download_slots must be at least 1, got %d", o.DownloadSlots)
	}
	if o.MaxImageUnits < 1 {
		return fmt.Errorf("max_image_units must be at least 1, got %d", o.MaxImageUnits)
	}
	if _, err := o.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel. An empty level is info.
func (o Options) Level() (slog.Level, error) {
	var level slog.Level
	if o.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(o.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// LoadOptions reads Options from a YAML (.yaml, .yml) or TOML (.toml) file.
// Fields missing from the file keep their DefaultOptions values.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read options: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &opts)
	case ".toml":
		err = toml.Unmarshal(data, &opts)
	default:
		return opts, fmt.Errorf("read options: unsupported extension %q", ext)
	}
	if err != nil {
		return opts, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("%s: %w", path, err)
	}
	return opts, nil
}
