// Package config resolves picpalette settings from defaults, an optional
// .env file and PICPALETTE_* environment variables. Command-line flags are
// applied on top by the cli package.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"

	"github.com/jmylchreest/picpalette/internal/clipboard"
	"github.com/jmylchreest/picpalette/internal/export"
	"github.com/jmylchreest/picpalette/internal/extract"
	"github.com/jmylchreest/picpalette/internal/geometry"
	"github.com/jmylchreest/picpalette/internal/image"
	"github.com/jmylchreest/picpalette/internal/quantize"
	"github.com/jmylchreest/picpalette/internal/session"
)

// Environment variable names.
const (
	EnvSwatches          = "PICPALETTE_SWATCHES"
	EnvAlgorithm         = "PICPALETTE_ALGORITHM"
	EnvQuantizerPlugin   = "PICPALETTE_QUANTIZER_PLUGIN"
	EnvMaxWidth          = "PICPALETTE_MAX_WIDTH"
	EnvMaxHeight         = "PICPALETTE_MAX_HEIGHT"
	EnvClipboard         = "PICPALETTE_CLIPBOARD"
	EnvLogLevel          = "PICPALETTE_LOG_LEVEL"
	EnvLogFile           = "PICPALETTE_LOG_FILE"
	EnvNoDragDrop        = "PICPALETTE_NO_DRAGDROP"
	EnvNoExport          = "PICPALETTE_NO_EXPORT"
	EnvNoShortcuts       = "PICPALETTE_NO_SHORTCUTS"
	EnvExportFormat      = "PICPALETTE_EXPORT_FORMAT"
	EnvExportCompression = "PICPALETTE_EXPORT_COMPRESSION"
)

// DefaultEnvFile is read when present and no other file is named.
const DefaultEnvFile = ".env"

// ErrInvalidConfig is returned by Validate and by malformed variables.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds every setting a session needs.
type Config struct {
	Swatches  int
	Algorithm string

	// QuantizerPlugin is the path of an external quantiser binary. When set
	// it overrides Algorithm.
	QuantizerPlugin string

	MaxWidth    int
	MaxHeight   int
	MaxFileSize int64

	Clipboard string

	LogLevel string
	LogFile  string

	DragDrop  bool
	Export    bool
	Shortcuts bool

	ExportFormat      string
	ExportCompression string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Swatches:     extract.DefaultCount,
		Algorithm:    string(quantize.AlgorithmKMeans),
		MaxWidth:     geometry.DefaultBox.W,
		MaxHeight:    geometry.DefaultBox.H,
		MaxFileSize:  image.MaxFileSize,
		Clipboard:    clipboard.BackendAuto,
		LogLevel:     "info",
		DragDrop:     true,
		Export:       true,
		Shortcuts:    true,
		ExportFormat: string(export.FormatJSON),
	}
}

// Load returns Default overlaid with envFile and then the process
// environment. The process environment wins over the file. An empty
// envFile means DefaultEnvFile, which may be missing; a named file must
// exist.
func Load(envFile string) (Config, error) {
	vars := map[string]string{}

	path, required := envFile, true
	if path == "" {
		path, required = DefaultEnvFile, false
	}
	fileVars, err := godotenv.Read(path)
	switch {
	case err == nil:
		vars = fileVars
	case required || !os.IsNotExist(err):
		return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return FromLookup(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	})
}

// FromLookup returns Default overlaid with the variables lookup reports.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a number", key, v))
			return
		}
		*dst = n
	}
	disable := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		off, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a boolean", key, v))
			return
		}
		*dst = !off
	}

	num(EnvSwatches, &cfg.Swatches)
	str(EnvAlgorithm, &cfg.Algorithm)
	str(EnvQuantizerPlugin, &cfg.QuantizerPlugin)
	num(EnvMaxWidth, &cfg.MaxWidth)
	num(EnvMaxHeight, &cfg.MaxHeight)
	str(EnvClipboard, &cfg.Clipboard)
	str(EnvLogLevel, &cfg.LogLevel)
	str(EnvLogFile, &cfg.LogFile)
	disable(EnvNoDragDrop, &cfg.DragDrop)
	disable(EnvNoExport, &cfg.Export)
	disable(EnvNoShortcuts, &cfg.Shortcuts)
	str(EnvExportFormat, &cfg.ExportFormat)
	str(EnvExportCompression, &cfg.ExportCompression)

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return cfg, nil
}

// AlgorithmSpec returns the quantiser spec for quantize.New.
func (c Config) AlgorithmSpec() string {
	if c.QuantizerPlugin != "" {
		return string(quantize.AlgorithmPlugin) + ":" + c.QuantizerPlugin
	}
	return c.Algorithm
}

// Box returns the maximum display size.
func (c Config) Box() geometry.Size {
	return geometry.Size{W: c.MaxWidth, H: c.MaxHeight}
}

// Level returns the hclog level for LogLevel.
func (c Config) Level() hclog.Level {
	return hclog.LevelFromString(c.LogLevel)
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if err := extract.ValidateCount(c.Swatches); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if _, _, err := quantize.ParseAlgorithm(c.AlgorithmSpec()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.MaxWidth <= 0 || c.MaxHeight <= 0 {
		return fmt.Errorf("%w: display box must be positive, got %s", ErrInvalidConfig, c.Box())
	}

	if c.MaxFileSize <= 0 {
		return fmt.Errorf("%w: max file size must be positive, got %d", ErrInvalidConfig, c.MaxFileSize)
	}

	if !slices.Contains(clipboard.Backends(), c.Clipboard) {
		return fmt.Errorf("%w: unknown clipboard backend %q (valid: %s)", ErrInvalidConfig, c.Clipboard, strings.Join(clipboard.Backends(), ", "))
	}

	if c.Level() == hclog.NoLevel {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.LogLevel)
	}

	if _, err := export.ParseFormat(c.ExportFormat); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := export.ParseCompression(c.ExportCompression); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// SessionOptions converts c into controller options. c must be valid.
func (c Config) SessionOptions() session.Options {
	format, _ := export.ParseFormat(c.ExportFormat)
	compression, _ := export.ParseCompression(c.ExportCompression)

	opts := session.DefaultOptions()
	opts.SwatchCount = c.Swatches
	opts.EnableDragDrop = c.DragDrop
	opts.EnableExport = c.Export
	opts.EnableKeyboardShortcuts = c.Shortcuts
	opts.MaxDisplay = c.Box()
	opts.MaxFileSize = c.MaxFileSize
	opts.ExportFormat = format
	opts.ExportCompression = compression
	return opts
}
