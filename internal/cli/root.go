// Package cli provides the command-line interface for picpalette.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jmylchreest/picpalette/internal/clipboard"
	"github.com/jmylchreest/picpalette/internal/config"
	"github.com/jmylchreest/picpalette/internal/extract"
	"github.com/jmylchreest/picpalette/internal/geometry"
	"github.com/jmylchreest/picpalette/internal/image"
	"github.com/jmylchreest/picpalette/internal/notify"
	"github.com/jmylchreest/picpalette/internal/quantize"
	"github.com/jmylchreest/picpalette/internal/session"
	"github.com/jmylchreest/picpalette/internal/version"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	envFile string
	logFile string

	// Palette flags shared by every command that processes an image. The set
	// is built during variable initialisation so every init() can add it.
	paletteFlags  = newPaletteFlags()
	flagSwatches  int
	flagAlgorithm string
	flagPlugin    string
	flagMaxWidth  int
	flagMaxHeight int
	flagMaxSize   int64
	flagClipboard string

	// Resolved by setup before any command runs
	cfg       config.Config
	logger    hclog.Logger = hclog.NewNullLogger()
	logCloser io.Closer

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "picpalette",
		Short: "Extract colour palettes from images",
		Long: `picpalette extracts the dominant colours of an image and shows them as
swatches you can copy, derive schemes from and export.

Use "picpalette extract" for one-shot output, "picpalette export" to write
a JSON, PDF or PNG palette, and "picpalette interactive" for a terminal
session with clickable swatches, drag and drop and keyboard shortcuts.`,
		Version:           version.Short(),
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "read settings from this .env file (default: ./.env if present)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")

	// Set version template
	rootCmd.SetVersionTemplate(version.String() + "\n")

	cobra.OnFinalize(closeLog)

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(deriveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(interactiveCmd)
}

func newPaletteFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("palette", pflag.ContinueOnError)
	fs.IntVarP(&flagSwatches, "colours", "c", extract.DefaultCount, fmt.Sprintf("number of swatches (%d-%d)", extract.MinCount, extract.MaxCount))
	fs.StringVarP(&flagAlgorithm, "algorithm", "a", string(quantize.AlgorithmKMeans), fmt.Sprintf("quantizer (%v, or plugin:<path>)", quantize.ValidAlgorithms()[:4]))
	fs.StringVar(&flagPlugin, "quantizer-plugin", "", "path to an external quantizer plugin (overrides --algorithm)")
	fs.IntVar(&flagMaxWidth, "max-width", geometry.DefaultBox.W, "maximum preview width")
	fs.IntVar(&flagMaxHeight, "max-height", geometry.DefaultBox.H, "maximum preview height")
	fs.Int64Var(&flagMaxSize, "max-size", image.MaxFileSize, "maximum image file size in bytes")
	fs.StringVar(&flagClipboard, "clipboard", clipboard.BackendAuto, fmt.Sprintf("clipboard backend (%v)", clipboard.Backends()))
	return fs
}

// setup resolves configuration and the logger for cmd.
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(envFile)
	if err != nil {
		return err
	}

	applyFlags(cmd.Flags(), &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	closeLog()
	logger, logCloser, err = newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	logger.Debug("configuration resolved", "swatches", cfg.Swatches, "algorithm", cfg.AlgorithmSpec(), "box", cfg.Box())
	return nil
}

// applyFlags overrides cfg with the palette flags the user set explicitly.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("colours") {
		cfg.Swatches = flagSwatches
	}
	if flags.Changed("algorithm") {
		cfg.Algorithm = flagAlgorithm
		cfg.QuantizerPlugin = ""
	}
	if flags.Changed("quantizer-plugin") {
		cfg.QuantizerPlugin = flagPlugin
	}
	if flags.Changed("max-width") {
		cfg.MaxWidth = flagMaxWidth
	}
	if flags.Changed("max-height") {
		cfg.MaxHeight = flagMaxHeight
	}
	if flags.Changed("max-size") {
		cfg.MaxFileSize = flagMaxSize
	}
	if flags.Changed("clipboard") {
		cfg.Clipboard = flagClipboard
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
}

// newLogger builds the root logger. Verbose and quiet override the
// configured level. Interactive sessions log nowhere unless a log file is
// set, so the screen is not corrupted.
func newLogger(cmd *cobra.Command, cfg config.Config) (hclog.Logger, io.Closer, error) {
	level := cfg.Level()
	switch {
	case verbose:
		level = hclog.Debug
	case quiet:
		level = hclog.Error
	}

	var out io.Writer = cmd.ErrOrStderr()
	var closer io.Closer
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) // #nosec G304 - User-specified log path
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out, closer = f, f
	} else if cmd == interactiveCmd {
		out, level = io.Discard, hclog.Off
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:   "picpalette",
		Output: out,
		Level:  level,
		Color:  hclog.AutoColor,
	}), closer, nil
}

func closeLog() {
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
}

// newExtractor builds the configured quantiser and probes it once.
func newExtractor(ctx context.Context) (*extract.Extractor, error) {
	q, err := quantize.New(cfg.AlgorithmSpec(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create quantizer: %w", err)
	}
	return extract.New(ctx, q, extract.WithLogger(logger.Named("extract"))), nil
}

// newSession builds a controller for one-shot commands. Notifications are
// printed to stderr unless --quiet is set.
func newSession(cmd *cobra.Command, ext *extract.Extractor, opts session.Options) (*session.Controller, error) {
	var sink notify.Sink = notify.LogSink{Logger: logger.Named("notify")}
	if !quiet {
		sink = notify.NewTerminalSink(cmd.ErrOrStderr())
	}

	return session.New(ext, opts,
		session.WithLogger(logger.Named("session")),
		session.WithNotifier(notify.New(sink)),
	)
}

// process runs path through a fresh session and returns the controller
// holding the result.
func process(cmd *cobra.Command, path string, opts session.Options) (*session.Controller, error) {
	ext, err := newExtractor(cmd.Context())
	if err != nil {
		return nil, err
	}
	defer ext.Close()

	ctrl, err := newSession(cmd, ext, opts)
	if err != nil {
		return nil, err
	}

	if err := ctrl.UploadPath(path); err != nil {
		return nil, fmt.Errorf("invalid image: %w", err)
	}
	ctrl.Wait()

	if err := ctrl.Err(); err != nil {
		return nil, fmt.Errorf("failed to process %s: %w", path, err)
	}
	return ctrl, nil
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print detailed version information including build date, commit hash, and Go version.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}
