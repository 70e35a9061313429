package cli

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/picpalette/internal/clipboard"
	"github.com/jmylchreest/picpalette/internal/notify"
	"github.com/jmylchreest/picpalette/internal/session"
	"github.com/jmylchreest/picpalette/internal/surface"
	"github.com/jmylchreest/picpalette/internal/tui"
)

// interactiveExportDir is where Ctrl+E writes in interactive mode.
var interactiveExportDir string

// interactiveCmd represents the interactive command
var interactiveCmd = &cobra.Command{
	Use:     "interactive [image]",
	Aliases: []string{"ui"},
	Short:   "Open an interactive palette session in the terminal",
	Long: `Open a terminal session that turns images into clickable swatches.

Type or paste an image path and press Enter, or drop a file onto the
terminal window. Click a swatch (or select it with the arrow keys and press
Enter) to copy its hex code.

Keys:
  Ctrl+E  export the palette
  Ctrl+L  clear the palette
  Esc     quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInteractive,
}

func init() {
	interactiveCmd.Flags().StringVarP(&interactiveExportDir, "dir", "d", ".", "directory Ctrl+E exports to")
	interactiveCmd.Flags().AddFlagSet(paletteFlags)
}

// runInteractive executes the interactive command.
func runInteractive(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	ext, err := newExtractor(ctx)
	if err != nil {
		return err
	}
	defer ext.Close()

	clip, err := clipboard.NewSystem(cfg.Clipboard, logger.Named("clipboard"))
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to open terminal: %w", err)
	}

	status := tui.NewStatusSink(screen)
	opts := cfg.SessionOptions()
	opts.ExportDir = interactiveExportDir

	ctrl, err := session.New(ext, opts,
		session.WithLogger(logger.Named("session")),
		session.WithNotifier(notify.New(notify.Multi{status, notify.LogSink{Logger: logger.Named("notify")}})),
		session.WithClipboard(clip),
		session.WithSurface(surface.New()),
		session.WithOnChange(tui.Refresher(screen)),
	)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	var initial string
	if len(args) == 1 {
		initial = args[0]
	}

	return tui.New(screen, ctrl, status, logger.Named("tui")).Run(ctx, initial)
}
