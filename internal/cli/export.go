package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/picpalette/internal/export"
)

var (
	// Export command flags
	exportFormat   string
	exportCompress string
	exportDir      string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <image>",
	Short: "Extract a palette and save it to a file",
	Long: `Extract the palette of an image and write it to picpalette-colors.<format>
in the output directory.

Formats:
  json  array of {hex, rgb, hsl} objects, two-space indented
  pdf   A4 swatch sheet
  png   the image with a swatch strip underneath

Examples:
  picpalette export photo.jpg
  picpalette export --format pdf --dir ~/palettes photo.jpg
  picpalette export --compress zstd photo.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "export format (json, pdf, png)")
	exportCmd.Flags().StringVar(&exportCompress, "compress", "", "compress the export (none, xz, zstd)")
	exportCmd.Flags().StringVarP(&exportDir, "dir", "d", ".", "directory to write the export to")
	exportCmd.Flags().AddFlagSet(paletteFlags)
}

// runExport executes the export command.
func runExport(cmd *cobra.Command, args []string) error {
	opts := cfg.SessionOptions()
	opts.EnableExport = true
	opts.ExportDir = exportDir

	if exportFormat != "" {
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		opts.ExportFormat = format
	}
	if cmd.Flags().Changed("compress") {
		compression, err := export.ParseCompression(exportCompress)
		if err != nil {
			return err
		}
		opts.ExportCompression = compression
	}

	ctrl, err := process(cmd, args[0], opts)
	if err != nil {
		return err
	}

	path, err := ctrl.Export()
	if err != nil {
		return fmt.Errorf("failed to export palette: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
