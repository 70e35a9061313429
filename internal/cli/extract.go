package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/picpalette/internal/colour"
)

var (
	// Extract command flags
	extractFormat  string
	extractOutput  string
	extractPreview bool
	extractDerive  bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <image>",
	Short: "Extract a colour palette from an image",
	Long: `Extract the dominant colours of an image, most dominant first.

Supported image formats: JPEG, PNG, GIF, WebP, BMP, TIFF (10 MiB max)

Examples:
  # Extract 12 colours (default) from an image
  picpalette extract photo.jpg

  # Extract 5 colours with terminal previews as a table
  picpalette extract -c 5 --preview -f table photo.png

  # Write the palette as JSON
  picpalette extract -f json -o palette.json photo.jpg

  # Also show the derived scheme of the dominant colour
  picpalette extract --derive photo.jpg

  # Use an external quantizer plugin
  picpalette extract -a plugin:/usr/local/bin/picpalette-quantizer photo.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractFormat, "format", "f", formatHex, "output format (hex, rgb, hsl, json, table)")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "output file (default: stdout)")
	extractCmd.Flags().BoolVar(&extractPreview, "preview", false, "show colour previews in terminal")
	extractCmd.Flags().BoolVar(&extractDerive, "derive", false, "append the derived scheme of the dominant colour")
	extractCmd.Flags().AddFlagSet(paletteFlags)
}

// runExtract executes the extract command.
func runExtract(cmd *cobra.Command, args []string) error {
	if err := validateFormat(extractFormat); err != nil {
		return err
	}

	opts := cfg.SessionOptions()
	ctrl, err := process(cmd, args[0], opts)
	if err != nil {
		return err
	}
	palette := ctrl.Palette()
	logger.Debug("palette extracted", "colours", palette.Len())

	output, err := formatPalette(palette, extractFormat, extractPreview && extractOutput == "", nil)
	if err != nil {
		return err
	}

	if extractDerive {
		base, err := palette.Get(0)
		if err != nil {
			return fmt.Errorf("no dominant colour to derive from: %w", err)
		}
		derived, err := formatPalette(colour.NewPalette(colour.Derive(base)), extractFormat, extractPreview && extractOutput == "", colour.DerivedRoles())
		if err != nil {
			return err
		}
		output += "\n" + derived
	}

	if extractOutput != "" {
		if err := os.WriteFile(extractOutput, []byte(output), 0o644); err != nil { // #nosec G306 - palette output is not sensitive
			return fmt.Errorf("failed to write output file: %w", err)
		}
		logger.Info("palette written", "path", extractOutput)
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), output)
	return nil
}
