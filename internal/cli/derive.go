package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/picpalette/internal/colour"
)

var (
	// Derive command flags
	deriveFormat  string
	derivePreview bool
)

// deriveCmd represents the derive command
var deriveCmd = &cobra.Command{
	Use:   "derive <colour>",
	Short: "Derive a colour scheme from one colour",
	Long: `Derive a scheme from a base colour: the base, its complement, three
analogous variants (red, green and blue each raised by 30) and two full
chroma triadic colours at +120 and +240 degrees of hue.

Examples:
  picpalette derive '#336699'
  picpalette derive f80 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runDerive,
}

func init() {
	deriveCmd.Flags().StringVarP(&deriveFormat, "format", "f", formatTable, "output format (hex, rgb, hsl, json, table)")
	deriveCmd.Flags().BoolVar(&derivePreview, "preview", false, "show colour previews in terminal")
}

// runDerive executes the derive command.
func runDerive(cmd *cobra.Command, args []string) error {
	base, err := colour.ParseHex(args[0])
	if err != nil {
		return err
	}

	output, err := formatPalette(colour.NewPalette(colour.Derive(base)), deriveFormat, derivePreview, colour.DerivedRoles())
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), output)
	return nil
}
