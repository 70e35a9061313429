package quantizer

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hashicorp/go-plugin"
)

// Serve runs impl as a go-plugin server. It blocks until the host
// disconnects.
func Serve(impl Quantizer) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]plugin.Plugin{
			PluginName: &QuantizerRPC{Impl: impl},
		},
	})
}

// HandleInfoFlag writes impl's metadata to w when args request it and
// reports whether it did.
func HandleInfoFlag(args []string, impl Quantizer, w io.Writer) (bool, error) {
	if len(args) < 2 || args[1] != InfoFlag {
		return false, nil
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(impl.GetMetadata()); err != nil {
		return true, fmt.Errorf("error encoding plugin info: %w", err)
	}
	return true, nil
}
