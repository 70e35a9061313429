// Package quantizer provides the public API for out-of-process picpalette
// quantiser plugins.
// External plugins should import this package instead of internal packages.
package quantizer

import (
	"github.com/hashicorp/go-plugin"
)

const (
	// ProtocolVersion defines the current plugin API version.
	// Format: MAJOR.MINOR.PATCH.
	// - Increment MAJOR for breaking changes (incompatible API changes).
	// - Increment MINOR for backward-compatible additions.
	// - Increment PATCH for backward-compatible bug fixes.
	ProtocolVersion = "1.0.0"

	// PluginName is the key the quantiser is dispensed under.
	PluginName = "quantizer"

	// InfoFlag makes a plugin binary print its PluginInfo as JSON and exit.
	InfoFlag = "--plugin-info"
)

// Handshake is the handshake configuration for go-plugin protocol.
// This ensures that plugins using go-plugin can only connect to compatible hosts.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1, // Major version from ProtocolVersion
	MagicCookieKey:   "PICPALETTE_QUANTIZER",
	MagicCookieValue: "picpalette_palette",
}
