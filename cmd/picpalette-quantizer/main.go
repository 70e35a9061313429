// picpalette-quantizer is the reference out-of-process quantiser for
// picpalette. It serves the in-tree k-means quantiser over go-plugin and
// can be selected with --algorithm plugin:/path/to/picpalette-quantizer.
//
// Copyright (c) 2025 John Mylchreest
// Licensed under the MIT License
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmylchreest/picpalette/internal/quantize"
	"github.com/jmylchreest/picpalette/internal/version"
	"github.com/jmylchreest/picpalette/pkg/quantizer"
)

// KMeansPlugin adapts the in-tree k-means quantiser to the plugin API.
type KMeansPlugin struct {
	q *quantize.KMeans
}

// Quantize decodes the request bitmap and clusters it.
func (p *KMeansPlugin) Quantize(ctx context.Context, req quantizer.Request) ([]quantizer.Colour, error) {
	img, err := req.Image()
	if err != nil {
		return nil, err
	}

	colors, err := p.q.Quantize(ctx, img, req.Count)
	if err != nil {
		return nil, err
	}

	out := make([]quantizer.Colour, len(colors))
	for i, c := range colors {
		out[i] = quantizer.Colour{R: c.R, G: c.G, B: c.B}
	}
	return out, nil
}

// GetMetadata returns plugin metadata.
func (p *KMeansPlugin) GetMetadata() quantizer.PluginInfo {
	return quantizer.PluginInfo{
		Name:            "picpalette-quantizer",
		Version:         version.Short(),
		ProtocolVersion: quantizer.ProtocolVersion,
		Description:     "k-means++ colour quantiser",
	}
}

func main() {
	p := &KMeansPlugin{q: quantize.NewKMeans(nil)}

	handled, err := quantizer.HandleInfoFlag(os.Args, p, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if handled {
		os.Exit(0)
	}

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Println(version.StringFor("picpalette-quantizer"))
		os.Exit(0)
	}

	// Serve the plugin using go-plugin.
	quantizer.Serve(p)
}
