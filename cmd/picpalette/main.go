// picpalette - extract colour palettes from images
//
// picpalette turns an image into a palette of dominant colours that can be
// copied, derived into schemes and exported as JSON, PDF or PNG.
//
// Copyright (c) 2025 John Mylchreest
// Licensed under the MIT License
package main

import "github.com/jmylchreest/picpalette/internal/cli"

func main() {
	cli.Execute()
}
