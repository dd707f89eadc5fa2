// Command lightcache extracts baked EEVEE light caches from .blend files
// into DDS texture containers.
//
// Usage:
//
//	lightcache extract [-o dir] [--manifest file] scene.blend
//	lightcache dump [-o file] scene.blend
//	lightcache info texture.dds...
package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "lightcache:", err)
		os.Exit(1)
	}
}
