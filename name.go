package lightcache

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// pathReplacer strips characters that would escape or split the scene
// directory.
var pathReplacer = strings.NewReplacer("/", "_", "\\", "_", "\x00", "_")

// dirName returns the output directory name for a scene.
func (e *Extractor) dirName(scene string) string {
	if e.opts.normalize {
		scene = norm.NFC.String(scene)
	}
	scene = pathReplacer.Replace(scene)
	switch strings.TrimSpace(scene) {
	case "", ".", "..":
		return "_" + scene
	}
	return scene
}
