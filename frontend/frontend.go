// Package frontend embeds the web UI shared by the desktop app and
// darling serve.
package frontend

import (
	"embed"
	"io/fs"
)

//go:embed all:dist
var dist embed.FS

// Dist returns the UI files rooted at index.html.
func Dist() (fs.FS, error) {
	return fs.Sub(dist, "dist")
}
