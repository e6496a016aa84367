package web

import "embed"

// StaticFS holds the dashboard served at /.
//
//go:embed index.html
var StaticFS embed.FS
