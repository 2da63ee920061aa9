// Package assets provides the embedded static files for the web UI.
// index.html is generated from index.html.tpl by cmd/minify.
package assets

import _ "embed"

//go:embed index.html
var Index []byte

//go:embed favicon.svg
var Favicon []byte
