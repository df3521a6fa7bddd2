package web

import "embed"

// Templates embeds the report HTML templates.
//
//go:embed templates
var Templates embed.FS
