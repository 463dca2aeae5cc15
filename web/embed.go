// Package web embeds the panel's page templates and static assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static templates
var content embed.FS

// TemplatesFS holds the page templates.
var TemplatesFS = mustSub("templates")

// StaticFS holds the stylesheet and scripts served under /static/.
var StaticFS = mustSub("static")

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(content, dir)
	if err != nil {
		panic("embedded " + dir + " directory missing: " + err.Error())
	}
	return sub
}
