package web

import (
	"embed"
	"io/fs"
	"log"
)

// The console ships its pages and assets inside the binary; nothing is read
// from disk at runtime.
//
//go:embed static templates
var content embed.FS

// StaticFS returns the embedded stylesheet and script assets.
func StaticFS() fs.FS {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		log.Fatalf("failed to create static sub-filesystem: %v", err)
	}
	return sub
}

// TemplatesFS returns the embedded page templates.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(content, "templates")
	if err != nil {
		log.Fatalf("failed to create templates sub-filesystem: %v", err)
	}
	return sub
}
