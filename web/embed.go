// Package web embeds the templates and static assets served by the HTTP
// server.
package web

import "embed"

// TemplatesFS holds the pages and the HTMX partials.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the page script.
//
//go:embed static/*
var StaticFS embed.FS
