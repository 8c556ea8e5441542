// Package web embeds the page templates and static assets served by the
// site.
package web

import "embed"

// TemplatesFS contains embedded HTML templates.
//
//go:embed templates/*
var TemplatesFS embed.FS

// StaticFS contains embedded static assets (CSS, JS).
//
//go:embed static/*
var StaticFS embed.FS
