// Package web holds the dashboard's HTML templates.
package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// DashboardTemplate is the template name rendered at "/".
const DashboardTemplate = "dashboard.html"

// Templates parses the embedded templates. It panics on a malformed
// template, which can only happen at build time.
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}
