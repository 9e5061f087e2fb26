// Package views holds the server rendered pages. Every page template pulls
// in the shared head and foot partials and is addressed by its file name.
package views

import (
	"embed"
	"encoding/json"
	"html/template"
	"strings"
	"time"

	"natours/src/types"
)

//go:embed templates/*.html
var templatesFS embed.FS

var funcs = template.FuncMap{
	"add": func(a, b int) int { return a + b },
	"monthYear": func(t time.Time) string {
		return t.Format("January 2006")
	},
	"paragraphs": func(s string) []string {
		return strings.Split(strings.TrimSpace(s), "\n")
	},
	"stars": func(rating int) []bool {
		stars := make([]bool, 5)
		for i := range stars {
			stars[i] = i < rating
		}
		return stars
	},
	"guideLabel": func(role types.Role) string {
		if role == types.RoleLeadGuide {
			return "Lead guide"
		}
		return "Tour guide"
	},
	"toJSON": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}

// Load parses every page.
func Load() (*template.Template, error) {
	return template.New("pages").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
}
