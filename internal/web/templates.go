package web

import (
	"embed"
	"html/template"
	"strings"
	"time"

	"github.com/garnizeh/rojgar/internal/listing"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageNames = []string{"landing", "login", "signup", "home", "profile", "query"}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	},
	"categories": func(c []string) categoryPreview {
		shown, more := listing.CategoryPreview(c)
		return categoryPreview{Shown: shown, More: more}
	},
	"countLabel": listing.CountLabel,
	"join":       strings.Join,
}

type categoryPreview struct {
	Shown []string
	More  int
}

// pages holds one template set per page: the shared layout plus the page body.
var pages = parsePages()

func parsePages() map[string]*template.Template {
	out := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		out[name] = template.Must(template.New("base.html").Funcs(funcs).ParseFS(templatesFS, "templates/base.html", "templates/"+name+".html"))
	}
	return out
}
