package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/jogardn/storefront/internal/fallback"
	"github.com/jogardn/storefront/pkg/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{
	"index",
	"delivery",
	"contact",
	"order",
	"admin_login",
	"admin_dashboard",
	"admin_order_detail",
	"error",
}

type pageData struct {
	Title   string
	Notice  string
	Error   string
	Admin   string
	Errors  map[string]string
	Form    map[string]string
	Orders  []*models.Order
	Order   *models.Order
	Status  int
	Message string
}

type renderer struct {
	pages map[string]*template.Template
}

func newRenderer(loc *time.Location) (*renderer, error) {
	if loc == nil {
		loc = time.Local
	}
	funcs := template.FuncMap{
		"date": func(t time.Time) string {
			return t.In(loc).Format(fallback.DateLayout)
		},
	}

	r := &renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

// render executes into a buffer first so a template error never leaves a
// half-written page behind.
func (r *renderer) render(w http.ResponseWriter, status int, page string, data pageData) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
