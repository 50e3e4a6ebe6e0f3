package echoweb

import (
	"embed"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/answercheck/core/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// page is the data envelope every template receives.
type page struct {
	Title       string
	Session     session.Session
	Error       string
	FieldErrors map[string]string
	Data        interface{}
}

type renderer struct {
	templates map[string]*template.Template
}

var _ echo.Renderer = (*renderer)(nil)

// newRenderer parses each page template against the shared base layout.
func newRenderer() *renderer {
	pages := []string{
		"home", "login", "signup", "dashboard", "upload_students", "upload_done",
		"student_results", "assessment_view", "loading", "error",
	}
	templates := make(map[string]*template.Template, len(pages))
	for _, name := range pages {
		templates[name] = template.Must(template.ParseFS(
			templateFS, "templates/base.html", "templates/"+name+".html",
		))
	}
	return &renderer{templates: templates}
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tpl, ok := r.templates[name]
	if !ok {
		return errors.Errorf("template %q not found", name)
	}
	return tpl.ExecuteTemplate(w, "base", data)
}
