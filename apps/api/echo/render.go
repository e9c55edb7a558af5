package echoapi

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/session"
	appfs "github.com/trezcool/academia/fs"
)

const pageTemplatesDir = "templates/pages"

type pageData struct {
	AppName  string
	Title    string
	Message  string
	Redirect string
	Identity *session.Identity
	Errors   map[string]string
	Form     map[string]string
	Data     interface{}
}

// pageRenderer renders the embedded page templates; each page is parsed along with the shared layout.
type pageRenderer struct {
	appName   string
	templates map[string]*template.Template
}

var _ echo.Renderer = (*pageRenderer)(nil)

func newPageRenderer(conf *core.Config, logger core.Logger) *pageRenderer {
	r := &pageRenderer{appName: conf.AppName, templates: make(map[string]*template.Template)}

	fps, err := fs.Glob(appfs.FS, path.Join(pageTemplatesDir, "*.gohtml"))
	if err != nil {
		logger.Error(fmt.Sprintf("globbing page templates: %v", err), err)
	}
	funcs := template.FuncMap{
		"money": func(amount int64, currency string) string {
			return fmt.Sprintf("%d.%02d %s", amount/100, amount%100, currency)
		},
	}
	for _, fp := range fps {
		fname := path.Base(fp)
		if strings.HasPrefix(fname, "_") {
			continue
		}
		tmpl, err := template.New(fname).Funcs(funcs).ParseFS(appfs.FS, path.Join(pageTemplatesDir, "_base.gohtml"), fp)
		if err != nil {
			logger.Error(fmt.Sprintf("parsing page template %s: %v", fname, err), err)
			continue
		}
		if conf.Debug || conf.TestMode {
			tmpl = tmpl.Option("missingkey=error")
		}
		r.templates[strings.TrimSuffix(fname, ".gohtml")] = tmpl
	}
	return r
}

func (r *pageRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return errors.Errorf("page template %q not found", name)
	}
	if pd, ok := data.(pageData); ok {
		pd.AppName = r.appName
		data = pd
	}
	return errors.Wrapf(tmpl.ExecuteTemplate(w, "_base.gohtml", data), "rendering page %q", name)
}
