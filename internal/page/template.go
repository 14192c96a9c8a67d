package page

import (
	"bytes"
	"context"
	_ "embed"
	"html/template"
	"sync"

	"github.com/dmorgan81/fusionbot/internal/handler"
	"github.com/dmorgan81/fusionbot/internal/history"
	"github.com/dmorgan81/fusionbot/internal/log"
	"github.com/dmorgan81/fusionbot/internal/prompt"
)

//go:embed assets/gallery.html
var galleryTmpl string

// View is everything the gallery page shows.
type View struct {
	Catalog   prompt.Catalog
	Selection handler.Input
	Error     string
	Result    *handler.Output
	History   []history.Entry
}

type Templator struct {
	tmpl *template.Template
	once sync.Once
}

var funcs = template.FuncMap{
	"counts": func() []int {
		counts := make([]int, prompt.MaxCount)
		for i := range counts {
			counts[i] = i + 1
		}
		return counts
	},
	"ordinal": func(index int) int {
		return index + 1
	},
	"clock": func(e history.Entry) string {
		return e.Time.Format("15:04:05")
	},
}

func (g *Templator) Render(ctx context.Context, view View) ([]byte, error) {
	g.once.Do(func() {
		g.tmpl = template.Must(template.New("gallery").Funcs(funcs).Parse(galleryTmpl))
	})

	log := log.FromContextOrDiscard(ctx).WithGroup("templator")
	log.Debug("rendering page", "history", len(view.History))

	var data bytes.Buffer
	if err := g.tmpl.Execute(&data, view); err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}
