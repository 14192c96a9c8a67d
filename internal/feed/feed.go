package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmorgan81/fusionbot/internal/history"
	"github.com/dmorgan81/fusionbot/internal/log"
	"github.com/gorilla/feeds"
	"github.com/samber/do"
	"github.com/samber/lo"
)

// Generator publishes the gallery as RSS.
type Generator struct {
	history *history.Store
	baseURL string
	now     func() time.Time
}

func NewGenerator(i *do.Injector) (*Generator, error) {
	return &Generator{
		history: do.MustInvoke[*history.Store](i),
		baseURL: strings.TrimRight(do.MustInvokeNamed[string](i, "base_url"), "/"),
		now:     time.Now,
	}, nil
}

func (g *Generator) Generate(ctx context.Context) ([]byte, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("feed")
	log.Info("generating rss feed")

	feed := feeds.Feed{
		Title:       "fusionbot",
		Description: "Pokémon and character fusions generated this session",
		Link:        &feeds.Link{Href: g.baseURL + "/"},
		Updated:     g.now(),
	}
	feed.Items = lo.Map(g.history.List(), func(e history.Entry, _ int) *feeds.Item {
		return &feeds.Item{
			Id:          e.ID,
			Title:       fmt.Sprintf("%s (%s)", e.Label, e.Style),
			Description: e.Prompt,
			Link:        &feeds.Link{Href: fmt.Sprintf("%s/history/%s.png", g.baseURL, e.ID)},
			Created:     e.Time,
			Updated:     e.Time,
		}
	})

	feed.Sort(func(a, b *feeds.Item) bool {
		return a.Updated.Before(b.Updated)
	})
	rss, err := feed.ToRss()
	return []byte(rss), err
}
