package web

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dmorgan81/fusionbot/internal/batch"
	"github.com/dmorgan81/fusionbot/internal/feed"
	"github.com/dmorgan81/fusionbot/internal/handler"
	"github.com/dmorgan81/fusionbot/internal/history"
	"github.com/dmorgan81/fusionbot/internal/image"
	"github.com/dmorgan81/fusionbot/internal/page"
	"github.com/dmorgan81/fusionbot/internal/prompt"
	"github.com/dmorgan81/fusionbot/internal/store"
	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type generatorFunc func(context.Context, string) ([]byte, error)

func (f generatorFunc) Generate(ctx context.Context, text string) ([]byte, error) {
	return f(ctx, text)
}

func newTestServer(t *testing.T, gen image.Generator) (*Server, *history.Store) {
	t.Helper()
	gallery := history.New(0)

	i := do.New()
	do.ProvideValue(i, slog.New(slog.NewTextHandler(io.Discard, nil)))
	do.ProvideValue(i, prompt.DefaultCatalog())
	do.ProvideValue(i, prompt.NewBuilder(prompt.DefaultCatalog().Variations, rand.NewSource(3)))
	do.ProvideValue(i, &batch.Runner{Generator: gen, Limit: 2})
	do.ProvideValue[store.Uploader](i, &store.FileUploader{Dir: t.TempDir()})
	do.ProvideValue[store.Invalidator](i, store.NopInvalidator{})
	do.ProvideValue(i, gallery)
	do.ProvideValue(i, &page.Templator{})
	do.ProvideNamedValue(i, "base_url", "http://localhost:8080")
	do.Provide[*handler.Handler](i, handler.NewHandler)
	do.Provide[*feed.Generator](i, feed.NewGenerator)

	s, err := NewServer(i)
	require.NoError(t, err)
	return s, gallery
}

func postForm(s http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func get(s http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_Index(t *testing.T) {
	s, _ := newTestServer(t, generatorFunc(func(context.Context, string) ([]byte, error) { return []byte("png"), nil }))

	rec := get(s, "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Pikachu")
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestServer_GenerateThenDownload(t *testing.T) {
	s, gallery := newTestServer(t, generatorFunc(func(_ context.Context, text string) ([]byte, error) {
		if strings.Contains(text, "Cyberpunk") {
			return nil, &image.Failure{Kind: image.KindServiceUnavailable, Status: 503, Attempts: 3}
		}
		return []byte("png-bytes"), nil
	}))

	rec := postForm(s, "/generate", url.Values{
		"pokemon": {"Snorlax"}, "character": {"Naruto"}, "style": {"3D Render"}, "count": {"2"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, gallery.Len())
	entry := gallery.List()[0]
	assert.Contains(t, rec.Body.String(), "/history/"+entry.ID+".png")

	img := get(s, "/history/"+entry.ID+".png?download=1")
	assert.Equal(t, http.StatusOK, img.Code)
	assert.Equal(t, "png-bytes", img.Body.String())
	assert.Contains(t, img.Header().Get("Content-Disposition"), "attachment")

	failed := postForm(s, "/generate", url.Values{
		"pokemon": {"Snorlax"}, "character": {"Naruto"}, "style": {"Cyberpunk"}, "count": {"1"},
	})
	assert.Equal(t, http.StatusOK, failed.Code)
	assert.Contains(t, failed.Body.String(), "service_unavailable")
	assert.Equal(t, 2, gallery.Len())
}

func TestServer_GenerateRejectsInvalidInput(t *testing.T) {
	s, gallery := newTestServer(t, generatorFunc(func(context.Context, string) ([]byte, error) { return []byte("png"), nil }))

	bad := postForm(s, "/generate", url.Values{
		"pokemon": {"Missingno"}, "character": {"Naruto"}, "style": {"3D Render"}, "count": {"1"},
	})
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	nan := postForm(s, "/generate", url.Values{
		"pokemon": {"Pikachu"}, "character": {"Naruto"}, "style": {"3D Render"}, "count": {"many"},
	})
	assert.Equal(t, http.StatusBadRequest, nan.Code)
	assert.Zero(t, gallery.Len())
}

func TestServer_ClearHistory(t *testing.T) {
	s, gallery := newTestServer(t, generatorFunc(func(context.Context, string) ([]byte, error) { return []byte("png"), nil }))
	gallery.Add(history.Entry{Image: []byte("png")})

	rec := postForm(s, "/history/clear", nil)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Zero(t, gallery.Len())
}

func TestServer_UnknownImage(t *testing.T) {
	s, _ := newTestServer(t, generatorFunc(func(context.Context, string) ([]byte, error) { return []byte("png"), nil }))

	assert.Equal(t, http.StatusNotFound, get(s, "/history/nope.png").Code)
}

func TestServer_FeedAndHealth(t *testing.T) {
	s, gallery := newTestServer(t, generatorFunc(func(context.Context, string) ([]byte, error) { return []byte("png"), nil }))
	gallery.Add(history.Entry{ID: "abc", Label: "Mewtwo x Goku", Style: "Ukiyo-e"})

	rss := get(s, "/feed.xml")
	assert.Equal(t, http.StatusOK, rss.Code)
	assert.Contains(t, rss.Body.String(), "http://localhost:8080/history/abc.png")

	assert.Equal(t, http.StatusNoContent, get(s, "/healthz").Code)
}
