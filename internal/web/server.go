package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dmorgan81/fusionbot/internal/feed"
	"github.com/dmorgan81/fusionbot/internal/handler"
	"github.com/dmorgan81/fusionbot/internal/history"
	"github.com/dmorgan81/fusionbot/internal/log"
	"github.com/dmorgan81/fusionbot/internal/page"
	"github.com/dmorgan81/fusionbot/internal/prompt"
	"github.com/gorilla/mux"
	"github.com/samber/do"
)

// Server is the browser front end: a form, the latest batch and the
// gallery, all rendered server side.
type Server struct {
	handler   *handler.Handler
	history   *history.Store
	templator *page.Templator
	feed      *feed.Generator
	catalog   prompt.Catalog
	logger    *slog.Logger
	router    *mux.Router
}

func NewServer(i *do.Injector) (*Server, error) {
	s := &Server{
		handler:   do.MustInvoke[*handler.Handler](i),
		history:   do.MustInvoke[*history.Store](i),
		templator: do.MustInvoke[*page.Templator](i),
		feed:      do.MustInvoke[*feed.Generator](i),
		catalog:   do.MustInvoke[prompt.Catalog](i),
		logger:    do.MustInvoke[*slog.Logger](i),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.Use(s.withLogger)
	r.HandleFunc("/", s.index).Methods(http.MethodGet)
	r.HandleFunc("/generate", s.generate).Methods(http.MethodPost)
	r.HandleFunc("/history/clear", s.clear).Methods(http.MethodPost)
	r.HandleFunc("/history/{id}.png", s.image).Methods(http.MethodGet)
	r.HandleFunc("/feed.xml", s.rss).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)
	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := s.logger.With("method", r.Method, "path", r.URL.Path)
		logger.Debug("serving request")
		next.ServeHTTP(w, r.WithContext(log.NewContext(r.Context(), logger)))
	})
}

func (s *Server) defaultSelection() handler.Input {
	return handler.Input{
		Pokemon:   first(s.catalog.Pokemon),
		Character: "Goku",
		Style:     first(s.catalog.Styles),
		Count:     prompt.MaxCount,
	}
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, page.View{Selection: s.defaultSelection()})
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	input := handler.Input{
		Pokemon:   r.PostFormValue("pokemon"),
		Character: r.PostFormValue("character"),
		Style:     r.PostFormValue("style"),
	}
	count, err := strconv.Atoi(r.PostFormValue("count"))
	if err != nil {
		s.render(w, r, http.StatusBadRequest, page.View{Selection: input, Error: fmt.Sprintf("invalid count %q", r.PostFormValue("count"))})
		return
	}
	input.Count = count

	out, err := s.handler.Handle(r.Context(), input)
	if err != nil {
		status := http.StatusInternalServerError
		var verr *prompt.ValidationError
		if errors.As(err, &verr) {
			status = http.StatusBadRequest
		}
		s.render(w, r, status, page.View{Selection: input, Error: err.Error()})
		return
	}
	s.render(w, r, http.StatusOK, page.View{Selection: input, Result: &out})
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	s.handler.Clear(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) image(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	entry, ok := s.history.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="history_%s.png"`, id))
	}
	_, _ = w.Write(entry.Image)
}

func (s *Server) rss(w http.ResponseWriter, r *http.Request) {
	data, err := s.feed.Generate(r.Context())
	if err != nil {
		log.FromContextOrDiscard(r.Context()).Error("feed generation failed", "error", err)
		http.Error(w, "feed unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	_, _ = w.Write(data)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, view page.View) {
	view.Catalog = s.catalog
	view.History = s.history.List()
	html, err := s.templator.Render(r.Context(), view)
	if err != nil {
		log.FromContextOrDiscard(r.Context()).Error("rendering page failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(html)
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
