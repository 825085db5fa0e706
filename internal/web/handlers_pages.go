package web

import (
	"net/http"

	"github.com/JonMunkholm/portal/internal/portal"
	"github.com/JonMunkholm/portal/internal/viewstate"
	"github.com/JonMunkholm/portal/internal/web/templates"
	"github.com/a-h/templ"
)

// handlePage renders the shell for any route the navigation tree knows.
// Table pages load their persisted view state for the pager footer; until
// the pages have data the grid is empty.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	loc, ok := s.nav.Resolve(r.URL.Path)
	if !ok {
		s.handleNotFound(w, r)
		return
	}

	params := templates.PageParams{
		Nav:      s.nav,
		Location: loc,
		Path:     r.URL.Path,
	}
	if loc.Page != nil && loc.Page.Table != "" {
		h := viewstate.New(r.Context(), s.store, loc.Page.Table, true,
			viewstate.WithLogger(requestLogger(r)),
			viewstate.WithKeyPrefix(s.cfg.ViewState.KeyPrefix),
			viewstate.WithDefaultPageSize(s.cfg.ViewState.DefaultPageSize),
		)
		params.Summary = portal.PageSummary(s.locale, h.Paginate(0))
	}

	s.render(w, r, http.StatusOK, templates.Page(params))
}

// handleNotFound answers JSON for the API and the shell's 404 page otherwise.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		respondErrorJSON(w, UserMessage{
			Message: "المسار غير موجود",
			Code:    "ERR404",
		}, http.StatusNotFound)
		return
	}
	s.render(w, r, http.StatusNotFound, templates.NotFound(s.nav, r.URL.Path))
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		requestLogger(r).Error("render failed", "path", r.URL.Path, "error", err)
	}
}
