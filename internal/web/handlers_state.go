package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/JonMunkholm/portal/internal/portal"
	"github.com/JonMunkholm/portal/internal/viewstate"
	"github.com/go-chi/chi/v5"
)

// maxStateBody caps PUT, PATCH and filter bodies.
const maxStateBody = 64 << 10

// stateResponse is the JSON body of every table-state endpoint.
type stateResponse struct {
	Title      string                   `json:"title"`
	Key        string                   `json:"key"`
	Persistent bool                     `json:"persistent"`
	State      viewstate.TableViewState `json:"state"`
	Page       *viewstate.Page          `json:"page,omitempty"`
	Summary    string                   `json:"summary,omitempty"`
}

// stateRequest is a view-state handle opened for one request.
type stateRequest struct {
	*viewstate.Handle
	saveErr  error
	total    int
	hasTotal bool
}

// openHandle validates the {title} parameter and the query, then loads the
// view state. Nothing is read or written when the request is rejected.
// ?persist=false yields an ephemeral handle that never touches storage.
func (s *Server) openHandle(w http.ResponseWriter, r *http.Request) (*stateRequest, bool) {
	title := chi.URLParam(r, "title")
	if err := viewstate.ValidateTitle(title); err != nil {
		s.respondError(w, r, fmt.Errorf("title %q: %w", title, err), http.StatusBadRequest)
		return nil, false
	}
	total, hasTotal, err := queryInt(r, "total")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("total: %w", err), http.StatusBadRequest)
		return nil, false
	}

	persist := r.URL.Query().Get("persist") != "false"
	req := &stateRequest{total: total, hasTotal: hasTotal}
	req.Handle = viewstate.New(r.Context(), s.store, title, persist,
		viewstate.WithLogger(requestLogger(r)),
		viewstate.WithKeyPrefix(s.cfg.ViewState.KeyPrefix),
		viewstate.WithDefaultPageSize(s.cfg.ViewState.DefaultPageSize),
		viewstate.WithSaveErrorHook(func(err error) { req.saveErr = err }),
	)
	return req, true
}

// writeState answers with the handle's state, or STATE003 if a save made
// during the request failed.
func (s *Server) writeState(w http.ResponseWriter, r *http.Request, h *stateRequest, status int) {
	if h.saveErr != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errStorage, h.saveErr), http.StatusServiceUnavailable)
		return
	}

	resp := stateResponse{
		Title:      h.Title(),
		Key:        h.Key(),
		Persistent: h.Persistent(),
		State:      h.State(),
	}
	if h.hasTotal {
		page := h.Paginate(h.total)
		resp.Page = &page
		resp.Summary = portal.PageSummary(s.locale, page)
	}

	writeJSON(w, r, status, resp)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxStateBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return body, nil
}

// handleGetTableState returns the stored state merged over defaults.
// With ?total=N the response also carries the clamped page window.
func (s *Server) handleGetTableState(w http.ResponseWriter, r *http.Request) {
	h, ok := s.openHandle(w, r)
	if !ok {
		return
	}
	s.writeState(w, r, h, http.StatusOK)
}

// handleReplaceTableState replaces the whole bundle; absent fields reset.
func (s *Server) handleReplaceTableState(w http.ResponseWriter, r *http.Request) {
	s.mutateTableState(w, r, (*viewstate.Handle).Replace)
}

// handlePatchTableState applies only the fields present in the body.
func (s *Server) handlePatchTableState(w http.ResponseWriter, r *http.Request) {
	s.mutateTableState(w, r, (*viewstate.Handle).Apply)
}

func (s *Server) mutateTableState(w http.ResponseWriter, r *http.Request, apply func(*viewstate.Handle, context.Context, []byte) error) {
	h, ok := s.openHandle(w, r)
	if !ok {
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if err := apply(h.Handle, r.Context(), body); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	s.writeState(w, r, h, http.StatusOK)
}

// handleAddFilter appends one opaque filter preset.
func (s *Server) handleAddFilter(w http.ResponseWriter, r *http.Request) {
	h, ok := s.openHandle(w, r)
	if !ok {
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if !json.Valid(body) {
		s.respondError(w, r, fmt.Errorf("%w: filter preset is not valid JSON", errBadRequest), http.StatusBadRequest)
		return
	}

	h.Update(r.Context(), func(st *viewstate.TableViewState) {
		st.SavedFilters = append(st.SavedFilters, viewstate.FilterPreset(body))
	})
	s.writeState(w, r, h, http.StatusCreated)
}

// handleResetTableState deletes the stored record so the next load yields
// defaults.
func (s *Server) handleResetTableState(w http.ResponseWriter, r *http.Request) {
	title := chi.URLParam(r, "title")
	if err := s.tables.Reset(r.Context(), title); err != nil {
		if errors.Is(err, viewstate.ErrInvalidTitle) {
			s.respondError(w, r, err, http.StatusBadRequest)
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", errStorage, err), http.StatusServiceUnavailable)
		return
	}

	requestLogger(r).Info("table state reset", "title", title)
	w.WriteHeader(http.StatusNoContent)
}

// handleListTableStates lists every stored record under the key prefix.
func (s *Server) handleListTableStates(w http.ResponseWriter, r *http.Request) {
	tables, err := s.tables.List(r.Context())
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errStorage, err), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, r, http.StatusOK, tables)
}

// handleHealth pings the store.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errStorage, err), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok", "storage": s.cfg.Storage.Driver})
}
