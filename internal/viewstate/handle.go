package viewstate

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/JonMunkholm/portal/internal/kv"
)

// Handle owns the view state of one named table. When persistence is on,
// the state is loaded from the store at creation and every change is written
// back as one combined record under the table's namespaced key.
//
// Storage failures never reach the caller: a failed load leaves the
// defaults in place and a failed save leaves storage at its previous value.
// Both are logged. A Handle is safe for concurrent use.
type Handle struct {
	store     kv.Store
	title     string
	key       string
	persist   bool
	pageSize  int
	logger    *slog.Logger
	onSaveErr func(error)

	mu    sync.Mutex
	state TableViewState
}

// Option configures a Handle.
type Option func(*Handle)

// WithLogger sets the logger used for load and save diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handle) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(h *Handle) {
		if prefix != "" {
			h.key = Key(prefix, h.title)
		}
	}
}

// WithDefaultPageSize overrides DefaultItemsPerPage for this table.
func WithDefaultPageSize(size int) Option {
	return func(h *Handle) {
		if size > 0 {
			h.pageSize = size
		}
	}
}

// WithSaveErrorHook registers fn to observe write failures after they are
// logged. The error is still not returned from the setter.
func WithSaveErrorHook(fn func(error)) Option {
	return func(h *Handle) {
		h.onSaveErr = fn
	}
}

// New creates the handle for title. With persist set, the previously saved
// record (if any) is applied over the defaults before New returns.
// A nil store disables persistence.
func New(ctx context.Context, store kv.Store, title string, persist bool, opts ...Option) *Handle {
	h := &Handle{
		store:    store,
		title:    title,
		key:      Key(DefaultKeyPrefix, title),
		persist:  persist,
		pageSize: DefaultItemsPerPage,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("title", title)

	if h.persist && h.store == nil {
		h.logger.Warn("table state persistence requested without a store; keeping state in memory")
		h.persist = false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = Defaults(h.pageSize)
	h.load(ctx)
	return h
}

// Title returns the table title.
func (h *Handle) Title() string { return h.title }

// Key returns the namespaced storage key.
func (h *Handle) Key() string { return h.key }

// Persistent reports whether the handle reads and writes storage.
func (h *Handle) Persistent() bool { return h.persist }

// Reload resets the state to defaults and re-reads storage once. Setters
// called meanwhile wait until the stored record has been applied.
func (h *Handle) Reload(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = Defaults(h.pageSize)
	h.load(ctx)
}

// load applies the stored record over h.state. Callers hold h.mu.
func (h *Handle) load(ctx context.Context) {
	if !h.persist {
		return
	}

	raw, ok, err := h.store.Get(ctx, h.key)
	if err != nil {
		h.logger.Warn("failed to read table state; using defaults", "key", h.key, "error", err)
		return
	}
	if !ok {
		h.logger.Debug("no saved table state", "key", h.key)
		return
	}

	state, errs := Decode(raw, h.state)
	for _, err := range errs {
		if errors.Is(err, ErrMalformedRecord) {
			h.logger.Warn("saved table state is malformed; using defaults", "key", h.key, "error", err)
			return
		}
		h.logger.Warn("ignoring saved table state field", "key", h.key, "error", err)
	}
	h.state = state
	h.logger.Debug("loaded table state", "key", h.key)
}

// State returns a deep copy of the whole bundle.
func (h *Handle) State() TableViewState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.Clone()
}

// HiddenColumns returns the hidden column ids.
func (h *Handle) HiddenColumns() ColumnSet {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.HiddenColumns.Clone()
}

// PinnedColumns returns the pin side per column id.
func (h *Handle) PinnedColumns() map[string]PinSide {
	return h.State().PinnedColumns
}

// ColumnWidths returns the pixel width per column id.
func (h *Handle) ColumnWidths() map[string]float64 {
	return h.State().ColumnWidths
}

// SavedFilters returns the saved filter presets in order.
func (h *Handle) SavedFilters() []FilterPreset {
	return h.State().SavedFilters
}

// ItemsPerPage returns the page size.
func (h *Handle) ItemsPerPage() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.ItemsPerPage
}

// CurrentPage returns the 1-based page index.
func (h *Handle) CurrentPage() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.CurrentPage
}

// SetHiddenColumns replaces the hidden column set and saves.
func (h *Handle) SetHiddenColumns(ctx context.Context, cols ColumnSet) {
	h.Update(ctx, func(s *TableViewState) { s.HiddenColumns = cols })
}

// SetPinnedColumns replaces the pin map and saves. Entries with an unknown
// side are dropped.
func (h *Handle) SetPinnedColumns(ctx context.Context, pins map[string]PinSide) {
	h.Update(ctx, func(s *TableViewState) { s.PinnedColumns = pins })
}

// SetColumnWidths replaces the width map and saves. Negative or non-finite
// widths are dropped.
func (h *Handle) SetColumnWidths(ctx context.Context, widths map[string]float64) {
	h.Update(ctx, func(s *TableViewState) { s.ColumnWidths = widths })
}

// SetSavedFilters replaces the filter presets and saves. Presets that are
// not valid JSON are dropped.
func (h *Handle) SetSavedFilters(ctx context.Context, filters []FilterPreset) {
	h.Update(ctx, func(s *TableViewState) { s.SavedFilters = filters })
}

// SetItemsPerPage sets the page size and saves. Values below 1 reset it to
// the table's default page size.
func (h *Handle) SetItemsPerPage(ctx context.Context, n int) {
	h.Update(ctx, func(s *TableViewState) { s.ItemsPerPage = n })
}

// SetCurrentPage sets the page index and saves. Values below 1 clamp to 1.
func (h *Handle) SetCurrentPage(ctx context.Context, page int) {
	h.Update(ctx, func(s *TableViewState) { s.CurrentPage = page })
}

// Update applies fn to a copy of the state as one logical change, then
// saves the resulting bundle once. fn must not retain s.
func (h *Handle) Update(ctx context.Context, fn func(s *TableViewState)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := h.state.Clone()
	fn(&next)

	next, dropped := normalize(next, h.pageSize)
	for _, name := range dropped {
		h.logger.Warn("dropping invalid table state entry", "entry", name)
	}
	h.state = next
	h.save(ctx)
}

// Apply merges a partial record over the current state and saves once.
// Unlike loading, a submitted record is all or nothing: if it is malformed,
// a field fails to decode or an entry is invalid (an unknown pin side, a
// negative width, a preset that is not JSON), nothing changes and the
// errors are returned joined.
func (h *Handle) Apply(ctx context.Context, raw []byte) error {
	return h.merge(ctx, raw, false)
}

// Replace swaps the whole bundle for raw and saves once. Fields absent from
// raw return to their defaults. Errors are handled as in Apply.
func (h *Handle) Replace(ctx context.Context, raw []byte) error {
	return h.merge(ctx, raw, true)
}

func (h *Handle) merge(ctx context.Context, raw []byte, reset bool) error {
	fields, err := splitRecord(raw)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	next := h.state.Clone()
	if reset {
		next = Defaults(h.pageSize)
	}
	errs := applyFields(&next, fields)
	next, dropped := normalize(next, h.pageSize)
	for _, name := range dropped {
		errs = append(errs, &FieldError{Field: name, Err: ErrInvalidValue})
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	h.state = next
	h.save(ctx)
	return nil
}

// save writes the current state. Callers hold h.mu.
func (h *Handle) save(ctx context.Context) {
	if !h.persist {
		return
	}

	data, err := Encode(h.state)
	if err != nil {
		h.saveFailed(err)
		return
	}
	if err := h.store.Set(ctx, h.key, data); err != nil {
		h.saveFailed(err)
		return
	}
	h.logger.Debug("saved table state", "key", h.key, "bytes", len(data))
}

func (h *Handle) saveFailed(err error) {
	h.logger.Warn("failed to save table state", "key", h.key, "error", err)
	if h.onSaveErr != nil {
		h.onSaveErr(err)
	}
}
