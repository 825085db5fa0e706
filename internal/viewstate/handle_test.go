package viewstate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// spyStore is an in-memory kv.Store that counts calls and can fail on demand.
type spyStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	gets   int
	sets   int
	getErr error
	setErr error
}

func newSpyStore() *spyStore {
	return &spyStore{data: map[string][]byte{}}
}

func (s *spyStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	v, ok := s.data[key]
	return bytes.Clone(v), ok, nil
}

func (s *spyStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = bytes.Clone(value)
	return nil
}

func (s *spyStore) raw(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Clone(s.data[key])
}

func (s *spyStore) counts() (gets, sets int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets, s.sets
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newHandle(t *testing.T, store *spyStore, title string, persist bool, opts ...Option) *Handle {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return New(context.Background(), store, title, persist, opts...)
}

func TestNew_DefaultsWhenNothingStored(t *testing.T) {
	store := newSpyStore()
	h := newHandle(t, store, "orders", true)

	want := TableViewState{
		HiddenColumns: ColumnSet{},
		PinnedColumns: map[string]PinSide{},
		ColumnWidths:  map[string]float64{},
		SavedFilters:  []FilterPreset{},
		ItemsPerPage:  50,
		CurrentPage:   1,
	}
	if diff := cmp.Diff(want, h.State()); diff != "" {
		t.Errorf("initial state mismatch (-want +got):\n%s", diff)
	}
	if gets, sets := store.counts(); gets != 1 || sets != 0 {
		t.Errorf("store calls = %d gets, %d sets; want 1, 0", gets, sets)
	}
	if h.Key() != "table-state-orders" {
		t.Errorf("Key() = %q, want %q", h.Key(), "table-state-orders")
	}
}

func TestNew_WithoutPersistenceNeverTouchesStorage(t *testing.T) {
	store := newSpyStore()
	store.data["table-state-orders"] = []byte(`{"itemsPerPage":10,"currentPage":7}`)

	ctx := context.Background()
	h := newHandle(t, store, "orders", false)

	if diff := cmp.Diff(Defaults(50), h.State()); diff != "" {
		t.Errorf("state should ignore stored record (-want +got):\n%s", diff)
	}

	h.SetHiddenColumns(ctx, NewColumnSet("sku"))
	h.SetPinnedColumns(ctx, map[string]PinSide{"sku": PinLeft})
	h.SetColumnWidths(ctx, map[string]float64{"sku": 120})
	h.SetSavedFilters(ctx, []FilterPreset{FilterPreset(`{"name":"open"}`)})
	h.SetItemsPerPage(ctx, 25)
	h.SetCurrentPage(ctx, 2)
	h.Reload(ctx)

	if gets, sets := store.counts(); gets != 0 || sets != 0 {
		t.Errorf("store calls = %d gets, %d sets; want none", gets, sets)
	}
	if got := string(store.raw("table-state-orders")); got != `{"itemsPerPage":10,"currentPage":7}` {
		t.Errorf("stored record changed: %s", got)
	}
	if h.Persistent() {
		t.Error("Persistent() = true, want false")
	}
}

func TestNew_PartialRecordMergesWithDefaults(t *testing.T) {
	store := newSpyStore()
	store.data["table-state-orders"] = []byte(`{"itemsPerPage": 25, "currentPage": 3}`)

	h := newHandle(t, store, "orders", true)

	want := Defaults(50)
	want.ItemsPerPage = 25
	want.CurrentPage = 3
	if diff := cmp.Diff(want, h.State()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_EachFieldMergesIndependently(t *testing.T) {
	tests := []struct {
		name   string
		record string
		mutate func(*TableViewState)
	}{
		{
			name:   "hidden columns only",
			record: `{"hiddenColumns":["sku","qty"]}`,
			mutate: func(s *TableViewState) { s.HiddenColumns = NewColumnSet("qty", "sku") },
		},
		{
			name:   "pinned columns only",
			record: `{"pinnedColumns":{"sku":"left","total":"right"}}`,
			mutate: func(s *TableViewState) {
				s.PinnedColumns = map[string]PinSide{"sku": PinLeft, "total": PinRight}
			},
		},
		{
			name:   "column widths only",
			record: `{"columnWidths":{"sku":140.5}}`,
			mutate: func(s *TableViewState) { s.ColumnWidths = map[string]float64{"sku": 140.5} },
		},
		{
			name:   "saved filters only",
			record: `{"savedFilters":[{"name":"late","criteria":{"status":"overdue"}}]}`,
			mutate: func(s *TableViewState) {
				s.SavedFilters = []FilterPreset{FilterPreset(`{"name":"late","criteria":{"status":"overdue"}}`)}
			},
		},
		{
			name:   "items per page only",
			record: `{"itemsPerPage":100}`,
			mutate: func(s *TableViewState) { s.ItemsPerPage = 100 },
		},
		{
			name:   "current page only",
			record: `{"currentPage":9}`,
			mutate: func(s *TableViewState) { s.CurrentPage = 9 },
		},
		{
			name:   "empty object",
			record: `{}`,
			mutate: func(*TableViewState) {},
		},
		{
			name:   "explicit nulls count as absent",
			record: `{"hiddenColumns":null,"itemsPerPage":null,"currentPage":2}`,
			mutate: func(s *TableViewState) { s.CurrentPage = 2 },
		},
		{
			name:   "unknown fields ignored",
			record: `{"sortBy":"date","currentPage":4}`,
			mutate: func(s *TableViewState) { s.CurrentPage = 4 },
		},
		{
			name:   "ill-typed field keeps its default",
			record: `{"itemsPerPage":"many","currentPage":4}`,
			mutate: func(s *TableViewState) { s.CurrentPage = 4 },
		},
		{
			name:   "out of range page keeps its default",
			record: `{"currentPage":0,"itemsPerPage":10}`,
			mutate: func(s *TableViewState) { s.ItemsPerPage = 10 },
		},
		{
			name:   "unknown pin side dropped",
			record: `{"pinnedColumns":{"sku":"top","total":"right"}}`,
			mutate: func(s *TableViewState) { s.PinnedColumns = map[string]PinSide{"total": PinRight} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newSpyStore()
			store.data["table-state-orders"] = []byte(tt.record)

			h := newHandle(t, store, "orders", true)

			want := Defaults(50)
			tt.mutate(&want)
			if diff := cmp.Diff(want, h.State()); diff != "" {
				t.Errorf("state mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNew_MalformedRecordYieldsDefaults(t *testing.T) {
	records := []string{
		`not json at all`,
		`{"itemsPerPage":`,
		`[1,2,3]`,
		`"orders"`,
		`42`,
		``,
	}

	for _, record := range records {
		t.Run(record, func(t *testing.T) {
			var logs bytes.Buffer
			store := newSpyStore()
			store.data["table-state-orders"] = []byte(record)

			h := New(context.Background(), store, "orders", true, WithLogger(bufferLogger(&logs)))

			if diff := cmp.Diff(Defaults(50), h.State()); diff != "" {
				t.Errorf("state mismatch (-want +got):\n%s", diff)
			}
			if !strings.Contains(logs.String(), "malformed") {
				t.Errorf("expected malformed record to be logged, got %q", logs.String())
			}
		})
	}
}

func TestNew_ReadFailureYieldsDefaults(t *testing.T) {
	var logs bytes.Buffer
	store := newSpyStore()
	store.data["table-state-orders"] = []byte(`{"currentPage":5}`)
	store.getErr = errors.New("storage unavailable")

	h := New(context.Background(), store, "orders", true, WithLogger(bufferLogger(&logs)))

	if diff := cmp.Diff(Defaults(50), h.State()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(logs.String(), "failed to read table state") {
		t.Errorf("expected read failure to be logged, got %q", logs.String())
	}
	if !strings.Contains(logs.String(), "title=orders") {
		t.Errorf("expected title in log, got %q", logs.String())
	}
}

func TestRoundTrip(t *testing.T) {
	states := map[string]TableViewState{
		"defaults": Defaults(50),
		"everything set": {
			HiddenColumns: NewColumnSet("sku", "notes"),
			PinnedColumns: map[string]PinSide{"id": PinLeft, "total": PinRight},
			ColumnWidths:  map[string]float64{"id": 80, "notes": 312.25},
			SavedFilters: []FilterPreset{
				FilterPreset(`{"name":"open","criteria":{"status":"open"}}`),
				FilterPreset(`{"name":"mine","criteria":{"owner":"me"}}`),
			},
			ItemsPerPage: 20,
			CurrentPage:  6,
		},
		"only collections empty": {
			HiddenColumns: ColumnSet{},
			PinnedColumns: map[string]PinSide{},
			ColumnWidths:  map[string]float64{},
			SavedFilters:  []FilterPreset{},
			ItemsPerPage:  10,
			CurrentPage:   2,
		},
		"arabic column ids": {
			HiddenColumns: NewColumnSet("الكمية"),
			PinnedColumns: map[string]PinSide{"العميل": PinRight},
			ColumnWidths:  map[string]float64{"العميل": 200},
			SavedFilters:  []FilterPreset{FilterPreset(`"مسودة"`)},
			ItemsPerPage:  50,
			CurrentPage:   1,
		},
		"presets with markup characters": {
			HiddenColumns: ColumnSet{},
			PinnedColumns: map[string]PinSide{},
			ColumnWidths:  map[string]float64{},
			SavedFilters: []FilterPreset{
				FilterPreset(`{"q":"A&B <x>"}`),
				FilterPreset(`{"customer":"Smith & Sons","note":"<b>"}`),
			},
			ItemsPerPage: 50,
			CurrentPage:  1,
		},
	}

	for name, want := range states {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newSpyStore()

			h := newHandle(t, store, "orders", true)
			h.Update(ctx, func(s *TableViewState) { *s = want })

			reloaded := newHandle(t, store, "orders", true)
			if diff := cmp.Diff(want, reloaded.State()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSetter_SameValueStillSavesIdenticalBytes(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	h := newHandle(t, store, "orders", true)

	h.SetColumnWidths(ctx, map[string]float64{"sku": 90, "name": 240, "qty": 60})
	before := store.raw("table-state-orders")
	_, setsBefore := store.counts()

	h.SetColumnWidths(ctx, h.ColumnWidths())
	after := store.raw("table-state-orders")
	_, setsAfter := store.counts()

	if setsAfter != setsBefore+1 {
		t.Errorf("sets = %d, want %d", setsAfter, setsBefore+1)
	}
	if !bytes.Equal(before, after) {
		t.Errorf("storage content changed:\nbefore %s\nafter  %s", before, after)
	}
}

func TestScenario_HideThenPinReloadsBoth(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	h := newHandle(t, store, "orders", true)

	h.SetHiddenColumns(ctx, NewColumnSet("sku"))
	h.SetPinnedColumns(ctx, map[string]PinSide{"sku": PinLeft})

	var record map[string]json.RawMessage
	if err := json.Unmarshal(store.raw("table-state-orders"), &record); err != nil {
		t.Fatalf("stored record is not JSON: %v", err)
	}
	for _, field := range []string{
		FieldHiddenColumns, FieldPinnedColumns, FieldColumnWidths,
		FieldSavedFilters, FieldItemsPerPage, FieldCurrentPage,
	} {
		if _, ok := record[field]; !ok {
			t.Errorf("combined record missing %s", field)
		}
	}

	reloaded := newHandle(t, store, "orders", true)
	if !reloaded.HiddenColumns().Has("sku") {
		t.Error("reloaded state lost hidden column sku")
	}
	if got := reloaded.PinnedColumns()["sku"]; got != PinLeft {
		t.Errorf("reloaded pin for sku = %q, want %q", got, PinLeft)
	}
}

func TestUpdate_OneSavePerLogicalChange(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	h := newHandle(t, store, "orders", true)

	h.Update(ctx, func(s *TableViewState) {
		s.HiddenColumns = NewColumnSet("notes")
		s.ItemsPerPage = 100
		s.CurrentPage = 1
	})

	if _, sets := store.counts(); sets != 1 {
		t.Errorf("sets = %d, want 1", sets)
	}
	if got := h.ItemsPerPage(); got != 100 {
		t.Errorf("ItemsPerPage() = %d, want 100", got)
	}
}

func TestSave_WriteFailureIsLoggedAndSwallowed(t *testing.T) {
	var (
		logs    bytes.Buffer
		hookErr error
	)
	ctx := context.Background()
	store := newSpyStore()
	store.data["table-state-orders"] = []byte(`{"currentPage":2}`)

	h := New(ctx, store, "orders", true,
		WithLogger(bufferLogger(&logs)),
		WithSaveErrorHook(func(err error) { hookErr = err }),
	)
	store.setErr = errors.New("quota exceeded")

	h.SetCurrentPage(ctx, 3)

	if got := h.CurrentPage(); got != 3 {
		t.Errorf("CurrentPage() = %d, want 3 after failed save", got)
	}
	if got := string(store.raw("table-state-orders")); got != `{"currentPage":2}` {
		t.Errorf("stored record = %s, want previous value", got)
	}
	if !strings.Contains(logs.String(), "failed to save table state") {
		t.Errorf("expected save failure to be logged, got %q", logs.String())
	}
	if hookErr == nil || hookErr.Error() != "quota exceeded" {
		t.Errorf("save hook error = %v, want quota exceeded", hookErr)
	}

	// The next successful save captures the latest state.
	store.setErr = nil
	h.SetItemsPerPage(ctx, 20)
	reloaded := newHandle(t, store, "orders", true)
	if reloaded.CurrentPage() != 3 || reloaded.ItemsPerPage() != 20 {
		t.Errorf("reloaded page=%d size=%d, want 3 and 20", reloaded.CurrentPage(), reloaded.ItemsPerPage())
	}
}

func TestTitlesAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()

	orders := newHandle(t, store, "orders", true)
	customers := newHandle(t, store, "customers", true)

	orders.SetCurrentPage(ctx, 4)
	customers.SetHiddenColumns(ctx, NewColumnSet("email"))

	if got := newHandle(t, store, "customers", true).CurrentPage(); got != 1 {
		t.Errorf("customers CurrentPage = %d, want 1", got)
	}
	if got := newHandle(t, store, "orders", true).HiddenColumns(); len(got) != 0 {
		t.Errorf("orders HiddenColumns = %v, want empty", got.Sorted())
	}
}

func TestWithKeyPrefix(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	h := newHandle(t, store, "orders", true, WithKeyPrefix("grid:"))

	h.SetCurrentPage(ctx, 2)

	if h.Key() != "grid:orders" {
		t.Errorf("Key() = %q, want grid:orders", h.Key())
	}
	if store.raw("grid:orders") == nil {
		t.Error("nothing stored under grid:orders")
	}
	if store.raw("table-state-orders") != nil {
		t.Error("default key should not be written")
	}
}

func TestSetters_EnforceInvariants(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	h := newHandle(t, store, "orders", true, WithDefaultPageSize(20))

	if got := h.ItemsPerPage(); got != 20 {
		t.Fatalf("initial ItemsPerPage() = %d, want 20", got)
	}

	h.SetCurrentPage(ctx, 0)
	if got := h.CurrentPage(); got != 1 {
		t.Errorf("SetCurrentPage(0) -> %d, want 1", got)
	}
	h.SetCurrentPage(ctx, -4)
	if got := h.CurrentPage(); got != 1 {
		t.Errorf("SetCurrentPage(-4) -> %d, want 1", got)
	}

	h.SetItemsPerPage(ctx, 75)
	h.SetItemsPerPage(ctx, 0)
	if got := h.ItemsPerPage(); got != 20 {
		t.Errorf("SetItemsPerPage(0) -> %d, want table default 20", got)
	}

	h.SetPinnedColumns(ctx, map[string]PinSide{"a": PinLeft, "b": "middle"})
	if diff := cmp.Diff(map[string]PinSide{"a": PinLeft}, h.PinnedColumns()); diff != "" {
		t.Errorf("PinnedColumns mismatch (-want +got):\n%s", diff)
	}

	h.SetSavedFilters(ctx, []FilterPreset{
		FilterPreset(`{ "name" : "spaced" }`),
		FilterPreset(`{broken`),
	})
	want := []FilterPreset{FilterPreset(`{"name":"spaced"}`)}
	if diff := cmp.Diff(want, h.SavedFilters()); diff != "" {
		t.Errorf("SavedFilters mismatch (-want +got):\n%s", diff)
	}
}

func TestGetters_ReturnCopies(t *testing.T) {
	ctx := context.Background()
	h := newHandle(t, newSpyStore(), "orders", true)

	input := NewColumnSet("sku")
	h.SetHiddenColumns(ctx, input)
	input["qty"] = struct{}{}

	hidden := h.HiddenColumns()
	hidden["price"] = struct{}{}
	widths := h.ColumnWidths()
	widths["sku"] = 10

	state := h.State()
	if diff := cmp.Diff([]string{"sku"}, state.HiddenColumns.Sorted()); diff != "" {
		t.Errorf("HiddenColumns aliased caller data (-want +got):\n%s", diff)
	}
	if len(state.ColumnWidths) != 0 {
		t.Errorf("ColumnWidths aliased caller data: %v", state.ColumnWidths)
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	h := newHandle(t, store, "orders", true)

	if err := h.Apply(ctx, []byte(`{"columnWidths":{"sku":99},"currentPage":5}`)); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := h.CurrentPage(); got != 5 {
		t.Errorf("CurrentPage() = %d, want 5", got)
	}
	if _, sets := store.counts(); sets != 1 {
		t.Errorf("sets = %d, want 1", sets)
	}

	err := h.Apply(ctx, []byte(`{"currentPage":1,"itemsPerPage":"ten"}`))
	var fieldErr *FieldError
	if !errors.As(err, &fieldErr) || fieldErr.Field != FieldItemsPerPage {
		t.Fatalf("Apply() error = %v, want FieldError for itemsPerPage", err)
	}
	if got := h.CurrentPage(); got != 5 {
		t.Errorf("rejected patch changed CurrentPage to %d", got)
	}

	if err := h.Apply(ctx, []byte(`[]`)); !errors.Is(err, ErrMalformedRecord) {
		t.Errorf("Apply([]) error = %v, want ErrMalformedRecord", err)
	}
	if _, sets := store.counts(); sets != 1 {
		t.Errorf("rejected patches saved: sets = %d, want 1", sets)
	}
}

func TestApply_RejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{"unknown pin side", `{"pinnedColumns":{"sku":"up"},"currentPage":3}`, "pinnedColumns.sku"},
		{"negative width", `{"columnWidths":{"sku":-4},"currentPage":3}`, "columnWidths.sku"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newSpyStore()
			h := newHandle(t, store, "orders", true)
			h.SetPinnedColumns(ctx, map[string]PinSide{"sku": PinLeft})
			before := h.State()

			for _, apply := range []func(context.Context, []byte) error{h.Apply, h.Replace} {
				err := apply(ctx, []byte(tt.raw))
				var fieldErr *FieldError
				if !errors.As(err, &fieldErr) || fieldErr.Field != tt.field || !errors.Is(err, ErrInvalidValue) {
					t.Fatalf("error = %v, want ErrInvalidValue for %s", err, tt.field)
				}
			}

			if diff := cmp.Diff(before, h.State()); diff != "" {
				t.Errorf("rejected record changed state (-want +got):\n%s", diff)
			}
			if _, sets := store.counts(); sets != 1 {
				t.Errorf("sets = %d, want 1", sets)
			}
		})
	}
}

func TestReplace_ResetsAbsentFields(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	h := newHandle(t, store, "orders", true)
	h.SetHiddenColumns(ctx, NewColumnSet("sku"))
	h.SetCurrentPage(ctx, 4)

	if err := h.Replace(ctx, []byte(`{"currentPage":2}`)); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	want := Defaults(DefaultItemsPerPage)
	want.CurrentPage = 2
	if diff := cmp.Diff(want, h.State()); diff != "" {
		t.Errorf("State() mismatch (-want +got):\n%s", diff)
	}
	if _, sets := store.counts(); sets != 3 {
		t.Errorf("sets = %d, want 3", sets)
	}

	if err := h.Replace(ctx, []byte(`{"pinnedColumns":[]}`)); err == nil {
		t.Error("Replace() with ill-typed field should fail")
	}
	if got := h.CurrentPage(); got != 2 {
		t.Errorf("rejected replace changed CurrentPage to %d", got)
	}
}

func TestReload_PicksUpExternalChanges(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	h := newHandle(t, store, "orders", true)
	h.SetHiddenColumns(ctx, NewColumnSet("sku"))

	store.data["table-state-orders"] = []byte(`{"currentPage":8}`)
	h.Reload(ctx)

	want := Defaults(50)
	want.CurrentPage = 8
	if diff := cmp.Diff(want, h.State()); diff != "" {
		t.Errorf("state after Reload mismatch (-want +got):\n%s", diff)
	}
}

// gatedStore holds Get open until release is closed, once armed.
type gatedStore struct {
	*spyStore
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if g.entered != nil {
		close(g.entered)
		<-g.release
	}
	return g.spyStore.Get(ctx, key)
}

func TestReload_SetterWaitsForStoredRecord(t *testing.T) {
	ctx := context.Background()
	spy := newSpyStore()
	spy.data["table-state-orders"] = []byte(`{"hiddenColumns":["sku"]}`)

	store := &gatedStore{spyStore: spy}
	h := New(ctx, store, "orders", true, WithLogger(quietLogger()))

	store.entered = make(chan struct{})
	store.release = make(chan struct{})

	reloaded := make(chan struct{})
	go func() {
		defer close(reloaded)
		h.Reload(ctx)
	}()
	<-store.entered

	set := make(chan struct{})
	go func() {
		defer close(set)
		h.SetCurrentPage(ctx, 7)
	}()

	select {
	case <-set:
		t.Error("setter ran while Reload was reading storage")
	case <-time.After(50 * time.Millisecond):
	}
	close(store.release)
	<-reloaded
	<-set

	want := Defaults(50)
	want.HiddenColumns = NewColumnSet("sku")
	want.CurrentPage = 7
	if diff := cmp.Diff(want, h.State()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, newHandle(t, spy, "orders", true).State()); diff != "" {
		t.Errorf("stored state mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_NilStoreDisablesPersistence(t *testing.T) {
	h := New(context.Background(), nil, "orders", true, WithLogger(quietLogger()))
	if h.Persistent() {
		t.Error("Persistent() = true with nil store")
	}
	h.SetCurrentPage(context.Background(), 2)
	if got := h.CurrentPage(); got != 2 {
		t.Errorf("CurrentPage() = %d, want 2", got)
	}
}

func TestHandle_ConcurrentSettersLeaveConsistentRecord(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	h := newHandle(t, store, "orders", true)

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			h.SetCurrentPage(ctx, page)
		}(i)
	}
	wg.Wait()

	reloaded := newHandle(t, store, "orders", true)
	if got, want := reloaded.CurrentPage(), h.CurrentPage(); got != want {
		t.Errorf("stored CurrentPage = %d, in-memory = %d", got, want)
	}
}
