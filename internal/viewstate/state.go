package viewstate

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// DefaultItemsPerPage is the page size used when nothing else is configured.
const DefaultItemsPerPage = 50

// PinSide is the edge a column is pinned to.
type PinSide string

const (
	PinLeft  PinSide = "left"
	PinRight PinSide = "right"
)

// Valid reports whether p is one of the known sides.
func (p PinSide) Valid() bool {
	return p == PinLeft || p == PinRight
}

// FilterPreset is a user-saved filter configuration. Its shape belongs to
// the table UI; it is stored and returned as compact JSON without inspection.
type FilterPreset = json.RawMessage

// ColumnSet is a set of column identifiers. It encodes as a sorted JSON array.
type ColumnSet map[string]struct{}

// NewColumnSet returns a set holding ids.
func NewColumnSet(ids ...string) ColumnSet {
	s := make(ColumnSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s ColumnSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s ColumnSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a copy of s; the copy of a nil set is empty, not nil.
func (s ColumnSet) Clone() ColumnSet {
	out := make(ColumnSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

func (s ColumnSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *ColumnSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewColumnSet(ids...)
	return nil
}

// TableViewState is the interactive state of one data table.
type TableViewState struct {
	HiddenColumns ColumnSet          `json:"hiddenColumns"`
	PinnedColumns map[string]PinSide `json:"pinnedColumns"`
	ColumnWidths  map[string]float64 `json:"columnWidths"`
	SavedFilters  []FilterPreset     `json:"savedFilters"`
	ItemsPerPage  int                `json:"itemsPerPage"`
	CurrentPage   int                `json:"currentPage"`
}

// Defaults returns the initial state: empty collections, page one and the
// given page size (DefaultItemsPerPage when pageSize < 1).
func Defaults(pageSize int) TableViewState {
	if pageSize < 1 {
		pageSize = DefaultItemsPerPage
	}
	return TableViewState{
		HiddenColumns: ColumnSet{},
		PinnedColumns: map[string]PinSide{},
		ColumnWidths:  map[string]float64{},
		SavedFilters:  []FilterPreset{},
		ItemsPerPage:  pageSize,
		CurrentPage:   1,
	}
}

// Clone returns a deep copy of s with every collection non-nil.
func (s TableViewState) Clone() TableViewState {
	out := s
	out.HiddenColumns = s.HiddenColumns.Clone()

	out.PinnedColumns = make(map[string]PinSide, len(s.PinnedColumns))
	for k, v := range s.PinnedColumns {
		out.PinnedColumns[k] = v
	}

	out.ColumnWidths = make(map[string]float64, len(s.ColumnWidths))
	for k, v := range s.ColumnWidths {
		out.ColumnWidths[k] = v
	}

	out.SavedFilters = make([]FilterPreset, len(s.SavedFilters))
	for i, f := range s.SavedFilters {
		out.SavedFilters[i] = bytes.Clone(f)
	}
	return out
}

// normalize returns a deep copy of s that satisfies the state invariants.
// Entries that cannot be represented are dropped and reported in the
// returned list so the caller can log them.
func normalize(s TableViewState, pageSize int) (TableViewState, []string) {
	out := s.Clone()
	var dropped []string

	for id, side := range out.PinnedColumns {
		if !side.Valid() {
			delete(out.PinnedColumns, id)
			dropped = append(dropped, "pinnedColumns."+id)
		}
	}

	for id, w := range out.ColumnWidths {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			delete(out.ColumnWidths, id)
			dropped = append(dropped, "columnWidths."+id)
		}
	}

	filters := out.SavedFilters[:0]
	for i, f := range out.SavedFilters {
		var buf bytes.Buffer
		if err := json.Compact(&buf, f); err != nil {
			dropped = append(dropped, "savedFilters["+strconv.Itoa(i)+"]")
			continue
		}
		filters = append(filters, FilterPreset(buf.Bytes()))
	}
	out.SavedFilters = filters

	if out.ItemsPerPage < 1 {
		if pageSize < 1 {
			pageSize = DefaultItemsPerPage
		}
		out.ItemsPerPage = pageSize
	}
	if out.CurrentPage < 1 {
		out.CurrentPage = 1
	}

	sort.Strings(dropped)
	return out, dropped
}
