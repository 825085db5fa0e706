// Package viewstate manages the interactive state of portal data tables:
// hidden columns, pinned columns, column widths, saved filter presets and
// pagination.
//
// Each table is identified by a title. A [Handle] created with persistence
// enabled reads the table's record from a [kv.Store] once, merging it over
// the defaults field by field, and writes the whole bundle back on every
// change:
//
//	h := viewstate.New(ctx, store, "orders", true)
//	h.SetHiddenColumns(ctx, viewstate.NewColumnSet("sku"))
//	h.SetPinnedColumns(ctx, map[string]viewstate.PinSide{"sku": viewstate.PinLeft})
//
// The stored record is a JSON object keyed by [Key](prefix, title):
//
//	{"hiddenColumns":["sku"],"pinnedColumns":{"sku":"left"},"columnWidths":{},
//	 "savedFilters":[],"itemsPerPage":50,"currentPage":1}
//
// Storage problems are logged and absorbed. Two handles for the same title
// in different processes overwrite each other's saves; the last write wins.
package viewstate
