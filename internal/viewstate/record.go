package viewstate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Record field names as they appear in storage and on the wire.
const (
	FieldHiddenColumns = "hiddenColumns"
	FieldPinnedColumns = "pinnedColumns"
	FieldColumnWidths  = "columnWidths"
	FieldSavedFilters  = "savedFilters"
	FieldItemsPerPage  = "itemsPerPage"
	FieldCurrentPage   = "currentPage"
)

// ErrMalformedRecord is returned when a stored or submitted record is not a
// JSON object.
var ErrMalformedRecord = errors.New("viewstate: record is not a JSON object")

// ErrInvalidValue marks an entry that cannot be represented, such as an
// unknown pin side or a negative column width.
var ErrInvalidValue = errors.New("invalid value")

// FieldError reports one record field that could not be applied.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("viewstate: field %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Encode serializes the full state bundle. Map keys are sorted by
// encoding/json and hidden columns by ColumnSet, so equal states always
// produce identical bytes. HTML escaping is off so filter presets keep
// their bytes.
func Encode(s TableViewState) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// splitRecord parses raw as a JSON object of raw field values.
// A JSON null yields an empty record.
func splitRecord(raw []byte) (map[string]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		if bytes.Equal(raw, []byte("null")) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, ErrMalformedRecord
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return fields, nil
}

// applyFields decodes each known field present in fields onto dst.
// Fields are decoded independently: a field that fails to decode leaves its
// current value in dst untouched and is reported as a *FieldError. Unknown
// fields are ignored. A JSON null for a field counts as absent.
func applyFields(dst *TableViewState, fields map[string]json.RawMessage) []error {
	var errs []error
	decode := func(name string, apply func(json.RawMessage) error) {
		raw, ok := fields[name]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return
		}
		if err := apply(raw); err != nil {
			errs = append(errs, &FieldError{Field: name, Err: err})
		}
	}

	decode(FieldHiddenColumns, func(raw json.RawMessage) error {
		var v ColumnSet
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		dst.HiddenColumns = v
		return nil
	})
	decode(FieldPinnedColumns, func(raw json.RawMessage) error {
		var v map[string]PinSide
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		dst.PinnedColumns = v
		return nil
	})
	decode(FieldColumnWidths, func(raw json.RawMessage) error {
		var v map[string]float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		dst.ColumnWidths = v
		return nil
	})
	decode(FieldSavedFilters, func(raw json.RawMessage) error {
		var v []FilterPreset
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		dst.SavedFilters = v
		return nil
	})
	decode(FieldItemsPerPage, func(raw json.RawMessage) error {
		var v int
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		if v < 1 {
			return fmt.Errorf("must be >= 1, got %d", v)
		}
		dst.ItemsPerPage = v
		return nil
	})
	decode(FieldCurrentPage, func(raw json.RawMessage) error {
		var v int
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		if v < 1 {
			return fmt.Errorf("must be >= 1, got %d", v)
		}
		dst.CurrentPage = v
		return nil
	})
	return errs
}

// Decode merges the record in raw over base field by field and returns the
// normalized result. The returned errors describe fields that kept their
// base value; the state is usable either way. A record that is not a JSON
// object returns base unchanged and ErrMalformedRecord.
func Decode(raw []byte, base TableViewState) (TableViewState, []error) {
	fields, err := splitRecord(raw)
	if err != nil {
		return base.Clone(), []error{err}
	}
	out := base.Clone()
	errs := applyFields(&out, fields)
	out, dropped := normalize(out, base.ItemsPerPage)
	for _, name := range dropped {
		errs = append(errs, &FieldError{Field: name, Err: ErrInvalidValue})
	}
	return out, errs
}
