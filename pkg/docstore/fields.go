package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
)

const reservedIDField = "id"

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validCollection(name string) error {
	if !fieldPattern.MatchString(name) {
		return fmt.Errorf("%w: collection name %q", ErrInvalidDocument, name)
	}
	return nil
}

func validField(name string) bool {
	return fieldPattern.MatchString(name) && name != reservedIDField
}

// normalizeData turns a struct or map into its JSON object form so both
// backends store and compare identical values.
func normalizeData(data any) (map[string]any, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: nil data", ErrInvalidDocument)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: not an object", ErrInvalidDocument)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: nil data", ErrInvalidDocument)
	}
	if _, ok := out[reservedIDField]; ok {
		return nil, fmt.Errorf("%w: %q is reserved", ErrInvalidDocument, reservedIDField)
	}
	for key := range out {
		if !fieldPattern.MatchString(key) {
			return nil, fmt.Errorf("%w: field name %q", ErrInvalidDocument, key)
		}
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return copyData(typed)
	case []any:
		cp := make([]any, len(typed))
		for i, item := range typed {
			cp[i] = copyValue(item)
		}
		return cp
	default:
		return v
	}
}

// applyUpdate returns a new data map with upd merged in. data is not modified.
func applyUpdate(data map[string]any, upd Update) (map[string]any, error) {
	next := copyData(data)
	for field, value := range upd.Set {
		if !validField(field) {
			return nil, fmt.Errorf("%w: cannot set field %q", ErrInvalidDocument, field)
		}
		if _, dup := upd.Append[field]; dup {
			return nil, fmt.Errorf("%w: field %q both set and appended", ErrInvalidDocument, field)
		}
		norm, err := normalizeValue(value)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidDocument, field, err)
		}
		if norm == nil {
			delete(next, field)
			continue
		}
		next[field] = norm
	}
	for field, values := range upd.Append {
		if !validField(field) {
			return nil, fmt.Errorf("%w: cannot append to field %q", ErrInvalidDocument, field)
		}
		var current []any
		if existing, ok := next[field]; ok && existing != nil {
			arr, isArr := existing.([]any)
			if !isArr {
				return nil, fmt.Errorf("%w: field %q is not an array", ErrInvalidDocument, field)
			}
			current = arr
		}
		for _, v := range values {
			norm, err := normalizeValue(v)
			if err != nil {
				return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidDocument, field, err)
			}
			current = append(current, norm)
		}
		next[field] = current
	}
	return next, nil
}

type compiledFilter struct {
	field string
	value any
}

func compileFilters(filters []Filter) ([]compiledFilter, error) {
	out := make([]compiledFilter, 0, len(filters))
	for _, f := range filters {
		if !validField(f.Field) {
			return nil, fmt.Errorf("%w: field %q", ErrInvalidFilter, f.Field)
		}
		norm, err := normalizeValue(f.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidFilter, f.Field, err)
		}
		out = append(out, compiledFilter{field: f.Field, value: norm})
	}
	return out, nil
}

func matches(data map[string]any, filters []compiledFilter) bool {
	for _, f := range filters {
		if !reflect.DeepEqual(data[f.field], f.value) {
			return false
		}
	}
	return true
}
