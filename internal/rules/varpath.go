package rules

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/aristath/sentinel/internal/apperrors"
)

// pathSegment is one dot-separated component of a variable path: either a
// named field/map-key lookup, or a (possibly negative) list index.
type pathSegment struct {
	isIndex bool
	key     string
	index   int
}

// ParsePath validates and decomposes a dotted variable path into segments.
// It is a pure syntax check: "a..b", "", and a leading/trailing "." are
// rejected here with BadVarPathError. Whether a segment actually resolves
// against a given report is a runtime concern handled by Resolve, which
// never errors — a missing intermediate simply yields "not found".
func ParsePath(path string) ([]pathSegment, error) {
	if path == "" {
		return nil, &apperrors.BadVarPathError{Path: path}
	}
	parts := strings.Split(path, ".")
	segments := make([]pathSegment, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, &apperrors.BadVarPathError{Path: path}
		}
		if isSignedInteger(part) {
			idx, err := strconv.Atoi(part)
			if err != nil {
				return nil, &apperrors.BadVarPathError{Path: path}
			}
			segments = append(segments, pathSegment{isIndex: true, index: idx})
		} else {
			segments = append(segments, pathSegment{key: part})
		}
	}
	return segments, nil
}

func isSignedInteger(s string) bool {
	if s == "" {
		return false
	}
	start := 0
	if s[0] == '-' {
		start = 1
		if len(s) == 1 {
			return false
		}
	}
	for i := start; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Resolve walks segments against root, which may be a struct (matched by
// json tag or field name), a map[string]any, or a slice/array (matched by
// signed index, negative counting from the end). It returns ok=false,
// without error, the moment any intermediate is nil, missing, or
// type-mismatched — callers fall back to the variable node's configured
// default in that case.
func Resolve(root interface{}, segments []pathSegment) (interface{}, bool) {
	current := reflect.ValueOf(root)
	for _, seg := range segments {
		current = indirect(current)
		if !current.IsValid() {
			return nil, false
		}
		next, ok := step(current, seg)
		if !ok {
			return nil, false
		}
		current = next
	}
	current = indirect(current)
	if !current.IsValid() {
		return nil, false
	}
	return current.Interface(), true
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func step(current reflect.Value, seg pathSegment) (reflect.Value, bool) {
	switch current.Kind() {
	case reflect.Slice, reflect.Array:
		if !seg.isIndex {
			return reflect.Value{}, false
		}
		n := current.Len()
		idx := seg.index
		if idx < 0 {
			idx = n + idx
		}
		if idx < 0 || idx >= n {
			return reflect.Value{}, false
		}
		return current.Index(idx), true

	case reflect.Map:
		if seg.isIndex {
			return reflect.Value{}, false
		}
		v := current.MapIndex(reflect.ValueOf(seg.key))
		if !v.IsValid() {
			return reflect.Value{}, false
		}
		return v, true

	case reflect.Struct:
		if seg.isIndex {
			return reflect.Value{}, false
		}
		return fieldByJSONTagOrName(current, seg.key)

	default:
		return reflect.Value{}, false
	}
}

func fieldByJSONTagOrName(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		tagName := strings.Split(tag, ",")[0]
		if tagName == name || f.Name == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}
