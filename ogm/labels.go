package ogm

import (
	"fmt"
	"reflect"
)

// Labeler is implemented by objects that know their own graph labels.
type Labeler interface {
	Labels() []string
}

// NodeTyper is implemented by type descriptors that name a primary label,
// such as *Class.
type NodeTyper interface {
	NodeType() string
}

// canonicalLabel resolves an entry of a restriction list to a label string.
func canonicalLabel(t any) string {
	if isNil(t) {
		return typeName(t)
	}
	switch v := t.(type) {
	case string:
		return v
	case NodeTyper:
		return v.NodeType()
	case Labeler:
		if ls := v.Labels(); len(ls) > 0 {
			return ls[0]
		}
	case reflect.Type:
		return v.Name()
	}
	return typeName(t)
}

// labelsOf returns the label set of a candidate related object. Objects
// without a label capability are their own label; nil has no labels.
func labelsOf(related any) []string {
	if isNil(related) {
		return nil
	}
	switch v := related.(type) {
	case Labeler:
		return v.Labels()
	case NodeTyper:
		return []string{v.NodeType()}
	case string:
		return []string{v}
	}
	return []string{typeName(related)}
}

func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Invalid:
		return true
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return fmt.Sprint(v)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}

func restrictLabels(types []any) []string {
	out := make([]string, 0, len(types))
	seen := make(map[string]bool, len(types))
	for _, t := range types {
		l := canonicalLabel(t)
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
