package playground

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
)

// groupsTag is the struct tag listing the groups a field's constraints belong to,
// comma separated. Fields without it belong to validation.DefaultGroup.
const groupsTag = "groups"

// fieldInfo is what the adapter needs to know about one struct field.
type fieldInfo struct {
	field  reflect.StructField
	groups []validation.Group
}

// fieldIndex maps relative property paths ("Payer.Name") of a struct type to
// their fields. Slice, array and map elements are addressed without index.
type fieldIndex map[string]fieldInfo

// fieldIndexes caches one fieldIndex per root type.
type fieldIndexes struct {
	cache sync.Map // reflect.Type -> fieldIndex
}

func (c *fieldIndexes) of(root reflect.Type) fieldIndex {
	if root == nil {
		return fieldIndex{}
	}
	if idx, ok := c.cache.Load(root); ok {
		return idx.(fieldIndex)
	}
	idx := fieldIndex{}
	indexFields(root, "", idx, map[reflect.Type]bool{})
	actual, _ := c.cache.LoadOrStore(root, idx)
	return actual.(fieldIndex)
}

func indexFields(t reflect.Type, prefix string, idx fieldIndex, visiting map[reflect.Type]bool) {
	t = elemType(t)
	if t.Kind() != reflect.Struct || visiting[t] {
		return
	}
	visiting[t] = true
	defer delete(visiting, t)

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}
		idx[path] = fieldInfo{field: f, groups: parseGroups(f.Tag.Get(groupsTag))}
		indexFields(f.Type, path, idx, visiting)
	}
}

// elemType strips pointers and container types down to the element type.
func elemType(t reflect.Type) reflect.Type {
	for {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
			t = t.Elem()
		default:
			return t
		}
	}
}

func parseGroups(tag string) []validation.Group {
	if strings.TrimSpace(tag) == "" {
		return []validation.Group{validation.DefaultGroup}
	}
	parts := strings.Split(tag, ",")
	groups := make([]validation.Group, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			groups = append(groups, validation.Group(p))
		}
	}
	return groups
}

// inGroups reports whether field groups intersect the requested ones.
// No requested groups means validation.DefaultGroup.
func inGroups(field, requested []validation.Group) bool {
	if len(requested) == 0 {
		requested = []validation.Group{validation.DefaultGroup}
	}
	for _, r := range requested {
		for _, g := range field {
			if r == g {
				return true
			}
		}
	}
	return false
}

// relativePath turns an engine namespace ("CashIncome.Items[0].Amount") into a
// path relative to root without indexes ("Items.Amount").
func relativePath(root reflect.Type, ns string) string {
	if root != nil {
		name := elemType(root).Name()
		if name != "" && strings.HasPrefix(ns, name+".") {
			ns = ns[len(name)+1:]
		}
	}
	return stripIndexes(ns)
}

// trimRoot removes the leading root type name from an engine namespace, keeping indexes.
func trimRoot(root reflect.Type, ns string) string {
	if root != nil {
		name := elemType(root).Name()
		if name != "" && strings.HasPrefix(ns, name+".") {
			return ns[len(name)+1:]
		}
	}
	return ns
}

func stripIndexes(ns string) string {
	if !strings.Contains(ns, "[") {
		return ns
	}
	var b strings.Builder
	depth := 0
	for _, r := range ns {
		switch {
		case r == '[':
			depth++
		case r == ']':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// maxLocateDepth bounds the search for a field's parent through pointer cycles.
const maxLocateDepth = 32

// constraintPath returns the dotted path of the field under test relative to
// the validated root ("Payer.Account"), without indexes. Standalone values
// have no path.
func constraintPath(fl validator.FieldLevel) string {
	name := fl.StructFieldName()
	if name == "" {
		return ""
	}
	prefix, ok := locate(fl.Top(), fl.Parent(), "", 0)
	if !ok || prefix == "" {
		return name
	}
	return prefix + "." + name
}

// locate searches v for the struct value target and returns its path.
func locate(v, target reflect.Value, path string, depth int) (string, bool) {
	if depth > maxLocateDepth || !v.IsValid() || !target.IsValid() {
		return "", false
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return "", false
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		if sameValue(v, target) {
			return path, true
		}
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			child := f.Name
			if path != "" {
				child = path + "." + f.Name
			}
			if found, ok := locate(v.Field(i), target, child, depth+1); ok {
				return found, true
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if found, ok := locate(v.Index(i), target, path, depth+1); ok {
				return found, true
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if found, ok := locate(iter.Value(), target, path, depth+1); ok {
				return found, true
			}
		}
	}
	return "", false
}

// sameValue reports whether a and b are the same struct. Addressable values
// compare by address, others by content.
func sameValue(a, b reflect.Value) bool {
	if a.Type() != b.Type() {
		return false
	}
	if a.CanAddr() && b.CanAddr() {
		return a.UnsafeAddr() == b.UnsafeAddr()
	}
	if !a.CanInterface() || !b.CanInterface() {
		return false
	}
	return reflect.DeepEqual(a.Interface(), b.Interface())
}
