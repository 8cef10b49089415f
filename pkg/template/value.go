// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"velo.dev/velo/pkg/orderedmap"
)

// TruthValuer lets a host value decide its own truthiness in #if conditions
// and logical operators.
type TruthValuer interface {
	TruthValue() bool
}

// List is the mutable list value produced by array literals and ranges.
// Mutability matters: $list.add(item) must be visible through every
// reference to the same list.
type List struct {
	Items []interface{}
}

func NewList(items ...interface{}) *List {
	return &List{Items: items}
}

// truth implements template truthiness: nil, false, numeric zero, empty
// string and empty collections are falsy, everything else truthy. Host
// values may override via TruthValuer.
func truth(value interface{}) bool {
	if value == nil {
		return false
	}
	if tv, ok := value.(TruthValuer); ok {
		return tv.TruthValue()
	}
	switch t := value.(type) {
	case bool:
		return t
	case string:
		return t != ""
	case *List:
		return len(t.Items) > 0
	case *orderedmap.Map:
		return t.Len() > 0
	}
	if f, ok := asFloat(value); ok {
		return f != 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
		return rv.Len() > 0
	}
	return true
}

// asInt reports integer-ish values (including bool, which participates in
// arithmetic as 0/1).
func asInt(value interface{}) (int64, bool) {
	switch t := value.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return int64(t), true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		return int64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func asFloat(value interface{}) (float64, bool) {
	if i, ok := asInt(value); ok {
		return float64(i), true
	}
	switch t := value.(type) {
	case float32:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

func isFloat(value interface{}) bool {
	switch value.(type) {
	case float32, float64:
		return true
	}
	return false
}

func isString(value interface{}) bool {
	_, ok := value.(string)
	return ok
}

// typeName names a value's type in error messages.
func typeName(value interface{}) string {
	switch value.(type) {
	case nil:
		return "nil"
	case string:
		return "string"
	case bool:
		return "bool"
	case float32, float64:
		return "float"
	case *List:
		return "list"
	case *orderedmap.Map:
		return "map"
	}
	if _, ok := asInt(value); ok {
		return "int"
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return "list"
	case reflect.Map:
		return "map"
	}
	return rv.Type().String()
}

// valuesEqual implements the == operator: numbers compare across int/float
// (and bool counts as 0/1), mismatched kinds are unequal rather than an
// error.
func valuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
		return false
	}
	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			return as == bs
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// renderValue converts a merge result to output text: booleans render
// true/false, floats always keep a decimal part, lists and maps render
// JSON-style.
func renderValue(value interface{}) string {
	switch t := value.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float32:
		return renderFloat(float64(t))
	case float64:
		return renderFloat(t)
	}
	if i, ok := asInt(value); ok {
		return strconv.FormatInt(i, 10)
	}
	if items, ok := listItems(value); ok {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			parts = append(parts, renderElement(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	if m, ok := value.(*orderedmap.Map); ok {
		parts := make([]string, 0, m.Len())
		m.Iterate(func(key, val interface{}) {
			parts = append(parts, renderElement(key)+": "+renderElement(val))
		})
		return "{" + strings.Join(parts, ", ") + "}"
	}
	if keys, vals, ok := mapEntries(value); ok {
		parts := make([]string, 0, len(keys))
		for i := range keys {
			parts = append(parts, renderElement(keys[i])+": "+renderElement(vals[i]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprintf("%v", value)
}

// renderElement renders a collection member; unlike top-level rendering,
// strings are quoted.
func renderElement(value interface{}) string {
	switch t := value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(t)
	}
	return renderValue(value)
}

func renderFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// listItems flattens any list-like value (List, native slices, arrays) into
// a []interface{}.
func listItems(value interface{}) ([]interface{}, bool) {
	switch t := value.(type) {
	case *List:
		return t.Items, true
	case []interface{}:
		return t, true
	case string, nil:
		return nil, false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = rv.Index(i).Interface()
		}
		return items, true
	}
	return nil, false
}

// mapEntries enumerates a native map's entries with keys sorted by their
// rendering, keeping output deterministic.
func mapEntries(value interface{}) (keys []interface{}, vals []interface{}, ok bool) {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || rv.Kind() != reflect.Map {
		return nil, nil, false
	}
	mapKeys := rv.MapKeys()
	sort.Slice(mapKeys, func(i, j int) bool {
		return renderValue(mapKeys[i].Interface()) < renderValue(mapKeys[j].Interface())
	})
	for _, key := range mapKeys {
		keys = append(keys, key.Interface())
		vals = append(vals, rv.MapIndex(key).Interface())
	}
	return keys, vals, true
}

// mapKeysOf returns iteration keys for any map-like value: insertion order
// for ordered maps, render-sorted otherwise.
func mapKeysOf(value interface{}) ([]interface{}, bool) {
	if m, ok := value.(*orderedmap.Map); ok {
		return m.Keys(), true
	}
	keys, _, ok := mapEntries(value)
	return keys, ok
}

// indexValue applies an array index or key lookup to a container. Lookup
// failures yield nil (not-found), except a non-integer index into a list
// which the caller reports as an error.
func indexValue(container, index interface{}) interface{} {
	if s, ok := container.(string); ok {
		i, ok := asInt(index)
		if !ok {
			return nil
		}
		runes := []rune(s)
		if i < 0 {
			i += int64(len(runes))
		}
		if i < 0 || i >= int64(len(runes)) {
			return nil
		}
		return string(runes[i])
	}
	if items, ok := listItems(container); ok {
		i, ok := asInt(index)
		if !ok {
			return nil
		}
		// negative indexes address from the end
		if i < 0 {
			i += int64(len(items))
		}
		if i < 0 || i >= int64(len(items)) {
			return nil
		}
		return items[i]
	}
	return lookupMapValue(container, index)
}

// lookupMapValue fetches a key from any map-like container, nil when absent.
func lookupMapValue(container, key interface{}) interface{} {
	switch t := container.(type) {
	case *orderedmap.Map:
		val, _ := t.Get(key)
		return val
	case map[string]interface{}:
		s, ok := key.(string)
		if !ok {
			return nil
		}
		return t[s]
	case map[interface{}]interface{}:
		return t[key]
	}
	rv := reflect.ValueOf(container)
	if !rv.IsValid() || rv.Kind() != reflect.Map {
		return nil
	}
	kv := reflect.ValueOf(key)
	if !kv.IsValid() {
		return nil
	}
	if kv.Type() != rv.Type().Key() {
		if !kv.Type().ConvertibleTo(rv.Type().Key()) {
			return nil
		}
		kv = kv.Convert(rv.Type().Key())
	}
	val := rv.MapIndex(kv)
	if !val.IsValid() {
		return nil
	}
	return val.Interface()
}
