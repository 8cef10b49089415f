// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package orderedmap

import (
	"fmt"
	"reflect"
)

type Map struct {
	items []*MapItem
}

type MapItem struct {
	Key   interface{}
	Value interface{}
}

func NewMap() *Map {
	return &Map{}
}

// NewMapWithItems builds a Map preserving the order of "items".
func NewMapWithItems(items []MapItem) *Map {
	m := NewMap()
	for _, item := range items {
		m.Set(item.Key, item.Value)
	}
	return m
}

func (m *Map) Set(key, value interface{}) {
	for _, item := range m.items {
		if keysEqual(item.Key, key) {
			item.Value = value
			return
		}
	}
	m.items = append(m.items, &MapItem{Key: key, Value: value})
}

func (m *Map) Get(key interface{}) (interface{}, bool) {
	for _, item := range m.items {
		if keysEqual(item.Key, key) {
			return item.Value, true
		}
	}
	return nil, false
}

func (m *Map) Delete(key interface{}) bool {
	for i, item := range m.items {
		if keysEqual(item.Key, key) {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return true
		}
	}
	return false
}

func (m *Map) Len() int {
	return len(m.items)
}

// Keys returns keys in insertion order.
func (m *Map) Keys() []interface{} {
	keys := make([]interface{}, 0, len(m.items))
	for _, item := range m.items {
		keys = append(keys, item.Key)
	}
	return keys
}

// Iterate visits each entry in insertion order.
func (m *Map) Iterate(visit func(key, value interface{})) {
	for _, item := range m.items {
		visit(item.Key, item.Value)
	}
}

// AsGoMap flattens into a native map, losing key order.
func (m *Map) AsGoMap() map[interface{}]interface{} {
	result := map[interface{}]interface{}{}
	for _, item := range m.items {
		result[item.Key] = item.Value
	}
	return result
}

func (m *Map) String() string {
	return fmt.Sprintf("%v", m.items)
}

// keysEqual matches template equality for keys: numeric keys compare
// across int/float, everything else by deep equality.
func keysEqual(a, b interface{}) bool {
	if af, aok := keyAsFloat(a); aok {
		if bf, bok := keyAsFloat(b); bok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func keyAsFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}
