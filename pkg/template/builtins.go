// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"velo.dev/velo/pkg/orderedmap"
)

// builtinMethod is a bound per-type method from the table below.
type builtinMethod func(args []interface{}) (interface{}, error)

// builtinMethodFor resolves the fixed per-type method table consulted after
// key and attribute lookup both miss: list values get size/get/contains/add,
// strings get length/replaceAll/startsWith, mappings get put/putAll/keySet.
func builtinMethodFor(target interface{}, name string) (builtinMethod, bool) {
	if s, ok := target.(string); ok {
		return stringMethod(s, name)
	}
	if list, ok := target.(*List); ok {
		if method, found := mutableListMethod(list, name); found {
			return method, true
		}
	}
	if items, ok := listItems(target); ok {
		return listMethod(items, name)
	}
	if isMapLike(target) {
		return mapMethod(target, name)
	}
	return nil, false
}

func stringMethod(s string, name string) (builtinMethod, bool) {
	switch name {
	case "length":
		return func(args []interface{}) (interface{}, error) {
			if err := checkArgCount("length", args, 0); err != nil {
				return nil, err
			}
			return len(s), nil
		}, true
	case "replaceAll":
		return func(args []interface{}) (interface{}, error) {
			if err := checkArgCount("replaceAll", args, 2); err != nil {
				return nil, err
			}
			pattern, ok1 := args[0].(string)
			repl, ok2 := args[1].(string)
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("replaceAll expects string arguments")
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, err
			}
			return re.ReplaceAllString(s, repl), nil
		}, true
	case "startsWith":
		return func(args []interface{}) (interface{}, error) {
			if err := checkArgCount("startsWith", args, 1); err != nil {
				return nil, err
			}
			prefix, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("startsWith expects a string argument")
			}
			return strings.HasPrefix(s, prefix), nil
		}, true
	}
	return nil, false
}

func mutableListMethod(list *List, name string) (builtinMethod, bool) {
	if name != "add" {
		return nil, false
	}
	return func(args []interface{}) (interface{}, error) {
		if err := checkArgCount("add", args, 1); err != nil {
			return nil, err
		}
		list.Items = append(list.Items, args[0])
		return nil, nil
	}, true
}

func listMethod(items []interface{}, name string) (builtinMethod, bool) {
	switch name {
	case "size":
		return func(args []interface{}) (interface{}, error) {
			if err := checkArgCount("size", args, 0); err != nil {
				return nil, err
			}
			return len(items), nil
		}, true
	case "get":
		return func(args []interface{}) (interface{}, error) {
			if err := checkArgCount("get", args, 1); err != nil {
				return nil, err
			}
			i, ok := asInt(args[0])
			if !ok {
				return nil, fmt.Errorf("expected integer for array index, got '%v'", args[0])
			}
			if i < 0 {
				i += int64(len(items))
			}
			if i < 0 || i >= int64(len(items)) {
				return nil, fmt.Errorf("list index out of range: %d", i)
			}
			return items[i], nil
		}, true
	case "contains":
		return func(args []interface{}) (interface{}, error) {
			if err := checkArgCount("contains", args, 1); err != nil {
				return nil, err
			}
			for _, item := range items {
				if valuesEqual(item, args[0]) {
					return true, nil
				}
			}
			return false, nil
		}, true
	case "add":
		return func(args []interface{}) (interface{}, error) {
			return nil, fmt.Errorf("cannot add to an immutable list")
		}, true
	}
	return nil, false
}

func mapMethod(target interface{}, name string) (builtinMethod, bool) {
	switch name {
	case "put":
		return func(args []interface{}) (interface{}, error) {
			if err := checkArgCount("put", args, 2); err != nil {
				return nil, err
			}
			return nil, setMapValue(target, args[0], args[1])
		}, true
	case "putAll":
		return func(args []interface{}) (interface{}, error) {
			if err := checkArgCount("putAll", args, 1); err != nil {
				return nil, err
			}
			keys, ok := mapKeysOf(args[0])
			if !ok {
				return nil, fmt.Errorf("putAll expects a map, got %s", typeName(args[0]))
			}
			for _, key := range keys {
				if err := setMapValue(target, key, lookupMapValue(args[0], key)); err != nil {
					return nil, err
				}
			}
			return nil, nil
		}, true
	case "keySet":
		return func(args []interface{}) (interface{}, error) {
			if err := checkArgCount("keySet", args, 0); err != nil {
				return nil, err
			}
			keys, _ := mapKeysOf(target)
			return NewList(keys...), nil
		}, true
	}
	return nil, false
}

func isMapLike(target interface{}) bool {
	if _, ok := target.(*orderedmap.Map); ok {
		return true
	}
	rv := reflect.ValueOf(target)
	return rv.IsValid() && rv.Kind() == reflect.Map
}

// setMapValue writes a key into any map-like container.
func setMapValue(target, key, value interface{}) error {
	switch t := target.(type) {
	case *orderedmap.Map:
		t.Set(key, value)
		return nil
	case map[string]interface{}:
		s, ok := key.(string)
		if !ok {
			return fmt.Errorf("expected string key, got %s", typeName(key))
		}
		t[s] = value
		return nil
	case map[interface{}]interface{}:
		t[key] = value
		return nil
	}
	rv := reflect.ValueOf(target)
	if !rv.IsValid() || rv.Kind() != reflect.Map {
		return fmt.Errorf("cannot assign into value of type %s", typeName(target))
	}
	kv := reflect.ValueOf(key)
	vv := reflect.ValueOf(value)
	if !kv.IsValid() || !kv.Type().AssignableTo(rv.Type().Key()) {
		return fmt.Errorf("cannot use %s as key of %s", typeName(key), rv.Type())
	}
	if !vv.IsValid() || !vv.Type().AssignableTo(rv.Type().Elem()) {
		return fmt.Errorf("cannot assign %s into %s", typeName(value), rv.Type())
	}
	rv.SetMapIndex(kv, vv)
	return nil
}

func checkArgCount(name string, args []interface{}, want int) error {
	if len(args) != want {
		return fmt.Errorf("%s expected %d arguments, got %d", name, want, len(args))
	}
	return nil
}
