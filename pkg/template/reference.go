// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

var (
	nameRE           = regexp.MustCompile(`\A([a-zA-Z0-9_]+)`)
	dotRE            = regexp.MustCompile(`\A\.`)
	paramListStartRE = regexp.MustCompile(`\A\(\s*`)
	paramListEndRE   = regexp.MustCompile(`\A\s*\)`)
	arrayIndexOpenRE = regexp.MustCompile(`\A\[[ \t]*`)
	arrayIndexEndRE  = regexp.MustCompile(`\A[ \t]*\]`)
	alternateRE      = regexp.MustCompile(`\A\|`)
	formalRefRE      = regexp.MustCompile(`\A\$(!?)(\{?)`)
	closingBraceRE   = regexp.MustCompile(`\A\}`)
	valueCommaRE     = regexp.MustCompile(`\A\s*,\s*`)
)

// nameOrCall is one segment of a reference chain: a name, optionally with a
// call parameter list or an array index.
type nameOrCallNode struct {
	span
	name   string
	params *parameterListNode
	index  *arrayIndexNode
}

func parseNameOrCall(src *source, pos int) (*nameOrCallNode, int, bool, error) {
	c := newCursor(src, pos, "name or call")
	groups, ok := c.identityMatch(nameRE)
	if !ok {
		return nil, pos, false, nil
	}
	name := groups[0]
	if !isValidIdentifier(name) {
		return nil, pos, false, nil
	}
	n := &nameOrCallNode{name: name}
	params, end, matched, err := parseParameterList(src, c.end)
	if err != nil {
		return nil, pos, false, err
	}
	if matched {
		n.params = params
		c.end = end
	} else {
		index, end, matched, err := parseArrayIndex(src, c.end)
		if err != nil {
			return nil, pos, false, err
		}
		if matched {
			n.index = index
			c.end = end
		}
	}
	n.span = c.span()
	return n, c.end, true, nil
}

func isValidIdentifier(name string) bool {
	if name == "" {
		return false
	}
	first := name[0]
	return first == '_' || ('a' <= first && first <= 'z') || ('A' <= first && first <= 'Z')
}

// resolve looks up this segment against the current value. Resolution order:
// key lookup (the only lookup when the current value is a namespace), then
// attribute lookup via reflection, then the built-in per-type method table.
// A miss anywhere yields nil ("not found"), never an error.
func (n *nameOrCallNode) resolve(current interface{}, top *Namespace, loader Loader) (interface{}, error) {
	_, isNamespace := current.(*Namespace)

	result := lookupKeyOn(current, n.name)
	if result == nil && !isNamespace {
		result = lookupAttribute(current, n.name)
	}
	if result == nil {
		if method, found := builtinMethodFor(current, n.name); found {
			result = method
		}
	}
	if result == nil {
		return nil, nil
	}
	if def, ok := result.(*functionDefinitionNode); ok {
		var args []interface{}
		if n.params != nil {
			var err error
			args, err = n.params.calculateAll(top, loader)
			if err != nil {
				return nil, err
			}
		}
		capture := NewStoppableSink()
		if err := def.execute(capture, top, args, loader); err != nil {
			return nil, err
		}
		return capture.String(), nil
	}
	if n.params != nil {
		args, err := n.params.calculateAll(top, loader)
		if err != nil {
			return nil, err
		}
		return callValue(result, args)
	}
	if n.index != nil {
		idx, err := n.index.calculate(top, loader)
		if err != nil {
			return nil, err
		}
		if _, isList := listItems(result); isList {
			if _, ok := asInt(idx); !ok {
				return nil, fmt.Errorf("expected integer for array index, got '%v'", idx)
			}
		}
		return indexValue(result, idx), nil
	}
	return result, nil
}

func lookupKeyOn(current interface{}, name string) interface{} {
	if ns, ok := current.(*Namespace); ok {
		val, _ := ns.Get(name)
		return val
	}
	return lookupMapValue(current, name)
}

// lookupAttribute resolves struct fields and methods by reflection, falling
// back to a case-insensitive match among exported names so template-style
// lowercase references reach Go identifiers.
func lookupAttribute(target interface{}, name string) interface{} {
	rv := reflect.ValueOf(target)
	if !rv.IsValid() {
		return nil
	}
	sv := rv
	for sv.Kind() == reflect.Ptr {
		if sv.IsNil() {
			return nil
		}
		sv = sv.Elem()
	}
	if sv.Kind() == reflect.Struct {
		if field := fieldByNameFold(sv, name); field.IsValid() {
			return field.Interface()
		}
	}
	if method := methodByNameFold(rv, name); method.IsValid() {
		return method.Interface()
	}
	return nil
}

func fieldByNameFold(sv reflect.Value, name string) reflect.Value {
	t := sv.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}
		if field.Name == name {
			return sv.Field(i)
		}
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}
		if strings.EqualFold(field.Name, name) {
			return sv.Field(i)
		}
	}
	return reflect.Value{}
}

func methodByNameFold(rv reflect.Value, name string) reflect.Value {
	t := rv.Type()
	for i := 0; i < t.NumMethod(); i++ {
		if t.Method(i).Name == name {
			return rv.Method(i)
		}
	}
	for i := 0; i < t.NumMethod(); i++ {
		if strings.EqualFold(t.Method(i).Name, name) {
			return rv.Method(i)
		}
	}
	return reflect.Value{}
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

// callValue invokes a resolved callable: either a bound built-in method or
// any Go func via reflection. A trailing error return is surfaced as the
// call's error.
func callValue(fn interface{}, args []interface{}) (interface{}, error) {
	if method, ok := fn.(builtinMethod); ok {
		return method(args)
	}
	rv := reflect.ValueOf(fn)
	if !rv.IsValid() || rv.Kind() != reflect.Func {
		return nil, fmt.Errorf("value of type %s is not callable", typeName(fn))
	}
	t := rv.Type()
	if t.IsVariadic() {
		if len(args) < t.NumIn()-1 {
			return nil, fmt.Errorf("function expected at least %d arguments, got %d", t.NumIn()-1, len(args))
		}
	} else if len(args) != t.NumIn() {
		return nil, fmt.Errorf("function expected %d arguments, got %d", t.NumIn(), len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var paramType reflect.Type
		if t.IsVariadic() && i >= t.NumIn()-1 {
			paramType = t.In(t.NumIn() - 1).Elem()
		} else {
			paramType = t.In(i)
		}
		val, err := convertArg(arg, paramType)
		if err != nil {
			return nil, err
		}
		in[i] = val
	}
	out := rv.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if t.Out(0).Implements(errType) {
			if err, ok := out[0].Interface().(error); ok {
				return nil, err
			}
			return nil, nil
		}
		return out[0].Interface(), nil
	default:
		last := out[len(out)-1]
		if last.Type().Implements(errType) {
			if err, ok := last.Interface().(error); ok && err != nil {
				return nil, err
			}
		}
		return out[0].Interface(), nil
	}
}

func convertArg(arg interface{}, paramType reflect.Type) (reflect.Value, error) {
	if arg == nil {
		switch paramType.Kind() {
		case reflect.Interface, reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(paramType), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot pass nil as %s", paramType)
	}
	av := reflect.ValueOf(arg)
	if av.Type().AssignableTo(paramType) {
		return av, nil
	}
	if av.Type().ConvertibleTo(paramType) {
		switch paramType.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return av.Convert(paramType), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("cannot pass %s as %s", typeName(arg), paramType)
}

// subExpression continues a reference chain: either a dotted segment or a
// bracketed index (itself optionally followed by more chain).
type subExpressionNode struct {
	span
	dotted *variableExpressionNode
	index  *arrayIndexNode
	sub    *subExpressionNode
}

func parseSubExpression(src *source, pos int) (*subExpressionNode, int, bool, error) {
	c := newCursor(src, pos, "sub expression")
	n := &subExpressionNode{}
	if c.optionalMatch(dotRE) {
		dotted, end, matched, err := parseVariableExpression(src, c.end)
		if err != nil {
			return nil, pos, false, err
		}
		if matched {
			n.dotted = dotted
			c.end = end
			n.span = c.span()
			return n, c.end, true, nil
		}
	}
	index, end, matched, err := parseArrayIndex(src, c.end)
	if err != nil {
		return nil, pos, false, err
	}
	if !matched {
		return nil, pos, false, nil
	}
	n.index = index
	c.end = end
	sub, end, matched, err := parseSubExpression(src, c.end)
	if err != nil {
		return nil, pos, false, err
	}
	if matched {
		n.sub = sub
		c.end = end
	}
	n.span = c.span()
	return n, c.end, true, nil
}

func (n *subExpressionNode) resolve(current interface{}, top *Namespace, loader Loader) (interface{}, error) {
	if n.dotted != nil {
		return n.dotted.resolveAgainst(current, top, loader)
	}
	idx, err := n.index.calculate(top, loader)
	if err != nil {
		return nil, err
	}
	if _, isList := listItems(current); isList {
		if _, ok := asInt(idx); !ok {
			return nil, fmt.Errorf("expected integer for array index, got '%v'", idx)
		}
	}
	result := indexValue(current, idx)
	if n.sub != nil {
		return n.sub.resolve(result, top, loader)
	}
	return result, nil
}

// variableExpression is a full reference chain: a leading segment plus any
// continuation.
type variableExpressionNode struct {
	span
	part *nameOrCallNode
	sub  *subExpressionNode
}

func parseVariableExpression(src *source, pos int) (*variableExpressionNode, int, bool, error) {
	part, end, matched, err := parseNameOrCall(src, pos)
	if err != nil || !matched {
		return nil, pos, false, err
	}
	n := &variableExpressionNode{part: part}
	c := newCursor(src, pos, "variable expression")
	c.end = end
	sub, end, matched, err := parseSubExpression(src, c.end)
	if err != nil {
		return nil, pos, false, err
	}
	if matched {
		n.sub = sub
		c.end = end
	}
	n.span = c.span()
	return n, c.end, true, nil
}

func (n *variableExpressionNode) calculate(ns *Namespace, loader Loader) (interface{}, error) {
	return n.resolveAgainst(ns, ns, loader)
}

func (n *variableExpressionNode) resolveAgainst(current interface{}, top *Namespace, loader Loader) (interface{}, error) {
	value, err := n.part.resolve(current, top, loader)
	if err != nil {
		return nil, err
	}
	if n.sub != nil {
		return n.sub.resolve(value, top, loader)
	}
	return value, nil
}

type parameterListNode struct {
	span
	values []expr
}

func parseParameterList(src *source, pos int) (*parameterListNode, int, bool, error) {
	c := newCursor(src, pos, "parameter list")
	if !c.optionalMatch(paramListStartRE) {
		return nil, pos, false, nil
	}
	values, end, err := parseValueListInto(src, c.end, c)
	if err != nil {
		return nil, pos, false, err
	}
	c.end = end
	if _, err := c.requireMatch(paramListEndRE, ")"); err != nil {
		return nil, pos, false, err
	}
	n := &parameterListNode{span: c.span(), values: values}
	return n, c.end, true, nil
}

func (n *parameterListNode) calculateAll(ns *Namespace, loader Loader) ([]interface{}, error) {
	args := make([]interface{}, 0, len(n.values))
	for _, value := range n.values {
		val, err := value.calculate(ns, loader)
		if err != nil {
			return nil, err
		}
		args = append(args, val)
	}
	return args, nil
}

// parseValueListInto parses a comma separated value list (possibly empty);
// once a comma is seen the next value is required.
func parseValueListInto(src *source, pos int, c *cursor) ([]expr, int, error) {
	var values []expr
	value, end, matched, err := parseValue(src, pos)
	if err != nil {
		return nil, pos, err
	}
	if !matched {
		return nil, pos, nil
	}
	values = append(values, value)
	cur := end
	for {
		_, afterComma, ok := matchAt(valueCommaRE, src, cur)
		if !ok {
			break
		}
		value, end, matched, err := parseValue(src, afterComma)
		if err != nil {
			return nil, pos, err
		}
		if !matched {
			c.end = afterComma
			return nil, pos, c.syntaxError("value")
		}
		values = append(values, value)
		cur = end
	}
	return values, cur, nil
}

type arrayIndexNode struct {
	span
	index expr
}

func parseArrayIndex(src *source, pos int) (*arrayIndexNode, int, bool, error) {
	c := newCursor(src, pos, "array index")
	if !c.optionalMatch(arrayIndexOpenRE) {
		return nil, pos, false, nil
	}
	index, end, matched, err := parseIndexExpression(src, c.end)
	if err != nil {
		return nil, pos, false, err
	}
	if !matched {
		return nil, pos, false, c.syntaxError("integer index or object key")
	}
	c.end = end
	if _, err := c.requireMatch(arrayIndexEndRE, "]"); err != nil {
		return nil, pos, false, err
	}
	n := &arrayIndexNode{span: c.span(), index: index}
	return n, c.end, true, nil
}

// parseIndexExpression matches what may appear between brackets: a
// reference, an integer, an interpolated string or a parenthesized
// expression.
func parseIndexExpression(src *source, pos int) (expr, int, bool, error) {
	if n, end, matched, err := parseFormalReference(src, pos); err != nil || matched {
		return exprOrNil(n, err), end, matched, err
	}
	if n, end, matched, err := parseIntegerLiteral(src, pos); err != nil || matched {
		return exprOrNil(n, err), end, matched, err
	}
	if n, end, matched, err := parseInterpolatedStringLiteral(src, pos); err != nil || matched {
		return exprOrNil(n, err), end, matched, err
	}
	if n, end, matched, err := parseParenthesizedExpression(src, pos); err != nil || matched {
		return exprOrNil(n, err), end, matched, err
	}
	return nil, pos, false, nil
}

func exprOrNil(e expr, err error) expr {
	if err != nil {
		return nil
	}
	return e
}

func (n *arrayIndexNode) calculate(ns *Namespace, loader Loader) (interface{}, error) {
	return n.index.calculate(ns, loader)
}

// formalReference is $name, ${name}, $!name or ${name|alternate}.
type formalReferenceNode struct {
	span
	silent     bool
	expression *variableExpressionNode
	alternate  expr
}

func parseFormalReference(src *source, pos int) (*formalReferenceNode, int, bool, error) {
	c := newCursor(src, pos, "formal reference")
	groups, ok := c.identityMatch(formalRefRE)
	if !ok {
		return nil, pos, false, nil
	}
	n := &formalReferenceNode{silent: groups[0] == "!"}
	braces := groups[1] == "{"
	expression, end, matched, err := parseVariableExpression(src, c.end)
	if err != nil {
		return nil, pos, false, err
	}
	if matched {
		n.expression = expression
		c.end = end
	}
	if braces {
		if c.optionalMatch(alternateRE) {
			alternate, end, matched, err := parseValue(src, c.end)
			if err != nil {
				return nil, pos, false, err
			}
			if !matched {
				return nil, pos, false, c.syntaxError("expression")
			}
			n.alternate = alternate
			c.end = end
		}
		if _, err := c.requireMatch(closingBraceRE, "}"); err != nil {
			return nil, pos, false, err
		}
	}
	n.span = c.span()
	return n, c.end, true, nil
}

// calculate is used when the reference appears inside an expression; the
// silent flag and alternate value only apply when rendering.
func (n *formalReferenceNode) calculate(ns *Namespace, loader Loader) (interface{}, error) {
	if n.expression == nil {
		return nil, nil
	}
	return n.expression.calculate(ns, loader)
}

func (n *formalReferenceNode) evaluate(sink Sink, ns *Namespace, loader Loader) error {
	var value interface{}
	if n.expression != nil {
		var err error
		value, err = n.expression.calculate(ns, loader)
		if err != nil {
			return n.wrapExecErr(err)
		}
	}
	if value == nil {
		switch {
		case n.alternate != nil:
			var err error
			value, err = n.alternate.calculate(ns, loader)
			if err != nil {
				return n.wrapExecErr(err)
			}
		case n.silent && n.expression != nil:
			value = ""
		default:
			value = n.text()
		}
	}
	_, err := sink.WriteString(renderValue(value))
	return n.wrapExecErr(err)
}
