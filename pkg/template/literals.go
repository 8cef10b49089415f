// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"velo.dev/velo/pkg/orderedmap"
)

var (
	integerRE = regexp.MustCompile(`\A(-?\d+)`)
	floatRE   = regexp.MustCompile(`\A(-?\d+\.\d+)`)
	booleanRE = regexp.MustCompile(`(?i)\A((?:true)|(?:false))`)

	// escapes allowed inside literals: \n \r \b \t, the quote itself, \\
	// and \$ (which stays escaped for interpolation to unescape later)
	singleQuotedRE  = regexp.MustCompile(`(?s)\A'((?:\\['nrbt\\$]|[^'\\])*)'`)
	singleEscapeRE  = regexp.MustCompile(`\\([nrbt'\\])`)
	doubleQuotedRE  = regexp.MustCompile(`(?s)\A"((?:\\["nrbt\\$]|[^"\\])*)"`)
	doubleEscapeRE  = regexp.MustCompile(`\\([nrbt"\\])`)
	rangeMiddleRE   = regexp.MustCompile(`\A[ \t]*\.\.[ \t]*`)
	arrayOpenRE     = regexp.MustCompile(`\A\[[ \t]*`)
	arrayCloseRE    = regexp.MustCompile(`\A[ \t]*\]`)
	dictOpenRE      = regexp.MustCompile(`\A{[ \t]*`)
	dictCloseRE     = regexp.MustCompile(`\A[ \t]*}`)
	dictKeyValSepRE = regexp.MustCompile(`\A[ \t]*:[ \t]*`)
	dictPairSepRE   = regexp.MustCompile(`\A[ \t]*,[ \t]*`)
)

type integerLiteralNode struct {
	span
	value int64
}

func parseIntegerLiteral(src *source, pos int) (*integerLiteralNode, int, bool, error) {
	c := newCursor(src, pos, "integer literal")
	groups, ok := c.identityMatch(integerRE)
	if !ok {
		return nil, pos, false, nil
	}
	value, err := strconv.ParseInt(groups[0], 10, 64)
	if err != nil {
		return nil, pos, false, nil
	}
	return &integerLiteralNode{span: c.span(), value: value}, c.end, true, nil
}

func (n *integerLiteralNode) calculate(_ *Namespace, _ Loader) (interface{}, error) {
	return n.value, nil
}

type floatLiteralNode struct {
	span
	value float64
}

func parseFloatLiteral(src *source, pos int) (*floatLiteralNode, int, bool, error) {
	c := newCursor(src, pos, "floating point literal")
	groups, ok := c.identityMatch(floatRE)
	if !ok {
		return nil, pos, false, nil
	}
	value, err := strconv.ParseFloat(groups[0], 64)
	if err != nil {
		return nil, pos, false, nil
	}
	return &floatLiteralNode{span: c.span(), value: value}, c.end, true, nil
}

func (n *floatLiteralNode) calculate(_ *Namespace, _ Loader) (interface{}, error) {
	return n.value, nil
}

type booleanLiteralNode struct {
	span
	value bool
}

func parseBooleanLiteral(src *source, pos int) (*booleanLiteralNode, int, bool, error) {
	c := newCursor(src, pos, "boolean literal")
	groups, ok := c.identityMatch(booleanRE)
	if !ok {
		return nil, pos, false, nil
	}
	value := strings.EqualFold(groups[0], "true")
	return &booleanLiteralNode{span: c.span(), value: value}, c.end, true, nil
}

func (n *booleanLiteralNode) calculate(_ *Namespace, _ Loader) (interface{}, error) {
	return n.value, nil
}

type stringLiteralNode struct {
	span
	value string
}

func parseStringLiteral(src *source, pos int) (*stringLiteralNode, int, bool, error) {
	c := newCursor(src, pos, "string literal")
	groups, ok := c.identityMatch(singleQuotedRE)
	if !ok {
		return nil, pos, false, nil
	}
	value := unescapeLiteral(singleEscapeRE, groups[0])
	return &stringLiteralNode{span: c.span(), value: value}, c.end, true, nil
}

func (n *stringLiteralNode) calculate(_ *Namespace, _ Loader) (interface{}, error) {
	return n.value, nil
}

func unescapeLiteral(escapeRE *regexp.Regexp, value string) string {
	return escapeRE.ReplaceAllStringFunc(value, func(match string) string {
		switch match[1] {
		case 'n':
			return "\n"
		case 'r':
			return "\r"
		case 'b':
			return "\b"
		case 't':
			return "\t"
		}
		return string(match[1])
	})
}

// interpolatedStringLiteral is a double-quoted string whose contents are
// themselves a template block, evaluated lazily against the expression's
// namespace.
type interpolatedStringLiteralNode struct {
	span
	block *blockNode
}

func parseInterpolatedStringLiteral(src *source, pos int) (*interpolatedStringLiteralNode, int, bool, error) {
	c := newCursor(src, pos, "interpolated string literal")
	groups, ok := c.identityMatch(doubleQuotedRE)
	if !ok {
		return nil, pos, false, nil
	}
	value := unescapeLiteral(doubleEscapeRE, groups[0])
	inner := &source{name: src.name, text: value}
	block, _, err := parseBlock(inner, 0)
	if err != nil {
		return nil, pos, false, err
	}
	return &interpolatedStringLiteralNode{span: c.span(), block: block}, c.end, true, nil
}

func (n *interpolatedStringLiteralNode) calculate(ns *Namespace, loader Loader) (interface{}, error) {
	capture := NewStoppableSink()
	if err := n.block.evaluate(capture, ns, loader); err != nil {
		return nil, err
	}
	return capture.String(), nil
}

// rangeNode is [a..b]; both endpoints inclusive, descending when b < a.
type rangeNode struct {
	span
	from expr
	to   expr
}

func parseRange(src *source, pos int) (*rangeNode, int, bool, error) {
	c := newCursor(src, pos, "range")
	from, end, matched, err := parseRangeEndpoint(src, pos)
	if err != nil || !matched {
		return nil, pos, false, err
	}
	c.end = end
	if !c.optionalMatch(rangeMiddleRE) {
		return nil, pos, false, nil
	}
	to, end, matched, err := parseRangeEndpoint(src, c.end)
	if err != nil || !matched {
		return nil, pos, false, err
	}
	c.end = end
	return &rangeNode{span: c.span(), from: from, to: to}, c.end, true, nil
}

func parseRangeEndpoint(src *source, pos int) (expr, int, bool, error) {
	if n, end, matched, err := parseFormalReference(src, pos); err != nil || matched {
		return exprOrNil(n, err), end, matched, err
	}
	if n, end, matched, err := parseIntegerLiteral(src, pos); err != nil || matched {
		return exprOrNil(n, err), end, matched, err
	}
	return nil, pos, false, nil
}

func (n *rangeNode) calculate(ns *Namespace, loader Loader) (interface{}, error) {
	fromVal, err := n.from.calculate(ns, loader)
	if err != nil {
		return nil, err
	}
	toVal, err := n.to.calculate(ns, loader)
	if err != nil {
		return nil, err
	}
	from, ok := asInt(fromVal)
	if !ok {
		return nil, fmt.Errorf("range endpoints must be integers, got '%v'", fromVal)
	}
	to, ok := asInt(toVal)
	if !ok {
		return nil, fmt.Errorf("range endpoints must be integers, got '%v'", toVal)
	}
	list := NewList()
	if to < from {
		for i := from; i >= to; i-- {
			list.Items = append(list.Items, i)
		}
	} else {
		for i := from; i <= to; i++ {
			list.Items = append(list.Items, i)
		}
	}
	return list, nil
}

// arrayLiteralNode is [...]: either a range or a comma separated value list.
type arrayLiteralNode struct {
	span
	rng    *rangeNode
	values []expr
}

func parseArrayLiteral(src *source, pos int) (*arrayLiteralNode, int, bool, error) {
	c := newCursor(src, pos, "array literal")
	if !c.optionalMatch(arrayOpenRE) {
		return nil, pos, false, nil
	}
	n := &arrayLiteralNode{}
	rng, end, matched, err := parseRange(src, c.end)
	if err != nil {
		return nil, pos, false, err
	}
	if matched {
		n.rng = rng
		c.end = end
	} else {
		values, end, err := parseValueListInto(src, c.end, c)
		if err != nil {
			return nil, pos, false, err
		}
		n.values = values
		c.end = end
	}
	if _, err := c.requireMatch(arrayCloseRE, "]"); err != nil {
		return nil, pos, false, err
	}
	n.span = c.span()
	return n, c.end, true, nil
}

func (n *arrayLiteralNode) calculate(ns *Namespace, loader Loader) (interface{}, error) {
	if n.rng != nil {
		return n.rng.calculate(ns, loader)
	}
	list := NewList()
	for _, value := range n.values {
		val, err := value.calculate(ns, loader)
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, val)
	}
	return list, nil
}

// dictLiteralNode is {...}; pairs keep their written order, and both keys
// and values stay unevaluated until the literal itself is.
type dictLiteralNode struct {
	span
	keys   []expr
	values []expr
}

func parseDictLiteral(src *source, pos int) (*dictLiteralNode, int, bool, error) {
	c := newCursor(src, pos, "dictionary literal")
	if !c.optionalMatch(dictOpenRE) {
		return nil, pos, false, nil
	}
	n := &dictLiteralNode{}
	if c.optionalMatch(dictCloseRE) {
		n.span = c.span()
		return n, c.end, true, nil
	}
	for {
		key, end, matched, err := parseValue(src, c.end)
		if err != nil {
			return nil, pos, false, err
		}
		if !matched {
			return nil, pos, false, nil
		}
		c.end = end
		if _, err := c.requireMatch(dictKeyValSepRE, ":"); err != nil {
			return nil, pos, false, err
		}
		value, end, matched, err := parseValue(src, c.end)
		if err != nil {
			return nil, pos, false, err
		}
		if !matched {
			return nil, pos, false, nil
		}
		c.end = end
		n.keys = append(n.keys, key)
		n.values = append(n.values, value)
		if !c.optionalMatch(dictPairSepRE) {
			break
		}
	}
	if _, err := c.requireMatch(dictCloseRE, "}"); err != nil {
		return nil, pos, false, err
	}
	n.span = c.span()
	return n, c.end, true, nil
}

func (n *dictLiteralNode) calculate(ns *Namespace, loader Loader) (interface{}, error) {
	result := orderedmap.NewMap()
	for i := range n.keys {
		key, err := n.keys[i].calculate(ns, loader)
		if err != nil {
			return nil, err
		}
		value, err := n.values[i].calculate(ns, loader)
		if err != nil {
			return nil, err
		}
		result.Set(key, value)
	}
	return result, nil
}

// parseValue matches any single value expression; alternation order matters
// (floats before integers, unary before booleans).
func parseValue(src *source, pos int) (expr, int, bool, error) {
	if n, end, matched, err := parseFormalReference(src, pos); err != nil || matched {
		return exprOrNil(n, err), end, matched, err
	}
	if n, end, matched, err := parseFloatLiteral(src, pos); err != nil || matched {
		return exprOrNil(n, err), end, matched, err
	}
	if n, end, matched, err := parseIntegerLiteral(src, pos); err != nil || matched {
		return exprOrNil(n, err), end, matched, err
	}
	if n, end, matched, err := parseStringLiteral(src, pos); err != nil || matched {
		return exprOrNil(n, err), end, matched, err
	}
	if n, end, matched, err := parseInterpolatedStringLiteral(src, pos); err != nil || matched {
		return exprOrNil(n, err), end, matched, err
	}
	if n, end, matched, err := parseArrayLiteral(src, pos); err != nil || matched {
		return exprOrNil(n, err), end, matched, err
	}
	if n, end, matched, err := parseDictLiteral(src, pos); err != nil || matched {
		return exprOrNil(n, err), end, matched, err
	}
	if n, end, matched, err := parseParenthesizedExpression(src, pos); err != nil || matched {
		return exprOrNil(n, err), end, matched, err
	}
	if n, end, matched, err := parseUnaryOperatorValue(src, pos); err != nil || matched {
		return exprOrNil(n, err), end, matched, err
	}
	if n, end, matched, err := parseBooleanLiteral(src, pos); err != nil || matched {
		return exprOrNil(n, err), end, matched, err
	}
	return nil, pos, false, nil
}
