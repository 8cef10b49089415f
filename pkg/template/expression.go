// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"fmt"
	"math"
	"regexp"
)

var (
	// alternation order matters: longer operators listed before their
	// prefixes so >= wins over >
	binaryOpRE = regexp.MustCompile(
		`\A\s*(>=|<=|<|==|!=|>|%|\|\||&&|or|and|\+|\-|\*|\/|gt|lt|ne|eq|ge|le)\s*`)
	unaryOpRE     = regexp.MustCompile(`\A\s*(!|(?:not))\s*`)
	parenOpenRE   = regexp.MustCompile(`\A\(\s*`)
	parenCloseRE  = regexp.MustCompile(`\A\s*\)`)
	wsToEndOfLine = regexp.MustCompile(`\A[ \t\r]*\n`)
)

// precedence per operator; lower binds tighter. Word forms alias the
// symbolic ones.
var binaryOpPrecedence = map[string]int{
	"*": 4, "/": 4, "%": 4,
	"+": 5, "-": 5,
	">": 7, "gt": 7, ">=": 7, "ge": 7, "<": 7, "lt": 7, "<=": 7, "le": 7,
	"==": 8, "eq": 8,
	"!=": 9, "ne": 9,
	"&&": 12, "and": 12,
	"||": 13, "or": 13,
}

var binaryOpCanonical = map[string]string{
	"gt": ">", "ge": ">=", "lt": "<", "le": "<=",
	"eq": "==", "ne": "!=", "and": "&&", "or": "||",
}

type binaryOperator struct {
	span
	symbol     string
	precedence int
}

func parseBinaryOperator(src *source, pos int) (*binaryOperator, int, bool) {
	c := newCursor(src, pos, "binary operator")
	groups, ok := c.identityMatch(binaryOpRE)
	if !ok {
		return nil, pos, false
	}
	symbol := groups[0]
	if canonical, found := binaryOpCanonical[symbol]; found {
		symbol = canonical
	}
	return &binaryOperator{span: c.span(), symbol: symbol, precedence: binaryOpPrecedence[groups[0]]}, c.end, true
}

// tighterThan reports strictly tighter binding; equal precedence must
// reduce first so evaluation stays left-to-right.
func (op *binaryOperator) tighterThan(other *binaryOperator) bool {
	return op.precedence < other.precedence
}

func (op *binaryOperator) apply(a, b interface{}) (interface{}, error) {
	switch op.symbol {
	case "+", "-", "*", "/", "%":
		return applyArithmetic(op.symbol, a, b)
	case ">", ">=", "<", "<=":
		return applyComparison(op.symbol, a, b)
	case "==":
		return valuesEqual(a, b), nil
	case "!=":
		return !valuesEqual(a, b), nil
	case "&&":
		return truth(a) && truth(b), nil
	case "||":
		return truth(a) || truth(b), nil
	}
	return nil, fmt.Errorf("unknown operator %s", op.symbol)
}

// applyArithmetic implements numeric operators: + concatenates two strings
// but mixing a string with a number is an error; / is floor division and %
// takes the sign of the divisor; any float operand promotes the result.
func applyArithmetic(symbol string, a, b interface{}) (interface{}, error) {
	if isString(a) || isString(b) {
		if symbol == "+" && isString(a) && isString(b) {
			return a.(string) + b.(string), nil
		}
		return nil, fmt.Errorf("unsupported operand types for %s: %s and %s", symbol, typeName(a), typeName(b))
	}
	if isFloat(a) || isFloat(b) {
		af, aok := asFloat(a)
		bf, bok := asFloat(b)
		if !aok || !bok {
			return nil, fmt.Errorf("unsupported operand types for %s: %s and %s", symbol, typeName(a), typeName(b))
		}
		return applyFloatArithmetic(symbol, af, bf)
	}
	ai, aok := asInt(a)
	bi, bok := asInt(b)
	if !aok || !bok {
		return nil, fmt.Errorf("unsupported operand types for %s: %s and %s", symbol, typeName(a), typeName(b))
	}
	switch symbol {
	case "+":
		return ai + bi, nil
	case "-":
		return ai - bi, nil
	case "*":
		return ai * bi, nil
	case "/":
		if bi == 0 {
			return nil, fmt.Errorf("integer division or modulo by zero")
		}
		return floorDiv(ai, bi), nil
	case "%":
		if bi == 0 {
			return nil, fmt.Errorf("integer division or modulo by zero")
		}
		return floorMod(ai, bi), nil
	}
	return nil, fmt.Errorf("unknown operator %s", symbol)
}

func applyFloatArithmetic(symbol string, a, b float64) (interface{}, error) {
	switch symbol {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return nil, fmt.Errorf("float floor division by zero")
		}
		return math.Floor(a / b), nil
	case "%":
		if b == 0 {
			return nil, fmt.Errorf("float modulo by zero")
		}
		result := math.Mod(a, b)
		if result != 0 && (result < 0) != (b < 0) {
			result += b
		}
		return result, nil
	}
	return nil, fmt.Errorf("unknown operator %s", symbol)
}

// floorDiv rounds the quotient toward negative infinity.
func floorDiv(a, b int64) int64 {
	quotient := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		quotient--
	}
	return quotient
}

// floorMod yields a remainder with the sign of the divisor.
func floorMod(a, b int64) int64 {
	remainder := a % b
	if remainder != 0 && (remainder < 0) != (b < 0) {
		remainder += b
	}
	return remainder
}

// applyComparison orders two numbers or two strings; any other pairing is
// an error.
func applyComparison(symbol string, a, b interface{}) (interface{}, error) {
	var cmp int
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		if !bok {
			return nil, fmt.Errorf("operator %s not supported between %s and %s", symbol, typeName(a), typeName(b))
		}
		switch {
		case af < bf:
			cmp = -1
		case af > bf:
			cmp = 1
		}
	} else if as, aok := a.(string); aok {
		bs, bok := b.(string)
		if !bok {
			return nil, fmt.Errorf("operator %s not supported between %s and %s", symbol, typeName(a), typeName(b))
		}
		switch {
		case as < bs:
			cmp = -1
		case as > bs:
			cmp = 1
		}
	} else {
		return nil, fmt.Errorf("operator %s not supported between %s and %s", symbol, typeName(a), typeName(b))
	}
	switch symbol {
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	}
	return nil, fmt.Errorf("unknown operator %s", symbol)
}

type unaryOperatorValueNode struct {
	span
	value expr
}

func parseUnaryOperatorValue(src *source, pos int) (*unaryOperatorValueNode, int, bool, error) {
	c := newCursor(src, pos, "unary operator value")
	if _, ok := c.identityMatch(unaryOpRE); !ok {
		return nil, pos, false, nil
	}
	value, end, matched, err := parseValue(src, c.end)
	if err != nil || !matched {
		return nil, pos, false, err
	}
	c.end = end
	return &unaryOperatorValueNode{span: c.span(), value: value}, c.end, true, nil
}

func (n *unaryOperatorValueNode) calculate(ns *Namespace, loader Loader) (interface{}, error) {
	val, err := n.value.calculate(ns, loader)
	if err != nil {
		return nil, err
	}
	return !truth(val), nil
}

// expressionNode is a flat run of values joined by binary operators,
// evaluated with a value/operator stack pair driven by precedence.
type expressionNode struct {
	span
	operands  []expr
	operators []*binaryOperator
}

func parseExpression(src *source, pos int) (*expressionNode, int, bool, error) {
	c := newCursor(src, pos, "expression")
	first, end, matched, err := parseValue(src, pos)
	if err != nil || !matched {
		return nil, pos, false, err
	}
	n := &expressionNode{operands: []expr{first}}
	c.end = end
	for {
		op, end, matched := parseBinaryOperator(src, c.end)
		if !matched {
			break
		}
		value, valueEnd, valueMatched, err := parseValue(src, end)
		if err != nil {
			return nil, pos, false, err
		}
		if !valueMatched {
			c.end = end
			return nil, pos, false, c.syntaxError("value")
		}
		n.operators = append(n.operators, op)
		n.operands = append(n.operands, value)
		c.end = valueEnd
	}
	n.span = c.span()
	return n, c.end, true, nil
}

// pendingOperand delays evaluation of an operand until an operator consumes
// it. This deliberately means && and || do not short-circuit, and operands
// may evaluate out of textual order.
type pendingOperand struct {
	e expr
}

func (n *expressionNode) calculate(ns *Namespace, loader Loader) (interface{}, error) {
	resolve := func(v interface{}) (interface{}, error) {
		if p, ok := v.(*pendingOperand); ok {
			return p.e.calculate(ns, loader)
		}
		return v, nil
	}

	valueStack := []interface{}{&pendingOperand{n.operands[0]}}
	var opStack []*binaryOperator

	reduce := func() error {
		op := opStack[len(opStack)-1]
		opStack = opStack[:len(opStack)-1]
		right, err := resolve(valueStack[len(valueStack)-1])
		if err != nil {
			return err
		}
		left, err := resolve(valueStack[len(valueStack)-2])
		if err != nil {
			return err
		}
		valueStack = valueStack[:len(valueStack)-2]
		result, err := op.apply(left, right)
		if err != nil {
			return err
		}
		valueStack = append(valueStack, result)
		return nil
	}

	for i, op := range n.operators {
		for len(opStack) > 0 && !op.tighterThan(opStack[len(opStack)-1]) {
			if err := reduce(); err != nil {
				return nil, err
			}
		}
		opStack = append(opStack, op)
		valueStack = append(valueStack, &pendingOperand{n.operands[i+1]})
	}
	for len(opStack) > 0 {
		if err := reduce(); err != nil {
			return nil, err
		}
	}
	return resolve(valueStack[0])
}

type parenthesizedExpressionNode struct {
	span
	expression *expressionNode
}

func parseParenthesizedExpression(src *source, pos int) (*parenthesizedExpressionNode, int, bool, error) {
	c := newCursor(src, pos, "parenthesized expression")
	if !c.optionalMatch(parenOpenRE) {
		return nil, pos, false, nil
	}
	expression, end, matched, err := parseExpression(src, c.end)
	if err != nil || !matched {
		return nil, pos, false, err
	}
	c.end = end
	if _, err := c.requireMatch(parenCloseRE, ")"); err != nil {
		return nil, pos, false, err
	}
	return &parenthesizedExpressionNode{span: c.span(), expression: expression}, c.end, true, nil
}

func (n *parenthesizedExpressionNode) calculate(ns *Namespace, loader Loader) (interface{}, error) {
	return n.expression.calculate(ns, loader)
}

// conditionNode is a directive's parenthesized condition; a newline right
// after the closing paren is swallowed.
type conditionNode struct {
	span
	expression *parenthesizedExpressionNode
}

func parseCondition(src *source, pos int) (*conditionNode, int, bool, error) {
	c := newCursor(src, pos, "condition")
	expression, end, matched, err := parseParenthesizedExpression(src, pos)
	if err != nil || !matched {
		return nil, pos, false, err
	}
	c.end = end
	c.optionalMatch(wsToEndOfLine)
	return &conditionNode{span: c.span(), expression: expression}, c.end, true, nil
}

func (n *conditionNode) calculate(ns *Namespace, loader Loader) (interface{}, error) {
	return n.expression.calculate(ns, loader)
}
