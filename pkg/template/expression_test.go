// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package template_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArithmetic(t *testing.T) {
	cases := []struct {
		expr     string
		expected string
	}{
		{"1 + 2", "3"},
		{"7 - 10", "-3"},
		{"6 * 7", "42"},
		{"true + 1", "2"},
		{"2 + 3 * 4", "14"},
		{"(2 + 3) * 4", "20"},
		{"10 - 3 - 4", "3"},
		{"100 / 50", "2"},
		{"5 / 2", "2"},
		{"-7 / 2", "-4"},
		{"-7 % 3", "2"},
		{"7 % -3", "-2"},
		{"100.0 / 50", "2.0"},
		{"7.0 / 2", "3.0"},
		{"0.1 + 0.2", "0.30000000000000004"},
		{"1.5 * 2", "3.0"},
		{"'a' + 'b'", "ab"},
	}
	for _, c := range cases {
		result := mergeTemplate(t, "#set($x = "+c.expr+")$x", nil)
		assert.Equal(t, c.expected, result, "expr: %s", c.expr)
	}
}

func TestArithmeticStringAndNumberFails(t *testing.T) {
	err := mergeError(t, "#set($x = 'x' + 1)", nil)
	assert.Contains(t, err.Error(), "unsupported operand types for +: string and int")

	err = mergeError(t, "#set($x = 2 * 'x')", nil)
	assert.Contains(t, err.Error(), "unsupported operand types for *: int and string")
}

func TestDivisionByZeroFails(t *testing.T) {
	err := mergeError(t, "#set($x = 1 / 0)", nil)
	assert.Contains(t, err.Error(), "integer division or modulo by zero")

	err = mergeError(t, "#set($x = 1.0 / 0)", nil)
	assert.Contains(t, err.Error(), "float floor division by zero")
}

func TestComparisons(t *testing.T) {
	cases := []struct {
		condition string
		expected  bool
	}{
		{"1 < 2", true},
		{"2 <= 2", true},
		{"3 > 4", false},
		{"2 >= 2.0", true},
		{"1 lt 2", true},
		{"2 le 2", true},
		{"3 gt 4", false},
		{"4 ge 5", false},
		{"'abc' < 'abd'", true},
		{"'b' gt 'a'", true},
	}
	for _, c := range cases {
		result := mergeTemplate(t, "#if("+c.condition+")y#{else}n#end", nil)
		expected := "n"
		if c.expected {
			expected = "y"
		}
		assert.Equal(t, expected, result, "condition: %s", c.condition)
	}
}

func TestComparisonOfMixedTypesFails(t *testing.T) {
	err := mergeError(t, "#if('a' < 1)x#end", nil)
	assert.Contains(t, err.Error(), "operator < not supported between string and int")
}

func TestEquality(t *testing.T) {
	cases := []struct {
		condition string
		expected  bool
	}{
		{"1 == 1", true},
		{"1 == 1.0", true},
		{"true == 1", true},
		{"1 eq 2", false},
		{"'a' == 'a'", true},
		{"1 == '1'", false},
		{"1 != 'x'", true},
		{"2 ne 2", false},
	}
	for _, c := range cases {
		result := mergeTemplate(t, "#if("+c.condition+")y#{else}n#end", nil)
		expected := "n"
		if c.expected {
			expected = "y"
		}
		assert.Equal(t, expected, result, "condition: %s", c.condition)
	}
}

func TestEqualityOfLists(t *testing.T) {
	context := map[string]interface{}{
		"a": []interface{}{1, 2},
		"b": []interface{}{1, 2},
	}
	assert.Equal(t, "same", mergeTemplate(t, "#if($a == $b)same#end", context))
}

func TestLogicalOperators(t *testing.T) {
	assert.Equal(t, "y", mergeTemplate(t, "#if(true && true)y#end", nil))
	assert.Equal(t, "", mergeTemplate(t, "#if(true && false)y#end", nil))
	assert.Equal(t, "y", mergeTemplate(t, "#if(false || true)y#end", nil))
	assert.Equal(t, "y", mergeTemplate(t, "#if(1 lt 2 and 3 gt 2)y#end", nil))
	assert.Equal(t, "y", mergeTemplate(t, "#if(false or true)y#end", nil))
}

func TestLogicalOperatorsDoNotShortCircuit(t *testing.T) {
	calls := 0
	context := map[string]interface{}{"f": func() bool { calls++; return true }}

	result := mergeTemplate(t, "#if(false && $f())x#{else}y#end", context)

	assert.Equal(t, "y", result)
	assert.Equal(t, 1, calls)
}

func TestUnaryNot(t *testing.T) {
	assert.Equal(t, "y", mergeTemplate(t, "#if(!false)y#end", nil))
	assert.Equal(t, "y", mergeTemplate(t, "#if(not false)y#end", nil))
	assert.Equal(t, "y", mergeTemplate(t, "#if(!$missing)y#end", nil))
	assert.Equal(t, "", mergeTemplate(t, "#if(!1)y#end", nil))
}

func TestTruthiness(t *testing.T) {
	cases := []struct {
		condition string
		expected  bool
	}{
		{"true", true},
		{"false", false},
		{"0", false},
		{"0.0", false},
		{"-1", true},
		{"''", false},
		{"'x'", true},
		{"[]", false},
		{"[1]", true},
		{"{}", false},
		{"{'k': 1}", true},
		{"$missing", false},
	}
	for _, c := range cases {
		result := mergeTemplate(t, "#if("+c.condition+")y#{else}n#end", nil)
		expected := "n"
		if c.expected {
			expected = "y"
		}
		assert.Equal(t, expected, result, "condition: %s", c.condition)
	}
}

type alwaysFalsy struct{}

func (alwaysFalsy) TruthValue() bool { return false }

func TestTruthinessOfHostValue(t *testing.T) {
	context := map[string]interface{}{"v": alwaysFalsy{}}
	assert.Equal(t, "n", mergeTemplate(t, "#if($v)y#{else}n#end", context))
}

func TestInterpolatedString(t *testing.T) {
	result := mergeTemplate(t, `#set($who = 'Bob')#set($msg = "Hi $who")$msg`, nil)
	assert.Equal(t, "Hi Bob", result)
}

func TestStringLiteralEscapes(t *testing.T) {
	assert.Equal(t, "a\tb", mergeTemplate(t, `#set($s = 'a\tb')$s`, nil))
	assert.Equal(t, "line1\nline2", mergeTemplate(t, `#set($s = 'line1\nline2')$s`, nil))
	assert.Equal(t, "it's", mergeTemplate(t, `#set($s = 'it\'s')$s`, nil))
}

func TestSingleQuotedStringIsNotInterpolated(t *testing.T) {
	context := map[string]interface{}{"who": "Bob"}
	assert.Equal(t, "Hi $who", mergeTemplate(t, "#set($s = 'Hi $who')$s", context))
}

func TestRangeLiteral(t *testing.T) {
	assert.Equal(t, "[1, 2, 3]", mergeTemplate(t, "#set($r = [1..3])$r", nil))
	assert.Equal(t, "[3, 2, 1]", mergeTemplate(t, "#set($r = [3..1])$r", nil))
	assert.Equal(t, "[2]", mergeTemplate(t, "#set($r = [2..2])$r", nil))

	context := map[string]interface{}{"n": 3}
	assert.Equal(t, "[1, 2, 3]", mergeTemplate(t, "#set($r = [1..$n])$r", context))
}

func TestRangeEndpointsMustBeIntegers(t *testing.T) {
	context := map[string]interface{}{"n": "x"}
	err := mergeError(t, "#set($r = [1..$n])", context)
	assert.Contains(t, err.Error(), "range endpoints must be integers")
}

func TestValueRendering(t *testing.T) {
	cases := []struct {
		tpl      string
		expected string
	}{
		{"#set($x = true)$x", "true"},
		{"#set($x = 2.0)$x", "2.0"},
		{"#set($x = ['a', 1, true])$x", `["a", 1, true]`},
		{"#set($x = {'k': 'v', 'n': 1})$x", `{"k": "v", "n": 1}`},
	}
	for _, c := range cases {
		assert.Equal(t, c.expected, mergeTemplate(t, c.tpl, nil), "template: %s", c.tpl)
	}
}

func TestNativeMapRendersSorted(t *testing.T) {
	context := map[string]interface{}{"m": map[string]interface{}{"b": 1, "a": 2}}
	assert.Equal(t, `{"a": 2, "b": 1}`, mergeTemplate(t, "$m", context))
}
