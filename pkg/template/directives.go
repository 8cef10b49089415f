// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

var (
	ifStartRE      = regexp.MustCompile(`(?is)\A#if\b\s*`)
	elseifStartRE  = regexp.MustCompile(`(?is)\A#elseif\b\s*`)
	elseStartRE    = regexp.MustCompile(`(?is)\A#(?:else|\{else\})`)
	endRE          = regexp.MustCompile(`(?is)\A#(?:end|\{end\})`)
	setStartRE     = regexp.MustCompile(`(?is)\A#set\b`)
	assignStartRE  = regexp.MustCompile(`(?is)\A\s*\(\s*\$([a-z_][a-z0-9_]*(?:\.[a-z_][a-z0-9_]*)*)\s*=\s*`)
	assignEndRE    = regexp.MustCompile(`(?s)\A\s*\)(?:[ \t]*\r?\n)?`)
	foreachStartRE = regexp.MustCompile(`(?is)\A#foreach\b`)
	openParenRE    = regexp.MustCompile(`(?s)\A[ \t]*\(\s*`)
	closeParenRE   = regexp.MustCompile(`(?s)\A[ \t]*\)`)
	foreachInRE    = regexp.MustCompile(`(?s)\A[ \t]+in[ \t]+`)
	loopVarRE      = regexp.MustCompile(`(?i)\A\$([a-z_][a-z0-9_]*)`)
	includeStartRE = regexp.MustCompile(`(?is)\A#include\b`)
	parseStartRE   = regexp.MustCompile(`(?is)\A#parse\b`)
	stopRE         = regexp.MustCompile(`(?is)\A#stop\b`)
	// #evaluate is case-sensitive, unlike the other directives
	evaluateStartRE = regexp.MustCompile(`\A#evaluate\b`)
	macroStartRE    = regexp.MustCompile(`(?is)\A#macro\b`)
	macroNameRE     = regexp.MustCompile(`(?is)\A\s*([a-z][a-z_0-9]*)\b`)
	defineStartRE   = regexp.MustCompile(`(?is)\A#define\b`)
	defineNameRE    = regexp.MustCompile(`(?is)\A\s*\$([a-z][a-z_0-9]*)\b`)
	argNameRE       = regexp.MustCompile(`(?is)\A[, \t]+\$([a-z][a-z_0-9]*)`)
	macroCallRE     = regexp.MustCompile(`(?is)\A#([a-z][a-z_0-9]*)\b`)
	spaceOrCommaRE  = regexp.MustCompile(`(?s)\A\s*(?:,|\s)\s*`)
)

// reservedDirectiveNames may not be used as macro names, and a #name matching
// one never parses as a macro call.
var reservedDirectiveNames = []string{
	"if", "else", "elseif", "set", "macro", "foreach",
	"parse", "include", "stop", "end", "define",
}

func isReservedDirectiveName(name string) bool {
	for _, reserved := range reservedDirectiveNames {
		if name == reserved {
			return true
		}
	}
	return false
}

// parseEnd matches #end or #{end} plus an optional trailing newline.
func parseEnd(src *source, pos int) (int, bool) {
	c := newCursor(src, pos, "end")
	if _, ok := c.identityMatch(endRE); !ok {
		return pos, false
	}
	c.optionalMatch(wsToEndOfLine)
	return c.end, true
}

type elseifBlock struct {
	condition *conditionNode
	block     *blockNode
}

type ifDirectiveNode struct {
	span
	condition *conditionNode
	block     *blockNode
	elseifs   []*elseifBlock
	elseBlock *blockNode
}

func parseIfDirective(src *source, pos int) (*ifDirectiveNode, int, bool, error) {
	c := newCursor(src, pos, "if directive")
	if _, ok := c.identityMatch(ifStartRE); !ok {
		return nil, pos, false, nil
	}
	condition, end, matched, err := parseCondition(src, c.end)
	if err != nil || !matched {
		return nil, pos, false, err
	}
	n := &ifDirectiveNode{condition: condition}
	c.end = end
	block, end, err := parseBlock(src, c.end)
	if err != nil {
		return nil, pos, false, err
	}
	n.block = block
	c.end = end
	for {
		elseif, end, matched, err := parseElseifBlock(src, c.end)
		if err != nil {
			return nil, pos, false, err
		}
		if !matched {
			break
		}
		n.elseifs = append(n.elseifs, elseif)
		c.end = end
	}
	elseBlock, end, matched, err := parseElseBlock(src, c.end)
	if err != nil {
		return nil, pos, false, err
	}
	if matched {
		n.elseBlock = elseBlock
		c.end = end
	}
	end, matched = parseEnd(src, c.end)
	if !matched {
		return nil, pos, false, c.syntaxError("#else, #elseif or #end")
	}
	c.end = end
	n.span = c.span()
	return n, c.end, true, nil
}

func parseElseifBlock(src *source, pos int) (*elseifBlock, int, bool, error) {
	c := newCursor(src, pos, "elseif block")
	if _, ok := c.identityMatch(elseifStartRE); !ok {
		return nil, pos, false, nil
	}
	condition, end, matched, err := parseCondition(src, c.end)
	if err != nil {
		return nil, pos, false, err
	}
	if !matched {
		return nil, pos, false, c.syntaxError("condition")
	}
	c.end = end
	block, end, err := parseBlock(src, c.end)
	if err != nil {
		return nil, pos, false, err
	}
	c.end = end
	return &elseifBlock{condition: condition, block: block}, c.end, true, nil
}

func parseElseBlock(src *source, pos int) (*blockNode, int, bool, error) {
	c := newCursor(src, pos, "else block")
	if _, ok := c.identityMatch(elseStartRE); !ok {
		return nil, pos, false, nil
	}
	block, end, err := parseBlock(src, c.end)
	if err != nil {
		return nil, pos, false, err
	}
	return block, end, true, nil
}

func (n *ifDirectiveNode) evaluate(sink Sink, ns *Namespace, loader Loader) error {
	return n.wrapExecErr(n.evaluateRaw(sink, ns, loader))
}

func (n *ifDirectiveNode) evaluateRaw(sink Sink, ns *Namespace, loader Loader) error {
	val, err := n.condition.calculate(ns, loader)
	if err != nil {
		return err
	}
	if truth(val) {
		return n.block.evaluate(sink, ns, loader)
	}
	for _, elseif := range n.elseifs {
		val, err := elseif.condition.calculate(ns, loader)
		if err != nil {
			return err
		}
		if truth(val) {
			return elseif.block.evaluate(sink, ns, loader)
		}
	}
	if n.elseBlock != nil {
		return n.elseBlock.evaluate(sink, ns, loader)
	}
	return nil
}

// assignmentNode is ($path = expression). A bare name writes through the
// scope chain; a dotted path resolves all but the last segment and performs
// a container write.
type assignmentNode struct {
	span
	terms []string
	value *expressionNode
}

func parseAssignment(src *source, pos int) (*assignmentNode, int, bool, error) {
	c := newCursor(src, pos, "assignment")
	groups, ok := c.identityMatch(assignStartRE)
	if !ok {
		return nil, pos, false, nil
	}
	n := &assignmentNode{terms: strings.Split(groups[0], ".")}
	value, end, matched, err := parseExpression(src, c.end)
	if err != nil {
		return nil, pos, false, err
	}
	if !matched {
		return nil, pos, false, c.syntaxError("expression")
	}
	n.value = value
	c.end = end
	if _, err := c.requireMatch(assignEndRE, ")"); err != nil {
		return nil, pos, false, err
	}
	n.span = c.span()
	return n, c.end, true, nil
}

func (n *assignmentNode) evaluate(_ Sink, ns *Namespace, loader Loader) error {
	return n.wrapExecErr(n.evaluateRaw(ns, loader))
}

func (n *assignmentNode) evaluateRaw(ns *Namespace, loader Loader) error {
	val, err := n.value.calculate(ns, loader)
	if err != nil {
		return err
	}
	if len(n.terms) == 1 {
		ns.SetInherited(n.terms[0], val)
		return nil
	}
	current := interface{}(ns)
	for _, term := range n.terms[:len(n.terms)-1] {
		next := lookupKeyOn(current, term)
		if next == nil {
			return fmt.Errorf("'%s' is not defined", term)
		}
		current = next
	}
	return setMapValue(current, n.terms[len(n.terms)-1], val)
}

type setDirectiveNode struct {
	span
	assignment *assignmentNode
}

func parseSetDirective(src *source, pos int) (*setDirectiveNode, int, bool, error) {
	c := newCursor(src, pos, "set directive")
	if _, ok := c.identityMatch(setStartRE); !ok {
		return nil, pos, false, nil
	}
	assignment, end, matched, err := parseAssignment(src, c.end)
	if err != nil {
		return nil, pos, false, err
	}
	if !matched {
		return nil, pos, false, c.syntaxError("assignment")
	}
	c.end = end
	return &setDirectiveNode{span: c.span(), assignment: assignment}, c.end, true, nil
}

func (n *setDirectiveNode) evaluate(sink Sink, ns *Namespace, loader Loader) error {
	return n.assignment.evaluate(sink, ns, loader)
}

type foreachDirectiveNode struct {
	span
	loopVar string
	value   expr
	block   *blockNode
}

func parseForeachDirective(src *source, pos int) (*foreachDirectiveNode, int, bool, error) {
	c := newCursor(src, pos, "foreach directive")
	if _, ok := c.identityMatch(foreachStartRE); !ok {
		return nil, pos, false, nil
	}
	if _, err := c.requireMatch(openParenRE, "("); err != nil {
		return nil, pos, false, err
	}
	groups, err := c.requireMatch(loopVarRE, "loop var name")
	if err != nil {
		return nil, pos, false, err
	}
	n := &foreachDirectiveNode{loopVar: groups[0]}
	if _, err := c.requireMatch(foreachInRE, "in"); err != nil {
		return nil, pos, false, err
	}
	value, end, matched, err := parseValue(src, c.end)
	if err != nil || !matched {
		return nil, pos, false, err
	}
	n.value = value
	c.end = end
	if _, err := c.requireMatch(closeParenRE, ")"); err != nil {
		return nil, pos, false, err
	}
	block, end, err := parseBlock(src, c.end)
	if err != nil {
		return nil, pos, false, err
	}
	n.block = block
	c.end = end
	end, matched = parseEnd(src, c.end)
	if !matched {
		return nil, pos, false, c.syntaxError("#end")
	}
	c.end = end
	n.span = c.span()
	return n, c.end, true, nil
}

func (n *foreachDirectiveNode) evaluate(sink Sink, ns *Namespace, loader Loader) error {
	return n.wrapExecErr(n.evaluateRaw(sink, ns, loader))
}

func (n *foreachDirectiveNode) evaluateRaw(sink Sink, ns *Namespace, loader Loader) error {
	iterable, err := n.value.calculate(ns, loader)
	if err != nil {
		return err
	}
	if iterable == nil {
		return nil
	}
	items, err := n.iterationItems(iterable)
	if err != nil {
		return err
	}
	length := len(items)
	for i, item := range items {
		counter := i + 1
		local := NewNamespace(ns)
		local.SetLocal("velocityCount", counter)
		local.SetLocal("velocityHasNext", counter < length)
		local.SetLocal("foreach", map[string]interface{}{
			"count":   counter,
			"index":   counter - 1,
			"hasNext": counter < length,
			"first":   counter == 1,
			"last":    counter == length,
		})
		local.SetLocal(n.loopVar, item)
		if err := n.block.evaluate(sink, local, loader); err != nil {
			return err
		}
	}
	return nil
}

// iterationItems flattens the loop subject: mappings iterate their keys,
// strings iterate characters.
func (n *foreachDirectiveNode) iterationItems(iterable interface{}) ([]interface{}, error) {
	if keys, ok := mapKeysOf(iterable); ok {
		return keys, nil
	}
	if items, ok := listItems(iterable); ok {
		return items, nil
	}
	if s, ok := iterable.(string); ok {
		items := make([]interface{}, 0, len(s))
		for _, r := range s {
			items = append(items, string(r))
		}
		return items, nil
	}
	return nil, fmt.Errorf("value for $%s is not iterable in #foreach: %v", n.loopVar, iterable)
}

type includeDirectiveNode struct {
	span
	name expr
}

func parseIncludeDirective(src *source, pos int) (*includeDirectiveNode, int, bool, error) {
	c := newCursor(src, pos, "include directive")
	if _, ok := c.identityMatch(includeStartRE); !ok {
		return nil, pos, false, nil
	}
	name, end, err := parseTemplateName(src, c)
	if err != nil {
		return nil, pos, false, err
	}
	c.end = end
	return &includeDirectiveNode{span: c.span(), name: name}, c.end, true, nil
}

// parseTemplateName parses the parenthesized name argument shared by
// #include and #parse: a string literal, interpolated string or reference.
func parseTemplateName(src *source, c *cursor) (expr, int, error) {
	if _, err := c.requireMatch(openParenRE, "("); err != nil {
		return nil, c.end, err
	}
	var name expr
	if n, end, matched, err := parseStringLiteral(src, c.end); err != nil {
		return nil, c.end, err
	} else if matched {
		name, c.end = n, end
	} else if n, end, matched, err := parseInterpolatedStringLiteral(src, c.end); err != nil {
		return nil, c.end, err
	} else if matched {
		name, c.end = n, end
	} else if n, end, matched, err := parseFormalReference(src, c.end); err != nil {
		return nil, c.end, err
	} else if matched {
		name, c.end = n, end
	} else {
		return nil, c.end, c.syntaxError("template name")
	}
	if _, err := c.requireMatch(closeParenRE, ")"); err != nil {
		return nil, c.end, err
	}
	return name, c.end, nil
}

func (n *includeDirectiveNode) evaluate(sink Sink, ns *Namespace, loader Loader) error {
	return n.wrapExecErr(n.evaluateRaw(sink, ns, loader))
}

func (n *includeDirectiveNode) evaluateRaw(sink Sink, ns *Namespace, loader Loader) error {
	name, err := templateNameValue(n.name, ns, loader)
	if err != nil {
		return err
	}
	text, err := loader.LoadText(name)
	if err != nil {
		return err
	}
	_, err = sink.WriteString(text)
	return err
}

func templateNameValue(name expr, ns *Namespace, loader Loader) (string, error) {
	val, err := name.calculate(ns, loader)
	if err != nil {
		return "", err
	}
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("template name must be a string, got %s", typeName(val))
	}
	return s, nil
}

type parseDirectiveNode struct {
	span
	name expr
}

func parseParseDirective(src *source, pos int) (*parseDirectiveNode, int, bool, error) {
	c := newCursor(src, pos, "parse directive")
	if _, ok := c.identityMatch(parseStartRE); !ok {
		return nil, pos, false, nil
	}
	name, end, err := parseTemplateName(src, c)
	if err != nil {
		return nil, pos, false, err
	}
	c.end = end
	return &parseDirectiveNode{span: c.span(), name: name}, c.end, true, nil
}

func (n *parseDirectiveNode) evaluate(sink Sink, ns *Namespace, loader Loader) error {
	return n.wrapExecErr(n.evaluateRaw(sink, ns, loader))
}

// evaluateRaw runs the loaded template against the current namespace chain,
// so definitions it makes stay visible to the including template.
func (n *parseDirectiveNode) evaluateRaw(sink Sink, ns *Namespace, loader Loader) error {
	name, err := templateNameValue(n.name, ns, loader)
	if err != nil {
		return err
	}
	tpl, err := loader.LoadTemplate(name)
	if err != nil {
		return err
	}
	return tpl.evaluateInto(sink, ns, loader)
}

type stopDirectiveNode struct {
	span
}

func parseStopDirective(src *source, pos int) (*stopDirectiveNode, int, bool) {
	c := newCursor(src, pos, "stop directive")
	if _, ok := c.identityMatch(stopRE); !ok {
		return nil, pos, false
	}
	return &stopDirectiveNode{span: c.span()}, c.end, true
}

// evaluate suppresses further output when the sink supports stopping;
// evaluation itself runs on so later side effects still happen.
func (n *stopDirectiveNode) evaluate(sink Sink, _ *Namespace, _ Loader) error {
	if stopper, ok := sink.(Stopper); ok {
		stopper.Stop()
	}
	return nil
}

type evaluateDirectiveNode struct {
	span
	value expr
}

func parseEvaluateDirective(src *source, pos int) (*evaluateDirectiveNode, int, bool, error) {
	c := newCursor(src, pos, "evaluate directive")
	if _, ok := c.identityMatch(evaluateStartRE); !ok {
		return nil, pos, false, nil
	}
	if _, err := c.requireMatch(openParenRE, "("); err != nil {
		return nil, pos, false, err
	}
	value, end, matched, err := parseValue(src, c.end)
	if err != nil {
		return nil, pos, false, err
	}
	if !matched {
		return nil, pos, false, c.syntaxError("value")
	}
	c.end = end
	if _, err := c.requireMatch(closeParenRE, ")"); err != nil {
		return nil, pos, false, err
	}
	return &evaluateDirectiveNode{span: c.span(), value: value}, c.end, true, nil
}

func (n *evaluateDirectiveNode) evaluate(sink Sink, ns *Namespace, loader Loader) error {
	return n.wrapExecErr(n.evaluateRaw(sink, ns, loader))
}

func (n *evaluateDirectiveNode) evaluateRaw(sink Sink, ns *Namespace, loader Loader) error {
	val, err := n.value.calculate(ns, loader)
	if err != nil {
		return err
	}
	content, ok := val.(string)
	if !ok {
		return fmt.Errorf("#evaluate expects a string, got %s", typeName(val))
	}
	return NewTemplateNamed(content, "#evaluate").evaluateInto(sink, ns, loader)
}

// functionDefinitionNode backs both #macro and #define: a named parameter
// list plus a body block executed in a child scope of the call site.
type functionDefinitionNode struct {
	span
	name     string
	argNames []string
	block    *blockNode
	isMacro  bool
}

func parseMacroDefinition(src *source, pos int) (*functionDefinitionNode, int, bool, error) {
	n, end, matched, err := parseFunctionDefinition(
		src, pos, "macro definition", macroStartRE, macroNameRE, true)
	if matched {
		n.isMacro = true
	}
	return n, end, matched, err
}

func parseDefineDefinition(src *source, pos int) (*functionDefinitionNode, int, bool, error) {
	return parseFunctionDefinition(
		src, pos, "define definition", defineStartRE, defineNameRE, false)
}

func parseFunctionDefinition(src *source, pos int, elemName string, startRE, nameRE *regexp.Regexp, reserved bool) (*functionDefinitionNode, int, bool, error) {
	c := newCursor(src, pos, elemName)
	if _, ok := c.identityMatch(startRE); !ok {
		return nil, pos, false, nil
	}
	if _, err := c.requireMatch(openParenRE, "("); err != nil {
		return nil, pos, false, err
	}
	groups, err := c.requireMatch(nameRE, "function name")
	if err != nil {
		return nil, pos, false, err
	}
	n := &functionDefinitionNode{name: groups[0]}
	if reserved && isReservedDirectiveName(strings.ToLower(n.name)) {
		return nil, pos, false, c.syntaxError("non-reserved name")
	}
	for {
		groups, ok := c.identityMatch(argNameRE)
		if !ok {
			break
		}
		n.argNames = append(n.argNames, groups[0])
	}
	if _, err := c.requireMatch(closeParenRE, ") or arg name"); err != nil {
		return nil, pos, false, err
	}
	c.optionalMatch(wsToEndOfLine)
	block, end, err := parseBlock(src, c.end)
	if err != nil {
		return nil, pos, false, err
	}
	n.block = block
	c.end = end
	end, matched := parseEnd(src, c.end)
	if !matched {
		return nil, pos, false, c.syntaxError("block")
	}
	c.end = end
	n.span = c.span()
	return n, c.end, true, nil
}

func (n *functionDefinitionNode) evaluate(_ Sink, ns *Namespace, _ Loader) error {
	if n.isMacro {
		macroKey := "#" + strings.ToLower(n.name)
		if _, exists := ns.macro(n.name); exists {
			return n.wrapExecErr(fmt.Errorf("cannot redefine macro %s", macroKey))
		}
		ns.setMacro(n.name, n)
		return nil
	}
	ns.SetLocal(n.name, n)
	return nil
}

// execute runs the body with arguments bound in a child scope of "ns" (the
// call site's namespace, giving macros dynamic scoping).
func (n *functionDefinitionNode) execute(sink Sink, ns *Namespace, args []interface{}, loader Loader) error {
	if len(args) != len(n.argNames) {
		return fmt.Errorf("function %s expected %d arguments, got %d",
			n.name, len(n.argNames), len(args))
	}
	local := NewNamespace(ns)
	for i, argName := range n.argNames {
		local.SetLocal(argName, args[i])
	}
	return n.block.evaluate(sink, local, loader)
}

type macroCallNode struct {
	span
	name string
	args []expr
}

func parseMacroCall(src *source, pos int) (*macroCallNode, int, bool, error) {
	c := newCursor(src, pos, "macro call")
	groups, ok := c.identityMatch(macroCallRE)
	if !ok {
		return nil, pos, false, nil
	}
	n := &macroCallNode{name: strings.ToLower(groups[0])}
	if isReservedDirectiveName(n.name) {
		return nil, pos, false, nil
	}
	if !c.optionalMatch(openParenRE) {
		// typically a hex color literal
		return nil, pos, false, nil
	}
	for {
		arg, end, matched, err := parseValue(src, c.end)
		if err != nil {
			return nil, pos, false, err
		}
		if !matched {
			break
		}
		n.args = append(n.args, arg)
		c.end = end
		if !c.optionalMatch(spaceOrCommaRE) {
			break
		}
	}
	if _, err := c.requireMatch(closeParenRE, "argument value or )"); err != nil {
		return nil, pos, false, err
	}
	n.span = c.span()
	return n, c.end, true, nil
}

func (n *macroCallNode) evaluate(sink Sink, ns *Namespace, loader Loader) error {
	return n.wrapExecErr(n.evaluateRaw(sink, ns, loader))
}

func (n *macroCallNode) evaluateRaw(sink Sink, ns *Namespace, loader Loader) error {
	def, found := ns.macro(n.name)
	if !found {
		return fmt.Errorf("no such macro: %s", n.name)
	}
	args := make([]interface{}, 0, len(n.args))
	for _, arg := range n.args {
		val, err := arg.calculate(ns, loader)
		if err != nil {
			return err
		}
		args = append(args, val)
	}
	return def.execute(sink, ns, args, loader)
}

// Directive is a caller supplied directive implementation produced by a
// registered DirectiveParser.
type Directive interface {
	Evaluate(sink Sink, ns *Namespace, loader Loader) error
}

// DirectiveParser attempts to parse a custom directive at "offset" within
// "text". On a match it returns the parsed directive and the first offset
// past the consumed input; on a non-match it returns ok=false so the next
// alternative is tried. A non-nil error aborts compilation.
type DirectiveParser func(text string, offset int) (directive Directive, next int, ok bool, err error)

var userDirectives struct {
	sync.RWMutex
	parsers []DirectiveParser
}

// RegisterDirective adds a custom directive to the grammar. Registered
// parsers are tried, in registration order, after the built-in directives
// and before macro calls.
func RegisterDirective(parser DirectiveParser) {
	userDirectives.Lock()
	defer userDirectives.Unlock()
	userDirectives.parsers = append(userDirectives.parsers, parser)
}

type userDirectiveNode struct {
	span
	directive Directive
}

func parseUserDirective(src *source, pos int) (*userDirectiveNode, int, bool, error) {
	userDirectives.RLock()
	parsers := userDirectives.parsers
	userDirectives.RUnlock()

	for _, parser := range parsers {
		directive, next, ok, err := parser(src.text, pos)
		if err != nil {
			return nil, pos, false, err
		}
		if ok {
			n := &userDirectiveNode{
				span:      span{src: src, start: pos, end: next},
				directive: directive,
			}
			return n, next, true, nil
		}
	}
	return nil, pos, false, nil
}

func (n *userDirectiveNode) evaluate(sink Sink, ns *Namespace, loader Loader) error {
	return n.wrapExecErr(n.directive.Evaluate(sink, ns, loader))
}
