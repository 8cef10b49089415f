// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"regexp"
	"strings"
)

// node is anything that can render itself into a sink.
type node interface {
	evaluate(sink Sink, ns *Namespace, loader Loader) error
}

// expr is anything that can produce a value.
type expr interface {
	calculate(ns *Namespace, loader Loader) (interface{}, error)
}

var (
	plainTextRE = regexp.MustCompile(
		`(?is)\A((?:[^\\$#]+|\\[$#])+|\$[^!{a-z0-9_]|\$\z|#\z|#[^{}a-zA-Z0-9#*]+|\\.)`)
	escapedDirectiveRE = regexp.MustCompile(`\\([$#]\S+)`)
	commentRE          = regexp.MustCompile(`(?s)\A#(?:#.*?(?:\n|\z)|\*.*?\*#(?:[ \t]*\n)?)`)
)

type textNode struct {
	span
	text string
}

func parseText(src *source, pos int) (*textNode, int, bool) {
	c := newCursor(src, pos, "text")
	groups, ok := c.identityMatch(plainTextRE)
	if !ok {
		return nil, pos, false
	}
	// \$foo and \#foo lose their backslash
	text := escapedDirectiveRE.ReplaceAllString(groups[0], "${1}")
	return &textNode{span: c.span(), text: text}, c.end, true
}

func (n *textNode) evaluate(sink Sink, _ *Namespace, _ Loader) error {
	_, err := sink.WriteString(n.text)
	return n.wrapExecErr(err)
}

// fallthroughHashText is a lone # that did not begin any directive or macro
// call (say, an HTML color). It must never swallow a block terminator.
type fallthroughHashTextNode struct {
	span
	text string
}

var blockTerminators = []string{"end", "else", "{end}", "{else}"}

func parseFallthroughHashText(src *source, pos int) (*fallthroughHashTextNode, int, bool) {
	rest := src.text[pos:]
	if !strings.HasPrefix(rest, "#") {
		return nil, pos, false
	}
	after := rest[1:]
	for _, terminator := range blockTerminators {
		if strings.HasPrefix(after, terminator) {
			return nil, pos, false
		}
	}
	n := &fallthroughHashTextNode{span: span{src: src, start: pos, end: pos + 1}, text: "#"}
	return n, pos + 1, true
}

func (n *fallthroughHashTextNode) evaluate(sink Sink, _ *Namespace, _ Loader) error {
	_, err := sink.WriteString(n.text)
	return n.wrapExecErr(err)
}

// commentNode is ## to end of line or #* ... *#; both swallow a trailing
// newline.
type commentNode struct {
	span
}

func parseComment(src *source, pos int) (*commentNode, int, bool) {
	c := newCursor(src, pos, "comment")
	if _, ok := c.identityMatch(commentRE); !ok {
		return nil, pos, false
	}
	return &commentNode{span: c.span()}, c.end, true
}

func (n *commentNode) evaluate(_ Sink, _ *Namespace, _ Loader) error {
	return nil
}

// blockNode is a run of template elements. Alternation is ordered and
// first-match-wins; parsing stops at the first position where nothing
// matches (an enclosing directive then expects its terminator there).
type blockNode struct {
	span
	children []node
}

func parseBlock(src *source, pos int) (*blockNode, int, error) {
	c := newCursor(src, pos, "block")
	n := &blockNode{}
	for {
		child, end, matched, err := parseBlockElement(src, c.end)
		if err != nil {
			return nil, pos, err
		}
		if !matched {
			break
		}
		n.children = append(n.children, child)
		c.end = end
	}
	n.span = c.span()
	return n, c.end, nil
}

func parseBlockElement(src *source, pos int) (node, int, bool, error) {
	if n, end, matched := parseText(src, pos); matched {
		return n, end, true, nil
	}
	if n, end, matched, err := parseFormalReference(src, pos); err != nil || matched {
		return nodeOrNil(n, err), end, matched, err
	}
	if n, end, matched := parseComment(src, pos); matched {
		return n, end, true, nil
	}
	if n, end, matched, err := parseIfDirective(src, pos); err != nil || matched {
		return nodeOrNil(n, err), end, matched, err
	}
	if n, end, matched, err := parseSetDirective(src, pos); err != nil || matched {
		return nodeOrNil(n, err), end, matched, err
	}
	if n, end, matched, err := parseForeachDirective(src, pos); err != nil || matched {
		return nodeOrNil(n, err), end, matched, err
	}
	if n, end, matched, err := parseIncludeDirective(src, pos); err != nil || matched {
		return nodeOrNil(n, err), end, matched, err
	}
	if n, end, matched, err := parseParseDirective(src, pos); err != nil || matched {
		return nodeOrNil(n, err), end, matched, err
	}
	if n, end, matched, err := parseMacroDefinition(src, pos); err != nil || matched {
		return nodeOrNil(n, err), end, matched, err
	}
	if n, end, matched, err := parseDefineDefinition(src, pos); err != nil || matched {
		return nodeOrNil(n, err), end, matched, err
	}
	if n, end, matched := parseStopDirective(src, pos); matched {
		return n, end, true, nil
	}
	if n, end, matched, err := parseUserDirective(src, pos); err != nil || matched {
		return nodeOrNil(n, err), end, matched, err
	}
	if n, end, matched, err := parseEvaluateDirective(src, pos); err != nil || matched {
		return nodeOrNil(n, err), end, matched, err
	}
	if n, end, matched, err := parseMacroCall(src, pos); err != nil || matched {
		return nodeOrNil(n, err), end, matched, err
	}
	if n, end, matched := parseFallthroughHashText(src, pos); matched {
		return n, end, true, nil
	}
	return nil, pos, false, nil
}

func nodeOrNil(n node, err error) node {
	if err != nil {
		return nil
	}
	return n
}

func (n *blockNode) evaluate(sink Sink, ns *Namespace, loader Loader) error {
	for _, child := range n.children {
		if err := child.evaluate(sink, ns, loader); err != nil {
			return err
		}
	}
	return nil
}

// templateBodyNode is the root of a compiled template: a block that must
// consume the entire source.
type templateBodyNode struct {
	span
	block *blockNode
}

func parseTemplateBody(src *source) (*templateBodyNode, error) {
	c := newCursor(src, 0, "template body")
	block, end, err := parseBlock(src, 0)
	if err != nil {
		return nil, err
	}
	c.end = end
	if c.end < len(src.text) {
		return nil, c.syntaxError("block element")
	}
	return &templateBodyNode{span: c.span(), block: block}, nil
}

func (n *templateBodyNode) evaluate(sink Sink, ns *Namespace, loader Loader) error {
	return n.block.evaluate(sink, ns, loader)
}
