// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package filepos

import (
	"fmt"
	"strings"
)

type Position struct {
	lineNum *int // 1 based
	colNum  *int // 1 based
	file    string
	line    string
	known   bool
}

func NewPosition(lineNum int) *Position {
	if lineNum <= 0 {
		panic("Lines are 1 based")
	}
	return &Position{lineNum: &lineNum, known: true}
}

// NewPositionInFile returns the Position of line "lineNum" within the file "file"
func NewPositionInFile(lineNum int, file string) *Position {
	p := NewPosition(lineNum)
	p.file = file
	return p
}

// NewPositionFromOffset locates the byte offset "offset" within "text",
// producing a Position with line, column and the source line cached.
func NewPositionFromOffset(text string, offset int, file string) *Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}
	upTo := text[:offset]
	lineStart := strings.LastIndex(upTo, "\n") + 1
	lineNum := strings.Count(upTo, "\n") + 1
	colNum := offset - lineStart + 1

	lineEnd := strings.Index(text[lineStart:], "\n")
	if lineEnd < 0 {
		lineEnd = len(text)
	} else {
		lineEnd += lineStart
	}

	p := NewPosition(lineNum)
	p.colNum = &colNum
	p.file = file
	p.line = text[lineStart:lineEnd]
	return p
}

// NewUnknownPosition is equivalent of zero value *Position
func NewUnknownPosition() *Position {
	return &Position{}
}

// NewUnknownPositionInFile produces a Position of a known file at an unknown line.
func NewUnknownPositionInFile(file string) *Position {
	return &Position{file: file}
}

func (p *Position) SetLine(line string) { p.line = line }

func (p *Position) IsKnown() bool { return p != nil && p.known }

func (p *Position) LineNum() int {
	if !p.IsKnown() {
		panic("Position is unknown")
	}
	if p.lineNum == nil {
		panic("Position was not properly initialized")
	}
	return *p.lineNum
}

// HasColNum reports whether the Position carries a column.
func (p *Position) HasColNum() bool {
	return p.IsKnown() && p.colNum != nil
}

func (p *Position) ColNum() int {
	if !p.HasColNum() {
		panic("Position has no column")
	}
	return *p.colNum
}

func (p *Position) GetLine() string {
	return p.line
}

func (p *Position) AsString() string {
	if p.HasColNum() {
		return fmt.Sprintf("line %d, column %d", p.LineNum(), p.ColNum())
	}
	return "line " + p.AsCompactString()
}

func (p *Position) GetFile() string {
	return p.file
}

func (p *Position) AsCompactString() string {
	filePrefix := p.file
	if len(filePrefix) > 0 {
		filePrefix += ":"
	}
	if p.IsKnown() {
		return fmt.Sprintf("%s%d", filePrefix, p.LineNum())
	}
	return fmt.Sprintf("%s?", filePrefix)
}

func (p *Position) AsIntString() string {
	if p.IsKnown() {
		return fmt.Sprintf("%d", p.LineNum())
	}
	return "?"
}

func (p *Position) DeepCopy() *Position {
	if p == nil {
		return nil
	}
	newPos := &Position{file: p.file, known: p.known, line: p.line}
	if p.lineNum != nil {
		lineVal := *p.lineNum
		newPos.lineNum = &lineVal
	}
	if p.colNum != nil {
		colVal := *p.colNum
		newPos.colNum = &colVal
	}
	return newPos
}

// IsNextTo compares the location of one position with another.
func (p *Position) IsNextTo(otherPosition *Position) bool {
	if p.IsKnown() && otherPosition.IsKnown() {
		if p.GetFile() == otherPosition.GetFile() {
			diff := p.LineNum() - otherPosition.LineNum()
			if -1 <= diff && 1 >= diff {
				return true
			}
		}
	}
	return false
}
