// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package filetests houses a test harness for merging templates and asserting
the expected output.
*/
package filetests

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/k14s/difflib"
	"velo.dev/velo/pkg/template"
)

// EvaluateTemplate is the processing desired from a source template to the
// final output.
type EvaluateTemplate func(src string) (string, *TestErr)

// FileTests contain a suite of test cases, each described in a separate file,
// verifying the behavior of templates.
//
// Test cases:
// - are found within the directory at "PathToTests"
// - conventionally have a .tpltest extension
// - top-half is the template; bottom-half is the expected output; divided by
//   `+++` and a blank line.
//
// Types of template tests:
// - expected output starting with `ERR:` indicate that expected output is an
//   error message
// - otherwise expected output is the literal merge output
//
// Trailing whitespace is insignificant on both sides of the comparison.
type FileTests struct {
	PathToTests string
	EvalFunc    EvaluateTemplate
}

// Run runs each test: enumerates each file within FileTests.PathToTests,
// splits it on the separator and merges using FileTests.EvalFunc.
func (f FileTests) Run(t *testing.T) {
	var files []string

	err := filepath.Walk(f.PathToTests, func(walkedPath string, fi os.FileInfo, err error) error {
		if err != nil || fi.IsDir() {
			return err
		}
		files = append(files, walkedPath)
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to enumerate filetests: %s", err)
	}

	if f.EvalFunc == nil {
		f.EvalFunc = f.DefaultEvalTemplate
	}

	for _, filePath := range files {
		t.Run(filePath, func(t *testing.T) {
			contents, err := os.ReadFile(filePath)
			if err != nil {
				t.Fatal(err)
			}

			pieces := strings.SplitN(string(contents), "\n+++\n\n", 2)
			if len(pieces) != 2 {
				t.Fatalf("expected file %s to include +++ separator", filePath)
			}
			expectedStr := pieces[1]

			result, testErr := f.EvalFunc(pieces[0])

			if strings.HasPrefix(expectedStr, "ERR:") {
				if testErr == nil {
					err = fmt.Errorf("expected merge error, but did not receive it")
				} else {
					resultStr := TrimTrailingMultilineWhitespace(testErr.UserErr().Error())

					expectedStr = strings.TrimPrefix(expectedStr, "ERR:")
					expectedStr = strings.TrimPrefix(expectedStr, " ")
					expectedStr = TrimTrailingMultilineWhitespace(expectedStr)
					err = f.expectEquals(resultStr, expectedStr)
				}
			} else {
				if testErr == nil {
					resultStr := TrimTrailingMultilineWhitespace(result)
					err = f.expectEquals(resultStr, TrimTrailingMultilineWhitespace(expectedStr))
				} else {
					err = testErr.TestErr()
				}
			}

			if err != nil {
				t.Fatalf("%s", err)
			}
		})
	}
}

// TestErr captures an error result from a single test.
type TestErr struct {
	realErr error
	testErr error
}

// NewTestErr creates a new TestErr
func NewTestErr(realErr, testErr error) *TestErr {
	return &TestErr{realErr, testErr}
}

// UserErr yields the error returned to the user
func (e TestErr) UserErr() error { return e.realErr }

// TestErr yields the error wrapped with helpful test context
func (e TestErr) TestErr() error { return e.testErr }

func (f FileTests) expectEquals(resultStr, expectedStr string) error {
	if resultStr != expectedStr {
		return fmt.Errorf("not equal; diff expected...actual:\n%v\n",
			difflib.PPDiff(strings.Split(expectedStr, "\n"), strings.Split(resultStr, "\n")))
	}
	return nil
}

// DefaultEvalTemplate merges the template "src" with an empty context and no
// loader.
func (f FileTests) DefaultEvalTemplate(src string) (string, *TestErr) {
	result, err := template.NewTemplateNamed(src, "stdin").Merge(map[string]interface{}{}, nil)
	if err != nil {
		return "", NewTestErr(err, fmt.Errorf("merge error: %v", err))
	}
	return result, nil
}

// TrimTrailingMultilineWhitespace removes trailing whitespace from every line
// and trailing newlines from the whole string.
func TrimTrailingMultilineWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
