package sexy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"
)

// TestExtractTestCases_RepositorySuites checks that every Markdown suite of
// the compiler extracts cleanly and has well-formed test cases.
func TestExtractTestCases_RepositorySuites(t *testing.T) {
	files, err := filepath.Glob("../test/*_test.md")
	be.Err(t, err, nil)
	be.True(t, len(files) > 0)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			content, err := os.ReadFile(file)
			be.Err(t, err, nil)

			testCases, err := ExtractTestCases(string(content))
			be.Err(t, err, nil)
			be.True(t, len(testCases) > 0)

			names := map[string]bool{}
			for _, tc := range testCases {
				be.True(t, tc.Name != "")
				be.True(t, !names[tc.Name])
				names[tc.Name] = true

				be.True(t, tc.Input != "")
				be.True(t, tc.InputType == InputTypeExpr || tc.InputType == InputTypeProgram)
				be.True(t, len(tc.Assertions) >= 1)

				for _, assertion := range tc.Assertions {
					if assertion.Type == AssertionTypeAST {
						be.True(t, assertion.ParsedSexy != nil)
					}
				}
			}
		})
	}
}
