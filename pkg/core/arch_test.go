package core_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// parseImports returns the imports of every non-test Go file in dir, keyed
// by file name.
func parseImports(t *testing.T, dir string) map[string][]string {
	t.Helper()
	fset := token.NewFileSet()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", dir, err)
	}

	imports := make(map[string][]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".go") || strings.HasSuffix(entry.Name(), "_test.go") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			t.Errorf("Failed to parse %s: %v", path, err)
			continue
		}
		for _, imp := range f.Imports {
			imports[path] = append(imports[path], strings.Trim(imp.Path.Value, `"`))
		}
	}
	return imports
}

// TestCoreImportsOnly verifies pkg/core only imports the standard library.
// The Golden Rule: every other package depends on core, never the reverse.
func TestCoreImportsOnly(t *testing.T) {
	for file, imports := range parseImports(t, ".") {
		for _, importPath := range imports {
			// Stdlib paths have no dot in their first element.
			if strings.Contains(strings.SplitN(importPath, "/", 2)[0], ".") {
				t.Errorf("%s imports forbidden package: %s", file, importPath)
			}
		}
	}
}

// TestPkgDoesNotImportInternal verifies no library package under pkg/
// reaches into internal/. The pkg tree is usable without the CLI host.
func TestPkgDoesNotImportInternal(t *testing.T) {
	pkgDir := ".."
	entries, err := os.ReadDir(pkgDir)
	if err != nil {
		t.Fatalf("Failed to read pkg directory: %v", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		for file, imports := range parseImports(t, filepath.Join(pkgDir, entry.Name())) {
			for _, importPath := range imports {
				if strings.Contains(importPath, "/internal/") {
					t.Errorf("%s imports internal package: %s (pkg must not import internal packages)", file, importPath)
				}
			}
		}
	}
}
