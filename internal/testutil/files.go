package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// CreateTempProject creates a temporary directory for module fixtures.
func CreateTempProject(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// CreateTestFile creates a TypeScript module file with the given content
// and returns its absolute path.
func CreateTestFile(t *testing.T, content string) string {
	t.Helper()
	dir := CreateTempProject(t)
	return CreateTestFileInDir(t, dir, "test.ts", content)
}

// CreateTestFileInDir creates a module file in a specific directory.
func CreateTestFileInDir(t *testing.T, dir, filename, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	filePath := filepath.Join(dir, filename)
	if err := os.WriteFile(filePath, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	return filepath.ToSlash(filePath)
}
