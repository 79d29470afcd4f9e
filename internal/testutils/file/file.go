package testfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// CreateTempFileWithContent creates a file named name with the provided
// content in a temporary directory of the test and returns the file path.
func CreateTempFileWithContent(t testing.TB, name string, content string) string {
	filePath := filepath.Join(t.TempDir(), name)
	err := os.WriteFile(filePath, []byte(content), 0600)
	require.NoError(t, err, "failed to create test file '%s'", filePath)
	return filePath
}
