package ingestion

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText_PreserveMarkdownHeadings(t *testing.T) {
	result := CleanText("# Jane Doe\n  ## Experience\nContent here")

	assert.Contains(t, result, "# Jane Doe")
	assert.Contains(t, result, "\n## Experience")
}

func TestCleanText_PreserveBulletLists(t *testing.T) {
	result := CleanText("- Built   APIs\n  * Item 2\n• Led team")

	assert.Contains(t, result, "- Built   APIs")
	assert.Contains(t, result, "  * Item 2")
	assert.Contains(t, result, "• Led team")
}

func TestCleanText_NormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "Line with multiple spaces", CleanText("Line    with \t multiple    spaces   "))
}

func TestCleanText_RemoveExcessiveBlankLines(t *testing.T) {
	assert.Equal(t, "Line 1\n\nLine 2", CleanText("Line 1\n\n\n\n\nLine 2"))
}

func TestCleanText_NormalizeLineEndings(t *testing.T) {
	assert.Equal(t, "Line 1\nLine 2\nLine 3", CleanText("Line 1\r\nLine 2\rLine 3"))
}

func TestCleanText_EmptyAndWhitespace(t *testing.T) {
	assert.Equal(t, "", CleanText(""))
	assert.Equal(t, "", CleanText("   \n\t\n  "))
}

func TestLoadResume(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.txt")
	require.NoError(t, os.WriteFile(path, []byte("Skills:  Go, Docker\r\n\r\n\r\n\r\nEducation: BSc CS"), 0o600))

	r, err := LoadResume(path)
	require.NoError(t, err)
	assert.Equal(t, "Skills: Go, Docker\n\nEducation: BSc CS", r.Text)
	assert.Equal(t, path, r.Path)
	assert.Len(t, r.Hash, 64)
	assert.Equal(t, Hash(r.Text), r.Hash)
}

func TestLoadResume_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadResume(filepath.Join(dir, "missing.txt"))
	assert.ErrorContains(t, err, "resume not found")

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("  \n "), 0o600))
	_, err = LoadResume(empty)
	assert.ErrorIs(t, err, ErrEmptyResume)

	big := filepath.Join(dir, "big.txt")
	require.NoError(t, os.WriteFile(big, []byte(strings.Repeat("a", MaxResumeBytes+1)), 0o600))
	_, err = LoadResume(big)
	assert.ErrorContains(t, err, "limit")
}

func TestHash_Deterministic(t *testing.T) {
	assert.Equal(t, Hash("abc"), Hash("abc"))
	assert.NotEqual(t, Hash("abc"), Hash("abd"))
}
