// Package ingestion loads resume text that an external parser has already converted to plain text.
package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// MaxResumeBytes bounds the size of an input resume.
const MaxResumeBytes = 1 << 20

var (
	spaceRun     = regexp.MustCompile(`[ \t]+`)
	blankLineRun = regexp.MustCompile(`\n\n\n+`)
)

// ErrEmptyResume is returned when a resume contains no text after cleaning.
var ErrEmptyResume = errors.New("resume is empty")

// Resume is cleaned resume text plus a content hash used as a stable identifier.
type Resume struct {
	Path string
	Text string
	Hash string
}

// CleanText normalizes line endings and whitespace while preserving headings and bullets.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}

	result := blankLineRun.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(result)
}

func cleanLine(line string) string {
	line = strings.TrimRight(line, " \t")
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return ""
	}

	// Headings and bullets keep their text verbatim.
	if strings.HasPrefix(trimmed, "#") {
		return trimmed
	}
	indent := len(line) - len(trimmed)
	if isBulletLine(trimmed) {
		return strings.Repeat(" ", indent) + trimmed
	}
	return strings.Repeat(" ", indent) + spaceRun.ReplaceAllString(trimmed, " ")
}

func isBulletLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") ||
		strings.HasPrefix(trimmed, "• ") || strings.HasPrefix(trimmed, "· ")
}

// Hash returns the SHA-256 hex digest of content.
func Hash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// LoadResume reads and cleans a plain-text resume.
func LoadResume(path string) (*Resume, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("resume not found: %w", err)
		}
		return nil, fmt.Errorf("failed to stat resume: %w", err)
	}
	if info.Size() > MaxResumeBytes {
		return nil, fmt.Errorf("resume %s is %d bytes, limit is %d", path, info.Size(), MaxResumeBytes)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read resume: %w", err)
	}
	return FromText(path, string(content))
}

// FromText builds a Resume from already loaded text.
func FromText(path, content string) (*Resume, error) {
	cleaned := CleanText(content)
	if cleaned == "" {
		return nil, ErrEmptyResume
	}
	return &Resume{Path: path, Text: cleaned, Hash: Hash(cleaned)}, nil
}
