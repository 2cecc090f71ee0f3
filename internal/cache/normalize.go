package cache

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Key is a normalized (company, role) pair.
type Key string

// keySeparator joins the company and role parts of a key.
const keySeparator = "|"

// Normalize folds case, width and whitespace variants of a company and role into one key.
// "Shopee" / "Backend Eng" and " shopee " / "backend  eng" produce the same key.
func Normalize(company, role string) Key {
	return Key(normalizePart(company) + keySeparator + normalizePart(role))
}

// NormalizeCompany returns the normalized company part alone.
func NormalizeCompany(company string) string {
	return normalizePart(company)
}

// Valid reports whether both halves of the key are non-empty.
func (k Key) Valid() bool {
	company, role, ok := strings.Cut(string(k), keySeparator)
	return ok && company != "" && role != ""
}

// Company returns the company half of the key.
func (k Key) Company() string {
	company, _, _ := strings.Cut(string(k), keySeparator)
	return company
}

func normalizePart(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	// the separator must never appear inside a part
	s = strings.ReplaceAll(s, keySeparator, " ")
	return strings.Join(strings.Fields(s), " ")
}
