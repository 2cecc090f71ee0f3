package gate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/career-agent/internal/types"
)

// SalaryRange is a parsed salary marker. Unknown is set for the explicit "unknown" marker.
// Months is the number of monthly salaries paid per year when the listing states it
// ("20-40K·14薪"), zero otherwise.
type SalaryRange struct {
	Min     float64
	Max     float64
	Months  int
	Unknown bool
}

const (
	amountPattern    = `(\d{1,3}(?:,\d{3})+|\d+(?:\.\d+)?)\s*(k|千|万)?`
	currencySymbol   = `(?:S\$|[$€£¥]|MYR|SGD|USD|CNY|RMB|EUR|GBP|HKD|IDR|INR|RM)?`
	currencyCode     = `(?:MYR|SGD|USD|CNY|RMB|EUR|GBP|HKD|IDR|INR|RM)`
	periodPattern    = `(?:/\s*(?:月|年|天|日|小时|时|month|mo|yr|year|annum|day|hour|hr)|per\s+(?:month|annum|year|day|hour)|monthly|annually|a\s+year|每月|每年)`
	monthsPattern    = `(?:[·•*x×]\s*(\d{1,2})\s*薪)`
	labelPattern     = `(?:[\p{L} ]+[:：]\s*)?`
	separatorPattern = `\s*(?:-|–|—|~|to)\s*`
)

var salaryRe = regexp.MustCompile(`(?i)^` + labelPattern +
	currencySymbol + `\s*` + amountPattern +
	separatorPattern +
	currencySymbol + `\s*` + amountPattern +
	`\s*` + currencyCode + `?` +
	`\s*` + periodPattern + `?` +
	`\s*` + monthsPattern + `?` +
	`\s*` + periodPattern + `?` +
	`\s*` + currencyCode + `?$`)

// unknownMarkers are phrases meaning no figure was published.
var unknownMarkers = map[string]bool{
	"unknown":       true,
	"negotiable":    true,
	"面议":            true,
	"薪资面议":          true,
	"n/a":           true,
	"not disclosed": true,
	"undisclosed":   true,
	"competitive":   true,
}

// ParseSalary parses a salary marker: a numeric range with optional label, currency and
// period, or the literal "unknown".
func ParseSalary(s string) (SalaryRange, error) {
	trimmed := strings.TrimSpace(s)
	if strings.EqualFold(trimmed, types.SalaryUnknown) {
		return SalaryRange{Unknown: true}, nil
	}

	m := salaryRe.FindStringSubmatch(trimmed)
	if m == nil {
		return SalaryRange{}, fmt.Errorf("salary %q is neither a numeric range nor %q", s, types.SalaryUnknown)
	}
	lo, err := amount(m[1], m[2])
	if err != nil {
		return SalaryRange{}, err
	}
	hi, err := amount(m[3], m[4])
	if err != nil {
		return SalaryRange{}, err
	}
	// "25-40k" carries the multiplier on the upper bound only.
	if m[2] == "" && m[4] != "" && lo < hi/1000 {
		lo, _ = amount(m[1], m[4])
	}
	if lo <= 0 || hi < lo {
		return SalaryRange{}, fmt.Errorf("salary %q has an invalid range", s)
	}
	out := SalaryRange{Min: lo, Max: hi}
	if m[5] != "" {
		out.Months, _ = strconv.Atoi(m[5])
		if out.Months < 12 || out.Months > 24 {
			return SalaryRange{}, fmt.Errorf("salary %q pays an implausible %d months a year", s, out.Months)
		}
	}
	return out, nil
}

func amount(number, unit string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(number, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid salary amount %q: %w", number, err)
	}
	switch strings.ToLower(unit) {
	case "k", "千":
		v *= 1000
	case "万":
		v *= 10000
	}
	return v, nil
}

// NormalizeSalary maps a raw salary string onto the marker the gate accepts.
// Empty input and known no-figure phrases become "unknown"; anything else is kept as is
// so the gate can judge it.
func NormalizeSalary(raw *string) *string {
	unknown := types.SalaryUnknown
	if raw == nil {
		return &unknown
	}
	s := strings.TrimSpace(*raw)
	if s == "" || unknownMarkers[strings.ToLower(s)] {
		return &unknown
	}
	return &s
}
