package workbook

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	maxSheetName = 31
	// SummarySheet lists every input company and its status.
	SummarySheet = "Summary"
)

// SheetNamer hands out valid, unique sheet names.
type SheetNamer struct {
	used map[string]bool
}

func NewSheetNamer() *SheetNamer {
	return &SheetNamer{used: map[string]bool{strings.ToLower(SummarySheet): true}}
}

// Name returns a sheet name for company: at most 31 characters, none of
// []:*?/\ and no leading or trailing apostrophe. Names that collide
// (case-insensitively) get a ~2, ~3, ... suffix.
func (n *SheetNamer) Name(company string) string {
	base := sanitize(company)
	name := base
	for i := 2; n.used[strings.ToLower(name)]; i++ {
		suffix := "~" + strconv.Itoa(i)
		name = truncate(base, maxSheetName-len(suffix)) + suffix
	}
	n.used[strings.ToLower(name)] = true
	return name
}

func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, name)
	name = strings.Trim(strings.TrimSpace(name), "'")
	name = strings.TrimSpace(truncate(name, maxSheetName))
	name = strings.TrimRight(name, "'")
	if name == "" {
		return "Company"
	}
	return name
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
