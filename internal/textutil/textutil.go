// Package textutil formats user-facing strings.
package textutil

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Plural picks the Russian form for n: one (1, 21), few (2-4, 22-24) or many.
func Plural(n int64, one, few, many string) string {
	m := n
	if m < 0 {
		m = -m
	}
	form := many
	switch {
	case m%10 == 1 && m%100 != 11:
		form = one
	case m%10 >= 2 && m%10 <= 4 && (m%100 < 12 || m%100 > 14):
		form = few
	}
	return fmt.Sprintf("%d %s", n, form)
}

// Mask hides a name: every visible rune becomes a block, every space doubles.
func Mask(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsSpace(r) {
			b.WriteString("  ")
			continue
		}
		b.WriteRune('█')
	}
	return b.String()
}

// Shorten collapses whitespace and cuts s to at most width runes on a word
// boundary, ending with an ellipsis when cut.
func Shorten(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:width-1])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ") + "…"
}

// Thousands groups digits with spaces: 12 500.
func Thousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
