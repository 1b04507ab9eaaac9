package tui

import (
	"strings"
	"testing"
)

func TestRepeatChar(t *testing.T) {
	tests := []struct {
		char     rune
		n        int
		expected string
	}{
		{'x', 0, ""},
		{'x', -2, ""},
		{'x', 1, "x"},
		{'x', 4, "xxxx"},
		{'─', 2, "──"},
		{' ', 3, "   "},
	}

	for _, tt := range tests {
		result := repeatChar(tt.char, tt.n)
		if result != tt.expected {
			t.Errorf("repeatChar(%q, %d) = %q, want %q", tt.char, tt.n, result, tt.expected)
		}
	}
}

func TestTruncatePath(t *testing.T) {
	tests := []struct {
		path     string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"fits_just", 9, "fits_just"},
		{"a:photos/2019/summer/beach.jpg", 20, ".../summer/beach.jpg"},
		{"a:photos/2019/summer/beach.jpg", 12, "...beach.jpg"},
		{"/a/b", 10, "/a/b"},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc"},
		{"abcdef", 4, "...f"},
	}

	for _, tt := range tests {
		result := truncatePath(tt.path, tt.maxLen)
		if result != tt.expected {
			t.Errorf("truncatePath(%q, %d) = %q, want %q", tt.path, tt.maxLen, result, tt.expected)
		}
		if len(result) > tt.maxLen {
			t.Errorf("truncatePath(%q, %d) result length %d exceeds maxLen", tt.path, tt.maxLen, len(result))
		}
	}
}

func TestPadLeft(t *testing.T) {
	tests := []struct {
		s        string
		width    int
		expected string
	}{
		{"1 KiB", 9, "    1 KiB"},
		{"abc", 3, "abc"},
		{"abcd", 3, "abcd"},
		{"", 2, "  "},
	}

	for _, tt := range tests {
		result := padLeft(tt.s, tt.width)
		if result != tt.expected {
			t.Errorf("padLeft(%q, %d) = %q, want %q", tt.s, tt.width, result, tt.expected)
		}
	}
}

func TestCenter(t *testing.T) {
	tests := []struct {
		s        string
		width    int
		expected string
	}{
		{"hub", 7, "  hub  "},
		{"hub", 6, " hub  "},
		{"hub", 3, "hub"},
		{"hub", 1, "hub"},
		{"", 4, "    "},
	}

	for _, tt := range tests {
		result := center(tt.s, tt.width)
		if result != tt.expected {
			t.Errorf("center(%q, %d) = %q, want %q", tt.s, tt.width, result, tt.expected)
		}
	}
}

func TestRenderDivider(t *testing.T) {
	for _, width := range []int{10, 40, 120} {
		result := renderDivider(width)
		if !strings.Contains(result, "─") {
			t.Errorf("renderDivider(%d) should contain the line character", width)
		}
	}
}
