package source

import (
	"testing"
)

func TestSpanEmptyAndLen(t *testing.T) {
	tests := []struct {
		name  string
		span  Span
		empty bool
		len   uint32
	}{
		{"empty at zero", Span{File: 1, Start: 0, End: 0}, true, 0},
		{"empty mid-file", Span{File: 1, Start: 7, End: 7}, true, 0},
		{"single byte", Span{File: 1, Start: 7, End: 8}, false, 1},
		{"range", Span{File: 2, Start: 10, End: 25}, false, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.span.Empty(); got != tt.empty {
				t.Errorf("Empty() = %v, want %v", got, tt.empty)
			}
			if got := tt.span.Len(); got != tt.len {
				t.Errorf("Len() = %d, want %d", got, tt.len)
			}
		})
	}
}

func TestSpanCover(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Span
		expected Span
	}{
		{
			name:     "disjoint spans widen",
			a:        Span{File: 1, Start: 10, End: 20},
			b:        Span{File: 1, Start: 30, End: 40},
			expected: Span{File: 1, Start: 10, End: 40},
		},
		{
			name:     "contained span is a no-op",
			a:        Span{File: 1, Start: 10, End: 40},
			b:        Span{File: 1, Start: 15, End: 20},
			expected: Span{File: 1, Start: 10, End: 40},
		},
		{
			name:     "other starts earlier",
			a:        Span{File: 1, Start: 10, End: 20},
			b:        Span{File: 1, Start: 5, End: 12},
			expected: Span{File: 1, Start: 5, End: 20},
		},
		{
			name:     "different file ignored",
			a:        Span{File: 1, Start: 10, End: 20},
			b:        Span{File: 2, Start: 0, End: 100},
			expected: Span{File: 1, Start: 10, End: 20},
		},
		{
			name:     "empty receiver takes other",
			a:        Span{File: 1, Start: 0, End: 0},
			b:        Span{File: 1, Start: 30, End: 40},
			expected: Span{File: 1, Start: 30, End: 40},
		},
		{
			name:     "empty other ignored",
			a:        Span{File: 1, Start: 10, End: 20},
			b:        Span{File: 1, Start: 3, End: 3},
			expected: Span{File: 1, Start: 10, End: 20},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Cover(tt.b); got != tt.expected {
				t.Errorf("Cover() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSpanString(t *testing.T) {
	s := Span{File: 3, Start: 14, End: 29}
	if got := s.String(); got != "3:14-29" {
		t.Errorf("String() = %q, want %q", got, "3:14-29")
	}
}
