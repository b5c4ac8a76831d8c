package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeValid(t *testing.T) {
	tests := []struct {
		name     string
		r        Range
		expected bool
	}{
		{"single point", Range{StartLine: 1, StartColumn: 1, EndLine: 1, EndColumn: 1}, true},
		{"multi-line forward", Range{StartLine: 1, StartColumn: 1, EndLine: 3, EndColumn: 5}, true},
		{"same line reversed columns", Range{StartLine: 2, StartColumn: 10, EndLine: 2, EndColumn: 4}, false},
		{"start line after end line", Range{StartLine: 5, StartColumn: 1, EndLine: 2, EndColumn: 1}, false},
		{"zero line invalid", Range{StartLine: 0, StartColumn: 1, EndLine: 1, EndColumn: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.r.Valid())
		})
	}
}

func TestRangeAt(t *testing.T) {
	r := RangeAt(Point{Line: 1, Column: 1})
	assert.Equal(t, Range{StartLine: 1, StartColumn: 1, EndLine: 1, EndColumn: 1}, r)
}
