package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty", nil, nil},
		{"trims and lowercases", []string{"  Alice@Example.COM "}, []string{"alice@example.com"}},
		{"drops duplicates case-insensitively",
			[]string{"a@x.io", "A@x.io", "b@x.io"},
			[]string{"a@x.io", "b@x.io"}},
		{"drops empties", []string{"", "  ", "a@x.io"}, []string{"a@x.io"}},
		{"preserves first-seen order",
			[]string{"c@x.io", "a@x.io", "c@x.io", "b@x.io"},
			[]string{"c@x.io", "a@x.io", "b@x.io"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrimLower(tt.in))
		})
	}
}
