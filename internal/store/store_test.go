package store

import (
	"reflect"
	"testing"
)

// TestTagsRoundTrip tests the tags column encoding.
func TestTagsRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		col  string
	}{
		{"none", nil, ""},
		{"one", []string{"Unusual size"}, "Unusual size"},
		{"several", []string{"Silent-breaker", "Accumulation"}, "Silent-breaker,Accumulation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinTags(tt.tags); got != tt.col {
				t.Errorf("joinTags(%v) = %q, want %q", tt.tags, got, tt.col)
			}
			if got := SplitTags(tt.col); !reflect.DeepEqual(got, tt.tags) {
				t.Errorf("SplitTags(%q) = %v, want %v", tt.col, got, tt.tags)
			}
		})
	}
}
