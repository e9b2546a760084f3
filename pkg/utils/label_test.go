package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeLabel(t *testing.T) {
	tests := []struct {
		name     string
		existing Label
		incoming Label
		want     Label
	}{
		{"empty existing", Label{}, Label{"lightgcn", "recall"}, Label{"lightgcn", "recall"}},
		{"empty incoming", Label{"mood_hot", "recall"}, Label{}, Label{"mood_hot", "recall"}},
		{"accumulate", Label{"a", "recall"}, Label{"b", "rerank"}, Label{"a|b", "recall,rerank"}},
		{"missing source", Label{"a", ""}, Label{"b", "filter"}, Label{"a|b", "filter"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeLabel(tt.existing, tt.incoming))
		})
	}
}
