package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationKind_String(t *testing.T) {
	tests := []struct {
		kind     OperationKind
		expected string
	}{
		{Create, "create"},
		{Update, "update"},
		{Delete, "delete"},
		{OperationKind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}
