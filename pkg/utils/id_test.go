package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateID()
		assert.Len(t, id, 24)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
