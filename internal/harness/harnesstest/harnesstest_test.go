package harnesstest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTestID(t *testing.T) {
	t.Run("Except_simple", func(t *testing.T) {
		assert.Equal(t, "Except_simple", TestID(t))
	})
	assert.Equal(t, "TestID", TestID(t))
}
