package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyBuilders(t *testing.T) {
	assert.Equal(t, "product:42:seats", BuildSeatsKey(42))
	assert.Equal(t, "lock:product:42:A-1-15", BuildLockKey(42, "A-1-15"))
}

func TestParseSeatsKey(t *testing.T) {
	id, ok := ParseSeatsKey("product:42:seats")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	for _, key := range []string{"product::seats", "product:x:seats", "lock:product:1:A", "product:-3:seats", "product:1:seat"} {
		_, ok := ParseSeatsKey(key)
		assert.False(t, ok, key)
	}
}
