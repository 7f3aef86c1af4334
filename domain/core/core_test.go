package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID_Unique(t *testing.T) {
	seen := make(map[ID]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := NewID()
		require.False(t, id.IsEmpty())
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestParseRunID(t *testing.T) {
	id, err := ParseRunID("abc-123")
	require.NoError(t, err)
	assert.Equal(t, RunID("abc-123"), id)

	_, err = ParseRunID("   ")
	assert.Error(t, err)
}

func TestFingerprint_Deterministic(t *testing.T) {
	parts := map[string]string{"test": "fisher_exact", "alpha": "0.05"}
	assert.Equal(t, Fingerprint(parts), Fingerprint(parts))
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	// Map iteration order must not leak into the hash.
	a := Fingerprint(map[string]string{"x": "1", "y": "2", "z": "3"})
	b := Fingerprint(map[string]string{"z": "3", "x": "1", "y": "2"})
	assert.Equal(t, a, b)
}

func TestFingerprint_SensitiveToValues(t *testing.T) {
	a := Fingerprint(map[string]string{"alpha": "0.05"})
	b := Fingerprint(map[string]string{"alpha": "0.01"})
	assert.NotEqual(t, a, b)
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("run", "xyz")
	assert.True(t, IsNotFoundError(err))
	assert.False(t, IsNotFoundError(assert.AnError))
}
