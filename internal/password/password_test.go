package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashIsSaltedPerCall(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	first, err := h.Hash("Testpass1")
	require.NoError(t, err)
	second, err := h.Hash("Testpass1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify("Testpass1", first))
	assert.True(t, h.Verify("Testpass1", second))
}

func TestVerifyRejectsWrongPassword(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("Testpass1")
	require.NoError(t, err)

	assert.False(t, h.Verify("wrongpass1", hash))
	assert.False(t, h.Verify("", hash))
}

func TestVerifyTreatsMalformedHashAsMismatch(t *testing.T) {
	h := NewHasher(0)

	assert.False(t, h.Verify("Testpass1", "not-a-bcrypt-hash"))
	assert.False(t, h.Verify("Testpass1", ""))
}

func TestHashNeverStoresPlaintext(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("Testpass1")
	require.NoError(t, err)
	assert.NotContains(t, hash, "Testpass1")
}
