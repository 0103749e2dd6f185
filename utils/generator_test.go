package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anjiri1684/tutor_marketplace/testutil"
)

func TestGenerateUniqueReferralCode(t *testing.T) {
	db := testutil.OpenDB(t)

	code, err := GenerateUniqueReferralCode(db)
	require.NoError(t, err)
	assert.Len(t, code, referralCodeLength)
	for _, r := range code {
		assert.Contains(t, letterBytes, string(r))
	}
}

func TestRandomToken(t *testing.T) {
	a, err := RandomToken(32)
	require.NoError(t, err)
	b, err := RandomToken(32)
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
