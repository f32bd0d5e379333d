package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_VerifyRoundTrip(t *testing.T) {
	h, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(h, "$argon2id$v=19$m=65536,t=3,p=4$"))

	ok, err := VerifyPassword(h, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword(h, "S3cret")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_SaltsDiffer(t *testing.T) {
	a, err := HashPassword("same")
	require.NoError(t, err)
	b, err := HashPassword("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyPassword_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"empty", ""},
		{"wrong algorithm", "$argon2i$v=19$m=65536,t=3,p=4$c2FsdA$a2V5"},
		{"bad version", "$argon2id$v=16$m=65536,t=3,p=4$c2FsdA$a2V5"},
		{"bad params", "$argon2id$v=19$m=x,t=3,p=4$c2FsdA$a2V5"},
		{"bad salt", "$argon2id$v=19$m=65536,t=3,p=4$!!!$a2V5"},
		{"empty key", "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$"},
		{"zero threads", "$argon2id$v=19$m=65536,t=3,p=0$c2FsdA$a2V5"},
		{"zero rounds", "$argon2id$v=19$m=65536,t=0,p=4$c2FsdA$a2V5"},
		{"huge memory", "$argon2id$v=19$m=4294967295,t=3,p=4$c2FsdA$a2V5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := VerifyPassword(tt.encoded, "pw")
			assert.False(t, ok)
			assert.ErrorIs(t, err, ErrMalformedHash)
		})
	}
}
