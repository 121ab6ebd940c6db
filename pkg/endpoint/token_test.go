package endpoint

import (
	"testing"
	"time"

	"github.com/fluxorio/theron/pkg/address"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerifyLookupTokenRoundTrips(t *testing.T) {
	secret := []byte("shh")
	addr := address.New(3, 17, "results")

	token, err := signLookupToken(secret, "results", addr, time.Minute)
	require.NoError(t, err)

	got, err := verifyLookupToken(secret, token, "results")
	require.NoError(t, err)
	assert.Equal(t, addr, got)
}

func TestVerifyLookupTokenRejectsWrongName(t *testing.T) {
	secret := []byte("shh")
	addr := address.New(3, 17, "results")

	token, err := signLookupToken(secret, "results", addr, time.Minute)
	require.NoError(t, err)

	_, err = verifyLookupToken(secret, token, "something-else")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyLookupTokenRejectsWrongSecret(t *testing.T) {
	addr := address.New(3, 17, "results")
	token, err := signLookupToken([]byte("shh"), "results", addr, time.Minute)
	require.NoError(t, err)

	_, err = verifyLookupToken([]byte("different"), token, "results")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyLookupTokenRejectsExpiredToken(t *testing.T) {
	secret := []byte("shh")
	addr := address.New(3, 17, "results")

	token, err := signLookupToken(secret, "results", addr, -time.Second)
	require.NoError(t, err)

	_, err = verifyLookupToken(secret, token, "results")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyLookupTokenRejectsAlgNone(t *testing.T) {
	addr := address.New(3, 17, "results")
	claims := lookupClaims{
		Name:         "results",
		FrameworkID:  addr.FrameworkID(),
		MailboxIndex: addr.MailboxIndex(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	tokenString, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = verifyLookupToken([]byte("shh"), tokenString, "results")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
