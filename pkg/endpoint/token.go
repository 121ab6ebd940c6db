package endpoint

import (
	"fmt"
	"time"

	"github.com/fluxorio/theron/pkg/address"
	"github.com/golang-jwt/jwt/v5"
)

// lookupClaims is the JWT payload a Register call signs and a Resolve
// call verifies, adapted from the teacher's pkg/web/middleware/auth/jwt.go
// HMAC-signing/parsing pair, narrowed to the three fields a name→Address
// mapping needs.
type lookupClaims struct {
	Name         string `json:"name"`
	FrameworkID  uint32 `json:"fid"`
	MailboxIndex uint32 `json:"midx"`
	jwt.RegisteredClaims
}

func signLookupToken(secret []byte, name string, addr address.Address, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := lookupClaims{
		Name:         name,
		FrameworkID:  addr.FrameworkID(),
		MailboxIndex: addr.MailboxIndex(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "theron-endpoint",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// verifyLookupToken parses and validates tokenString, rejecting anything
// not signed with an HMAC method (alg-confusion guard, matching the
// teacher's JWT middleware default SecretKeyFunc) or whose name claim
// does not match the name that was looked up.
func verifyLookupToken(secret []byte, tokenString, wantName string) (address.Address, error) {
	token, err := jwt.ParseWithClaims(tokenString, &lookupClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("endpoint: unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return address.Address{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*lookupClaims)
	if !ok || claims.Name != wantName {
		return address.Address{}, ErrInvalidToken
	}
	return address.New(claims.FrameworkID, claims.MailboxIndex, claims.Name), nil
}
