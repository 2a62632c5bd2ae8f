package testutil

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/guardiavault-oss/Paradexx-sub007/libs/apikey"
	"github.com/guardiavault-oss/Paradexx-sub007/libs/auth"
)

var (
	DemoOwnerID   = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	SecondOwnerID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
)

func GenerateJWT(ownerID uuid.UUID, secret []byte, ttl time.Duration, now time.Time) (string, error) {
	claims := auth.Claims{
		Roles:  []string{"user"},
		Scopes: []string{"vault"},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "guardiavault-auth",
			Subject:   ownerID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func GenerateExecutorKey(env string) (string, string, string, error) {
	return apikey.Generate(env)
}
