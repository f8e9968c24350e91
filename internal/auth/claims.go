package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type tokenClaims struct {
	jwt.RegisteredClaims
	ObjectID          string `json:"oid"`
	PreferredUsername string `json:"preferred_username"`
	UPN               string `json:"upn"`
	Email             string `json:"email"`
	Name              string `json:"name"`
}

// AccountFromToken reads the account out of an access token's claims.
// The signature is not checked here; the remote store verifies every token it receives.
func AccountFromToken(raw string) (Account, error) {
	var c tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &c); err != nil {
		return Account{}, fmt.Errorf("%w: parsing token: %v", ErrAuthRequired, err)
	}

	acc := Account{
		ID:       firstNonEmpty(c.ObjectID, c.Subject),
		Username: firstNonEmpty(c.PreferredUsername, c.UPN, c.Email),
		Email:    firstNonEmpty(c.Email, c.UPN, c.PreferredUsername),
		Name:     c.Name,
	}

	if c.ExpiresAt != nil {
		acc.ExpiresAt = c.ExpiresAt.Time
		if acc.ExpiresAt.Before(time.Now()) {
			return Account{}, fmt.Errorf("%w: token expired at %s", ErrAuthRequired, acc.ExpiresAt.Format(time.RFC3339))
		}
	}

	if acc.ID == "" {
		return Account{}, fmt.Errorf("%w: token has no subject", ErrAuthRequired)
	}

	return acc, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
