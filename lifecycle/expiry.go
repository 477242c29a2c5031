package lifecycle

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	seatlock "github.com/preplabs/seatlock"
)

// defaultTokenLifetime covers stored pairs whose lifetime cannot be
// recovered at all: opaque access token and no expires_in. One hour
// matches the common provider default.
const defaultTokenLifetime = time.Hour

// tokenLifetime recovers the access token's lifetime for timer arming.
// Preference order: the provider-reported expires_in, then the unverified
// exp claim of a JWT-shaped access token, then the default. Parsing is
// deliberately unverified — the client is not validating the token, only
// reading its own schedule out of it.
func tokenLifetime(pair seatlock.TokenPair, now time.Time) time.Duration {
	if pair.ExpiresIn > 0 {
		return time.Duration(pair.ExpiresIn) * time.Second
	}

	if remaining, ok := unverifiedRemaining(pair.AccessToken, now); ok {
		return remaining
	}
	return defaultTokenLifetime
}

func unverifiedRemaining(accessToken string, now time.Time) (time.Duration, bool) {
	if accessToken == "" {
		return 0, false
	}

	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return 0, false
	}

	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0, false
	}

	remaining := exp.Time.Sub(now)
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}
