package osioclient

import (
	"time"

	"gopkg.in/square/go-jose.v2/jwt"
)

// TokenExpiry returns the expiry time of a login JWT.
// The signature is not verified. The server verifies the token on each request.
// A token without expiry returns the zero time.
func TokenExpiry(token string) (time.Time, error) {
	parsed, err := jwt.ParseSigned(token)
	if err != nil {
		return time.Time{}, err
	}
	var claims jwt.Claims
	if err = parsed.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return time.Time{}, err
	}
	if claims.Expiry == nil {
		return time.Time{}, nil
	}
	return claims.Expiry.Time(), nil
}
