package feed

import (
	gojwt "github.com/golang-jwt/jwt/v5"
)


// The credential's payload is read without verifying the signature.
// The result is a display hint for "who am I" and never a trust boundary.
// Any decode failure yields an empty identity.
func IdentityFromJwt(jwt string) Identity {
	if jwt == "" {
		return Identity{}
	}

	parser := gojwt.NewParser()
	token, _, err := parser.ParseUnverified(jwt, gojwt.MapClaims{})
	if err != nil {
		return Identity{}
	}

	claims, ok := token.Claims.(gojwt.MapClaims)
	if !ok {
		return Identity{}
	}

	identity := Identity{}
	for _, key := range []string{"id", "sub", "_id", "userId"} {
		if userId, ok := stringOf(claims[key]); ok {
			identity.UserId = userId
			break
		}
	}
	if email, ok := claims["email"].(string); ok {
		identity.Email = email
	}
	return identity
}
