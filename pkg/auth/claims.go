package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a token. The
// subject is the stable id issued by the external identity provider; this
// engine maps it to an internal user row on each request.
type AccessTokenPayload struct {
	ExternalID string
	Handle     string
}

// AccessTokenClaims represents the typed JWT presented by clients.
type AccessTokenClaims struct {
	ExternalID string `json:"external_id"`
	Handle     string `json:"handle"`
	jwt.RegisteredClaims
}
