package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the JWT claims structure for memos sessions. It embeds
// jwt.RegisteredClaims for standard fields (exp, iat, etc.) and adds the
// user identity the API layer needs.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
