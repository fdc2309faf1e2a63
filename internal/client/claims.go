package client

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// userIDFromToken reads the user_id claim of an access token without
// verifying its signature. The result only drives presentation; the backend
// remains the authority on who may do what.
func userIDFromToken(token string) (int64, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0, fmt.Errorf("parse access token: %w", err)
	}

	switch v := claims["user_id"].(type) {
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case nil:
		return 0, fmt.Errorf("access token has no user_id claim")
	default:
		return 0, fmt.Errorf("unexpected user_id claim type %T", v)
	}
}
