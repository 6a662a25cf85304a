package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/yoockh/whalechat/internal/utils"
)

// ContextUserID is the gin context key holding the authenticated subject.
const ContextUserID = "user_id"

type apiError struct {
	Code  utils.Code `json:"code"`
	Error string     `json:"error"`
}

// JWTAuth validates HS256 bearer tokens signed with secret. issuer and
// audience are checked only when non-empty.
func JWTAuth(secret, issuer, audience string) gin.HandlerFunc {
	key := []byte(secret)

	unauthorized := func(c *gin.Context, msg string) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{Code: utils.CodeUnauthorized, Error: msg})
	}

	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			// browsers cannot set headers on websocket upgrades
			if tok := c.Query("access_token"); tok != "" && c.IsWebsocket() {
				auth = "Bearer " + tok
			} else {
				unauthorized(c, "missing bearer token")
				return
			}
		}

		raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if raw == "" {
			unauthorized(c, "missing bearer token")
			return
		}

		claims := &jwt.RegisteredClaims{}
		tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || tok == nil || !tok.Valid {
			unauthorized(c, "invalid token")
			return
		}

		if issuer != "" && claims.Issuer != issuer {
			unauthorized(c, "invalid token issuer")
			return
		}
		if audience != "" && !slices.Contains(claims.Audience, audience) {
			unauthorized(c, "invalid token audience")
			return
		}
		if claims.Subject == "" {
			unauthorized(c, "missing subject")
			return
		}

		c.Set(ContextUserID, claims.Subject)
		c.Next()
	}
}
