package middlewares

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/openmined/aclnotify/internal/server/handlers/api"
)

const (
	bearerPrefix      = "Bearer "
	authHeader        = "Authorization"
	SubjectContextKey = "subject"
)

var (
	errHeaderMissing = errors.New("Authorization header is missing")
	errHeaderFormat  = errors.New("Authorization header format must be Bearer {token}")
	errTokenMissing  = errors.New("token is missing")
	errTokenInvalid  = errors.New("invalid token")
)

// JWTAuth validates HS256 bearer tokens signed with secret. An empty secret
// disables authentication.
func JWTAuth(secret string) gin.HandlerFunc {
	if secret == "" {
		slog.Info("auth middleware disabled")
		return func(ctx *gin.Context) {
			ctx.Next()
		}
	}
	slog.Info("auth middleware enabled")

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}

	return func(ctx *gin.Context) {
		header := ctx.GetHeader(authHeader)
		if header == "" {
			api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAuthInvalidCredentials, errHeaderMissing)
			return
		}

		if !strings.HasPrefix(header, bearerPrefix) {
			api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAuthInvalidCredentials, errHeaderFormat)
			return
		}

		tokenString := strings.TrimPrefix(header, bearerPrefix)
		if tokenString == "" {
			api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAuthInvalidCredentials, errTokenMissing)
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := parser.ParseWithClaims(tokenString, claims, keyFunc)
		if err != nil {
			api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAuthInvalidCredentials, err)
			return
		}
		if !token.Valid {
			api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAuthInvalidCredentials, errTokenInvalid)
			return
		}

		ctx.Set(SubjectContextKey, claims.Subject)
		ctx.Next()
	}
}
