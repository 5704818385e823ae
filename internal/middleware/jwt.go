package middleware

import (
	"context"
	"net/http"
	"strings"

	"homeworkhelper/internal/logger"
	"homeworkhelper/internal/reqctx"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func JWTAuth(secret string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				logger.WithCtx(r.Context()).Warn("JWTAuth: missing access token")
				http.Error(w, "missing access token", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				logger.WithCtx(r.Context()).Warn("JWTAuth: invalid or expired token", zap.Error(err))
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			if tokenType, _ := claims["token_type"].(string); tokenType != "access" {
				logger.WithCtx(r.Context()).Warn("JWTAuth: wrong token type", zap.Any("claims", claims))
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			userID, ok := claims["user_id"].(float64)
			if !ok {
				logger.WithCtx(r.Context()).Warn("JWTAuth: invalid payload", zap.Any("claims", claims))
				http.Error(w, "invalid payload", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ContextUserID, int(userID))
			ctx = reqctx.WithUserID(ctx, int(userID))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
