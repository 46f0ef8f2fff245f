package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/FACorreiaa/go-itinerary-planner/config"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api"
)

type contextKey string

const UserIDKey contextKey = "userID"

var (
	ErrMissingToken = errors.New("authorization header required")
	ErrBadHeader    = errors.New("authorization header format must be Bearer {token}")
)

// Claims are issued by the account service; only UserID is consumed here.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Scope    string `json:"scope"`
	jwt.RegisteredClaims
}

// verifier checks bearer tokens against one JWT configuration.
type verifier struct {
	secret []byte
	cfg    config.JWTConfig
	now    func() time.Time
}

func newVerifier(logger *slog.Logger, jwtCfg config.JWTConfig) *verifier {
	if jwtCfg.SecretKey == "" {
		logger.Error("FATAL: JWT Secret Key is not configured!")
		panic("JWT Secret Key cannot be empty")
	}
	return &verifier{secret: []byte(jwtCfg.SecretKey), cfg: jwtCfg, now: time.Now}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", ErrBadHeader
	}
	return parts[1], nil
}

// verify returns the claims of a valid token or a message fit for a 401.
func (v *verifier) verify(tokenString string) (*Claims, string) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, "Token has expired"
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, "Malformed token"
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, "Invalid token signature"
		}
		return nil, "Invalid or expired token"
	}
	if !token.Valid {
		return nil, "Invalid token"
	}
	if claims.ExpiresAt == nil {
		return nil, "Token has expired"
	}
	if claims.Issuer != v.cfg.Issuer {
		return nil, "Invalid token issuer"
	}
	if v.cfg.Audience != "" && !api.VerifyAudience(claims.Audience, v.cfg.Audience) {
		return nil, "Invalid token audience"
	}
	if claims.UserID == "" {
		return nil, "Token has no subject"
	}
	return claims, ""
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller's user id in the request context.
func Authenticate(logger *slog.Logger, jwtCfg config.JWTConfig) func(next http.Handler) http.Handler {
	v := newVerifier(logger, jwtCfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			tokenString, err := bearerToken(r)
			if err != nil {
				l.WarnContext(ctx, "Rejected request without bearer token", slog.Any("error", err))
				api.ErrorResponse(w, r, http.StatusUnauthorized, err.Error())
				return
			}
			claims, msg := v.verify(tokenString)
			if claims == nil {
				l.WarnContext(ctx, "Token validation failed", slog.String("reason", msg))
				api.ErrorResponse(w, r, http.StatusUnauthorized, msg)
				return
			}

			ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
			l.DebugContext(ctx, "Authentication successful", slog.String("userID", claims.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthenticate lets anonymous requests through. A request that does
// carry a token must carry a valid one.
func OptionalAuthenticate(logger *slog.Logger, jwtCfg config.JWTConfig) func(next http.Handler) http.Handler {
	v := newVerifier(logger, jwtCfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if errors.Is(err, ErrMissingToken) {
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				api.ErrorResponse(w, r, http.StatusUnauthorized, err.Error())
				return
			}
			claims, msg := v.verify(tokenString)
			if claims == nil {
				logger.WarnContext(r.Context(), "Optional token rejected",
					slog.String("middleware", "OptionalAuthenticate"),
					slog.String("reason", msg))
				api.ErrorResponse(w, r, http.StatusUnauthorized, msg)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserIDKey, claims.UserID)))
		})
	}
}

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}
