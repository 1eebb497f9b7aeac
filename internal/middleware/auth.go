package middleware

import (
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/accounts/api/transport"
	"github.com/fastygo/accounts/domain"
	"github.com/fastygo/accounts/pkg/httpcontext"
)

// Authenticator resolves a bearer token to a user id.
type Authenticator interface {
	Authenticate(raw string) (int64, error)
}

// JWTAuth rejects requests without a valid session token and stores the
// caller's id as the httpcontext.UserIDValue user value.
func JWTAuth(auth Authenticator, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			tokenString := extractToken(ctx)
			if tokenString == "" {
				unauthorized(ctx, "missing bearer token")
				return
			}

			userID, err := auth.Authenticate(tokenString)
			if err != nil {
				logger.Warn("invalid jwt token", zap.Error(err))
				unauthorized(ctx, "invalid session token")
				return
			}

			ctx.SetUserValue(httpcontext.UserIDValue, strconv.FormatInt(userID, 10))
			next(ctx)
		}
	}
}

func unauthorized(ctx *fasthttp.RequestCtx, message string) {
	body := transport.NewError(string(domain.ErrCodeUnauthorized), message, nil).String()
	ctx.Response.Header.SetContentType("application/json")
	ctx.Response.Header.Set("WWW-Authenticate", "Bearer")
	ctx.SetStatusCode(fasthttp.StatusUnauthorized)
	ctx.SetBodyString(body)
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := strings.TrimSpace(string(ctx.Request.Header.Peek("Authorization")))
	if header == "" {
		return ""
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
