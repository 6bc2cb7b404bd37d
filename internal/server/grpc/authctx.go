package grpcserver

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/and161185/votefeed/internal/model"
)

type ctxKey string

const userKey ctxKey = "vf.user"

var errNoBearer = errors.New("no bearer token")

// TokenVerifier resolves a bearer token to the acting user.
type TokenVerifier interface {
	Verify(token string) (model.User, error)
}

// WithUser stores the authenticated user in context.
func WithUser(ctx context.Context, u model.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromCtx fetches the authenticated user from context.
func UserFromCtx(ctx context.Context) (model.User, bool) {
	v := ctx.Value(userKey)
	if v == nil {
		return model.User{}, false
	}
	u, ok := v.(model.User)
	return u, ok
}

// AuthUnary resolves "authorization: Bearer <JWT>" into the context user.
// Calls without a bearer token proceed anonymously; a token that fails
// verification is rejected with codes.Unauthenticated.
func AuthUnary(v TokenVerifier) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		tok, err := bearerTokenFromMD(ctx)
		if errors.Is(err, errNoBearer) {
			return next(ctx, req)
		}
		u, err := v.Verify(tok)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return next(WithUser(ctx, u), req)
	}
}

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errNoBearer
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			t := strings.TrimSpace(v[7:])
			if t != "" {
				return t, nil
			}
		}
	}
	return "", errNoBearer
}
