// Package requestdata carries the authenticated identity through a
// request's context. The identity arrives from the auth middleware and
// is trusted as given; nothing downstream re-derives it.
package requestdata

import (
	"context"

	"github.com/google/uuid"
)

// Auth kinds.
const (
	KindJWT    = "jwt"
	KindAPIKey = "api_key"
)

type RequestData struct {
	UserID   uuid.UUID
	AuthKind string
	// APIKeyID is set when AuthKind is api_key.
	APIKeyID uuid.UUID
}

type requestDataKey struct{}

func With(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func Get(ctx context.Context) *RequestData {
	rd, ok := ctx.Value(requestDataKey{}).(*RequestData)
	if !ok {
		return nil
	}
	return rd
}

// UserID returns the acting user, uuid.Nil when unauthenticated.
func UserID(ctx context.Context) uuid.UUID {
	if rd := Get(ctx); rd != nil {
		return rd.UserID
	}
	return uuid.Nil
}
