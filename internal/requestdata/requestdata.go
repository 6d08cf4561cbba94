package requestdata

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

var requestDataKey ctxKey

// RequestData is the identity the session provider vouches for. The workflow
// engine trusts it as given and never re-authenticates.
type RequestData struct {
	UserID   uuid.UUID
	Username string
	FullName string
	RoleCode string
	Region   string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if rd, ok := ctx.Value(requestDataKey).(*RequestData); ok {
		return rd
	}
	return nil
}
