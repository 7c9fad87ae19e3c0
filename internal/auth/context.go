package auth

import (
	"context"

	"quizhub/internal/domain"
)

type viewerKey struct{}

// WithViewer attaches the resolved identity to ctx.
func WithViewer(ctx context.Context, v domain.Viewer) context.Context {
	return context.WithValue(ctx, viewerKey{}, v)
}

// ViewerFrom returns the identity attached to ctx, or the anonymous viewer.
func ViewerFrom(ctx context.Context) domain.Viewer {
	v, _ := ctx.Value(viewerKey{}).(domain.Viewer)
	return v
}
