package nirum

import (
	"context"
	"net/http"
)

type requestContextKey struct{}

func withContextRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, requestContextKey{}, r)
}

// ContextRequest returns the HTTP request that carried the call being
// handled.
func ContextRequest(ctx context.Context) (*http.Request, bool) {
	v := ctx.Value(requestContextKey{})
	if v == nil {
		return nil, false
	}
	if ret, ok := v.(*http.Request); ok {
		return ret, true
	}
	return nil, false
}

type methodContextKey struct{}

func withContextMethod(ctx context.Context, m *Method) context.Context {
	return context.WithValue(ctx, methodContextKey{}, m)
}

// ContextMethod returns the descriptor of the method being handled.
func ContextMethod(ctx context.Context) (*Method, bool) {
	m, ok := ctx.Value(methodContextKey{}).(*Method)
	return m, ok && m != nil
}
