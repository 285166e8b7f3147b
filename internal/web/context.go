package web

import (
	"context"
	"net/http"
)

// ContextKey keeps request-scoped values out of other packages' key space.
type ContextKey string

// AddValueToContext returns a shallow copy of r carrying value under key.
func AddValueToContext(r *http.Request, key ContextKey, value any) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), key, value))
}

// GetValueFromContext reports false when key is unset or holds another type.
func GetValueFromContext[T any](r *http.Request, key ContextKey) (T, bool) {
	v, ok := r.Context().Value(key).(T)
	return v, ok
}
