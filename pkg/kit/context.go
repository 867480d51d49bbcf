package kit

import "context"

type contextKey string

const transportKey contextKey = "kit_transport"

// Transport names.
const (
	TransportHTTP = "http"
	TransportMCP  = "mcp"
)

// WithTransport records which transport is serving the request.
func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, transportKey, t)
}

// GetTransport returns the transport set by WithTransport, or "http".
func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(transportKey).(string); ok {
		return v
	}
	return TransportHTTP
}
