package dispatch

import "context"

type sourceContextKey string

// sourceKey stores the identity of the dispatcher that originated a delivery.
const sourceKey = sourceContextKey("dispatch_source")

// ContextWithSource returns a context carrying the dispatching identity.
// The Dispatcher attaches its configured local identity to every Network.Send
// call this way, so transports and test doubles can attribute traffic to its
// origin.
func ContextWithSource(ctx context.Context, source string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, sourceKey, source)
}

// SourceFromContext extracts the dispatching identity, when present.
func SourceFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}

	source, ok := ctx.Value(sourceKey).(string)
	if !ok || source == "" {
		return "", false
	}

	return source, true
}
